package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() (*Manager, *[]Event) {
	var delivered []Event
	var mu sync.Mutex
	m := NewManager(
		func(contextID string) []string { return []string{contextID} },
		func(contextID string) string { return "uc-" + contextID },
		func() []string { return []string{"c1"} },
		func(channel string, ev Event) {
			mu.Lock()
			defer mu.Unlock()
			delivered = append(delivered, ev)
		},
	)
	return m, &delivered
}

func TestSubscriptionReplayNoDuplication(t *testing.T) {
	m, delivered := newTestManager()

	m.Publish("log.entryAdded", "c1", "a")
	m.Publish("log.entryAdded", "c1", "b")
	m.Publish("log.entryAdded", "c1", "c")

	subID := m.Subscribe([]string{"log.entryAdded"}, nil, nil, "ch1")
	require.Len(t, *delivered, 3, "subscribing after the fact must replay buffered events")

	m.Unsubscribe(subID)
	m.Subscribe([]string{"log.entryAdded"}, nil, nil, "ch1")
	assert.Len(t, *delivered, 3, "re-subscribing on the same channel must not re-deliver already-sent events")
}

func TestPublishDeliversOnlyToCoveringSubscriptions(t *testing.T) {
	m, delivered := newTestManager()

	m.Subscribe([]string{"network.beforeRequestSent"}, nil, nil, "ch1")
	m.Publish("log.entryAdded", "c1", "x")
	assert.Empty(t, *delivered)

	m.Publish("network.beforeRequestSent", "c1", "y")
	assert.Len(t, *delivered, 1)
}

func TestIsSubscribedReflectsLiveSubscriptions(t *testing.T) {
	m, _ := newTestManager()
	assert.False(t, m.IsSubscribed("network.beforeRequestSent", "c1"))

	id := m.Subscribe([]string{"network.beforeRequestSent"}, []string{"c1"}, nil, "ch1")
	assert.True(t, m.IsSubscribed("network.beforeRequestSent", "c1"))

	m.Unsubscribe(id)
	assert.False(t, m.IsSubscribed("network.beforeRequestSent", "c1"))
}

func TestModuleWildcardSubscription(t *testing.T) {
	m, delivered := newTestManager()
	m.Subscribe([]string{"log"}, nil, nil, "ch1")
	m.Publish("log.entryAdded", "c1", "x")
	assert.Len(t, *delivered, 1)
}
