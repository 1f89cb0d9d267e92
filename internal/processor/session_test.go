package processor

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chromedp/bidimapper/internal/events"
)

func newTestEventsManager() *events.Manager {
	return events.NewManager(
		func(contextID string) []string { return []string{contextID} },
		func(contextID string) string { return "default" },
		func() []string { return []string{"c1"} },
		func(channel string, ev events.Event) {},
	)
}

func TestSessionSubscribeRejectsEmptyEvents(t *testing.T) {
	s := NewSession(newTestEventsManager())
	_, err := s.subscribe(context.Background(), json.RawMessage(`{"events":[]}`), "ch1")
	require.Error(t, err)
}

func TestSessionSubscribeAndUnsubscribe(t *testing.T) {
	ev := newTestEventsManager()
	s := NewSession(ev)

	res, err := s.subscribe(context.Background(), json.RawMessage(`{"events":["log.entryAdded"]}`), "ch1")
	require.NoError(t, err)
	sr, ok := res.(subscribeResult)
	require.True(t, ok)
	assert.NotEmpty(t, sr.Subscription)

	assert.True(t, ev.IsSubscribed("log.entryAdded", "c1"))

	var mu sync.Mutex
	body, _ := json.Marshal(unsubscribeParams{Subscriptions: []string{sr.Subscription}})
	mu.Lock()
	defer mu.Unlock()
	_, err = s.unsubscribe(context.Background(), json.RawMessage(body), "ch1")
	require.NoError(t, err)
	assert.False(t, ev.IsSubscribed("log.entryAdded", "c1"))
}

func TestSessionStatus(t *testing.T) {
	s := NewSession(newTestEventsManager())
	res, err := s.status(context.Background(), nil, "")
	require.NoError(t, err)
	sr, ok := res.(statusResult)
	require.True(t, ok)
	assert.False(t, sr.Ready)
}
