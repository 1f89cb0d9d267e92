package navigation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandNavigateThenFrameStartedNavigating(t *testing.T) {
	var events []Event
	tr := New("ctx-1", "about:blank", func(ev Event) { events = append(events, ev) })

	navID := tr.CommandNavigate("https://example.com")
	state, _, _ := tr.State()
	assert.Equal(t, Pending, state)

	tr.FrameStartedNavigating("https://example.com", "loader-1")
	state, _, curID := tr.State()
	assert.Equal(t, Started, state)
	assert.Equal(t, navID, curID)

	require.Len(t, events, 1)
	assert.Equal(t, EventNavigationStarted, events[0].Kind)
	assert.Equal(t, navID, events[0].NavigationID)
}

func TestFrameStartedNavigatingAbortsPreviousStarted(t *testing.T) {
	var events []Event
	tr := New("ctx-1", "about:blank", func(ev Event) { events = append(events, ev) })

	tr.FrameStartedNavigating("https://a", "loader-1")
	tr.FrameStartedNavigating("https://b", "loader-2")

	require.Len(t, events, 3)
	assert.Equal(t, EventNavigationAborted, events[1].Kind)
	assert.Equal(t, EventNavigationStarted, events[2].Kind)
}

func TestFrameNavigatedCommitsMatchingLoader(t *testing.T) {
	tr := New("ctx-1", "about:blank", func(Event) {})
	tr.FrameStartedNavigating("https://a", "loader-1")
	tr.FrameNavigated("https://a", "loader-1")

	state, _, _ := tr.State()
	assert.Equal(t, Committed, state)
	assert.Equal(t, "https://a", tr.URL())
}

func TestLoadPageEventFinishesMatchingLoader(t *testing.T) {
	tr := New("ctx-1", "about:blank", func(Event) {})
	tr.FrameStartedNavigating("https://a", "loader-1")
	tr.FrameNavigated("https://a", "loader-1")
	tr.LoadPageEvent("loader-1")

	state, outcome, _ := tr.State()
	assert.Equal(t, Finished, state)
	assert.Equal(t, OutcomeLoad, outcome)

	select {
	case <-tr.Done():
	case <-time.After(time.Second):
		t.Fatal("Done channel should be closed once finished")
	}
}

func TestNavigatedWithinDocumentKeepsNavigationID(t *testing.T) {
	var events []Event
	tr := New("ctx-1", "about:blank", func(ev Event) { events = append(events, ev) })

	tr.FrameStartedNavigating("https://a", "loader-1")
	_, _, navID := tr.State()

	tr.NavigatedWithinDocument("https://a#frag")
	assert.Equal(t, "https://a#frag", tr.URL())

	last := events[len(events)-1]
	assert.Equal(t, EventFragmentNavigated, last.Kind)
	assert.Equal(t, navID, last.NavigationID)

	state, outcome, curID := tr.State()
	assert.Equal(t, Finished, state)
	assert.Equal(t, OutcomeLoad, outcome)
	assert.Equal(t, navID, curID)

	select {
	case <-tr.Done():
	case <-time.After(time.Second):
		t.Fatal("a fragment navigation must finish the current navigation, not just report it")
	}
}

func TestNetworkLoadingFailedMatchesLoaderID(t *testing.T) {
	var events []Event
	tr := New("ctx-1", "about:blank", func(ev Event) { events = append(events, ev) })

	tr.FrameStartedNavigating("https://a", "loader-1")
	tr.NetworkLoadingFailed("loader-1")

	state, outcome, _ := tr.State()
	assert.Equal(t, Finished, state)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Equal(t, EventNavigationFailed, events[len(events)-1].Kind)
}

func TestNetworkLoadingFailedIgnoresUnrelatedRequest(t *testing.T) {
	tr := New("ctx-1", "about:blank", func(Event) {})
	tr.FrameStartedNavigating("https://a", "loader-1")
	tr.NetworkLoadingFailed("some-other-request")

	state, _, _ := tr.State()
	assert.Equal(t, Started, state, "an unrelated request failure must not affect the tracker")
}

func TestFailNavigationOnlyAffectsMatchingID(t *testing.T) {
	tr := New("ctx-1", "about:blank", func(Event) {})
	navID := tr.CommandNavigate("https://a")
	tr.FrameStartedNavigating("https://a", "loader-1")

	tr.FailNavigation("wrong-id")
	state, _, _ := tr.State()
	assert.Equal(t, Started, state)

	tr.FailNavigation(navID)
	state, outcome, _ := tr.State()
	assert.Equal(t, Finished, state)
	assert.Equal(t, OutcomeFailed, outcome)
}
