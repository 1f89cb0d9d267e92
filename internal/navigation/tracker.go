// Package navigation implements the NavigationTracker component (spec
// §4.3): a per-browsing-context state machine correlating
// command-initiated and renderer-initiated navigations with CDP loaderIds
// and emitting the BiDi navigation event sequence.
package navigation

import (
	"sync"

	"github.com/google/uuid"
)

// State is one of the five NavigationTracker states (spec §4.3).
type State int

const (
	Idle State = iota
	Pending
	Started
	Committed
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Started:
		return "started"
	case Committed:
		return "committed"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// Outcome classifies how a navigation finished.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeLoad
	OutcomeFailed
	OutcomeAborted
)

// EventKind is the set of BiDi browsingContext navigation events the
// tracker can emit.
type EventKind int

const (
	EventNavigationStarted EventKind = iota
	EventNavigationAborted
	EventNavigationFailed
	EventFragmentNavigated
)

// Event is a navigation-related BiDi event to publish, carrying the URL
// that was active at the moment of emission (spec §4.3: "each transition
// records the URL that was active at the moment of emission").
type Event struct {
	Kind         EventKind
	ContextID    string
	NavigationID string
	URL          string
}

// Emitter publishes navigation events. The Mapper wires this to the
// EventManager.
type Emitter func(Event)

// Tracker is the NavigationTracker for one browsing context.
type Tracker struct {
	contextID string
	emit      Emitter
	newID     func() string

	mu           sync.Mutex
	state        State
	navigationID string
	loaderID     string
	url          string
	outcome      Outcome
	pendingID    string
	pendingURL   string
	doneCh       chan struct{}
}

// New constructs a Tracker for a browsing context starting at initialURL
// (typically "about:blank").
func New(contextID string, initialURL string, emit Emitter) *Tracker {
	return &Tracker{
		contextID: contextID,
		emit:      emit,
		newID:     func() string { return uuid.NewString() },
		state:     Idle,
		url:       initialURL,
		doneCh:    make(chan struct{}),
	}
}

// Done returns a channel closed when the navigation that is current at the
// time Done is called reaches Finished. browsingContext.navigate{wait:
// complete} selects on it alongside ctx.Done(). If the navigation has
// already finished, the returned channel is already closed.
func (t *Tracker) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.doneCh
}

func (t *Tracker) markFinishedLocked() {
	select {
	case <-t.doneCh:
	default:
		close(t.doneCh)
	}
}

func (t *Tracker) resetDoneLocked() {
	select {
	case <-t.doneCh:
		t.doneCh = make(chan struct{})
	default:
	}
}

// CurrentNavigationID returns the id of the navigation currently considered
// "current" for this context (spec: "updated only when a navigation
// actually starts").
func (t *Tracker) CurrentNavigationID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.navigationID
}

// URL returns the last URL recorded for this context.
func (t *Tracker) URL() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.url
}

// LoaderID returns the CDP loaderId of the current document (spec glossary
// "Navigable ID").
func (t *Tracker) LoaderID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loaderID
}

// CommandNavigate records a command-initiated navigation and returns its
// navigation id, to be returned in the browsingContext.navigate reply.
func (t *Tracker) CommandNavigate(url string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.newID()
	t.beginPendingLocked(id, url)
	return id
}

// FrameRequestedNavigation records a renderer-initiated pending navigation.
func (t *Tracker) FrameRequestedNavigation(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.beginPendingLocked(t.newID(), url)
}

func (t *Tracker) beginPendingLocked(id, url string) {
	t.state = Pending
	t.outcome = OutcomeNone
	// navigationID (the "current" id) is NOT updated here: it only updates
	// once the navigation actually starts (gets a loaderId).
	t.pendingID = id
	t.pendingURL = url
	t.resetDoneLocked()
}

// FrameStartedNavigating transitions Pending -> Started, aborting any
// previous Started navigation with a different loaderId.
func (t *Tracker) FrameStartedNavigating(url, loaderID string) {
	t.mu.Lock()
	var aborted *Event
	if t.state == Started && t.loaderID != "" && t.loaderID != loaderID {
		aborted = &Event{Kind: EventNavigationAborted, ContextID: t.contextID, NavigationID: t.navigationID, URL: t.url}
	}
	id := t.pendingID
	if id == "" {
		id = t.newID()
	}
	t.navigationID = id
	t.loaderID = loaderID
	t.url = url
	t.state = Started
	t.pendingID = ""
	t.pendingURL = ""
	ev := Event{Kind: EventNavigationStarted, ContextID: t.contextID, NavigationID: id, URL: url}
	t.mu.Unlock()

	if aborted != nil {
		t.emit(*aborted)
	}
	t.emit(ev)
}

// NavigationCommandFinished records that the CDP Page.navigate command for
// the current navigation returned, adopting its loaderId.
func (t *Tracker) NavigationCommandFinished(navigationID, loaderID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.navigationID == navigationID && t.state == Started {
		t.loaderID = loaderID
	}
}

// FrameNavigated handles Page.frameNavigated: if the loaderId matches the
// pending/started navigation, commit it.
func (t *Tracker) FrameNavigated(url, loaderID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if (t.state == Pending || t.state == Started) && (t.loaderID == "" || t.loaderID == loaderID) {
		t.loaderID = loaderID
		t.url = url
		t.state = Committed
		return
	}
	// Unrelated frame navigation (e.g. a sibling loader); still adopt the
	// url if it is the most recent signal for this context's document.
	t.url = url
}

// NavigatedWithinDocument handles a same-document (fragment) navigation: it
// never changes the current navigation id, but it is the only transition a
// fragment navigation goes through, so it must finish whatever navigation is
// current (spec §8 scenario 1) or navigate{wait:complete} would block
// forever waiting on a loadEventFired that never comes.
func (t *Tracker) NavigatedWithinDocument(url string) {
	t.mu.Lock()
	t.url = url
	navID := t.navigationID
	if t.state != Finished {
		t.state = Finished
		t.outcome = OutcomeLoad
		t.markFinishedLocked()
	}
	t.mu.Unlock()

	t.emit(Event{Kind: EventFragmentNavigated, ContextID: t.contextID, NavigationID: navID, URL: url})
}

// LoadPageEvent handles Page.loadEventFired for the given loaderId.
func (t *Tracker) LoadPageEvent(loaderID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if (t.state == Committed || t.state == Started) && t.loaderID == loaderID {
		t.state = Finished
		t.outcome = OutcomeLoad
		t.markFinishedLocked()
	}
}

// NetworkLoadingFailed handles Network.loadingFailed: if requestID matches
// the current loaderId (the document request), the navigation failed.
func (t *Tracker) NetworkLoadingFailed(requestID string) {
	t.mu.Lock()
	if t.loaderID == "" || t.loaderID != requestID || t.state == Finished {
		t.mu.Unlock()
		return
	}
	t.state = Finished
	t.outcome = OutcomeFailed
	t.markFinishedLocked()
	ev := Event{Kind: EventNavigationFailed, ContextID: t.contextID, NavigationID: t.navigationID, URL: t.url}
	t.mu.Unlock()

	t.emit(ev)
}

// FailNavigation force-fails the current navigation (e.g. a CDP command
// error synchronously returned for the Page.navigate call itself).
func (t *Tracker) FailNavigation(navigationID string) {
	t.mu.Lock()
	if t.navigationID != navigationID || t.state == Finished {
		t.mu.Unlock()
		return
	}
	t.state = Finished
	t.outcome = OutcomeFailed
	t.markFinishedLocked()
	ev := Event{Kind: EventNavigationFailed, ContextID: t.contextID, NavigationID: navigationID, URL: t.url}
	t.mu.Unlock()

	t.emit(ev)
}

// State returns the current state, outcome, and navigation id.
func (t *Tracker) State() (State, Outcome, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state, t.outcome, t.navigationID
}
