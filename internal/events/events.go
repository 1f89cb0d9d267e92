// Package events implements SubscriptionManager and EventManager (spec
// §4.7): the per-channel subscription graph, buffered replay for
// log.entryAdded, and module-toggle reconciliation.
package events

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// bufferedEvents lists the event names that are replayed to new
// subscriptions (spec §4.7: "currently log.entryAdded at 100 per context").
var bufferedEvents = map[string]int{
	"log.entryAdded": 100,
}

// Subscription is one subscribe() call's result: a set of event names
// restricted to some contexts/user contexts (or global), on one channel.
type Subscription struct {
	ID            string
	Channel       string
	Events        map[string]bool
	ContextIDs    map[string]bool // empty + UserContextIDs empty => global
	UserContextIDs map[string]bool
	seq           int // subscription-creation order, for delivery ordering
}

// covers reports whether this subscription's scope includes contextID,
// given the set of ancestor ids (contextID and everything above it up to
// its top-level context) and the user context contextID belongs to.
func (s *Subscription) covers(eventName string, ancestry []string, userContextID string) bool {
	if !s.Events[eventName] && !s.Events[wildcardModule(eventName)] {
		return false
	}
	if len(s.ContextIDs) == 0 && len(s.UserContextIDs) == 0 {
		return true // global
	}
	for _, id := range ancestry {
		if s.ContextIDs[id] {
			return true
		}
	}
	return s.UserContextIDs[userContextID]
}

// wildcardModule returns the module-level wildcard form of an event name
// ("log.entryAdded" -> "log"), since session.subscribe accepts bare module
// names meaning "every event in this module" (spec §4.7 scope).
func wildcardModule(eventName string) string {
	for i, r := range eventName {
		if r == '.' {
			return eventName[:i]
		}
	}
	return eventName
}

// ordinalEvent is one buffered event instance.
type ordinalEvent struct {
	ordinal int64
	event   Event
}

// Event is a published occurrence, carrying the originating context and a
// process-wide monotonic ordinal (spec glossary "EventWrapper").
type Event struct {
	Name      string
	ContextID string
	Ordinal   int64
	Params    interface{}
}

// Manager is the combined SubscriptionManager + EventManager: it tracks
// subscriptions, computes per-publish delivery sets, and replays buffered
// history to new subscriptions without duplication.
type Manager struct {
	mu   sync.Mutex
	nextOrdinal int64
	nextSeq     int

	subs map[string]*Subscription // id -> subscription

	buffers map[string]map[string][]ordinalEvent // eventName -> contextID -> ring (capped)

	// lastSent[eventName][contextID][channel] is the highest ordinal
	// already delivered to that channel, so replay never repeats.
	lastSent map[string]map[string]map[string]int64

	ancestryOf     func(contextID string) []string
	userContextOf  func(contextID string) string
	allLiveContexts func() []string

	onReconcile func()

	deliver func(channel string, ev Event)
}

// NewManager constructs a Manager. ancestryOf/userContextOf/allLiveContexts
// are queries into BrowsingContextStorage; deliver enqueues a formatted
// event onto a channel's OutgoingQueue.
func NewManager(ancestryOf func(string) []string, userContextOf func(string) string, allLiveContexts func() []string, deliver func(channel string, ev Event)) *Manager {
	return &Manager{
		subs:            make(map[string]*Subscription),
		buffers:         make(map[string]map[string][]ordinalEvent),
		lastSent:        make(map[string]map[string]map[string]int64),
		ancestryOf:      ancestryOf,
		userContextOf:   userContextOf,
		allLiveContexts: allLiveContexts,
		onReconcile:     func() {},
		deliver:         deliver,
	}
}

// OnReconcile registers the callback invoked after every subscribe/
// unsubscribe, used by the composition root to wire CdpTarget module
// toggling (spec §4.7 "Module toggling").
func (m *Manager) OnReconcile(f func()) { m.onReconcile = f }

// Subscribe registers a new subscription and returns its id. An empty
// contextIDs and userContextIDs means global (spec §4.7).
func (m *Manager) Subscribe(eventNames, contextIDs, userContextIDs []string, channel string) string {
	m.mu.Lock()
	m.nextSeq++
	sub := &Subscription{
		ID:             uuid.NewString(),
		Channel:        channel,
		Events:         toSet(eventNames),
		ContextIDs:     toSet(contextIDs),
		UserContextIDs: toSet(userContextIDs),
		seq:            m.nextSeq,
	}
	m.subs[sub.ID] = sub
	m.mu.Unlock()

	m.replay(sub)
	m.onReconcile()
	return sub.ID
}

// Unsubscribe removes a subscription by id. Overlapping subscriptions for
// the same channel are unaffected (spec §4.7).
func (m *Manager) Unsubscribe(id string) {
	m.mu.Lock()
	delete(m.subs, id)
	m.mu.Unlock()
	m.onReconcile()
}

// IsSubscribed reports whether any live subscription covers eventName for
// contextID, used by CdpTarget domain-toggle reconciliation.
func (m *Manager) IsSubscribed(eventName, contextID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	ancestry := m.ancestryOf(contextID)
	userContextID := m.userContextOf(contextID)
	for _, s := range m.subs {
		if s.covers(eventName, ancestry, userContextID) {
			return true
		}
	}
	return false
}

// Publish records ev (buffering it if its name is in bufferedEvents) and
// delivers it to every channel whose subscription set currently covers it,
// in subscription-creation order (spec §4.7 delivery).
func (m *Manager) Publish(name, contextID string, params interface{}) {
	m.mu.Lock()
	ordinal := atomic.AddInt64(&m.nextOrdinal, 1)
	ev := Event{Name: name, ContextID: contextID, Ordinal: ordinal, Params: params}

	if cap, ok := bufferedEvents[name]; ok {
		byCtx, ok := m.buffers[name]
		if !ok {
			byCtx = make(map[string][]ordinalEvent)
			m.buffers[name] = byCtx
		}
		ring := append(byCtx[contextID], ordinalEvent{ordinal, ev})
		if len(ring) > cap {
			ring = ring[len(ring)-cap:]
		}
		byCtx[contextID] = ring
	}

	ancestry := m.ancestryOf(contextID)
	userContextID := m.userContextOf(contextID)
	var targets []*Subscription
	for _, s := range m.subs {
		if s.covers(name, ancestry, userContextID) {
			targets = append(targets, s)
		}
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].seq < targets[j].seq })
	// One delivery per channel, at its earliest covering subscription.
	seen := make(map[string]bool, len(targets))
	perChannel := targets[:0]
	for _, s := range targets {
		if !seen[s.Channel] {
			seen[s.Channel] = true
			perChannel = append(perChannel, s)
		}
	}
	targets = perChannel

	for _, s := range targets {
		m.markSentLocked(name, contextID, s.Channel, ordinal)
	}
	m.mu.Unlock()

	for _, s := range targets {
		m.deliver(s.Channel, ev)
	}
}

func (m *Manager) markSentLocked(eventName, contextID, channel string, ordinal int64) {
	byCtx, ok := m.lastSent[eventName]
	if !ok {
		byCtx = make(map[string]map[string]int64)
		m.lastSent[eventName] = byCtx
	}
	byChan, ok := byCtx[contextID]
	if !ok {
		byChan = make(map[string]int64)
		byCtx[contextID] = byChan
	}
	if ordinal > byChan[channel] {
		byChan[channel] = ordinal
	}
}

// replay delivers buffered events not yet sent to sub's channel, for every
// buffered event name sub subscribes to (spec §4.7: "replay of buffered
// events not yet delivered to that channel").
func (m *Manager) replay(sub *Subscription) {
	for name := range bufferedEvents {
		if !sub.Events[name] && !sub.Events[wildcardModule(name)] {
			continue
		}

		m.mu.Lock()
		byCtx := m.buffers[name]
		var contextIDs []string
		if len(sub.ContextIDs) == 0 && len(sub.UserContextIDs) == 0 {
			contextIDs = m.allLiveContexts()
		} else {
			for id := range byCtx {
				ancestry := m.ancestryOf(id)
				userContextID := m.userContextOf(id)
				if sub.covers(name, ancestry, userContextID) {
					contextIDs = append(contextIDs, id)
				}
			}
		}

		var pending []ordinalEvent
		for _, contextID := range contextIDs {
			lastSent := m.lastSent[name][contextID][sub.Channel]
			for _, oe := range byCtx[contextID] {
				if oe.ordinal > lastSent {
					pending = append(pending, oe)
				}
			}
		}
		sort.Slice(pending, func(i, j int) bool { return pending[i].ordinal < pending[j].ordinal })
		for _, oe := range pending {
			m.markSentLocked(name, oe.event.ContextID, sub.Channel, oe.ordinal)
		}
		m.mu.Unlock()

		for _, oe := range pending {
			m.deliver(sub.Channel, oe.event)
		}
	}
}

func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, it := range items {
		s[it] = true
	}
	return s
}
