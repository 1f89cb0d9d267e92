// Package realm implements RealmStorage (spec §4, data model "Realm"): the
// set of JavaScript execution contexts known to the Mapper, indexed by id,
// owning browsing context, CDP session, and sandbox name.
package realm

import (
	"sync"

	"github.com/google/uuid"
)

// Kind distinguishes the Realm variants listed in spec §3.
type Kind string

const (
	Window          Kind = "window"
	DedicatedWorker Kind = "dedicated-worker"
	SharedWorker    Kind = "shared-worker"
	ServiceWorker   Kind = "service-worker"
	Worklet         Kind = "worklet"
)

// Realm is a JavaScript execution context (spec §3).
type Realm struct {
	ID                 string // CDP Runtime.uniqueId; unique for the process lifetime
	ExecutionContextID int64
	SessionID          string // owning CdpTarget's CDP session id
	Kind               Kind
	Origin             string
	ContextID          string // owning BrowsingContext id, for Window realms
	Sandbox            string // "" is the default sandbox
	OwnerRealmID       string // for worker realms spawned from a Window realm
	IsHidden           bool

	mu      sync.Mutex
	handles map[string]string // BiDi handle -> CDP objectId, resultOwnership=root
}

func newRealm(id string, execID int64, sessionID string, kind Kind, origin string) *Realm {
	return &Realm{
		ID:                 id,
		ExecutionContextID: execID,
		SessionID:          sessionID,
		Kind:               kind,
		Origin:             origin,
		handles:            make(map[string]string),
	}
}

// Own records objectID under a fresh handle and returns it (spec §4.6,
// resultOwnership=Root).
func (r *Realm) Own(objectID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := uuid.NewString()
	r.handles[h] = objectID
	return h
}

// ObjectID resolves a handle back to its CDP objectId, or "" if unknown.
func (r *Realm) ObjectID(handle string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.handles[handle]
	return id, ok
}

// Disown releases a handle (script.disown).
func (r *Realm) Disown(handle string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, handle)
}

// Storage is RealmStorage: realms indexed by id, context, session, sandbox.
type Storage struct {
	mu   sync.RWMutex
	byID map[string]*Realm
}

// NewStorage constructs an empty RealmStorage.
func NewStorage() *Storage {
	return &Storage{byID: make(map[string]*Realm)}
}

// Create adds a new realm for an execution context just created via
// Runtime.executionContextCreated, and returns it.
func (s *Storage) Create(id string, execID int64, sessionID string, kind Kind, origin, contextID, sandbox string) *Realm {
	r := newRealm(id, execID, sessionID, kind, origin)
	r.ContextID = contextID
	r.Sandbox = sandbox

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[id] = r
	return r
}

// Get looks up a realm by its BiDi/CDP unique id.
func (s *Storage) Get(id string) (*Realm, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	return r, ok
}

// Remove deletes a realm, e.g. on Runtime.executionContextDestroyed.
func (s *Storage) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
}

// FindByExecutionContext finds the realm for a given CDP session + execution
// context id pair.
func (s *Storage) FindByExecutionContext(sessionID string, execID int64) (*Realm, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.byID {
		if r.SessionID == sessionID && r.ExecutionContextID == execID {
			return r, true
		}
	}
	return nil, false
}

// WindowRealms returns the default (sandbox=="") or named-sandbox Window
// realm(s) for a browsing context.
func (s *Storage) WindowRealms(contextID string, sandbox string) []*Realm {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Realm
	for _, r := range s.byID {
		if r.Kind == Window && r.ContextID == contextID && r.Sandbox == sandbox {
			out = append(out, r)
		}
	}
	return out
}

// AllForContext returns every realm (any kind) owned directly by a browsing
// context, used to tear down realms when the context is destroyed.
func (s *Storage) AllForContext(contextID string) []*Realm {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Realm
	for _, r := range s.byID {
		if r.ContextID == contextID {
			out = append(out, r)
		}
	}
	return out
}

// RemoveAllForSession removes and returns every realm bound to a CDP
// session, called when that session's CdpTarget is disposed.
func (s *Storage) RemoveAllForSession(sessionID string) []*Realm {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Realm
	for id, r := range s.byID {
		if r.SessionID == sessionID {
			out = append(out, r)
			delete(s.byID, id)
		}
	}
	return out
}

// All returns every known realm, for session.status/diagnostics use.
func (s *Storage) All() []*Realm {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Realm, 0, len(s.byID))
	for _, r := range s.byID {
		out = append(out, r)
	}
	return out
}
