// Package preload implements PreloadScriptStorage (spec §3, §4.2 step 2,
// §5): registered script.addPreloadScript entries and the idempotent
// install logic that applies them to every matching target.
package preload

import (
	"sync"

	"github.com/google/uuid"
)

// Script is one registered preload script (spec §3 "PreloadScript").
type Script struct {
	ID            string
	FunctionBody  string
	Sandbox       string
	ContextIDs    []string // restrict to these top-level browsing contexts; empty means global
	UserContextIDs []string // restrict to these user contexts; empty means all

	cdpIdentifiers map[string]string // target id -> CDP Page.addScriptToEvaluateOnNewDocument identifier
	mu             sync.Mutex
}

func newScript(id, body, sandbox string, contextIDs, userContextIDs []string) *Script {
	return &Script{
		ID:             id,
		FunctionBody:   body,
		Sandbox:        sandbox,
		ContextIDs:     contextIDs,
		UserContextIDs: userContextIDs,
		cdpIdentifiers: make(map[string]string),
	}
}

// AppliesTo reports whether this script should be installed on a target
// serving the given top-level browsing context / user context (spec §5).
func (s *Script) AppliesTo(contextID, userContextID string) bool {
	if len(s.ContextIDs) > 0 && !contains(s.ContextIDs, contextID) {
		return false
	}
	if len(s.UserContextIDs) > 0 && !contains(s.UserContextIDs, userContextID) {
		return false
	}
	return true
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// RecordInstall records the CDP identifier returned by
// Page.addScriptToEvaluateOnNewDocument for one target, so a later
// script.removePreloadScript can remove it again. The install paths skip a
// script by Target.PreloadInstalled, not by Installed; a re-attached target
// is a new Target, so the script is installed on it again.
func (s *Script) RecordInstall(targetID, cdpIdentifier string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cdpIdentifiers[targetID] = cdpIdentifier
}

// Installed reports whether this script is already installed on targetID.
func (s *Script) Installed(targetID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.cdpIdentifiers[targetID]
	return ok
}

// CdpIdentifiers returns every (targetID, cdpIdentifier) pair recorded for
// this script, used to remove it everywhere on script.removePreloadScript.
func (s *Script) CdpIdentifiers() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.cdpIdentifiers))
	for k, v := range s.cdpIdentifiers {
		out[k] = v
	}
	return out
}

// Storage is PreloadScriptStorage: every registered preload script, keyed
// by its generated id.
type Storage struct {
	mu      sync.RWMutex
	scripts map[string]*Script
}

// NewStorage constructs an empty PreloadScriptStorage.
func NewStorage() *Storage {
	return &Storage{scripts: make(map[string]*Script)}
}

// Add registers a new preload script and returns it.
func (s *Storage) Add(body, sandbox string, contextIDs, userContextIDs []string) *Script {
	sc := newScript(uuid.NewString(), body, sandbox, contextIDs, userContextIDs)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[sc.ID] = sc
	return sc
}

// Get looks up a script by id.
func (s *Storage) Get(id string) (*Script, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.scripts[id]
	return sc, ok
}

// Remove deletes a registered script (script.removePreloadScript); the
// caller is responsible for issuing Page.removeScriptToEvaluateOnNewDocument
// on every target it was installed on, using the returned identifiers.
func (s *Storage) Remove(id string) (*Script, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.scripts[id]
	if ok {
		delete(s.scripts, id)
	}
	return sc, ok
}

// AllFor returns every script that AppliesTo(contextID, userContextID),
// for installing on a newly attached target (spec §4.2 step 2).
func (s *Storage) AllFor(contextID, userContextID string) []*Script {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Script
	for _, sc := range s.scripts {
		if sc.AppliesTo(contextID, userContextID) {
			out = append(out, sc)
		}
	}
	return out
}

// All returns every registered script.
func (s *Storage) All() []*Script {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Script, 0, len(s.scripts))
	for _, sc := range s.scripts {
		out = append(out, sc)
	}
	return out
}
