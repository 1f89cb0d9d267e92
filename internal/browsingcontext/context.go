// Package browsingcontext implements BrowsingContextStorage (spec §4,
// component list): the tree of browsing contexts (frame hierarchy, user
// contexts).
package browsingcontext

import (
	"sync"

	"github.com/chromedp/bidimapper/internal/navigation"
)

// Context is one navigable frame (spec §3 "BrowsingContext").
type Context struct {
	ID            string
	ParentID      string // "" for a top-level context
	UserContextID string
	Tracker       *navigation.Tracker

	mu              sync.RWMutex
	children        []string
	currentTargetID string // the CdpTarget id currently serving this context
	failed          bool
	destroyed       bool
}

// URL returns the context's current URL, as tracked by its NavigationTracker.
func (c *Context) URL() string { return c.Tracker.URL() }

// NavigableID is the loaderId of the current document (spec glossary).
func (c *Context) NavigableID() string {
	return c.Tracker.LoaderID()
}

// IsTopLevel reports whether this context has no parent.
func (c *Context) IsTopLevel() bool { return c.ParentID == "" }

// Children returns the ids of this context's direct children.
func (c *Context) Children() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.children...)
}

// CurrentTargetID returns the id of the CdpTarget currently serving this
// context (spec §3 invariant: exactly one CdpTarget is "current").
func (c *Context) CurrentTargetID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentTargetID
}

// SetCurrentTarget swaps the current CdpTarget, used on OOPIF transitions.
func (c *Context) SetCurrentTarget(targetID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentTargetID = targetID
}

// MarkFailed records that CdpTarget.init failed for this context (spec
// §4.2 step 3: "the target is closed and the context is marked failed, not
// silently half-initialized").
func (c *Context) MarkFailed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failed = true
}

// Failed reports whether CdpTarget initialization failed for this context.
func (c *Context) Failed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.failed
}

func (c *Context) addChild(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.children = append(c.children, id)
}

func (c *Context) removeChild(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, ch := range c.children {
		if ch == id {
			c.children = append(c.children[:i], c.children[i+1:]...)
			return
		}
	}
}

// Storage is BrowsingContextStorage: the tree of browsing contexts.
type Storage struct {
	mu  sync.RWMutex
	all map[string]*Context
}

// NewStorage constructs an empty BrowsingContextStorage.
func NewStorage() *Storage {
	return &Storage{all: make(map[string]*Context)}
}

// Create adds a new browsing context. emit is the NavigationTracker's event
// sink, wired to the EventManager by the caller.
func (s *Storage) Create(id, parentID, userContextID, initialURL string, emit navigation.Emitter) *Context {
	ctx := &Context{
		ID:            id,
		ParentID:      parentID,
		UserContextID: userContextID,
		Tracker:       navigation.New(id, initialURL, emit),
	}

	s.mu.Lock()
	s.all[id] = ctx
	s.mu.Unlock()

	if parentID != "" {
		if parent, ok := s.Get(parentID); ok {
			parent.addChild(id)
		}
	}
	return ctx
}

// Get looks up a context by id.
func (s *Storage) Get(id string) (*Context, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.all[id]
	return c, ok
}

// Delete removes a context and all of its descendants (spec §3: "Deleting a
// parent deletes all descendants"), returning the ids removed.
func (s *Storage) Delete(id string) []string {
	var removed []string
	var walk func(string)
	walk = func(cid string) {
		c, ok := s.Get(cid)
		if !ok {
			return
		}
		for _, child := range c.Children() {
			walk(child)
		}
		s.mu.Lock()
		delete(s.all, cid)
		s.mu.Unlock()
		c.mu.Lock()
		c.destroyed = true
		c.mu.Unlock()
		removed = append(removed, cid)
	}
	if parent, ok := s.parentOf(id); ok {
		parent.removeChild(id)
	}
	walk(id)
	return removed
}

func (s *Storage) parentOf(id string) (*Context, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.all {
		for _, ch := range c.children {
			if ch == id {
				return c, true
			}
		}
	}
	return nil, false
}

// TopLevel returns every top-level (root) browsing context.
func (s *Storage) TopLevel() []*Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Context
	for _, c := range s.all {
		if c.ParentID == "" {
			out = append(out, c)
		}
	}
	return out
}

// Descendants returns id and every descendant of id, inclusive.
func (s *Storage) Descendants(id string) []string {
	out := []string{id}
	c, ok := s.Get(id)
	if !ok {
		return out
	}
	for _, child := range c.Children() {
		out = append(out, s.Descendants(child)...)
	}
	return out
}

// InUserContext returns every top-level context belonging to userContextID.
func (s *Storage) InUserContext(userContextID string) []*Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Context
	for _, c := range s.all {
		if c.ParentID == "" && c.UserContextID == userContextID {
			out = append(out, c)
		}
	}
	return out
}

// All returns every known browsing context.
func (s *Storage) All() []*Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Context, 0, len(s.all))
	for _, c := range s.all {
		out = append(out, c)
	}
	return out
}

// VerifyTree checks the spec §8 invariant: walking parent from any context
// reaches a top-level context, and children are a subset of recorded
// children. Used by tests.
func (s *Storage) VerifyTree() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.all {
		if c.ParentID != "" {
			parent, ok := s.all[c.ParentID]
			if !ok {
				return false
			}
			listed := false
			for _, id := range parent.Children() {
				if id == c.ID {
					listed = true
					break
				}
			}
			if !listed {
				return false
			}
		}
		seen := map[string]bool{}
		cur := c
		for cur.ParentID != "" {
			if seen[cur.ID] {
				return false // cycle
			}
			seen[cur.ID] = true
			parent, ok := s.all[cur.ParentID]
			if !ok {
				return false
			}
			cur = parent
		}
	}
	return true
}
