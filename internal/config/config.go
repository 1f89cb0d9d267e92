// Package config implements ContextConfigStorage (spec §2, §4 component
// list): the three-level override resolution (process default -> user
// context -> browsing context) for the settings it models: viewport, cache
// behavior, extra headers and accept-insecure-certs.
package config

import (
	"sync"

	"github.com/kelseyhightower/envconfig"
)

// ProcessDefaults are process-level defaults loaded from the environment
// once at startup (spec §2 ambient stack: envconfig-style `MAPPER_` struct
// tags), the bottom of the three-level override chain.
type ProcessDefaults struct {
	AcceptInsecureCerts bool `envconfig:"ACCEPT_INSECURE_CERTS" default:"false"`
	CacheDisabled       bool `envconfig:"CACHE_DISABLED" default:"false"`
}

// LoadProcessDefaults reads ProcessDefaults from MAPPER_-prefixed
// environment variables, falling back to the struct tag defaults.
func LoadProcessDefaults() (ProcessDefaults, error) {
	var d ProcessDefaults
	if err := envconfig.Process("mapper", &d); err != nil {
		return ProcessDefaults{}, err
	}
	return d, nil
}

// Overlay is one level's partial configuration; a nil pointer field means
// "not set at this level, fall through".
type Overlay struct {
	AcceptInsecureCerts *bool
	CacheDisabled       *bool
	ExtraHeaders        map[string]string
	Viewport            *Viewport
}

// Viewport is an emulated device viewport (browsingContext.setViewport).
type Viewport struct {
	Width, Height int
}

// Effective is the resolved configuration for one browsing context: process
// default, overridden by its user context's overlay, overridden by its own
// overlay (spec §2: "global -> user context -> browsing context").
type Effective struct {
	AcceptInsecureCerts bool
	CacheDisabled       bool
	ExtraHeaders        map[string]string
	Viewport            *Viewport
}

// Storage is ContextConfigStorage.
type Storage struct {
	process ProcessDefaults

	mu            sync.RWMutex
	userContexts  map[string]Overlay
	browsingCtxs  map[string]Overlay
	ctxToUserCtx  map[string]string // browsing context id -> owning user context id
}

// NewStorage constructs ContextConfigStorage seeded with process defaults.
func NewStorage(process ProcessDefaults) *Storage {
	return &Storage{
		process:      process,
		userContexts: make(map[string]Overlay),
		browsingCtxs: make(map[string]Overlay),
		ctxToUserCtx: make(map[string]string),
	}
}

// RegisterContext records which user context a browsing context belongs to,
// so overlay resolution can walk the chain.
func (s *Storage) RegisterContext(contextID, userContextID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctxToUserCtx[contextID] = userContextID
}

// SetUserContextOverlay installs/replaces the overlay for a user context.
func (s *Storage) SetUserContextOverlay(userContextID string, o Overlay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userContexts[userContextID] = o
}

// SetContextOverlay installs/replaces the overlay for one browsing context.
func (s *Storage) SetContextOverlay(contextID string, o Overlay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.browsingCtxs[contextID] = o
}

// Resolve computes the Effective config for a browsing context by layering
// process defaults, its user context's overlay, then its own overlay.
func (s *Storage) Resolve(contextID string) Effective {
	s.mu.RLock()
	defer s.mu.RUnlock()

	eff := Effective{
		AcceptInsecureCerts: s.process.AcceptInsecureCerts,
		CacheDisabled:       s.process.CacheDisabled,
	}

	apply := func(o Overlay) {
		if o.AcceptInsecureCerts != nil {
			eff.AcceptInsecureCerts = *o.AcceptInsecureCerts
		}
		if o.CacheDisabled != nil {
			eff.CacheDisabled = *o.CacheDisabled
		}
		if o.ExtraHeaders != nil {
			eff.ExtraHeaders = o.ExtraHeaders
		}
		if o.Viewport != nil {
			eff.Viewport = o.Viewport
		}
	}

	if userContextID, ok := s.ctxToUserCtx[contextID]; ok {
		if uo, ok := s.userContexts[userContextID]; ok {
			apply(uo)
		}
	}
	if co, ok := s.browsingCtxs[contextID]; ok {
		apply(co)
	}
	return eff
}
