package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProcessDefaults(t *testing.T) {
	t.Setenv("MAPPER_ACCEPT_INSECURE_CERTS", "true")
	t.Setenv("MAPPER_CACHE_DISABLED", "")

	d, err := LoadProcessDefaults()
	require.NoError(t, err)
	assert.True(t, d.AcceptInsecureCerts)
	assert.False(t, d.CacheDisabled)
}

func TestResolveFallsBackToProcessDefaults(t *testing.T) {
	s := NewStorage(ProcessDefaults{AcceptInsecureCerts: true, CacheDisabled: false})
	eff := s.Resolve("ctx-1")
	assert.True(t, eff.AcceptInsecureCerts)
	assert.False(t, eff.CacheDisabled)
	assert.Nil(t, eff.Viewport)
}

func TestResolveLayersUserContextThenBrowsingContext(t *testing.T) {
	s := NewStorage(ProcessDefaults{AcceptInsecureCerts: false, CacheDisabled: false})
	s.RegisterContext("ctx-1", "uc-1")

	cacheDisabled := true
	s.SetUserContextOverlay("uc-1", Overlay{CacheDisabled: &cacheDisabled, ExtraHeaders: map[string]string{"X-From": "usercontext"}})

	eff := s.Resolve("ctx-1")
	assert.True(t, eff.CacheDisabled)
	assert.Equal(t, "usercontext", eff.ExtraHeaders["X-From"])

	vp := &Viewport{Width: 800, Height: 600}
	s.SetContextOverlay("ctx-1", Overlay{Viewport: vp})

	eff = s.Resolve("ctx-1")
	require.NotNil(t, eff.Viewport)
	assert.Equal(t, 800, eff.Viewport.Width)
	// the browsing context overlay didn't set CacheDisabled, so the user
	// context's value still applies.
	assert.True(t, eff.CacheDisabled)
	assert.Equal(t, "usercontext", eff.ExtraHeaders["X-From"])
}

func TestResolveUnknownContextUsesProcessDefaultsOnly(t *testing.T) {
	s := NewStorage(ProcessDefaults{AcceptInsecureCerts: true})
	eff := s.Resolve("never-registered")
	assert.True(t, eff.AcceptInsecureCerts)
	assert.Nil(t, eff.ExtraHeaders)
}
