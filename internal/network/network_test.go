package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chromedp/bidimapper/internal/cdpwire"
)

func TestCreateIndexesByBidiAndCdpID(t *testing.T) {
	s := NewStorage()
	r := s.Create("session-1", "cdp-1", cdpwire.Request{URL: "https://example.com"})

	assert.Equal(t, "cdp-1", r.ID)
	assert.Equal(t, "https://example.com", r.URL())

	byBidi, ok := s.GetByBidiID("cdp-1")
	require.True(t, ok)
	assert.Same(t, r, byBidi)

	byCdp, ok := s.GetByCdpID("cdp-1")
	require.True(t, ok)
	assert.Same(t, r, byCdp)
}

func TestRedirectReKeysByCdpIDAndKeepsBidiID(t *testing.T) {
	s := NewStorage()
	r := s.Create("session-1", "cdp-1", cdpwire.Request{URL: "https://example.com/old"})

	s.Redirect(r, "cdp-2", 302, "https://example.com/old", cdpwire.Request{URL: "https://example.com/new"})

	_, ok := s.GetByCdpID("cdp-1")
	assert.False(t, ok, "old cdp id should no longer resolve")

	byCdp, ok := s.GetByCdpID("cdp-2")
	require.True(t, ok)
	assert.Same(t, r, byCdp)

	byBidi, ok := s.GetByBidiID("cdp-1")
	require.True(t, ok)
	assert.Same(t, r, byBidi, "BiDi request id stays the first cdp id across redirects")

	assert.Equal(t, 1, r.RedirectCount())
	assert.Equal(t, "https://example.com/new", r.URL())
	_, hasResponse := r.Response()
	assert.False(t, hasResponse, "redirect clears the prior hop's response")
}

func TestBindFetchIDAndRemoveCleansAllIndexes(t *testing.T) {
	s := NewStorage()
	r := s.Create("session-1", "cdp-1", cdpwire.Request{URL: "https://example.com"})

	s.BindFetchID("fetch-1", r)
	byFetch, ok := s.GetByFetchID("fetch-1")
	require.True(t, ok)
	assert.Same(t, r, byFetch)
	assert.Equal(t, "fetch-1", r.FetchRequestID())

	s.Remove(r)

	_, ok = s.GetByBidiID("cdp-1")
	assert.False(t, ok)
	_, ok = s.GetByCdpID("cdp-1")
	assert.False(t, ok)
	_, ok = s.GetByFetchID("fetch-1")
	assert.False(t, ok)
}

func TestSetPhaseAndBlocked(t *testing.T) {
	r := newRequest("cdp-1", "session-1", "cdp-1", cdpwire.Request{})
	assert.Equal(t, PhaseNone, r.Phase())

	r.SetPhase(PhaseBeforeRequest, "fetch-1")
	assert.Equal(t, PhaseBeforeRequest, r.Phase())
	assert.Equal(t, "fetch-1", r.FetchRequestID())

	assert.False(t, r.Blocked())
	r.MarkBlocked()
	assert.True(t, r.Blocked())
}

func TestAllReturnsEveryTrackedRequest(t *testing.T) {
	s := NewStorage()
	s.Create("session-1", "cdp-1", cdpwire.Request{URL: "https://a"})
	s.Create("session-1", "cdp-2", cdpwire.Request{URL: "https://b"})
	assert.Len(t, s.All(), 2)
}
