package realm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwnObjectIDRoundTrip(t *testing.T) {
	r := newRealm("realm-1", 1, "session-1", Window, "https://example.com")
	handle := r.Own("obj-1")
	assert.NotEmpty(t, handle)

	objID, ok := r.ObjectID(handle)
	require.True(t, ok)
	assert.Equal(t, "obj-1", objID)

	r.Disown(handle)
	_, ok = r.ObjectID(handle)
	assert.False(t, ok)
}

func TestStorageCreateGetRemove(t *testing.T) {
	s := NewStorage()
	r := s.Create("realm-1", 1, "session-1", Window, "https://example.com", "ctx-1", "")

	got, ok := s.Get("realm-1")
	require.True(t, ok)
	assert.Same(t, r, got)

	s.Remove("realm-1")
	_, ok = s.Get("realm-1")
	assert.False(t, ok)
}

func TestFindByExecutionContext(t *testing.T) {
	s := NewStorage()
	s.Create("realm-1", 42, "session-1", Window, "https://a", "ctx-1", "")
	s.Create("realm-2", 7, "session-2", Window, "https://b", "ctx-2", "")

	found, ok := s.FindByExecutionContext("session-1", 42)
	require.True(t, ok)
	assert.Equal(t, "realm-1", found.ID)

	_, ok = s.FindByExecutionContext("session-1", 99)
	assert.False(t, ok)
}

func TestWindowRealmsFiltersByContextAndSandbox(t *testing.T) {
	s := NewStorage()
	s.Create("realm-1", 1, "session-1", Window, "https://a", "ctx-1", "")
	s.Create("realm-2", 2, "session-1", Window, "https://a", "ctx-1", "isolated")
	s.Create("realm-3", 3, "session-1", Window, "https://a", "ctx-2", "")

	def := s.WindowRealms("ctx-1", "")
	require.Len(t, def, 1)
	assert.Equal(t, "realm-1", def[0].ID)

	sandboxed := s.WindowRealms("ctx-1", "isolated")
	require.Len(t, sandboxed, 1)
	assert.Equal(t, "realm-2", sandboxed[0].ID)
}

func TestAllForContextAndRemoveAllForSession(t *testing.T) {
	s := NewStorage()
	s.Create("realm-1", 1, "session-1", Window, "https://a", "ctx-1", "")
	s.Create("realm-2", 2, "session-1", DedicatedWorker, "https://a", "ctx-1", "")
	s.Create("realm-3", 3, "session-2", Window, "https://b", "ctx-2", "")

	assert.Len(t, s.AllForContext("ctx-1"), 2)
	assert.Len(t, s.AllForContext("ctx-2"), 1)

	removed := s.RemoveAllForSession("session-1")
	assert.Len(t, removed, 2)
	assert.Len(t, s.All(), 1)

	_, ok := s.Get("realm-1")
	assert.False(t, ok)
}
