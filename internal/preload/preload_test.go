package preload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppliesToGlobalScript(t *testing.T) {
	s := NewStorage()
	sc := s.Add("() => {}", "", nil, nil)
	assert.True(t, sc.AppliesTo("any-context", "any-user-context"))
}

func TestAppliesToScopedByContext(t *testing.T) {
	s := NewStorage()
	sc := s.Add("() => {}", "", []string{"ctx-1"}, nil)
	assert.True(t, sc.AppliesTo("ctx-1", "default"))
	assert.False(t, sc.AppliesTo("ctx-2", "default"))
}

func TestAppliesToScopedByUserContext(t *testing.T) {
	s := NewStorage()
	sc := s.Add("() => {}", "", nil, []string{"uc-1"})
	assert.True(t, sc.AppliesTo("ctx-1", "uc-1"))
	assert.False(t, sc.AppliesTo("ctx-1", "uc-2"))
}

func TestRecordInstallAndInstalled(t *testing.T) {
	s := NewStorage()
	sc := s.Add("() => {}", "", nil, nil)
	assert.False(t, sc.Installed("target-1"))

	sc.RecordInstall("target-1", "cdp-id-1")
	assert.True(t, sc.Installed("target-1"))
	assert.False(t, sc.Installed("target-2"))

	ids := sc.CdpIdentifiers()
	assert.Equal(t, map[string]string{"target-1": "cdp-id-1"}, ids)
}

func TestStorageAddGetRemove(t *testing.T) {
	s := NewStorage()
	sc := s.Add("() => {}", "isolated", nil, nil)

	got, ok := s.Get(sc.ID)
	require.True(t, ok)
	assert.Equal(t, sc, got)

	removed, ok := s.Remove(sc.ID)
	require.True(t, ok)
	assert.Equal(t, sc.ID, removed.ID)

	_, ok = s.Get(sc.ID)
	assert.False(t, ok)

	_, ok = s.Remove(sc.ID)
	assert.False(t, ok)
}

func TestAllForFiltersByScope(t *testing.T) {
	s := NewStorage()
	global := s.Add("g()", "", nil, nil)
	scoped := s.Add("s()", "", []string{"ctx-1"}, nil)
	other := s.Add("o()", "", []string{"ctx-2"}, nil)

	matched := s.AllFor("ctx-1", "default")
	ids := make(map[string]bool)
	for _, sc := range matched {
		ids[sc.ID] = true
	}
	assert.True(t, ids[global.ID])
	assert.True(t, ids[scoped.ID])
	assert.False(t, ids[other.ID])

	assert.Len(t, s.All(), 3)
}
