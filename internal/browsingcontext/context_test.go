package browsingcontext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chromedp/bidimapper/internal/navigation"
)

func noopEmit(navigation.Event) {}

func TestCreateTopLevelAndChild(t *testing.T) {
	s := NewStorage()
	parent := s.Create("parent-1", "", "default", "about:blank", noopEmit)
	assert.True(t, parent.IsTopLevel())

	child := s.Create("child-1", "parent-1", "default", "about:blank", noopEmit)
	assert.False(t, child.IsTopLevel())
	assert.Equal(t, []string{"child-1"}, parent.Children())

	top := s.TopLevel()
	require.Len(t, top, 1)
	assert.Equal(t, "parent-1", top[0].ID)
}

func TestDeleteRemovesDescendants(t *testing.T) {
	s := NewStorage()
	s.Create("parent-1", "", "default", "about:blank", noopEmit)
	s.Create("child-1", "parent-1", "default", "about:blank", noopEmit)
	s.Create("grandchild-1", "child-1", "default", "about:blank", noopEmit)

	removed := s.Delete("parent-1")
	assert.ElementsMatch(t, []string{"grandchild-1", "child-1", "parent-1"}, removed)

	_, ok := s.Get("parent-1")
	assert.False(t, ok)
	_, ok = s.Get("child-1")
	assert.False(t, ok)
}

func TestDeleteChildDetachesFromParent(t *testing.T) {
	s := NewStorage()
	parent := s.Create("parent-1", "", "default", "about:blank", noopEmit)
	s.Create("child-1", "parent-1", "default", "about:blank", noopEmit)

	s.Delete("child-1")
	assert.Empty(t, parent.Children())
	_, ok := s.Get("parent-1")
	assert.True(t, ok, "deleting a child must not remove its parent")
}

func TestDescendantsIncludesSelf(t *testing.T) {
	s := NewStorage()
	s.Create("parent-1", "", "default", "about:blank", noopEmit)
	s.Create("child-1", "parent-1", "default", "about:blank", noopEmit)

	assert.ElementsMatch(t, []string{"parent-1", "child-1"}, s.Descendants("parent-1"))
	assert.Equal(t, []string{"never-existed"}, s.Descendants("never-existed"))
}

func TestInUserContextFiltersTopLevelOnly(t *testing.T) {
	s := NewStorage()
	s.Create("ctx-1", "", "uc-1", "about:blank", noopEmit)
	s.Create("ctx-2", "", "uc-2", "about:blank", noopEmit)
	s.Create("child-1", "ctx-1", "uc-1", "about:blank", noopEmit)

	matched := s.InUserContext("uc-1")
	require.Len(t, matched, 1)
	assert.Equal(t, "ctx-1", matched[0].ID)
}

func TestMarkFailedAndCurrentTarget(t *testing.T) {
	s := NewStorage()
	c := s.Create("ctx-1", "", "default", "about:blank", noopEmit)
	assert.False(t, c.Failed())
	c.MarkFailed()
	assert.True(t, c.Failed())

	assert.Empty(t, c.CurrentTargetID())
	c.SetCurrentTarget("target-1")
	assert.Equal(t, "target-1", c.CurrentTargetID())
}

func TestVerifyTreeDetectsHealthyTree(t *testing.T) {
	s := NewStorage()
	s.Create("parent-1", "", "default", "about:blank", noopEmit)
	s.Create("child-1", "parent-1", "default", "about:blank", noopEmit)
	assert.True(t, s.VerifyTree())
}
