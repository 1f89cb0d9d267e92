package input

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointerRegisterDownClickCount(t *testing.T) {
	p := &PointerState{Buttons: make(map[int]bool)}
	base := time.Now()

	require.Equal(t, 1, p.RegisterDown(10, 10, base))
	require.Equal(t, 2, p.RegisterDown(11, 11, base.Add(100*time.Millisecond)))
	// (10,9) is sqrt(5) px from the previous press at (11,11), outside the
	// 2px radius: resets to 1.
	require.Equal(t, 1, p.RegisterDown(10, 9, base.Add(200*time.Millisecond)))

	// Outside the time window: resets to 1.
	require.Equal(t, 1, p.RegisterDown(10, 10, base.Add(2*time.Second)))

	// Inside the time window but outside the radius: resets to 1.
	require.Equal(t, 1, p.RegisterDown(200, 200, base.Add(2100*time.Millisecond)))
}

func TestDispatcherKeyNoOps(t *testing.T) {
	var calls []Action
	state := NewState()
	d := NewDispatcher(state, func(a Action, clickCount int) error {
		calls = append(calls, a)
		return nil
	})

	now := time.Now()
	require.NoError(t, d.performOne(Action{Kind: "keyUp", Key: "a"}, now))
	assert.Empty(t, calls, "releasing a never-pressed key must be a no-op")

	require.NoError(t, d.performOne(Action{Kind: "keyDown", Key: "a"}, now))
	require.NoError(t, d.performOne(Action{Kind: "keyDown", Key: "a"}, now))
	assert.Len(t, calls, 1, "repeating keyDown on an already-pressed key must be a no-op")

	require.NoError(t, d.performOne(Action{Kind: "keyUp", Key: "a"}, now))
	assert.Len(t, calls, 2)
}

func TestDispatcherPointerButtonNoOps(t *testing.T) {
	var calls []Action
	state := NewState()
	d := NewDispatcher(state, func(a Action, clickCount int) error {
		calls = append(calls, a)
		return nil
	})

	now := time.Now()
	require.NoError(t, d.performOne(Action{Kind: "pointerDown", SourceID: "mouse", Button: 0, X: 1, Y: 1}, now))
	require.NoError(t, d.performOne(Action{Kind: "pointerDown", SourceID: "mouse", Button: 0, X: 1, Y: 1}, now))
	assert.Len(t, calls, 1, "holding the same button must not re-dispatch")
}

func TestReleaseUndoesHeldKeysAndButtons(t *testing.T) {
	var kinds []string
	state := NewState()
	d := NewDispatcher(state, func(a Action, clickCount int) error {
		kinds = append(kinds, a.Kind)
		return nil
	})

	now := time.Now()
	require.NoError(t, d.performOne(Action{Kind: "keyDown", Key: "Shift"}, now))
	require.NoError(t, d.performOne(Action{Kind: "pointerDown", SourceID: "mouse", Button: 0}, now))

	require.NoError(t, d.Release(now))
	assert.Contains(t, kinds, "keyUp")
	assert.Contains(t, kinds, "pointerUp")
}
