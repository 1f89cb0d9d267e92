// Package input implements InputState and the ActionDispatcher (spec
// §4.5): per-context pointer/key state, W3C Actions tick scheduling, and
// click-count detection for the CDP Input domain.
package input

import (
	"sync"
	"time"
)

// doubleClickWindow and doubleClickRadius are the spec §4.5 click-count
// constants: consecutive mousedown events within this time and distance of
// the previous one extend the click count instead of resetting it.
const (
	doubleClickWindow = 500 * time.Millisecond
	doubleClickRadius = 2.0 // CSS pixels
)

// KeyState tracks one keyboard key's pressed/released state for a context,
// so a later keyUp without a matching keyDown is a no-op rather than an
// error (spec §4.5 "releasing a key that was never pressed is a no-op").
type KeyState struct {
	Pressed bool
	Code    string
}

// PointerState tracks one pointer (mouse, pen, or a touch point) for a
// context.
type PointerState struct {
	X, Y        float64
	Buttons     map[int]bool // CDP button index -> held
	lastDownAt  time.Time
	lastDownX   float64
	lastDownY   float64
	clickCount  int
}

// State is InputState: the per-context input device state the
// ActionDispatcher consults and mutates while replaying a source's actions.
type State struct {
	mu       sync.Mutex
	keys     map[string]*KeyState     // keyed by the "global key state" code
	pointers map[string]*PointerState // keyed by source id
}

// NewState constructs empty InputState for one browsing context.
func NewState() *State {
	return &State{
		keys:     make(map[string]*KeyState),
		pointers: make(map[string]*PointerState),
	}
}

// Key returns (creating if absent) the KeyState for a key code.
func (s *State) Key(code string) *KeyState {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.keys[code]
	if !ok {
		k = &KeyState{Code: code}
		s.keys[code] = k
	}
	return k
}

// Pointer returns (creating if absent) the PointerState for a source id.
func (s *State) Pointer(sourceID string) *PointerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pointers[sourceID]
	if !ok {
		p = &PointerState{Buttons: make(map[int]bool)}
		s.pointers[sourceID] = p
	}
	return p
}

// CancelList returns the keys and pointer buttons currently held, for
// input.releaseActions to undo, keys before pointer buttons. The order of
// the keys, of the pointer sources and of each source's buttons is not
// defined: press order is not recorded.
func (s *State) CancelList() (keys []string, pointers map[string][]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pointers = make(map[string][]int)
	for code, k := range s.keys {
		if k.Pressed {
			keys = append(keys, code)
		}
	}
	for id, p := range s.pointers {
		for btn, held := range p.Buttons {
			if held {
				pointers[id] = append(pointers[id], btn)
			}
		}
	}
	return keys, pointers
}

// RegisterDown records a pointer-down at (x, y) and returns the resulting
// click count: 1 for a fresh click, incrementing while consecutive
// mousedowns land within doubleClickWindow and doubleClickRadius of the
// previous one (spec §4.5).
func (p *PointerState) RegisterDown(x, y float64, now time.Time) int {
	if !p.lastDownAt.IsZero() &&
		now.Sub(p.lastDownAt) <= doubleClickWindow &&
		withinRadius(x, y, p.lastDownX, p.lastDownY, doubleClickRadius) {
		p.clickCount++
	} else {
		p.clickCount = 1
	}
	p.lastDownAt = now
	p.lastDownX, p.lastDownY = x, y
	return p.clickCount
}

func withinRadius(x, y, cx, cy, r float64) bool {
	dx, dy := x-cx, y-cy
	return dx*dx+dy*dy <= r*r
}

// Tick is one synchronized step across every action source in a
// perform-actions call (spec §4.5: "sources advance in lockstep, one tick
// at a time").
type Tick struct {
	Actions []Action
}

// Action is a single per-source action within one tick.
type Action struct {
	SourceID string
	Kind     string // "pause", "keyDown", "keyUp", "pointerDown", "pointerUp", "pointerMove", "wheel"
	Duration time.Duration
	X, Y     float64
	Button   int
	Key      string
}

// CdpEmitter issues the CDP Input.dispatch* calls a resolved Action needs.
// The ActionDispatcher is deliberately transport-agnostic: it only decides
// what CDP calls to make and in what order, and lets the caller supply the
// function that actually performs them.
type CdpEmitter func(action Action, clickCount int) error

// Dispatcher is the ActionDispatcher: it replays a sequence of Ticks
// against a context's InputState, resolving click counts and no-op
// redundant key/button transitions before calling out to CDP.
type Dispatcher struct {
	state *State
	emit  CdpEmitter
}

// NewDispatcher builds a Dispatcher over state, calling emit for every
// resolved CDP command.
func NewDispatcher(state *State, emit CdpEmitter) *Dispatcher {
	return &Dispatcher{state: state, emit: emit}
}

// Perform replays ticks in order, and the actions of each tick one after
// another in the order given. A pause with a Duration sleeps before the
// next action runs, so it delays every later action of the tick and of the
// following ticks, not only those of its own source.
func (d *Dispatcher) Perform(ticks []Tick, now func() time.Time) error {
	for _, tick := range ticks {
		for _, a := range tick.Actions {
			if err := d.performOne(a, now()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Dispatcher) performOne(a Action, now time.Time) error {
	switch a.Kind {
	case "pause":
		if a.Duration > 0 {
			time.Sleep(a.Duration)
		}
		return nil

	case "keyDown":
		k := d.state.Key(a.Key)
		if k.Pressed {
			return nil // already down: no-op (spec §4.5)
		}
		k.Pressed = true
		return d.emit(a, 0)

	case "keyUp":
		k := d.state.Key(a.Key)
		if !k.Pressed {
			return nil // never pressed: no-op (spec §4.5)
		}
		k.Pressed = false
		return d.emit(a, 0)

	case "pointerDown":
		p := d.state.Pointer(a.SourceID)
		if p.Buttons[a.Button] {
			return nil // already held
		}
		p.Buttons[a.Button] = true
		count := p.RegisterDown(a.X, a.Y, now)
		return d.emit(a, count)

	case "pointerUp":
		p := d.state.Pointer(a.SourceID)
		if !p.Buttons[a.Button] {
			return nil
		}
		delete(p.Buttons, a.Button)
		return d.emit(a, p.clickCount)

	case "pointerMove":
		p := d.state.Pointer(a.SourceID)
		p.X, p.Y = a.X, a.Y
		return d.emit(a, 0)

	default:
		return d.emit(a, 0)
	}
}

// Release performs input.releaseActions: it lifts every held key, then
// every held pointer button, in the order CancelList returns them.
func (d *Dispatcher) Release(now time.Time) error {
	keys, pointers := d.state.CancelList()
	for _, code := range keys {
		if err := d.performOne(Action{Kind: "keyUp", Key: code}, now); err != nil {
			return err
		}
	}
	for sourceID, buttons := range pointers {
		for _, btn := range buttons {
			if err := d.performOne(Action{Kind: "pointerUp", SourceID: sourceID, Button: btn}, now); err != nil {
				return err
			}
		}
	}
	return nil
}
