package processor

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/chromedp/bidimapper/internal/bidierr"
	"github.com/chromedp/bidimapper/internal/browsingcontext"
	"github.com/chromedp/bidimapper/internal/cdpwire"
	"github.com/chromedp/bidimapper/internal/command"
	"github.com/chromedp/bidimapper/internal/input"
	"github.com/chromedp/bidimapper/internal/target"
)

// Input implements the "input" module: performActions, releaseActions
// (spec §4.5).
type Input struct {
	contexts *browsingcontext.Storage
	targets  *target.Manager

	mu    sync.Mutex
	state map[string]*input.State // browsing context id -> InputState
}

// NewInput constructs the input Processor.
func NewInput(contexts *browsingcontext.Storage, targets *target.Manager) *Input {
	return &Input{contexts: contexts, targets: targets, state: make(map[string]*input.State)}
}

// Register installs this module's handlers on cp.
func (in *Input) Register(cp *command.Processor) {
	cp.Register("input.performActions", in.performActions)
	cp.Register("input.releaseActions", in.releaseActions)
}

func (in *Input) stateFor(contextID string) *input.State {
	in.mu.Lock()
	defer in.mu.Unlock()
	s, ok := in.state[contextID]
	if !ok {
		s = input.NewState()
		in.state[contextID] = s
	}
	return s
}

type performActionsParams struct {
	Context string        `json:"context"`
	Actions []sourceActions `json:"actions"`
}

type sourceActions struct {
	ID      string       `json:"id"`
	Type    string       `json:"type"` // "key" | "pointer" | "wheel" | "none"
	Actions []rawAction  `json:"actions"`
}

type rawAction struct {
	Type     string `json:"type"` // "pause", "keyDown", "keyUp", "pointerDown", "pointerUp", "pointerMove", "scroll"
	Duration int64  `json:"duration,omitempty"` // ms
	Value    string `json:"value,omitempty"`    // key value
	X        float64 `json:"x,omitempty"`
	Y        float64 `json:"y,omitempty"`
	Button   int    `json:"button,omitempty"`
}

// toTicks transposes per-source action lists into synchronized ticks (spec
// §4.5: "sources advance in lockstep, one tick at a time").
func toTicks(sources []sourceActions) []input.Tick {
	maxLen := 0
	for _, src := range sources {
		if len(src.Actions) > maxLen {
			maxLen = len(src.Actions)
		}
	}
	ticks := make([]input.Tick, maxLen)
	for _, src := range sources {
		for i, a := range src.Actions {
			ticks[i].Actions = append(ticks[i].Actions, input.Action{
				SourceID: src.ID,
				Kind:     a.Type,
				Duration: time.Duration(a.Duration) * time.Millisecond,
				X:        a.X,
				Y:        a.Y,
				Button:   a.Button,
				Key:      a.Value,
			})
		}
	}
	return ticks
}

func (in *Input) emitter(t *target.Target) input.CdpEmitter {
	return func(a input.Action, clickCount int) error {
		ctx := context.Background()
		switch a.Kind {
		case "keyDown":
			return t.Client.Call(ctx, "Input.dispatchKeyEvent", &cdpwire.DispatchKeyEventParams{Type: "keyDown", Key: a.Key}, nil)
		case "keyUp":
			return t.Client.Call(ctx, "Input.dispatchKeyEvent", &cdpwire.DispatchKeyEventParams{Type: "keyUp", Key: a.Key}, nil)
		case "pointerDown":
			return t.Client.Call(ctx, "Input.dispatchMouseEvent", &cdpwire.DispatchMouseEventParams{
				Type: "mousePressed", X: a.X, Y: a.Y, Button: buttonName(a.Button), ClickCount: clickCount,
			}, nil)
		case "pointerUp":
			return t.Client.Call(ctx, "Input.dispatchMouseEvent", &cdpwire.DispatchMouseEventParams{
				Type: "mouseReleased", X: a.X, Y: a.Y, Button: buttonName(a.Button), ClickCount: clickCount,
			}, nil)
		case "pointerMove":
			return t.Client.Call(ctx, "Input.dispatchMouseEvent", &cdpwire.DispatchMouseEventParams{
				Type: "mouseMoved", X: a.X, Y: a.Y,
			}, nil)
		default:
			return nil
		}
	}
}

func buttonName(button int) string {
	switch button {
	case 1:
		return "middle"
	case 2:
		return "right"
	default:
		return "left"
	}
}

func (in *Input) performActions(_ context.Context, raw json.RawMessage, _ string) (interface{}, error) {
	var p performActionsParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, bidierr.New(bidierr.InvalidArgument, "input.performActions: %v", err)
	}
	bc, ok := in.contexts.Get(p.Context)
	if !ok {
		return nil, bidierr.New(bidierr.NoSuchFrame, "no such context %q", p.Context)
	}
	t, ok := in.targets.Get(bc.CurrentTargetID())
	if !ok {
		return nil, bidierr.New(bidierr.NoSuchFrame, "context %q has no live target", p.Context)
	}

	state := in.stateFor(p.Context)
	dispatcher := input.NewDispatcher(state, in.emitter(t))
	if err := dispatcher.Perform(toTicks(p.Actions), func() time.Time { return time.Now() }); err != nil {
		return nil, bidierr.Wrap(bidierr.UnknownError, err, "input.performActions")
	}
	return struct{}{}, nil
}

type releaseActionsParams struct {
	Context string `json:"context"`
}

func (in *Input) releaseActions(_ context.Context, raw json.RawMessage, _ string) (interface{}, error) {
	var p releaseActionsParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, bidierr.New(bidierr.InvalidArgument, "input.releaseActions: %v", err)
	}
	bc, ok := in.contexts.Get(p.Context)
	if !ok {
		return nil, bidierr.New(bidierr.NoSuchFrame, "no such context %q", p.Context)
	}
	t, ok := in.targets.Get(bc.CurrentTargetID())
	if !ok {
		return nil, bidierr.New(bidierr.NoSuchFrame, "context %q has no live target", p.Context)
	}

	state := in.stateFor(p.Context)
	dispatcher := input.NewDispatcher(state, in.emitter(t))
	if err := dispatcher.Release(time.Now()); err != nil {
		return nil, bidierr.Wrap(bidierr.UnknownError, err, "input.releaseActions")
	}
	return struct{}{}, nil
}
