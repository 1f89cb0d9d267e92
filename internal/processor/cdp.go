package processor

import (
	"context"
	"encoding/json"

	"github.com/chromedp/cdproto"

	"github.com/chromedp/bidimapper/internal/bidierr"
	"github.com/chromedp/bidimapper/internal/browsingcontext"
	"github.com/chromedp/bidimapper/internal/command"
	"github.com/chromedp/bidimapper/internal/target"
)

// Cdp implements the "cdp" module (spec.md §6.1): the escape hatch that
// lets a BiDi client issue a raw CDP command and look up the CDP session
// backing a browsing context, the way chromedp itself exposes cdproto
// actions directly alongside its higher-level ones (browsingcontext.go's
// captureScreenshot/navigate are the same passthrough shape, one layer up).
type Cdp struct {
	contexts *browsingcontext.Storage
	targets  *target.Manager
	root     rootCaller
}

// NewCdp constructs the cdp Processor.
func NewCdp(contexts *browsingcontext.Storage, targets *target.Manager, root rootCaller) *Cdp {
	return &Cdp{contexts: contexts, targets: targets, root: root}
}

// Register installs this module's handlers on cp.
func (c *Cdp) Register(cp *command.Processor) {
	cp.Register("cdp.sendCommand", c.sendCommand)
	cp.Register("cdp.getSession", c.getSession)
}

type sendCommandParams struct {
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	Session string          `json:"session,omitempty"`
}

type sendCommandResult struct {
	Result  json.RawMessage `json:"result"`
	Session string          `json:"session,omitempty"`
}

func (c *Cdp) sendCommand(ctx context.Context, raw json.RawMessage, _ string) (interface{}, error) {
	var p sendCommandParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, bidierr.New(bidierr.InvalidArgument, "cdp.sendCommand: %v", err)
	}
	if p.Method == "" {
		return nil, bidierr.New(bidierr.InvalidArgument, "cdp.sendCommand: method is required")
	}

	var caller rootCaller = c.root
	if p.Session != "" {
		t, ok := c.targets.GetBySessionID(p.Session)
		if !ok {
			return nil, bidierr.New(bidierr.InvalidArgument, "cdp.sendCommand: no such session %q", p.Session)
		}
		caller = t.Client
	}

	var params interface{}
	if len(p.Params) > 0 {
		params = p.Params
	}

	var res json.RawMessage
	if err := caller.Call(ctx, cdproto.MethodType(p.Method), params, &res); err != nil {
		return nil, bidierr.Wrap(bidierr.UnknownError, err, "cdp.sendCommand: %s", p.Method)
	}
	return sendCommandResult{Result: res, Session: p.Session}, nil
}

type getSessionParams struct {
	Context string `json:"context"`
}

type getSessionResult struct {
	Session string `json:"session"`
}

func (c *Cdp) getSession(_ context.Context, raw json.RawMessage, _ string) (interface{}, error) {
	var p getSessionParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, bidierr.New(bidierr.InvalidArgument, "cdp.getSession: %v", err)
	}
	bc, ok := c.contexts.Get(p.Context)
	if !ok {
		return nil, bidierr.New(bidierr.NoSuchFrame, "no such context %q", p.Context)
	}
	t, ok := c.targets.Get(bc.CurrentTargetID())
	if !ok {
		return nil, bidierr.New(bidierr.NoSuchFrame, "context %q has no live target", p.Context)
	}
	return getSessionResult{Session: t.SessionID}, nil
}
