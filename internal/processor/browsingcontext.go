package processor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/chromedp/cdproto"

	"github.com/chromedp/bidimapper/internal/bidierr"
	"github.com/chromedp/bidimapper/internal/browsingcontext"
	"github.com/chromedp/bidimapper/internal/cdpwire"
	"github.com/chromedp/bidimapper/internal/command"
	"github.com/chromedp/bidimapper/internal/events"
	"github.com/chromedp/bidimapper/internal/target"
)

// BrowsingContext implements the "browsingContext" module: create, navigate,
// close, getTree, captureScreenshot.
type BrowsingContext struct {
	contexts *browsingcontext.Storage
	targets  *target.Manager
	events   *events.Manager
	root     rootCaller
}

// rootCaller is the subset of cdpclient.Client used here, narrowed so this
// file doesn't need to import cdpclient/cdproto directly for the method
// type conversion.
type rootCaller interface {
	Call(ctx context.Context, method cdproto.MethodType, params interface{}, res interface{}) error
}

// NewBrowsingContext constructs the browsingContext Processor.
func NewBrowsingContext(contexts *browsingcontext.Storage, targets *target.Manager, ev *events.Manager, root rootCaller) *BrowsingContext {
	return &BrowsingContext{contexts: contexts, targets: targets, events: ev, root: root}
}

// Register installs this module's handlers on cp.
func (b *BrowsingContext) Register(cp *command.Processor) {
	cp.Register("browsingContext.create", b.create)
	cp.Register("browsingContext.navigate", b.navigate)
	cp.Register("browsingContext.close", b.close)
	cp.Register("browsingContext.getTree", b.getTree)
	cp.Register("browsingContext.captureScreenshot", b.captureScreenshot)
}

type createParams struct {
	Type          string `json:"type"` // "tab" or "window"
	ReferenceContext string `json:"referenceContext,omitempty"`
	Background    bool   `json:"background,omitempty"`
	UserContext   string `json:"userContext,omitempty"`
}

type createResult struct {
	Context string `json:"context"`
}

func (b *BrowsingContext) create(ctx context.Context, raw json.RawMessage, _ string) (interface{}, error) {
	var p createParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, bidierr.New(bidierr.InvalidArgument, "browsingContext.create: %v", err)
	}

	var res cdpwire.CreateTargetResult
	createP := &cdpwire.CreateTargetParams{URL: "about:blank", Background: p.Background}
	if err := b.root.Call(ctx, "Target.createTarget", createP, &res); err != nil {
		return nil, bidierr.Wrap(bidierr.UnknownError, err, "browsingContext.create: Target.createTarget")
	}

	// The target manager's attach handler creates the matching CdpTarget
	// and, via the composition root's onAttached wiring, the
	// BrowsingContext itself; here we just wait for it to show up.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if c, ok := b.contexts.Get(res.TargetID); ok {
			return createResult{Context: c.ID}, nil
		}
		if time.Now().After(deadline) {
			return nil, bidierr.New(bidierr.UnknownError, "browsingContext.create: timed out waiting for attach")
		}
		select {
		case <-ctx.Done():
			return nil, bidierr.Wrap(bidierr.UnknownError, ctx.Err(), "browsingContext.create")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

type navigateParams struct {
	Context string `json:"context"`
	URL     string `json:"url"`
	Wait    string `json:"wait,omitempty"` // "none" | "interactive" | "complete"
}

type navigateResult struct {
	NavigationID string `json:"navigation"`
	URL          string `json:"url"`
}

func (b *BrowsingContext) navigate(ctx context.Context, raw json.RawMessage, _ string) (interface{}, error) {
	var p navigateParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, bidierr.New(bidierr.InvalidArgument, "browsingContext.navigate: %v", err)
	}

	bc, ok := b.contexts.Get(p.Context)
	if !ok {
		return nil, bidierr.New(bidierr.NoSuchFrame, "no such context %q", p.Context)
	}
	t, ok := b.targets.Get(bc.CurrentTargetID())
	if !ok {
		return nil, bidierr.New(bidierr.NoSuchFrame, "context %q has no live target", p.Context)
	}

	navID := bc.Tracker.CommandNavigate(p.URL)

	var res cdpwire.NavigateResult
	if err := t.Client.Call(ctx, "Page.navigate", &cdpwire.NavigateParams{URL: p.URL}, &res); err != nil {
		bc.Tracker.FailNavigation(navID)
		return nil, bidierr.Wrap(bidierr.UnknownError, err, "browsingContext.navigate: Page.navigate")
	}
	if res.ErrorText != "" {
		bc.Tracker.FailNavigation(navID)
		return nil, bidierr.New(bidierr.UnknownError, "navigation failed: %s", res.ErrorText)
	}
	bc.Tracker.NavigationCommandFinished(navID, res.LoaderID)

	if p.Wait == "complete" {
		select {
		case <-bc.Tracker.Done():
		case <-ctx.Done():
			return nil, bidierr.Wrap(bidierr.UnknownError, ctx.Err(), "browsingContext.navigate: wait complete")
		}
	}

	return navigateResult{NavigationID: navID, URL: bc.URL()}, nil
}

type closeParams struct {
	Context string `json:"context"`
}

func (b *BrowsingContext) close(ctx context.Context, raw json.RawMessage, _ string) (interface{}, error) {
	var p closeParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, bidierr.New(bidierr.InvalidArgument, "browsingContext.close: %v", err)
	}
	bc, ok := b.contexts.Get(p.Context)
	if !ok {
		return nil, bidierr.New(bidierr.NoSuchFrame, "no such context %q", p.Context)
	}
	if err := b.root.Call(ctx, "Target.closeTarget", &cdpwire.CloseTargetParams{TargetID: bc.CurrentTargetID()}, nil); err != nil {
		return nil, bidierr.Wrap(bidierr.UnknownError, err, "browsingContext.close: Target.closeTarget")
	}
	b.contexts.Delete(p.Context)
	return struct{}{}, nil
}

type getTreeParams struct {
	Root string `json:"root,omitempty"`
}

type contextInfo struct {
	Context  string        `json:"context"`
	URL      string        `json:"url"`
	Children []contextInfo `json:"children"`
}

func (b *BrowsingContext) getTree(_ context.Context, raw json.RawMessage, _ string) (interface{}, error) {
	var p getTreeParams
	_ = json.Unmarshal(raw, &p)

	var roots []*browsingcontext.Context
	if p.Root != "" {
		bc, ok := b.contexts.Get(p.Root)
		if !ok {
			return nil, bidierr.New(bidierr.NoSuchFrame, "no such context %q", p.Root)
		}
		roots = []*browsingcontext.Context{bc}
	} else {
		roots = b.contexts.TopLevel()
	}

	var build func(*browsingcontext.Context) contextInfo
	build = func(c *browsingcontext.Context) contextInfo {
		info := contextInfo{Context: c.ID, URL: c.URL()}
		for _, childID := range c.Children() {
			if child, ok := b.contexts.Get(childID); ok {
				info.Children = append(info.Children, build(child))
			}
		}
		return info
	}

	out := make([]contextInfo, 0, len(roots))
	for _, r := range roots {
		out = append(out, build(r))
	}
	return struct {
		Contexts []contextInfo `json:"contexts"`
	}{Contexts: out}, nil
}

type captureScreenshotParams struct {
	Context string `json:"context"`
}

type captureScreenshotResult struct {
	Data string `json:"data"`
}

func (b *BrowsingContext) captureScreenshot(ctx context.Context, raw json.RawMessage, _ string) (interface{}, error) {
	var p captureScreenshotParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, bidierr.New(bidierr.InvalidArgument, "browsingContext.captureScreenshot: %v", err)
	}
	bc, ok := b.contexts.Get(p.Context)
	if !ok {
		return nil, bidierr.New(bidierr.NoSuchFrame, "no such context %q", p.Context)
	}
	t, ok := b.targets.Get(bc.CurrentTargetID())
	if !ok {
		return nil, bidierr.New(bidierr.NoSuchFrame, "context %q has no live target", p.Context)
	}

	var res cdpwire.CaptureScreenshotResult
	if err := t.Client.Call(ctx, "Page.captureScreenshot", &cdpwire.CaptureScreenshotParams{Format: "png"}, &res); err != nil {
		return nil, bidierr.Wrap(bidierr.UnableToCaptureScreen, err, "browsingContext.captureScreenshot")
	}
	return captureScreenshotResult{Data: res.Data}, nil
}
