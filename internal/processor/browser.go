package processor

import (
	"context"
	"encoding/json"

	"github.com/chromedp/bidimapper/internal/bidierr"
	"github.com/chromedp/bidimapper/internal/cdpwire"
	"github.com/chromedp/bidimapper/internal/command"
)

// Browser implements the "browser" module: close, createUserContext,
// removeUserContext, getUserContexts.
type Browser struct {
	root         rootCaller
	userContexts *userContextStorage
}

// NewBrowser constructs the browser Processor.
func NewBrowser(root rootCaller) *Browser {
	return &Browser{root: root, userContexts: newUserContextStorage()}
}

// Register installs this module's handlers on cp.
func (b *Browser) Register(cp *command.Processor) {
	cp.Register("browser.close", b.close)
	cp.Register("browser.createUserContext", b.createUserContext)
	cp.Register("browser.removeUserContext", b.removeUserContext)
	cp.Register("browser.getUserContexts", b.getUserContexts)
}

func (b *Browser) close(ctx context.Context, _ json.RawMessage, _ string) (interface{}, error) {
	if err := b.root.Call(ctx, "Browser.close", struct{}{}, nil); err != nil {
		return nil, bidierr.Wrap(bidierr.UnableToCloseBrowser, err, "browser.close")
	}
	return struct{}{}, nil
}

type createUserContextResult struct {
	UserContext string `json:"userContext"`
}

func (b *Browser) createUserContext(ctx context.Context, _ json.RawMessage, _ string) (interface{}, error) {
	var res cdpwire.CreateBrowserContextResult
	params := &cdpwire.CreateBrowserContextParams{DisposeOnDetach: true}
	if err := b.root.Call(ctx, "Target.createBrowserContext", params, &res); err != nil {
		return nil, bidierr.Wrap(bidierr.UnknownError, err, "browser.createUserContext")
	}
	b.userContexts.Add(res.BrowserContextID)
	return createUserContextResult{UserContext: res.BrowserContextID}, nil
}

type removeUserContextParams struct {
	UserContext string `json:"userContext"`
}

func (b *Browser) removeUserContext(ctx context.Context, raw json.RawMessage, _ string) (interface{}, error) {
	var p removeUserContextParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, bidierr.New(bidierr.InvalidArgument, "browser.removeUserContext: %v", err)
	}
	if !b.userContexts.Has(p.UserContext) {
		return nil, bidierr.New(bidierr.NoSuchUserContext, "no such user context %q", p.UserContext)
	}
	params := &cdpwire.DisposeBrowserContextParams{BrowserContextID: p.UserContext}
	if err := b.root.Call(ctx, "Target.disposeBrowserContext", params, nil); err != nil {
		return nil, bidierr.Wrap(bidierr.UnknownError, err, "browser.removeUserContext")
	}
	b.userContexts.Remove(p.UserContext)
	return struct{}{}, nil
}

type userContextInfo struct {
	UserContext string `json:"userContext"`
}

type getUserContextsResult struct {
	UserContexts []userContextInfo `json:"userContexts"`
}

func (b *Browser) getUserContexts(_ context.Context, _ json.RawMessage, _ string) (interface{}, error) {
	ids := b.userContexts.All()
	out := make([]userContextInfo, 0, len(ids)+1)
	out = append(out, userContextInfo{UserContext: "default"})
	for _, id := range ids {
		out = append(out, userContextInfo{UserContext: id})
	}
	return getUserContextsResult{UserContexts: out}, nil
}
