package processor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chromedp/bidimapper/internal/bidierr"
	"github.com/chromedp/bidimapper/internal/cdpwire"
)

func TestBrowserCreateUserContextTracksID(t *testing.T) {
	root := newFakeRoot()
	root.results["Target.createBrowserContext"] = cdpwire.CreateBrowserContextResult{BrowserContextID: "uc-1"}
	b := NewBrowser(root)

	res, err := b.createUserContext(context.Background(), nil, "")
	require.NoError(t, err)
	cr := res.(createUserContextResult)
	assert.Equal(t, "uc-1", cr.UserContext)
	assert.True(t, b.userContexts.Has("uc-1"))
}

func TestBrowserRemoveUserContextRejectsUnknown(t *testing.T) {
	root := newFakeRoot()
	b := NewBrowser(root)

	_, err := b.removeUserContext(context.Background(), json.RawMessage(`{"userContext":"never-created"}`), "")
	require.Error(t, err)
	be, ok := err.(*bidierr.Error)
	require.True(t, ok)
	assert.Equal(t, bidierr.NoSuchUserContext, be.Code)
}

func TestBrowserRemoveUserContextDisposesAndForgets(t *testing.T) {
	root := newFakeRoot()
	root.results["Target.createBrowserContext"] = cdpwire.CreateBrowserContextResult{BrowserContextID: "uc-1"}
	b := NewBrowser(root)

	_, err := b.createUserContext(context.Background(), nil, "")
	require.NoError(t, err)

	_, err = b.removeUserContext(context.Background(), json.RawMessage(`{"userContext":"uc-1"}`), "")
	require.NoError(t, err)
	assert.False(t, b.userContexts.Has("uc-1"))

	var disposed bool
	for _, c := range root.calls {
		if c.Method == "Target.disposeBrowserContext" {
			disposed = true
		}
	}
	assert.True(t, disposed)
}

func TestBrowserGetUserContextsAlwaysIncludesDefault(t *testing.T) {
	root := newFakeRoot()
	root.results["Target.createBrowserContext"] = cdpwire.CreateBrowserContextResult{BrowserContextID: "uc-1"}
	b := NewBrowser(root)
	_, err := b.createUserContext(context.Background(), nil, "")
	require.NoError(t, err)

	res, err := b.getUserContexts(context.Background(), nil, "")
	require.NoError(t, err)
	gr := res.(getUserContextsResult)

	var ids []string
	for _, uc := range gr.UserContexts {
		ids = append(ids, uc.UserContext)
	}
	assert.Contains(t, ids, "default")
	assert.Contains(t, ids, "uc-1")
}

func TestBrowserCloseWrapsError(t *testing.T) {
	root := newFakeRoot()
	root.errs["Browser.close"] = assert.AnError
	b := NewBrowser(root)

	_, err := b.close(context.Background(), nil, "")
	require.Error(t, err)
	be, ok := err.(*bidierr.Error)
	require.True(t, ok)
	assert.Equal(t, bidierr.UnableToCloseBrowser, be.Code)
}
