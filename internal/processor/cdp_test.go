package processor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chromedp/bidimapper/internal/bidierr"
	"github.com/chromedp/bidimapper/internal/browsingcontext"
	"github.com/chromedp/bidimapper/internal/navigation"
	"github.com/chromedp/bidimapper/internal/target"
)

func noopNavigationEmit(navigation.Event) {}

func newTestCdp(root *fakeRoot) (*Cdp, *browsingcontext.Storage) {
	contexts := browsingcontext.NewStorage()
	targets := target.NewManager(nil, nil, nil)
	return NewCdp(contexts, targets, root), contexts
}

func TestCdpSendCommandCallsRootAndReturnsResult(t *testing.T) {
	root := newFakeRoot()
	root.results["Target.getTargets"] = map[string]interface{}{"targetInfos": []interface{}{}}
	c, _ := newTestCdp(root)

	body := json.RawMessage(`{"method":"Target.getTargets","params":{}}`)
	res, err := c.sendCommand(context.Background(), body, "")
	require.NoError(t, err)

	require.Len(t, root.calls, 1)
	assert.Equal(t, "Target.getTargets", string(root.calls[0].Method))

	sr := res.(sendCommandResult)
	assert.Empty(t, sr.Session)
	assert.JSONEq(t, `{"targetInfos":[]}`, string(sr.Result))
}

func TestCdpSendCommandRequiresMethod(t *testing.T) {
	c, _ := newTestCdp(newFakeRoot())
	_, err := c.sendCommand(context.Background(), json.RawMessage(`{}`), "")
	require.Error(t, err)
	be, ok := err.(*bidierr.Error)
	require.True(t, ok)
	assert.Equal(t, bidierr.InvalidArgument, be.Code)
}

func TestCdpSendCommandRejectsUnknownSession(t *testing.T) {
	c, _ := newTestCdp(newFakeRoot())
	_, err := c.sendCommand(context.Background(), json.RawMessage(`{"method":"Page.enable","session":"never-attached"}`), "")
	require.Error(t, err)
	be, ok := err.(*bidierr.Error)
	require.True(t, ok)
	assert.Equal(t, bidierr.InvalidArgument, be.Code)
}

func TestCdpGetSessionRejectsContextWithNoLiveTarget(t *testing.T) {
	c, contexts := newTestCdp(newFakeRoot())
	contexts.Create("ctx-1", "", "default", "about:blank", noopNavigationEmit)

	_, err := c.getSession(context.Background(), json.RawMessage(`{"context":"ctx-1"}`), "")
	require.Error(t, err, "a context with no live target must fail, not return an empty session")
}

func TestCdpGetSessionRejectsUnknownContext(t *testing.T) {
	c, _ := newTestCdp(newFakeRoot())
	_, err := c.getSession(context.Background(), json.RawMessage(`{"context":"never-created"}`), "")
	require.Error(t, err)
	be, ok := err.(*bidierr.Error)
	require.True(t, ok)
	assert.Equal(t, bidierr.NoSuchFrame, be.Code)
}
