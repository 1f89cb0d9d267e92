package processor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chromedp/bidimapper/internal/cdpwire"
)

func TestPermissionsSetPermissionCallsBrowserSetPermission(t *testing.T) {
	root := newFakeRoot()
	pm := NewPermissions(root)

	body := json.RawMessage(`{"descriptor":{"name":"geolocation"},"state":"granted","origin":"https://example.com","userContext":"uc-1"}`)
	_, err := pm.setPermission(context.Background(), body, "")
	require.NoError(t, err)

	require.Len(t, root.calls, 1)
	assert.Equal(t, "Browser.setPermission", string(root.calls[0].Method))
	params, ok := root.calls[0].Params.(*cdpwire.SetPermissionParams)
	require.True(t, ok)
	assert.Equal(t, "geolocation", params.Permission.Name)
	assert.Equal(t, "granted", params.Setting)
	assert.Equal(t, "https://example.com", params.Origin)
	assert.Equal(t, "uc-1", params.BrowserContextID)
}

func TestPermissionsSetPermissionRejectsMalformedParams(t *testing.T) {
	pm := NewPermissions(newFakeRoot())
	_, err := pm.setPermission(context.Background(), json.RawMessage(`not json`), "")
	require.Error(t, err)
}
