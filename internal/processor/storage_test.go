package processor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chromedp/bidimapper/internal/cdpwire"
)

func TestStorageGetCookiesFiltersByName(t *testing.T) {
	root := newFakeRoot()
	root.results["Storage.getCookies"] = cdpwire.GetCookiesResult{
		Cookies: []cdpwire.Cookie{
			{Name: "a", Value: "1"},
			{Name: "b", Value: "2"},
		},
	}
	s := NewStorage(root)

	res, err := s.getCookies(context.Background(), json.RawMessage(`{"filter":{"name":"b"}}`), "")
	require.NoError(t, err)
	gr, ok := res.(getCookiesResult)
	require.True(t, ok)
	require.Len(t, gr.Cookies, 1)
	assert.Equal(t, "b", gr.Cookies[0].Name)
}

func TestStorageGetCookiesNoFilterReturnsAll(t *testing.T) {
	root := newFakeRoot()
	root.results["Storage.getCookies"] = cdpwire.GetCookiesResult{
		Cookies: []cdpwire.Cookie{{Name: "a"}, {Name: "b"}},
	}
	s := NewStorage(root)

	res, err := s.getCookies(context.Background(), json.RawMessage(`{}`), "")
	require.NoError(t, err)
	gr := res.(getCookiesResult)
	assert.Len(t, gr.Cookies, 2)
}

func TestStorageSetCookiePassesThroughUserContext(t *testing.T) {
	root := newFakeRoot()
	s := NewStorage(root)

	_, err := s.setCookie(context.Background(), json.RawMessage(`{"cookie":{"name":"a","value":"1"},"userContext":"uc-1"}`), "")
	require.NoError(t, err)

	require.Len(t, root.calls, 1)
	assert.Equal(t, "Storage.setCookie", string(root.calls[0].Method))
	params, ok := root.calls[0].Params.(*cdpwire.SetCookieParams)
	require.True(t, ok)
	assert.Equal(t, "uc-1", params.BrowserContextID)
	assert.Equal(t, "a", params.Cookie.Name)
}
