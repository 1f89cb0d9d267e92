package processor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chromedp/bidimapper/internal/bidierr"
	netw "github.com/chromedp/bidimapper/internal/network"
	"github.com/chromedp/bidimapper/internal/target"
)

func newTestNetwork() *Network {
	return NewNetwork(netw.NewStorage(), target.NewManager(nil, nil, nil))
}

func TestNetworkAddAndRemoveIntercept(t *testing.T) {
	n := newTestNetwork()

	res, err := n.addIntercept(context.Background(), json.RawMessage(`{"phases":["beforeRequestSent"],"urlPatterns":["*://example.com/*"]}`), "")
	require.NoError(t, err)
	ar := res.(addInterceptResult)
	require.NotEmpty(t, ar.Intercept)
	assert.Len(t, n.intercepts, 1)

	_, err = n.removeIntercept(context.Background(), json.RawMessage(`{"intercept":"never-registered"}`), "")
	assert.Error(t, err)

	body, _ := json.Marshal(removeInterceptParams{Intercept: ar.Intercept})
	_, err = n.removeIntercept(context.Background(), body, "")
	require.NoError(t, err)
	assert.Empty(t, n.intercepts)
}

func TestFetchPatternsDefaultsToWildcardWhenUnspecified(t *testing.T) {
	n := newTestNetwork()
	n.intercepts["ic-1"] = &Intercept{ID: "ic-1", Phases: []string{"beforeRequestSent"}}

	patterns := n.fetchPatterns()
	require.Len(t, patterns, 1)
	assert.Equal(t, "*", patterns[0].URLPattern)
}

func TestContinueRequestUnknownRequestID(t *testing.T) {
	n := newTestNetwork()
	_, err := n.continueRequest(context.Background(), json.RawMessage(`{"request":"never-seen"}`), "")
	require.Error(t, err)
	be, ok := err.(*bidierr.Error)
	require.True(t, ok)
	assert.Equal(t, bidierr.NoSuchRequest, be.Code)
}

func TestFailRequestUnknownRequestID(t *testing.T) {
	n := newTestNetwork()
	_, err := n.failRequest(context.Background(), json.RawMessage(`{"request":"never-seen"}`), "")
	require.Error(t, err)
}

func TestProvideResponseUnknownRequestID(t *testing.T) {
	n := newTestNetwork()
	_, err := n.provideResponse(context.Background(), json.RawMessage(`{"request":"never-seen"}`), "")
	require.Error(t, err)
}
