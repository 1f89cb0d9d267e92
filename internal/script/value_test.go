package script

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chromedp/bidimapper/internal/cdpwire"
	"github.com/chromedp/bidimapper/internal/realm"
)

func TestFromCDPPrimitives(t *testing.T) {
	r := realm.NewStorage().Create("r1", 1, "s1", realm.Window, "https://example.com", "c1", "")

	rv, err := FromCDP(cdpwire.RemoteObject{Type: "string", Value: json.RawMessage(`"hi"`)}, r)
	require.NoError(t, err)
	assert.Equal(t, "string", rv.Type)

	rv, err = FromCDP(cdpwire.RemoteObject{Type: "undefined"}, r)
	require.NoError(t, err)
	assert.Equal(t, "undefined", rv.Type)

	rv, err = FromCDP(cdpwire.RemoteObject{Type: "object", Subtype: "null"}, r)
	require.NoError(t, err)
	assert.Equal(t, "null", rv.Type)
}

func TestFromCDPObjectGetsHandle(t *testing.T) {
	r := realm.NewStorage().Create("r1", 1, "s1", realm.Window, "https://example.com", "c1", "")

	rv, err := FromCDP(cdpwire.RemoteObject{Type: "object", Subtype: "array", ObjectID: "obj-1"}, r)
	require.NoError(t, err)
	assert.Equal(t, "array", rv.Type)
	require.NotEmpty(t, rv.Handle)

	objectID, ok := r.ObjectID(rv.Handle)
	require.True(t, ok)
	assert.Equal(t, "obj-1", objectID)
}

func TestToCallArgumentRoundTripsHandle(t *testing.T) {
	r := realm.NewStorage().Create("r1", 1, "s1", realm.Window, "https://example.com", "c1", "")
	handle := r.Own("obj-9")

	arg, err := ToCallArgument(RemoteValue{Handle: handle}, r)
	require.NoError(t, err)
	assert.Equal(t, "obj-9", arg.ObjectID)
}

func TestToCallArgumentUnknownHandle(t *testing.T) {
	r := realm.NewStorage().Create("r1", 1, "s1", realm.Window, "https://example.com", "c1", "")
	_, err := ToCallArgument(RemoteValue{Handle: "does-not-exist"}, r)
	assert.Error(t, err)
}

func TestSharedIDRoundTrip(t *testing.T) {
	s := SharedID("frame-1", "doc-1", 42)
	frameID, docID, nodeID, err := ParseSharedID(s)
	require.NoError(t, err)
	assert.Equal(t, "frame-1", frameID)
	assert.Equal(t, "doc-1", docID)
	assert.EqualValues(t, 42, nodeID)
}
