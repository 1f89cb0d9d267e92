package bidierr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFormatsMessage(t *testing.T) {
	err := New(NoSuchFrame, "no such frame: %s", "ctx-1")
	assert.Equal(t, NoSuchFrame, err.Code)
	assert.Equal(t, "no such frame: ctx-1", err.Message)
	assert.Contains(t, err.Error(), "no such frame")
}

func TestWrapPreservesCauseForUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(UnknownError, cause, "call failed")
	assert.Same(t, cause, errors.Unwrap(err))
	assert.Contains(t, err.Error(), "boom")
}

func TestAsBidiErrorPassesThroughExistingError(t *testing.T) {
	original := New(NoSuchHandle, "gone")
	got := AsBidiError(original)
	assert.Same(t, original, got)
}

func TestAsBidiErrorFoldsArbitraryErrorToUnknown(t *testing.T) {
	got := AsBidiError(errors.New("plain failure"))
	require.NotNil(t, got)
	assert.Equal(t, UnknownError, got.Code)
	assert.Equal(t, "plain failure", got.Message)
}

func TestAsBidiErrorNilIsNil(t *testing.T) {
	assert.Nil(t, AsBidiError(nil))
}

func TestFatalUnwrap(t *testing.T) {
	cause := errors.New("socket reset")
	f := NewFatal("transport closed", cause)
	assert.Equal(t, cause, errors.Unwrap(f))
	assert.Contains(t, f.Error(), "transport closed")
}
