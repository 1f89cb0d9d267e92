package command

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chromedp/bidimapper/internal/bidi"
	"github.com/chromedp/bidimapper/internal/bidierr"
	"github.com/chromedp/bidimapper/internal/outqueue"
)

func newTestProcessor(t *testing.T) (*Processor, func() []outqueue.Message) {
	var mu sync.Mutex
	var sent []outqueue.Message

	reg := outqueue.NewRegistry(func(channel string) outqueue.Sender {
		return func(msg outqueue.Message) error {
			mu.Lock()
			sent = append(sent, msg)
			mu.Unlock()
			return nil
		}
	}, nil)

	p := New(reg, nil)
	drain := func() []outqueue.Message {
		require.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(sent) > 0
		}, time.Second, time.Millisecond)
		mu.Lock()
		defer mu.Unlock()
		return append([]outqueue.Message(nil), sent...)
	}
	return p, drain
}

func TestHandleFrameRoutesToRegisteredHandler(t *testing.T) {
	p, drain := newTestProcessor(t)
	p.Register("session.status", func(ctx context.Context, params json.RawMessage, channel string) (interface{}, error) {
		return map[string]bool{"ready": true}, nil
	})

	p.HandleFrame(context.Background(), []byte(`{"id":1,"method":"session.status","params":{}}`))

	msgs := drain()
	require.Len(t, msgs, 1)
	res, ok := msgs[0].(bidi.SuccessResult)
	require.True(t, ok)
	assert.Equal(t, uint64(1), res.ID)
	assert.Equal(t, "success", res.Type)
}

func TestHandleFrameUnknownMethodRepliesUnknownCommand(t *testing.T) {
	p, drain := newTestProcessor(t)

	p.HandleFrame(context.Background(), []byte(`{"id":7,"method":"does.notExist","params":{}}`))

	msgs := drain()
	require.Len(t, msgs, 1)
	res, ok := msgs[0].(bidi.ErrorResult)
	require.True(t, ok)
	assert.Equal(t, string(bidierr.UnknownCommand), res.Error)
	assert.Equal(t, uint64(7), res.ID)
}

func TestHandleFrameMalformedJSONRepliesWithNilID(t *testing.T) {
	p, drain := newTestProcessor(t)

	p.HandleFrame(context.Background(), []byte(`not json`))

	msgs := drain()
	require.Len(t, msgs, 1)
	res, ok := msgs[0].(bidi.ErrorResult)
	require.True(t, ok)
	assert.Nil(t, res.ID)
	assert.Equal(t, string(bidierr.InvalidArgument), res.Error)
}

func TestHandleFrameHandlerErrorIsClassified(t *testing.T) {
	p, drain := newTestProcessor(t)
	p.Register("browsingContext.navigate", func(ctx context.Context, params json.RawMessage, channel string) (interface{}, error) {
		return nil, bidierr.New(bidierr.NoSuchFrame, "no such frame: %s", "ctx-1")
	})

	p.HandleFrame(context.Background(), []byte(`{"id":2,"method":"browsingContext.navigate","params":{}}`))

	msgs := drain()
	require.Len(t, msgs, 1)
	res, ok := msgs[0].(bidi.ErrorResult)
	require.True(t, ok)
	assert.Equal(t, string(bidierr.NoSuchFrame), res.Error)
}

func TestHandleFramePreservesChannel(t *testing.T) {
	p, drain := newTestProcessor(t)
	p.Register("session.status", func(ctx context.Context, params json.RawMessage, channel string) (interface{}, error) {
		return struct{}{}, nil
	})

	p.HandleFrame(context.Background(), []byte(`{"id":1,"method":"session.status","channel":"ch-1","params":{}}`))

	msgs := drain()
	require.Len(t, msgs, 1)
	res, ok := msgs[0].(bidi.SuccessResult)
	require.True(t, ok)
	assert.Equal(t, "ch-1", res.Channel)
}
