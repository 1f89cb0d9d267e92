// Package command implements CommandProcessor (spec §4.9): parse, route by
// dotted method prefix, dispatch to a registered module Handler, and format
// the result or error back onto the wire.
package command

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/chromedp/bidimapper/internal/bidi"
	"github.com/chromedp/bidimapper/internal/bidierr"
	"github.com/chromedp/bidimapper/internal/outqueue"
)

// Handler executes one BiDi command and returns its result payload (marshaled
// as the reply's "result" field) or an error classified per spec §7.
type Handler func(ctx context.Context, params json.RawMessage, channel string) (interface{}, error)

// Processor is the CommandProcessor: a dotted-method router over per-module
// Handlers, which enqueues each reply onto the command's channel OutgoingQueue
// immediately so reply ordering matches command-read order (spec §4.9 step 3,
// §4.8).
type Processor struct {
	handlers map[string]Handler
	queues   *outqueue.Registry
	logf     func(string, ...interface{})
}

// New constructs a Processor. queues supplies the per-channel OutgoingQueue
// replies are enqueued onto.
func New(queues *outqueue.Registry, logf func(string, ...interface{})) *Processor {
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}
	return &Processor{handlers: make(map[string]Handler), queues: queues, logf: logf}
}

// Register installs the Handler for one exact BiDi method name (e.g.
// "session.subscribe", "browsingContext.navigate").
func (p *Processor) Register(method string, h Handler) {
	p.handlers[method] = h
}

// HandleFrame parses raw, routes it, and enqueues its reply future onto the
// frame's channel queue (spec §4.9). It never blocks on the handler itself;
// the handler runs inside the enqueued future, preserving the invariant
// that command N+1's reply cannot overtake command N's.
func (p *Processor) HandleFrame(ctx context.Context, raw []byte) {
	cmd, err := bidi.ParseCommand(raw)
	if err != nil {
		p.queues.For("").Enqueue(func() (outqueue.Message, error) {
			return bidi.ErrorResult{Type: "error", ID: nil, Error: string(bidierr.InvalidArgument), Message: err.Error()}, nil
		})
		return
	}

	h, ok := p.lookup(cmd.Method)
	q := p.queues.For(cmd.Channel)
	if !ok {
		q.Enqueue(func() (outqueue.Message, error) {
			return bidi.ErrorResult{Type: "error", ID: cmd.ID, Error: string(bidierr.UnknownCommand), Message: "unknown command: " + cmd.Method, Channel: cmd.Channel}, nil
		})
		return
	}

	q.Enqueue(func() (outqueue.Message, error) {
		result, err := h(ctx, cmd.Params, cmd.Channel)
		if err != nil {
			be := bidierr.AsBidiError(err)
			return bidi.ErrorResult{Type: "error", ID: cmd.ID, Error: string(be.Code), Message: be.Message, Stacktrace: be.Stacktrace, Channel: cmd.Channel}, nil
		}
		return bidi.NewSuccess(cmd.ID, result, cmd.Channel), nil
	})
}

// lookup routes by dotted method prefix: the module is the part before the
// first '.', the operation is the rest (spec §4.9 step 2). Handlers are
// registered under the exact method name, so lookup is a direct map hit;
// the prefix split exists to distinguish "unknown module" from "unknown
// operation" only for diagnostics via logf.
func (p *Processor) lookup(method string) (Handler, bool) {
	h, ok := p.handlers[method]
	if !ok {
		if i := strings.IndexByte(method, '.'); i > 0 {
			p.logf("command: no handler for module=%s op=%s", method[:i], method[i+1:])
		}
	}
	return h, ok
}
