// Package cdpclient implements CdpClient (spec §4.1): a session-scoped view
// over CdpMux that can send typed commands and observe events, without
// knowing about any other session.
//
// Grounded on the teacher's Target.Execute/Listen (target.go), generalized
// so that listeners are keyed by CDP method rather than the teacher's
// single-purpose frame/DOM/runtime switch.
package cdpclient

import (
	"context"
	"sync"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/target"

	"github.com/chromedp/bidimapper/internal/cdpmux"
)

// Listener receives a raw CDP event message for a method it subscribed to.
type Listener func(msg *cdproto.Message)

// Client is a session-scoped CDP executor and event source.
type Client struct {
	mux       *cdpmux.Mux
	sessionID target.SessionID

	mu        sync.RWMutex
	listeners map[cdproto.MethodType][]Listener
	wildcard  []Listener
	closed    bool
	onClose   []func()
}

// New creates a Client for sessionID and registers it with mux. sessionID
// is "" for the browser root session.
func New(mux *cdpmux.Mux, sessionID target.SessionID) *Client {
	c := &Client{
		mux:       mux,
		sessionID: sessionID,
		listeners: make(map[cdproto.MethodType][]Listener),
	}
	mux.RegisterSession(sessionID, c.dispatch)
	return c
}

func (c *Client) dispatch(msg *cdproto.Message) {
	c.mu.Lock()
	if msg == nil {
		c.closed = true
		handlers := c.onClose
		c.onClose = nil
		c.mu.Unlock()
		for _, h := range handlers {
			h()
		}
		return
	}
	ls := append([]Listener(nil), c.listeners[msg.Method]...)
	wc := append([]Listener(nil), c.wildcard...)
	c.mu.Unlock()

	for _, l := range ls {
		l(msg)
	}
	for _, l := range wc {
		l(msg)
	}
}

// SessionID returns the CDP session this client is bound to.
func (c *Client) SessionID() target.SessionID { return c.sessionID }

// Call issues a CDP command on this session. params/res are internal/cdpwire
// payload structs (or nil); see Mux.Send.
func (c *Client) Call(ctx context.Context, method cdproto.MethodType, params interface{}, res interface{}) error {
	return c.mux.Send(ctx, c.sessionID, method, params, res)
}

// On registers a listener for a specific CDP method (e.g.
// "Network.requestWillBeSent"). Listeners for the same method run in
// registration order, in CDP arrival order (spec §4.1 ordering guarantee).
func (c *Client) On(method cdproto.MethodType, l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners[method] = append(c.listeners[method], l)
}

// OnAny registers a listener invoked for every event on this session,
// regardless of method, after that method's own listeners.
func (c *Client) OnAny(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wildcard = append(c.wildcard, l)
}

// OnClose registers a callback invoked exactly once when the underlying mux
// reports this session as terminated (transport closure or session detach).
func (c *Client) OnClose(f func()) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		f()
		return
	}
	c.onClose = append(c.onClose, f)
	c.mu.Unlock()
}

// Detach unregisters this client from the mux and runs its OnClose
// callbacks. It does not itself send Target.detachFromTarget; callers do
// that first if appropriate.
func (c *Client) Detach() {
	c.mux.UnregisterSession(c.sessionID)
	c.dispatch(nil)
}
