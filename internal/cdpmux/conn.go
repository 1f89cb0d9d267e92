package cdpmux

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/chromedp/cdproto"
	"github.com/gorilla/websocket"
	"github.com/mailru/easyjson/jlexer"
	"github.com/mailru/easyjson/jwriter"
)

// DefaultReadBufferSize and DefaultWriteBufferSize bound the websocket
// frames the mux will read/write for the CDP duplex stream, matching the
// teacher's conn.go sizing (Chrome can emit very large Network/DOM payloads).
var (
	DefaultReadBufferSize  = 25 * 1024 * 1024
	DefaultWriteBufferSize = 10 * 1024 * 1024
)

// Conn is the southbound transport interface: a duplex stream of CDP
// messages. It is the only thing CdpMux needs from the browser process
// connection, so tests can substitute an in-memory fake.
type Conn interface {
	Read(*cdproto.Message) error
	Write(*cdproto.Message) error
	io.Closer
}

// WSConn wraps a gorilla/websocket.Conn as a Conn, reusing the easyjson
// lexer/writer across calls the way the teacher's conn.go does to avoid a
// per-message allocation on this hot path.
type WSConn struct {
	ws  *websocket.Conn
	buf bytes.Buffer

	lexer  jlexer.Lexer
	writer jwriter.Writer

	dbgf func(string, ...interface{})
}

// Dial opens the CDP websocket endpoint.
func Dial(ctx context.Context, urlstr string, dbgf func(string, ...interface{})) (*WSConn, error) {
	d := &websocket.Dialer{
		ReadBufferSize:   DefaultReadBufferSize,
		WriteBufferSize:  DefaultWriteBufferSize,
		HandshakeTimeout: 60 * time.Second,
	}
	ws, _, err := d.DialContext(ctx, urlstr, nil)
	if err != nil {
		return nil, err
	}
	return &WSConn{ws: ws, dbgf: dbgf}, nil
}

func (c *WSConn) bufReadAll(r io.Reader) ([]byte, error) {
	c.buf.Reset()
	_, err := c.buf.ReadFrom(r)
	return c.buf.Bytes(), err
}

// Read reads the next CDP message off the wire.
func (c *WSConn) Read(msg *cdproto.Message) error {
	typ, r, err := c.ws.NextReader()
	if err != nil {
		return err
	}
	if typ != websocket.TextMessage {
		return ErrInvalidWebsocketMessage
	}

	buf, err := c.bufReadAll(r)
	if err != nil {
		return err
	}
	if c.dbgf != nil {
		c.dbgf("<- %s", buf)
	}

	c.lexer = jlexer.Lexer{Data: buf}
	msg.UnmarshalEasyJSON(&c.lexer)
	if err := c.lexer.Error(); err != nil {
		return err
	}

	// bufReadAll's buffer is reused on the next call, and msg.Result aliases
	// it, so we must copy before returning.
	msg.Result = append([]byte{}, msg.Result...)
	return nil
}

// Write writes a CDP message to the wire.
func (c *WSConn) Write(msg *cdproto.Message) error {
	w, err := c.ws.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	defer w.Close()

	c.writer = jwriter.Writer{}
	msg.MarshalEasyJSON(&c.writer)
	if err := c.writer.Error; err != nil {
		return err
	}

	buf, _ := c.writer.BuildBytes()
	if c.dbgf != nil {
		c.dbgf("-> %s", buf)
	}
	if _, err := w.Write(buf); err != nil {
		return err
	}
	return w.Close()
}

// Close closes the underlying websocket connection.
func (c *WSConn) Close() error {
	return c.ws.Close()
}

// Error is a simple sentinel error type, mirroring the teacher's
// errors.go pattern.
type Error string

func (e Error) Error() string { return string(e) }

// ErrInvalidWebsocketMessage is returned when a non-text websocket frame
// arrives on the CDP connection; CDP never sends binary frames.
const ErrInvalidWebsocketMessage Error = "cdpmux: invalid websocket message"
