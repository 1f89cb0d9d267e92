// Package stdiotransport implements bidi.Transport over line-delimited JSON
// on stdin/stdout, the framing chromedriver's --headless=new pipe and most
// BiDi reference harnesses use to drive a Mapper process directly without a
// WebSocket hop.
package stdiotransport

import (
	"bufio"
	"io"
	"sync"
)

// Transport reads one BiDi frame per input line and writes one BiDi frame
// per output line. It implements bidi.Transport.
type Transport struct {
	out   io.Writer
	outMu sync.Mutex

	onMessage func(raw []byte)

	scanner *bufio.Scanner
	logf    func(string, ...interface{})
}

// New wraps r/w as a stdio Transport. logf may be nil.
func New(r io.Reader, w io.Writer, logf func(string, ...interface{})) *Transport {
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &Transport{out: w, scanner: scanner, logf: logf}
}

// SetOnMessage registers the callback invoked for each inbound line.
func (t *Transport) SetOnMessage(fn func(raw []byte)) {
	t.onMessage = fn
}

// SendMessage writes one outbound frame terminated by a newline.
func (t *Transport) SendMessage(raw []byte) error {
	t.outMu.Lock()
	defer t.outMu.Unlock()
	if _, err := t.out.Write(raw); err != nil {
		return err
	}
	_, err := t.out.Write([]byte{'\n'})
	return err
}

// Run blocks reading lines until r hits EOF or an error, delivering each
// line to the registered onMessage callback. Intended to run in its own
// goroutine alongside Mapper.Start.
func (t *Transport) Run() error {
	for t.scanner.Scan() {
		line := t.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if t.onMessage == nil {
			t.logf("stdiotransport: dropping frame, no handler registered yet")
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		t.onMessage(cp)
	}
	return t.scanner.Err()
}
