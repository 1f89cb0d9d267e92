// Package outqueue implements OutgoingQueue (spec §4.8): per channel, a
// FIFO of pending outbound messages, processed strictly in enqueue order
// so command replies reach the client in the order their commands were
// read off the wire, regardless of completion order.
//
// Grounded on the teacher's three-queue run loop (handler.go: qcmd/qres/
// qevents), generalized from one queue per connection to one per BiDi
// channel.
package outqueue

import "sync"

// Message is anything the queue can hand to a Sender: a formatted
// success/error reply or event envelope (internal/bidi's SuccessResult,
// ErrorResult, EventResult).
type Message interface{}

// entry is either a ready message or a pending future: Resolve() blocks
// until the message is available, or returns an error if the command
// ultimately failed and should not be sent (e.g. transport closed first).
type entry struct {
	resolve func() (Message, error)
}

// Sender delivers one resolved message to the client transport.
type Sender func(Message) error

// Queue is one channel's OutgoingQueue.
type Queue struct {
	mu      sync.Mutex
	pending []entry
	running bool
	send    Sender
	logf    func(string, ...interface{})
}

// New constructs a Queue that delivers resolved messages via send.
func New(send Sender, logf func(string, ...interface{})) *Queue {
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}
	return &Queue{send: send, logf: logf}
}

// EnqueueReady appends an already-resolved message (e.g. an event, which
// has no future to await).
func (q *Queue) EnqueueReady(msg Message) {
	q.Enqueue(func() (Message, error) { return msg, nil })
}

// Enqueue appends a future: resolve is called once, in order, when the
// queue's drain loop reaches this entry. Enqueue must be called
// synchronously with receiving the command, before resolve is allowed to
// run, so that reply ordering matches command-read order (spec §4.8).
func (q *Queue) Enqueue(resolve func() (Message, error)) {
	q.mu.Lock()
	q.pending = append(q.pending, entry{resolve: resolve})
	start := !q.running
	if start {
		q.running = true
	}
	q.mu.Unlock()

	if start {
		go q.drain()
	}
}

func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		next := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		msg, err := next.resolve()
		if err != nil {
			q.logf("outqueue: dropping entry: %v", err)
			continue
		}
		if err := q.send(msg); err != nil {
			q.logf("outqueue: send failed: %v", err)
		}
	}
}

// Len reports the number of entries not yet drained, for tests/diagnostics.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Registry owns one Queue per BiDi channel, creating them lazily (spec
// §4.2 NEW note: "one default/no-channel queue for commands/events sent
// without an explicit channel param").
type Registry struct {
	mu     sync.Mutex
	queues map[string]*Queue
	newSender func(channel string) Sender
	logf   func(string, ...interface{})
}

// NewRegistry constructs a Registry. newSender builds the Sender for a
// freshly created channel's queue (bound to the transport + channel tag).
func NewRegistry(newSender func(channel string) Sender, logf func(string, ...interface{})) *Registry {
	return &Registry{queues: make(map[string]*Queue), newSender: newSender, logf: logf}
}

// For returns (creating if absent) the Queue for a channel ("" is the
// default channel).
func (r *Registry) For(channel string) *Queue {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.queues[channel]
	if !ok {
		q = New(r.newSender(channel), r.logf)
		r.queues[channel] = q
	}
	return q
}
