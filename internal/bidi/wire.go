// Package bidi holds the northbound wire types (spec §6.1): the BiDi
// command/reply/event envelope that the CommandProcessor parses and
// produces, plus the Transport interface the core depends on without
// implementing.
package bidi

import "encoding/json"

// Transport is the collaborator interface for the client-facing connection.
// Framing (WebSocket upgrade, `/session` handshake) is out of scope for the
// core (spec §1); the core only ever sees already-framed text messages.
type Transport interface {
	// SetOnMessage registers the callback invoked for each inbound frame.
	SetOnMessage(func(raw []byte))
	// SendMessage sends one outbound frame.
	SendMessage(raw []byte) error
}

// Command is a parsed BiDi command frame (spec §6.1).
type Command struct {
	ID      uint64          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	Channel string          `json:"-"`
}

// rawCommand is used to parse the two historical channel spellings
// ("channel" and "goog:channel") into Command.Channel.
type rawCommand struct {
	ID      uint64          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	Channel *string         `json:"channel,omitempty"`
	GoogChannel *string     `json:"goog:channel,omitempty"`
}

// ParseCommand parses a raw inbound frame into a Command. A malformed frame
// returns a non-nil error and a Command with ID 0; callers must still reply
// with id:null per spec §7.
func ParseCommand(raw []byte) (Command, error) {
	var rc rawCommand
	if err := json.Unmarshal(raw, &rc); err != nil {
		return Command{}, err
	}
	cmd := Command{ID: rc.ID, Method: rc.Method, Params: rc.Params}
	if rc.Channel != nil {
		cmd.Channel = *rc.Channel
	} else if rc.GoogChannel != nil {
		cmd.Channel = *rc.GoogChannel
	}
	return cmd, nil
}

// SuccessResult is the success reply shape.
type SuccessResult struct {
	Type    string      `json:"type"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result"`
	Channel string      `json:"channel,omitempty"`
}

// NewSuccess builds a success reply envelope.
func NewSuccess(id uint64, result interface{}, channel string) SuccessResult {
	return SuccessResult{Type: "success", ID: id, Result: result, Channel: channel}
}

// ErrorResult is the error reply shape (spec §6.1, §7).
type ErrorResult struct {
	Type       string      `json:"type"`
	ID         interface{} `json:"id"`
	Error      string      `json:"error"`
	Message    string      `json:"message"`
	Stacktrace string      `json:"stacktrace,omitempty"`
	Channel    string      `json:"channel,omitempty"`
}

// EventResult is the event shape (spec §6.1).
type EventResult struct {
	Type    string      `json:"type"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	Channel string      `json:"channel,omitempty"`
}

// NewEvent builds an event envelope.
func NewEvent(method string, params interface{}, channel string) EventResult {
	return EventResult{Type: "event", Method: method, Params: params, Channel: channel}
}
