// Package processor holds the per-BiDi-module Handler implementations that
// CommandProcessor routes to (spec §4.9, §6.1 module list). Each file wires
// exactly one module's operations to the storages/components built
// elsewhere in internal/.
package processor

import (
	"context"
	"encoding/json"

	"github.com/chromedp/bidimapper/internal/bidierr"
	"github.com/chromedp/bidimapper/internal/command"
	"github.com/chromedp/bidimapper/internal/events"
)

// Session implements the "session" module: subscribe/unsubscribe/status.
type Session struct {
	events *events.Manager
}

// NewSession constructs the session Processor.
func NewSession(ev *events.Manager) *Session { return &Session{events: ev} }

// Register installs this module's handlers on cp.
func (s *Session) Register(cp *command.Processor) {
	cp.Register("session.subscribe", s.subscribe)
	cp.Register("session.unsubscribe", s.unsubscribe)
	cp.Register("session.status", s.status)
}

type subscribeParams struct {
	Events         []string `json:"events"`
	Contexts       []string `json:"contexts,omitempty"`
	UserContexts   []string `json:"userContexts,omitempty"`
}

type subscribeResult struct {
	Subscription string `json:"subscription"`
}

func (s *Session) subscribe(_ context.Context, raw json.RawMessage, channel string) (interface{}, error) {
	var p subscribeParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, bidierr.New(bidierr.InvalidArgument, "session.subscribe: %v", err)
	}
	if len(p.Events) == 0 {
		return nil, bidierr.New(bidierr.InvalidArgument, "session.subscribe: events must be non-empty")
	}
	id := s.events.Subscribe(p.Events, p.Contexts, p.UserContexts, channel)
	return subscribeResult{Subscription: id}, nil
}

type unsubscribeParams struct {
	Subscriptions []string `json:"subscriptions"`
}

func (s *Session) unsubscribe(_ context.Context, raw json.RawMessage, _ string) (interface{}, error) {
	var p unsubscribeParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, bidierr.New(bidierr.InvalidArgument, "session.unsubscribe: %v", err)
	}
	for _, id := range p.Subscriptions {
		s.events.Unsubscribe(id)
	}
	return struct{}{}, nil
}

type statusResult struct {
	Ready   bool   `json:"ready"`
	Message string `json:"message"`
}

func (s *Session) status(context.Context, json.RawMessage, string) (interface{}, error) {
	return statusResult{Ready: false, Message: "already connected"}, nil
}
