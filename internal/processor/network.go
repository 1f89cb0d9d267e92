package processor

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/chromedp/bidimapper/internal/bidierr"
	"github.com/chromedp/bidimapper/internal/cdpwire"
	"github.com/chromedp/bidimapper/internal/command"
	netw "github.com/chromedp/bidimapper/internal/network"
	"github.com/chromedp/bidimapper/internal/target"
)

// Intercept is one registered network.addIntercept entry (spec §4.4).
type Intercept struct {
	ID       string
	Phases   []string
	Patterns []string
}

// Network implements the "network" module: continueRequest, failRequest,
// provideResponse (fulfill), addIntercept, removeIntercept (spec §4.4).
type Network struct {
	requests   *netw.Storage
	targets    *target.Manager
	intercepts map[string]*Intercept
}

// NewNetwork constructs the network Processor.
func NewNetwork(requests *netw.Storage, targets *target.Manager) *Network {
	return &Network{requests: requests, targets: targets, intercepts: make(map[string]*Intercept)}
}

// Register installs this module's handlers on cp.
func (n *Network) Register(cp *command.Processor) {
	cp.Register("network.continueRequest", n.continueRequest)
	cp.Register("network.failRequest", n.failRequest)
	cp.Register("network.provideResponse", n.provideResponse)
	cp.Register("network.addIntercept", n.addIntercept)
	cp.Register("network.removeIntercept", n.removeIntercept)
}

func (n *Network) findTarget(r *netw.Request) (*target.Target, bool) {
	for _, t := range n.targets.All() {
		if t.SessionID == r.SessionID {
			return t, true
		}
	}
	return nil, false
}

type continueRequestParams struct {
	Request string `json:"request"`
}

func (n *Network) continueRequest(ctx context.Context, raw json.RawMessage, _ string) (interface{}, error) {
	var p continueRequestParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, bidierr.New(bidierr.InvalidArgument, "network.continueRequest: %v", err)
	}
	r, ok := n.requests.GetByBidiID(p.Request)
	if !ok {
		return nil, bidierr.New(bidierr.NoSuchRequest, "no such request %q", p.Request)
	}
	t, ok := n.findTarget(r)
	if !ok {
		return nil, bidierr.New(bidierr.NoSuchRequest, "request %q has no live target", p.Request)
	}
	fetchID := r.FetchRequestID()
	if fetchID == "" {
		return nil, bidierr.New(bidierr.NoSuchRequest, "request %q is not paused", p.Request)
	}
	if err := t.Client.Call(ctx, "Fetch.continueRequest", &cdpwire.ContinueRequestParams{RequestID: fetchID}, nil); err != nil {
		return nil, bidierr.Wrap(bidierr.UnknownError, err, "network.continueRequest: Fetch.continueRequest")
	}
	r.SetPhase(netw.PhaseNone, "")
	return struct{}{}, nil
}

type failRequestParams struct {
	Request string `json:"request"`
}

func (n *Network) failRequest(ctx context.Context, raw json.RawMessage, _ string) (interface{}, error) {
	var p failRequestParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, bidierr.New(bidierr.InvalidArgument, "network.failRequest: %v", err)
	}
	r, ok := n.requests.GetByBidiID(p.Request)
	if !ok {
		return nil, bidierr.New(bidierr.NoSuchRequest, "no such request %q", p.Request)
	}
	t, ok := n.findTarget(r)
	if !ok {
		return nil, bidierr.New(bidierr.NoSuchRequest, "request %q has no live target", p.Request)
	}
	fetchID := r.FetchRequestID()
	if fetchID == "" {
		return nil, bidierr.New(bidierr.NoSuchRequest, "request %q is not paused", p.Request)
	}
	if err := t.Client.Call(ctx, "Fetch.failRequest", &cdpwire.FailRequestParams{RequestID: fetchID, ErrorReason: "Failed"}, nil); err != nil {
		return nil, bidierr.Wrap(bidierr.UnknownError, err, "network.failRequest: Fetch.failRequest")
	}
	r.MarkBlocked()
	n.requests.Remove(r)
	return struct{}{}, nil
}

type provideResponseParams struct {
	Request    string            `json:"request"`
	StatusCode int               `json:"statusCode,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       string            `json:"body,omitempty"`
}

func (n *Network) provideResponse(ctx context.Context, raw json.RawMessage, _ string) (interface{}, error) {
	var p provideResponseParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, bidierr.New(bidierr.InvalidArgument, "network.provideResponse: %v", err)
	}
	r, ok := n.requests.GetByBidiID(p.Request)
	if !ok {
		return nil, bidierr.New(bidierr.NoSuchRequest, "no such request %q", p.Request)
	}
	t, ok := n.findTarget(r)
	if !ok {
		return nil, bidierr.New(bidierr.NoSuchRequest, "request %q has no live target", p.Request)
	}
	fetchID := r.FetchRequestID()
	if fetchID == "" {
		return nil, bidierr.New(bidierr.NoSuchRequest, "request %q is not paused", p.Request)
	}

	statusCode := p.StatusCode
	if statusCode == 0 {
		statusCode = 200
	}
	var headers []cdpwire.HeaderEntry
	for k, v := range p.Headers {
		headers = append(headers, cdpwire.HeaderEntry{Name: k, Value: v})
	}
	params := &cdpwire.FulfillRequestParams{
		RequestID:       fetchID,
		ResponseCode:    statusCode,
		ResponseHeaders: headers,
		Body:            p.Body,
	}
	if err := t.Client.Call(ctx, "Fetch.fulfillRequest", params, nil); err != nil {
		return nil, bidierr.Wrap(bidierr.UnknownError, err, "network.provideResponse: Fetch.fulfillRequest")
	}
	r.SetPhase(netw.PhaseNone, "")
	return struct{}{}, nil
}

type addInterceptParams struct {
	Phases     []string `json:"phases"`
	URLPatterns []string `json:"urlPatterns,omitempty"`
}

type addInterceptResult struct {
	Intercept string `json:"intercept"`
}

// fetchPatterns computes the union of every registered Intercept's URL
// patterns, for reconciling Fetch.enable on every target (spec §4.4
// "Interception": one CDP Fetch.enable call per target, covering the union
// of all active intercepts).
func (n *Network) fetchPatterns() []cdpwire.RequestPattern {
	var out []cdpwire.RequestPattern
	for _, ic := range n.intercepts {
		if len(ic.Patterns) == 0 {
			out = append(out, cdpwire.RequestPattern{URLPattern: "*", RequestStage: "Request"})
			continue
		}
		for _, pat := range ic.Patterns {
			out = append(out, cdpwire.RequestPattern{URLPattern: pat, RequestStage: "Request"})
		}
	}
	return out
}

func (n *Network) reconcileTargets(ctx context.Context) {
	patterns := n.fetchPatterns()
	for _, t := range n.targets.All() {
		if err := t.SetFetchPatterns(ctx, patterns, false); err != nil {
			continue
		}
	}
}

func (n *Network) addIntercept(ctx context.Context, raw json.RawMessage, _ string) (interface{}, error) {
	var p addInterceptParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, bidierr.New(bidierr.InvalidArgument, "network.addIntercept: %v", err)
	}
	ic := &Intercept{ID: uuid.NewString(), Phases: p.Phases, Patterns: p.URLPatterns}
	n.intercepts[ic.ID] = ic
	n.reconcileTargets(ctx)
	return addInterceptResult{Intercept: ic.ID}, nil
}

type removeInterceptParams struct {
	Intercept string `json:"intercept"`
}

func (n *Network) removeIntercept(ctx context.Context, raw json.RawMessage, _ string) (interface{}, error) {
	var p removeInterceptParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, bidierr.New(bidierr.InvalidArgument, "network.removeIntercept: %v", err)
	}
	if _, ok := n.intercepts[p.Intercept]; !ok {
		return nil, bidierr.New(bidierr.NoSuchIntercept, "no such intercept %q", p.Intercept)
	}
	delete(n.intercepts, p.Intercept)
	n.reconcileTargets(ctx)
	return struct{}{}, nil
}
