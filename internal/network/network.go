// Package network implements NetworkStorage (spec §4.4): the in-flight and
// recently-completed request table built by merging CDP Network.* and
// Fetch.* events, including redirect chains and interception phases.
package network

import (
	"sync"

	"github.com/chromedp/bidimapper/internal/cdpwire"
)

// Phase is the interception phase a paused request is currently sitting in
// (spec §4.4 "Interception").
type Phase string

const (
	PhaseNone             Phase = ""
	PhaseBeforeRequest    Phase = "beforeRequestSent"
	PhaseResponseStarted  Phase = "responseStarted"
	PhaseAuthRequired     Phase = "authRequired"
)

// Request is NetworkRequest: one HTTP request as observed on the wire,
// potentially spanning several CDP requestIds across a redirect chain
// (spec §4.4: "redirects are modeled as a chain of CDP requests sharing one
// BiDi network.request id").
type Request struct {
	ID        string // BiDi request id: the first CDP requestId in the chain
	SessionID string

	mu           sync.Mutex
	cdpRequestID string // current CDP requestId (changes across a redirect)
	chain        []RedirectEntry
	phase        Phase
	fetchRequestID string // Fetch domain's correlation id, when intercepted

	request  cdpwire.Request
	response *cdpwire.Response
	authChallenge *cdpwire.AuthChallenge

	blocked bool
}

// RedirectEntry records one hop of a redirect chain.
type RedirectEntry struct {
	URL        string
	StatusCode int
}

func newRequest(id, sessionID, cdpRequestID string, req cdpwire.Request) *Request {
	return &Request{ID: id, SessionID: sessionID, cdpRequestID: cdpRequestID, request: req}
}

// URL returns the URL currently believed to be in flight for this request
// (the last redirect target, or the original URL).
func (r *Request) URL() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.request.URL
}

// Phase returns the interception phase, or PhaseNone if not intercepted.
func (r *Request) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// SetPhase transitions the interception phase (spec §4.4: phases are
// strictly ordered beforeRequestSent -> responseStarted | authRequired).
func (r *Request) SetPhase(p Phase, fetchRequestID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phase = p
	r.fetchRequestID = fetchRequestID
}

// FetchRequestID returns the Fetch-domain id needed to resolve the paused
// request (Fetch.continueRequest/failRequest/fulfillRequest all key on it,
// not the Network-domain requestId).
func (r *Request) FetchRequestID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fetchRequestID
}

// Redirect records a redirect hop: the previous response completes the
// chain entry and cdpRequestID moves to the new CDP request id CDP issues
// for the redirected fetch.
func (r *Request) Redirect(newCdpRequestID string, prevStatus int, prevURL string, next cdpwire.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chain = append(r.chain, RedirectEntry{URL: prevURL, StatusCode: prevStatus})
	r.cdpRequestID = newCdpRequestID
	r.request = next
	r.response = nil
	r.phase = PhaseNone
}

// SetResponse records the response headers/status for the current hop.
func (r *Request) SetResponse(resp cdpwire.Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.response = &resp
}

// Response returns the last recorded response, if any.
func (r *Request) Response() (cdpwire.Response, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.response == nil {
		return cdpwire.Response{}, false
	}
	return *r.response, true
}

// SetAuthChallenge records a pending Fetch.authRequired challenge.
func (r *Request) SetAuthChallenge(c cdpwire.AuthChallenge) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.authChallenge = &c
}

// RedirectCount reports how many redirect hops preceded the current one.
func (r *Request) RedirectCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.chain)
}

// MarkBlocked records that this request was failed/blocked by a BiDi
// network.failRequest or by interception policy, so late CDP events for it
// (a loadingFinished racing the fail) are ignored rather than double-
// reported.
func (r *Request) MarkBlocked() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocked = true
}

// Blocked reports whether MarkBlocked was called.
func (r *Request) Blocked() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blocked
}

// Storage is NetworkStorage: requests indexed by BiDi id and by the CDP
// requestId of their current hop (spec §4.4).
type Storage struct {
	mu         sync.RWMutex
	byBidiID   map[string]*Request
	byCdpID    map[string]*Request // current-hop CDP requestId -> Request
	byFetchID  map[string]*Request
}

// NewStorage constructs an empty NetworkStorage.
func NewStorage() *Storage {
	return &Storage{
		byBidiID:  make(map[string]*Request),
		byCdpID:   make(map[string]*Request),
		byFetchID: make(map[string]*Request),
	}
}

// Create starts tracking a new request, keyed initially by its first CDP
// requestId (which also becomes the BiDi request id, spec glossary).
func (s *Storage) Create(sessionID, cdpRequestID string, req cdpwire.Request) *Request {
	r := newRequest(cdpRequestID, sessionID, cdpRequestID, req)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byBidiID[r.ID] = r
	s.byCdpID[cdpRequestID] = r
	return r
}

// GetByCdpID finds the Request currently tracked under a CDP requestId
// (the current hop of its redirect chain).
func (s *Storage) GetByCdpID(cdpRequestID string) (*Request, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byCdpID[cdpRequestID]
	return r, ok
}

// GetByBidiID finds a Request by its stable BiDi request id.
func (s *Storage) GetByBidiID(id string) (*Request, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byBidiID[id]
	return r, ok
}

// GetByFetchID finds the Request currently paused under a Fetch-domain id.
func (s *Storage) GetByFetchID(fetchRequestID string) (*Request, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byFetchID[fetchRequestID]
	return r, ok
}

// BindFetchID associates a Fetch.requestPaused id with a tracked request,
// so resolution calls (continue/fail/fulfill) can find it back.
func (s *Storage) BindFetchID(fetchRequestID string, r *Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byFetchID[fetchRequestID] = r
	r.SetPhase(r.Phase(), fetchRequestID)
}

// Redirect re-keys a request under its new CDP requestId after a redirect
// hop (spec §4.4).
func (s *Storage) Redirect(r *Request, newCdpRequestID string, prevStatus int, prevURL string, next cdpwire.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byCdpID, r.cdpRequestID)
	r.Redirect(newCdpRequestID, prevStatus, prevURL, next)
	s.byCdpID[newCdpRequestID] = r
}

// Remove stops tracking a request once it completes or fails terminally.
func (s *Storage) Remove(r *Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byBidiID, r.ID)
	delete(s.byCdpID, r.cdpRequestID)
	if fid := r.FetchRequestID(); fid != "" {
		delete(s.byFetchID, fid)
	}
}

// All returns every currently tracked request, for session teardown.
func (s *Storage) All() []*Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Request, 0, len(s.byBidiID))
	for _, r := range s.byBidiID {
		out = append(out, r)
	}
	return out
}
