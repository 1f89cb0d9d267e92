package mapper

import (
	"encoding/json"

	"github.com/chromedp/cdproto"

	"github.com/chromedp/bidimapper/internal/cdpwire"
	"github.com/chromedp/bidimapper/internal/navigation"
	netw "github.com/chromedp/bidimapper/internal/network"
	"github.com/chromedp/bidimapper/internal/realm"
	"github.com/chromedp/bidimapper/internal/target"
)

// onTargetAttached builds the BrowsingContext (for page/iframe variants)
// and wires every per-session listener that keeps RealmStorage,
// NetworkStorage, and the NavigationTracker in sync with the routed CDP
// event stream (spec §4.2 step 1, generalizing the teacher's
// handleAttachedToTarget/listen wiring from "one page" to the full
// page/iframe/worker attach surface).
func (m *Mapper) onTargetAttached(ev target.AttachEvent) {
	t := ev.Target
	m.recordSession(t.ID, t.SessionID)

	switch t.Variant {
	case target.VariantPage, target.VariantIFrame:
		parentID := ""
		if ev.Info.OpenerID != "" {
			parentID = m.parentContextFor(ev.Info)
		}
		bc := m.contexts.Create(t.ID, parentID, m.defaultUserContext, "about:blank", m.emitNavigation)
		bc.SetCurrentTarget(t.ID)
		t.ContextID = bc.ID
		m.cfg.RegisterContext(bc.ID, m.defaultUserContext)
	default:
		// Workers/service workers/shared workers get realms but no
		// BrowsingContext of their own (spec §3 "Realm" owner can be a
		// worker with no owning context).
	}

	m.wireRuntime(t)
	m.wirePage(t)
	m.wireNetwork(t)
	m.wireFetch(t)
	m.wireLog(t)
}

func (m *Mapper) parentContextFor(info cdpwire.TargetInfo) string {
	if opener, ok := m.targets.Get(info.OpenerID); ok {
		return opener.ContextID
	}
	return ""
}

func (m *Mapper) emitNavigation(ev navigation.Event) {
	var name string
	switch ev.Kind {
	case navigation.EventNavigationStarted:
		name = "browsingContext.navigationStarted"
	case navigation.EventNavigationAborted:
		name = "browsingContext.navigationAborted"
	case navigation.EventNavigationFailed:
		name = "browsingContext.navigationFailed"
	case navigation.EventFragmentNavigated:
		name = "browsingContext.fragmentNavigated"
	default:
		return
	}
	m.events.Publish(name, ev.ContextID, navigationEventParams{
		Context:      ev.ContextID,
		Navigation:   ev.NavigationID,
		URL:          ev.URL,
		Timestamp:    0,
	})
}

type navigationEventParams struct {
	Context    string `json:"context"`
	Navigation string `json:"navigation"`
	URL        string `json:"url"`
	Timestamp  int64  `json:"timestamp"`
}

func (m *Mapper) wireRuntime(t *target.Target) {
	t.Client.On("Runtime.executionContextCreated", func(msg *cdproto.Message) {
		var ev cdpwire.EventExecutionContextCreated
		if err := json.Unmarshal(msg.Params, &ev); err != nil {
			m.logf("mapper: bad executionContextCreated: %v", err)
			return
		}
		var aux cdpwire.ExecutionContextAuxData
		_ = json.Unmarshal(ev.Context.AuxData, &aux)

		kind := realm.Window
		switch t.Variant {
		case target.VariantWorker:
			kind = realm.DedicatedWorker
		case target.VariantSharedWorker:
			kind = realm.SharedWorker
		case target.VariantServiceWorker:
			kind = realm.ServiceWorker
		}
		sandbox := ""
		if !aux.IsDefault {
			sandbox = ev.Context.Name
		}
		m.realms.Create(ev.Context.UniqueID, ev.Context.ID, t.SessionID, kind, ev.Context.Origin, t.ContextID, sandbox)
	})

	t.Client.On("Runtime.executionContextDestroyed", func(msg *cdproto.Message) {
		var ev cdpwire.EventExecutionContextDestroyed
		if err := json.Unmarshal(msg.Params, &ev); err != nil {
			return
		}
		if r, ok := m.realms.FindByExecutionContext(t.SessionID, ev.ExecutionContextID); ok {
			m.realms.Remove(r.ID)
		}
	})

	t.Client.On("Runtime.executionContextsCleared", func(*cdproto.Message) {
		m.realms.RemoveAllForSession(t.SessionID)
	})
}

func (m *Mapper) wirePage(t *target.Target) {
	if t.ContextID == "" {
		return
	}
	bc, ok := m.contexts.Get(t.ContextID)
	if !ok {
		return
	}

	t.Client.On("Page.frameRequestedNavigation", func(msg *cdproto.Message) {
		var ev cdpwire.EventFrameRequestedNavigation
		if err := json.Unmarshal(msg.Params, &ev); err != nil {
			return
		}
		if ev.FrameID != t.ID {
			return
		}
		bc.Tracker.FrameRequestedNavigation(ev.URL)
	})

	t.Client.On("Page.frameStartedNavigating", func(msg *cdproto.Message) {
		var ev cdpwire.EventFrameStartedNavigating
		if err := json.Unmarshal(msg.Params, &ev); err != nil {
			return
		}
		if ev.FrameID != t.ID {
			return
		}
		bc.Tracker.FrameStartedNavigating(ev.URL, ev.LoaderID)
	})

	t.Client.On("Page.frameNavigated", func(msg *cdproto.Message) {
		var ev cdpwire.EventFrameNavigated
		if err := json.Unmarshal(msg.Params, &ev); err != nil {
			return
		}
		if ev.Frame.ID != t.ID && ev.Frame.ParentID != "" {
			return // a sub-frame of this target that isn't its own context root
		}
		bc.Tracker.FrameNavigated(ev.Frame.URL, ev.Frame.LoaderID)
	})

	t.Client.On("Page.navigatedWithinDocument", func(msg *cdproto.Message) {
		var ev cdpwire.EventNavigatedWithinDocument
		if err := json.Unmarshal(msg.Params, &ev); err != nil {
			return
		}
		if ev.FrameID != t.ID {
			return
		}
		bc.Tracker.NavigatedWithinDocument(ev.URL)
	})

	t.Client.On("Page.lifecycleEvent", func(msg *cdproto.Message) {
		var ev cdpwire.EventLifecycleEvent
		if err := json.Unmarshal(msg.Params, &ev); err != nil {
			return
		}
		if ev.FrameID != t.ID || ev.Name != "load" {
			return
		}
		bc.Tracker.LoadPageEvent(ev.LoaderID)
	})
}

func (m *Mapper) wireNetwork(t *target.Target) {
	t.Client.On("Network.requestWillBeSent", func(msg *cdproto.Message) {
		var ev cdpwire.EventRequestWillBeSent
		if err := json.Unmarshal(msg.Params, &ev); err != nil {
			return
		}
		if ev.RedirectResponse != nil {
			if r, ok := m.requests.GetByCdpID(ev.RequestID); ok {
				// The old hop is finalized with the redirect response before
				// the request is re-keyed to the new hop (spec §4.4: "the
				// current request is finalized ... then the same requestId
				// is re-created").
				r.SetResponse(*ev.RedirectResponse)
				m.publishNetworkEvent("network.responseStarted", t.ContextID, r)
				m.publishNetworkEvent("network.responseCompleted", t.ContextID, r)
				m.requests.Redirect(r, ev.RequestID, ev.RedirectResponse.Status, r.URL(), ev.Request)
				m.publishNetworkEvent("network.beforeRequestSent", t.ContextID, r)
				return
			}
		}
		r := m.requests.Create(t.SessionID, ev.RequestID, ev.Request)
		m.publishNetworkEvent("network.beforeRequestSent", t.ContextID, r)
	})

	t.Client.On("Network.responseReceived", func(msg *cdproto.Message) {
		var ev cdpwire.EventResponseReceived
		if err := json.Unmarshal(msg.Params, &ev); err != nil {
			return
		}
		r, ok := m.requests.GetByCdpID(ev.RequestID)
		if !ok {
			return
		}
		r.SetResponse(ev.Response)
		m.publishNetworkEvent("network.responseStarted", t.ContextID, r)
	})

	t.Client.On("Network.loadingFinished", func(msg *cdproto.Message) {
		var ev cdpwire.EventLoadingFinished
		if err := json.Unmarshal(msg.Params, &ev); err != nil {
			return
		}
		r, ok := m.requests.GetByCdpID(ev.RequestID)
		if !ok {
			return
		}
		if !r.Blocked() {
			m.publishNetworkEvent("network.responseCompleted", t.ContextID, r)
		}
		m.requests.Remove(r)
	})

	t.Client.On("Network.loadingFailed", func(msg *cdproto.Message) {
		var ev cdpwire.EventLoadingFailed
		if err := json.Unmarshal(msg.Params, &ev); err != nil {
			return
		}
		if bc, ok := m.contexts.Get(t.ContextID); ok {
			bc.Tracker.NetworkLoadingFailed(ev.RequestID)
		}
		r, ok := m.requests.GetByCdpID(ev.RequestID)
		if !ok {
			return
		}
		m.publishNetworkEvent("network.fetchError", t.ContextID, r)
		m.requests.Remove(r)
	})
}

func (m *Mapper) publishNetworkEvent(name, contextID string, r *netw.Request) {
	resp, hasResp := r.Response()
	params := networkEventParams{
		Context:      contextID,
		Request:      r.ID,
		URL:          r.URL(),
		RedirectCount: r.RedirectCount(),
	}
	if hasResp {
		params.Status = resp.Status
	}
	m.events.Publish(name, contextID, params)
}

type networkEventParams struct {
	Context      string `json:"context"`
	Request      string `json:"request"`
	URL          string `json:"url"`
	RedirectCount int   `json:"redirectCount"`
	Status       int    `json:"status,omitempty"`
}

func (m *Mapper) wireFetch(t *target.Target) {
	t.Client.On("Fetch.requestPaused", func(msg *cdproto.Message) {
		var ev cdpwire.EventRequestPaused
		if err := json.Unmarshal(msg.Params, &ev); err != nil {
			return
		}
		var r *netw.Request
		if ev.NetworkID != "" {
			r, _ = m.requests.GetByCdpID(ev.NetworkID)
		}
		if r == nil {
			r = m.requests.Create(t.SessionID, ev.RequestID, ev.Request)
		}
		m.requests.BindFetchID(ev.RequestID, r)

		phase := netw.PhaseBeforeRequest
		eventName := "network.beforeRequestSent"
		if ev.ResponseStatusCode != 0 || ev.ResponseErrorReason != "" {
			phase = netw.PhaseResponseStarted
			eventName = "network.responseStarted"
		}
		r.SetPhase(phase, ev.RequestID)
		m.publishNetworkEvent(eventName, t.ContextID, r)
	})

	t.Client.On("Fetch.authRequired", func(msg *cdproto.Message) {
		var ev cdpwire.EventAuthRequired
		if err := json.Unmarshal(msg.Params, &ev); err != nil {
			return
		}
		r, ok := m.requests.GetByCdpID(ev.RequestID)
		if !ok {
			r = m.requests.Create(t.SessionID, ev.RequestID, ev.Request)
		}
		m.requests.BindFetchID(ev.RequestID, r)
		r.SetAuthChallenge(ev.AuthChallenge)
		r.SetPhase(netw.PhaseAuthRequired, ev.RequestID)
		m.publishNetworkEvent("network.authRequired", t.ContextID, r)
	})
}

func (m *Mapper) wireLog(t *target.Target) {
	t.Client.On("Log.entryAdded", func(msg *cdproto.Message) {
		var ev cdpwire.EventEntryAdded
		if err := json.Unmarshal(msg.Params, &ev); err != nil {
			return
		}
		m.events.Publish("log.entryAdded", t.ContextID, logEntryParams{
			Context: t.ContextID,
			Type:    "console",
			Level:   ev.Entry.Level,
			Text:    ev.Entry.Text,
			Source:  ev.Entry.Source,
		})
	})
}

type logEntryParams struct {
	Context string `json:"context"`
	Type    string `json:"type"`
	Level   string `json:"level"`
	Text    string `json:"text"`
	Source  string `json:"source"`
}

// onTargetDetached tears down everything owned by a departed target: its
// realms and (if it was serving a browsing context) that context, unless
// the context is simply being reparented to a replacement target (not
// modeled here; a fresh attach always gets its own context).
func (m *Mapper) onTargetDetached(targetID string) {
	sessionID := m.forgetSession(targetID)
	if sessionID != "" {
		m.realms.RemoveAllForSession(sessionID)
		for _, r := range m.requests.All() {
			if r.SessionID == sessionID {
				m.requests.Remove(r)
			}
		}
	}
	m.contexts.Delete(targetID)
}

// onTargetInfoChanged is a no-op today: browsingContext.getTree's url comes
// from the NavigationTracker, which Page.frameNavigated already keeps
// current. The callback exists so CdpTargetManager's lifecycle surface is
// fully wired even though this particular signal is redundant for now.
func (m *Mapper) onTargetInfoChanged(info cdpwire.TargetInfo) {}

func (m *Mapper) onTargetCrashed(targetID string) {
	m.onTargetDetached(targetID)
}
