package target

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto"
	cdptarget "github.com/chromedp/cdproto/target"

	"github.com/chromedp/bidimapper/internal/cdpclient"
	"github.com/chromedp/bidimapper/internal/cdpmux"
	"github.com/chromedp/bidimapper/internal/cdpwire"
)

// AttachEvent is delivered to Manager.OnAttached for every CDP target that
// becomes available, whether the browser's initial page, a popup, a
// worker, or an out-of-process iframe's own target (spec §4.2 step 1).
type AttachEvent struct {
	Target *Target
	Info   cdpwire.TargetInfo
}

// Manager is CdpTargetManager (spec §4.2): it listens on the browser-root
// CdpClient for Target.attachedToTarget/detachedFromTarget/
// targetInfoChanged, wraps each newly attached session as a CdpTarget, runs
// its init batch, and republishes the attach/detach/crash lifecycle to
// whatever owns the BrowsingContext/Realm graph (the mapper composition
// root). Building that graph from the routed Page/Runtime events is
// deliberately not this package's job, to keep CdpTargetManager ignorant of
// BiDi-level concepts.
//
// Grounded on the teacher's browser.go (AttachedToTarget→newExecutorForTarget)
// and target.go, generalized from "one browser, N pages" to the full
// page/iframe/worker/service-worker/shared-worker attach surface spec.md
// names.
type Manager struct {
	mux  *cdpmux.Mux
	root *cdpclient.Client
	logf func(string, ...interface{})

	mu      sync.Mutex
	targets map[string]*Target // by CDP targetId

	initOptions func(t *Target) InitOptions

	onAttached    func(AttachEvent)
	onDetached    func(targetID string)
	onInfoChanged func(info cdpwire.TargetInfo)
	onCrashed     func(targetID string)
}

// NewManager constructs a Manager bound to the browser-root session (the
// CdpClient created with the zero-value CDP session id).
func NewManager(mux *cdpmux.Mux, root *cdpclient.Client, logf func(string, ...interface{})) *Manager {
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}
	return &Manager{
		mux:           mux,
		root:          root,
		logf:          logf,
		targets:       make(map[string]*Target),
		initOptions:   func(*Target) InitOptions { return InitOptions{} },
		onAttached:    func(AttachEvent) {},
		onDetached:    func(string) {},
		onInfoChanged: func(cdpwire.TargetInfo) {},
		onCrashed:     func(string) {},
	}
}

// SetInitOptions installs the callback used to build each target's init
// batch (preload scripts, interception, header/cache config). Must be
// called before Start.
func (m *Manager) SetInitOptions(f func(t *Target) InitOptions) { m.initOptions = f }

// OnAttached registers the callback invoked once a target finishes its
// init batch successfully.
func (m *Manager) OnAttached(f func(AttachEvent)) { m.onAttached = f }

// OnDetached registers the callback invoked when a target is detached.
func (m *Manager) OnDetached(f func(targetID string)) { m.onDetached = f }

// OnInfoChanged registers the callback invoked on Target.targetInfoChanged
// (e.g. a frame's URL or title changed).
func (m *Manager) OnInfoChanged(f func(info cdpwire.TargetInfo)) { m.onInfoChanged = f }

// OnTargetCrashed registers the callback invoked when a target's renderer
// process crashes (CDP Inspector.targetCrashed).
func (m *Manager) OnTargetCrashed(f func(targetID string)) { m.onCrashed = f }

// Start subscribes the root session to the attach lifecycle and enables
// recursive auto-attach, so every existing and future target in the
// browser is discovered (spec §6.2: one flat CDP session tree).
func (m *Manager) Start(ctx context.Context) error {
	m.root.On("Target.attachedToTarget", func(msg *cdproto.Message) { m.handleAttached(ctx, msg) })
	m.root.On("Target.detachedFromTarget", func(msg *cdproto.Message) { m.handleDetached(msg) })
	m.root.On("Target.targetInfoChanged", func(msg *cdproto.Message) { m.handleInfoChanged(msg) })

	if err := m.root.Call(ctx, "Target.setDiscoverTargets", &cdpwire.SetDiscoverTargetsParams{Discover: true}, nil); err != nil {
		return fmt.Errorf("cdptargetmanager start: Target.setDiscoverTargets: %w", err)
	}
	if err := m.root.Call(ctx, "Target.setAutoAttach", AttachParams(), nil); err != nil {
		return fmt.Errorf("cdptargetmanager start: Target.setAutoAttach: %w", err)
	}
	return nil
}

// Get looks up a previously attached target by its CDP target id.
func (m *Manager) Get(targetID string) (*Target, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.targets[targetID]
	return t, ok
}

// GetBySessionID looks up a previously attached target by its CDP session
// id, for collaborators (the cdp module) that only know the session, not
// the target id.
func (m *Manager) GetBySessionID(sessionID string) (*Target, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.targets {
		if t.SessionID == sessionID {
			return t, true
		}
	}
	return nil, false
}

// All returns every currently attached target.
func (m *Manager) All() []*Target {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Target, 0, len(m.targets))
	for _, t := range m.targets {
		out = append(out, t)
	}
	return out
}

func (m *Manager) handleAttached(ctx context.Context, msg *cdproto.Message) {
	var ev cdpwire.EventAttachedToTarget
	if err := json.Unmarshal(msg.Params, &ev); err != nil {
		m.logf("cdptargetmanager: bad attachedToTarget payload: %v", err)
		return
	}

	sessionID := cdptarget.SessionID(ev.SessionID)
	client := cdpclient.New(m.mux, sessionID)
	variant := variantFromType(ev.TargetInfo.Type)
	t := New(ev.TargetInfo.TargetID, ev.SessionID, variant, client)

	client.On("Inspector.targetCrashed", func(*cdproto.Message) {
		m.onCrashed(t.ID)
	})

	m.mu.Lock()
	m.targets[t.ID] = t
	m.mu.Unlock()

	// Recursive auto-attach: this session must also opt in, so that any
	// target it itself spawns (a nested OOPIF, a worker) is discovered.
	if err := client.Call(ctx, "Target.setAutoAttach", AttachParams(), nil); err != nil {
		m.logf("cdptargetmanager: target %s: setAutoAttach: %v", t.ID, err)
	}

	if err := t.Init(ctx, m.initOptions(t)); err != nil {
		m.logf("cdptargetmanager: target %s: init failed: %v", t.ID, err)
		m.mu.Lock()
		delete(m.targets, t.ID)
		m.mu.Unlock()
		if err := m.root.Call(ctx, "Target.closeTarget", &cdpwire.CloseTargetParams{TargetID: t.ID}, nil); err != nil {
			m.logf("cdptargetmanager: target %s: closeTarget: %v", t.ID, err)
		}
		client.Detach()
		return
	}

	m.onAttached(AttachEvent{Target: t, Info: ev.TargetInfo})
}

func (m *Manager) handleDetached(msg *cdproto.Message) {
	var ev cdpwire.EventDetachedFromTarget
	if err := json.Unmarshal(msg.Params, &ev); err != nil {
		m.logf("cdptargetmanager: bad detachedFromTarget payload: %v", err)
		return
	}

	m.mu.Lock()
	var found *Target
	for id, t := range m.targets {
		if t.SessionID == ev.SessionID || id == ev.TargetID {
			found = t
			delete(m.targets, id)
			break
		}
	}
	m.mu.Unlock()

	if found == nil {
		return
	}
	found.Client.Detach()
	m.onDetached(found.ID)
}

func (m *Manager) handleInfoChanged(msg *cdproto.Message) {
	var ev cdpwire.EventTargetInfoChanged
	if err := json.Unmarshal(msg.Params, &ev); err != nil {
		m.logf("cdptargetmanager: bad targetInfoChanged payload: %v", err)
		return
	}
	m.onInfoChanged(ev.TargetInfo)
}
