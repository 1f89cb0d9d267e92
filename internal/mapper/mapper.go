// Package mapper is the composition root (spec §9): it wires every
// component — CdpMux, CdpTargetManager, the BrowsingContext/Realm/Network/
// PreloadScript storages, the SubscriptionManager/EventManager, the
// per-channel OutgoingQueue registry, every module Processor, and the
// CommandProcessor — into one running Mapper instance, the way the
// teacher's cdp.WithRunScript/chromedp.Run construct a browser session from
// its parts (browser.go, target.go) rather than leaving callers to do it by
// hand.
package mapper

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/chromedp/bidimapper/internal/bidi"
	"github.com/chromedp/bidimapper/internal/browsingcontext"
	"github.com/chromedp/bidimapper/internal/cdpclient"
	"github.com/chromedp/bidimapper/internal/cdpmux"
	"github.com/chromedp/bidimapper/internal/command"
	"github.com/chromedp/bidimapper/internal/config"
	"github.com/chromedp/bidimapper/internal/events"
	"github.com/chromedp/bidimapper/internal/outqueue"
	"github.com/chromedp/bidimapper/internal/preload"
	netw "github.com/chromedp/bidimapper/internal/network"
	"github.com/chromedp/bidimapper/internal/processor"
	"github.com/chromedp/bidimapper/internal/realm"
	"github.com/chromedp/bidimapper/internal/target"
)

// defaultUserContextID is the id BiDi reserves for the implicit user context
// every browsing context belongs to until browser.createUserContext is
// called (spec glossary "default user context").
const defaultUserContextID = "default"

// Mapper owns every component instance for one Mapper process lifetime: one
// browser connection, one set of storages, one CommandProcessor (spec §1:
// "one Mapper instance per browser process").
type Mapper struct {
	logf func(string, ...interface{})

	mux   *cdpmux.Mux
	root  *cdpclient.Client
	targets *target.Manager

	contexts *browsingcontext.Storage
	realms   *realm.Storage
	requests *netw.Storage
	preloads *preload.Storage
	cfg      *config.Storage
	events   *events.Manager
	queues   *outqueue.Registry
	commands *command.Processor

	defaultUserContext string

	mu         sync.Mutex
	sessionOf  map[string]string // CdpTarget id -> CDP session id, for teardown after Manager forgets the target
}

// New connects to the browser's CDP websocket endpoint and assembles every
// component. logf may be nil. The returned Mapper does not yet process BiDi
// frames; call Attach to bind it to a client transport, then Start.
func New(ctx context.Context, cdpEndpoint string, logf func(string, ...interface{})) (*Mapper, error) {
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}

	conn, err := cdpmux.Dial(ctx, cdpEndpoint, logf)
	if err != nil {
		return nil, err
	}
	mux := cdpmux.New(conn, logf)
	root := cdpclient.New(mux, "")

	process, err := config.LoadProcessDefaults()
	if err != nil {
		return nil, err
	}

	m := &Mapper{
		logf:               logf,
		mux:                mux,
		root:                root,
		targets:             target.NewManager(mux, root, logf),
		contexts:            browsingcontext.NewStorage(),
		realms:              realm.NewStorage(),
		requests:            netw.NewStorage(),
		preloads:            preload.NewStorage(),
		cfg:                 config.NewStorage(process),
		defaultUserContext:  defaultUserContextID,
		sessionOf:           make(map[string]string),
	}

	m.events = events.NewManager(m.ancestryOf, m.userContextOf, m.allLiveContextIDs, m.deliverEvent)
	m.events.OnReconcile(m.reconcileEventDomains)

	m.targets.SetInitOptions(m.initOptionsFor)
	m.targets.OnAttached(m.onTargetAttached)
	m.targets.OnDetached(m.onTargetDetached)
	m.targets.OnInfoChanged(m.onTargetInfoChanged)
	m.targets.OnTargetCrashed(m.onTargetCrashed)

	return m, nil
}

func (m *Mapper) recordSession(targetID, sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionOf[targetID] = sessionID
}

func (m *Mapper) forgetSession(targetID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	sessionID := m.sessionOf[targetID]
	delete(m.sessionOf, targetID)
	return sessionID
}

// Attach binds the Mapper to a BiDi client transport: every outbound reply/
// event is written to it, and every inbound frame is routed through the
// CommandProcessor (spec §1, §4.9). It must be called before Start.
func (m *Mapper) Attach(transport bidi.Transport) {
	m.queues = outqueue.NewRegistry(func(channel string) outqueue.Sender {
		return func(msg outqueue.Message) error {
			buf, err := json.Marshal(msg)
			if err != nil {
				return err
			}
			return transport.SendMessage(buf)
		}
	}, m.logf)

	m.commands = command.New(m.queues, m.logf)
	m.registerProcessors()

	transport.SetOnMessage(func(raw []byte) {
		m.commands.HandleFrame(context.Background(), raw)
	})
}

func (m *Mapper) registerProcessors() {
	processor.NewSession(m.events).Register(m.commands)
	processor.NewBrowsingContext(m.contexts, m.targets, m.events, m.root).Register(m.commands)
	processor.NewScript(m.realms, m.contexts, m.targets, m.preloads).Register(m.commands)
	processor.NewNetwork(m.requests, m.targets).Register(m.commands)
	processor.NewInput(m.contexts, m.targets).Register(m.commands)
	processor.NewStorage(m.root).Register(m.commands)
	processor.NewBrowser(m.root).Register(m.commands)
	processor.NewBluetooth(m.contexts, m.targets).Register(m.commands)
	processor.NewPermissions(m.root).Register(m.commands)
	processor.NewCdp(m.contexts, m.targets, m.root).Register(m.commands)
}

// Start begins target discovery (spec §4.2 step 1) and starts pumping the
// CDP connection. It blocks until the connection fails or ctx is canceled;
// callers typically run it in its own goroutine.
func (m *Mapper) Start(ctx context.Context) error {
	runErr := make(chan error, 1)
	go func() { runErr <- m.mux.Run(ctx) }()

	if err := m.targets.Start(ctx); err != nil {
		return err
	}

	return <-runErr
}

func (m *Mapper) deliverEvent(channel string, ev events.Event) {
	m.queues.For(channel).EnqueueReady(bidi.NewEvent(ev.Name, ev.Params, channel))
}

// ancestryOf returns contextID and every ancestor up to its top-level
// context, for SubscriptionManager scope checks (spec §4.7).
func (m *Mapper) ancestryOf(contextID string) []string {
	out := []string{contextID}
	for {
		c, ok := m.contexts.Get(contextID)
		if !ok || c.ParentID == "" {
			return out
		}
		contextID = c.ParentID
		out = append(out, contextID)
	}
}

func (m *Mapper) userContextOf(contextID string) string {
	c, ok := m.contexts.Get(contextID)
	if !ok {
		return ""
	}
	for c.ParentID != "" {
		parent, ok := m.contexts.Get(c.ParentID)
		if !ok {
			break
		}
		c = parent
	}
	return c.UserContextID
}

func (m *Mapper) allLiveContextIDs() []string {
	all := m.contexts.All()
	out := make([]string, 0, len(all))
	for _, c := range all {
		out = append(out, c.ID)
	}
	return out
}

// reconcileEventDomains enables/disables the CDP domains each live target
// needs given the current subscription set (spec §4.7 "Module toggling").
// Runtime/Page/Network/Log are already unconditionally enabled by
// CdpTarget.Init, so there is nothing further to toggle today; this hook
// exists for a future module (e.g. a opt-in domain) that genuinely needs
// conditional enablement.
func (m *Mapper) reconcileEventDomains() {}

// initOptionsFor builds one target's init batch from its effective
// ContextConfig plus the currently registered preload scripts (spec §4.2
// step 2).
func (m *Mapper) initOptionsFor(t *target.Target) target.InitOptions {
	contextID := t.ID
	eff := m.cfg.Resolve(contextID)

	return target.InitOptions{
		CacheDisabled: eff.CacheDisabled,
		ExtraHeaders:  eff.ExtraHeaders,
		InstallPreloads: func(ctx context.Context, t *target.Target) error {
			for _, sc := range m.preloads.AllFor(contextID, m.defaultUserContext) {
				var res struct {
					Identifier string `json:"identifier"`
				}
				if err := t.Client.Call(ctx, "Page.addScriptToEvaluateOnNewDocument", map[string]string{"source": sc.FunctionBody}, &res); err != nil {
					return err
				}
				sc.RecordInstall(t.ID, res.Identifier)
				t.MarkPreloadInstalled(sc.ID)
			}
			return nil
		},
	}
}
