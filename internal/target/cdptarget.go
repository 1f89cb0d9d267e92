// Package target implements CdpTarget and CdpTargetManager (spec §4.2): the
// per-target façade that owns CDP domain-enable bookkeeping, and the
// listener that discovers targets via Target.attachedToTarget and builds
// the BrowsingContext/Realm graph.
package target

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto"
	"golang.org/x/sync/errgroup"

	"github.com/chromedp/bidimapper/internal/cdpclient"
	"github.com/chromedp/bidimapper/internal/cdpwire"
)

// Variant is the CDP target type that determines how CdpTargetManager wires
// a newly attached target (spec §4.2 step 1).
type Variant string

const (
	VariantPage          Variant = "page"
	VariantIFrame        Variant = "iframe"
	VariantWorker        Variant = "worker"
	VariantServiceWorker Variant = "service_worker"
	VariantSharedWorker  Variant = "shared_worker"
	VariantOther         Variant = "other"
)

// Target is CdpTarget: a CDP session, the domains enabled on it, and the
// set of Fetch URL patterns currently registered.
type Target struct {
	ID        string
	SessionID string
	Variant   Variant
	ContextID string // owning BrowsingContext, for page/iframe variants
	Client    *cdpclient.Client

	enabledDomains    map[string]bool
	fetchPatterns     []cdpwire.RequestPattern
	fetchHandleAuth   bool
	installedPreloads map[string]bool

	// IsSubscribedTo answers whether any live subscription covers
	// eventName for this target's context(s). New sets it to a function
	// that always reports false; nothing in this module replaces it.
	IsSubscribedTo func(eventName string) bool
}

// New wraps an already-attached CDP session as a CdpTarget façade.
func New(id, sessionID string, variant Variant, client *cdpclient.Client) *Target {
	return &Target{
		ID:                id,
		SessionID:         sessionID,
		Variant:           variant,
		Client:            client,
		enabledDomains:    make(map[string]bool),
		installedPreloads: make(map[string]bool),
		IsSubscribedTo:    func(string) bool { return false },
	}
}

// InitOptions carries the effective ContextConfig values and collaborator
// hooks Init needs (spec §4.2 step 2).
type InitOptions struct {
	CacheDisabled     bool
	ExtraHeaders      map[string]string
	InstallPreloads   func(ctx context.Context, t *Target) error
	ApplyInterception func(ctx context.Context, t *Target) error
}

// Init performs the bounded batch of CDP calls spec §4.2 step 2 describes:
// enable Runtime/Page/Network/Log, Page.setLifecycleEventsEnabled,
// Network.setCacheDisabled + header emulation, preload script install, and
// Fetch interception re-application if any intercept already matches.
//
// If any step fails the whole batch is considered failed (step 3). Manager
// then closes the target and drops it before any BrowsingContext is created
// for it.
func (t *Target) Init(ctx context.Context, opts InitOptions) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	g.Go(func() error { return t.enable(gctx, "Runtime") })
	g.Go(func() error { return t.enable(gctx, "Page") })
	g.Go(func() error { return t.enable(gctx, "Network") })
	g.Go(func() error { return t.enable(gctx, "Log") })

	if err := g.Wait(); err != nil {
		return fmt.Errorf("cdptarget init: %w", err)
	}

	if err := t.Client.Call(ctx, "Page.setLifecycleEventsEnabled", &cdpwire.SetLifecycleEventsEnabledParams{Enabled: true}, nil); err != nil {
		return fmt.Errorf("cdptarget init: Page.setLifecycleEventsEnabled: %w", err)
	}
	if err := t.Client.Call(ctx, "Network.setCacheDisabled", &cdpwire.SetCacheDisabledParams{CacheDisabled: opts.CacheDisabled}, nil); err != nil {
		return fmt.Errorf("cdptarget init: Network.setCacheDisabled: %w", err)
	}
	if len(opts.ExtraHeaders) > 0 {
		if err := t.Client.Call(ctx, "Network.setExtraHTTPHeaders", &cdpwire.SetExtraHTTPHeadersParams{Headers: opts.ExtraHeaders}, nil); err != nil {
			return fmt.Errorf("cdptarget init: Network.setExtraHTTPHeaders: %w", err)
		}
	}

	if opts.InstallPreloads != nil {
		if err := opts.InstallPreloads(ctx, t); err != nil {
			return fmt.Errorf("cdptarget init: preload scripts: %w", err)
		}
	}
	if opts.ApplyInterception != nil {
		if err := opts.ApplyInterception(ctx, t); err != nil {
			return fmt.Errorf("cdptarget init: fetch interception: %w", err)
		}
	}

	return nil
}

func (t *Target) enable(ctx context.Context, domain string) error {
	if err := t.Client.Call(ctx, cdproto.MethodType(domain+".enable"), nil, nil); err != nil {
		return err
	}
	t.enabledDomains[domain] = true
	return nil
}

// EnableDomain enables a CDP domain on this target if not already enabled.
func (t *Target) EnableDomain(ctx context.Context, domain string) error {
	if t.enabledDomains[domain] {
		return nil
	}
	if err := t.Client.Call(ctx, cdproto.MethodType(domain+".enable"), nil, nil); err != nil {
		return err
	}
	t.enabledDomains[domain] = true
	return nil
}

// DisableDomain disables a CDP domain on this target if enabled.
func (t *Target) DisableDomain(ctx context.Context, domain string) error {
	if !t.enabledDomains[domain] {
		return nil
	}
	if err := t.Client.Call(ctx, cdproto.MethodType(domain+".disable"), nil, nil); err != nil {
		return err
	}
	delete(t.enabledDomains, domain)
	return nil
}

// DomainEnabled reports whether domain is currently enabled on this target.
func (t *Target) DomainEnabled(domain string) bool { return t.enabledDomains[domain] }

// SetFetchPatterns reconciles Fetch.enable/disable against the union of
// active intercepts (spec §4.4 "Interception"). An empty set disables
// Fetch; on failure the previous pattern set is retained and the error is
// surfaced to the caller (spec §9 Open Question resolution).
func (t *Target) SetFetchPatterns(ctx context.Context, patterns []cdpwire.RequestPattern, handleAuth bool) error {
	if len(patterns) == 0 {
		if !t.enabledDomains["Fetch"] {
			return nil
		}
		if err := t.Client.Call(ctx, "Fetch.disable", nil, nil); err != nil {
			return err
		}
		delete(t.enabledDomains, "Fetch")
		t.fetchPatterns = nil
		t.fetchHandleAuth = false
		return nil
	}

	prevPatterns, prevAuth := t.fetchPatterns, t.fetchHandleAuth
	params := &cdpwire.FetchEnableParams{Patterns: patterns, HandleAuthRequests: handleAuth}
	if err := t.Client.Call(ctx, "Fetch.enable", params, nil); err != nil {
		// abort the change, keep previous set (spec §9 Open Question).
		t.fetchPatterns, t.fetchHandleAuth = prevPatterns, prevAuth
		return err
	}
	t.enabledDomains["Fetch"] = true
	t.fetchPatterns = patterns
	t.fetchHandleAuth = handleAuth
	return nil
}

// MarkPreloadInstalled records that scriptID has been installed on this
// target, for PreloadScriptStorage's idempotence guarantee (spec §5).
func (t *Target) MarkPreloadInstalled(scriptID string) { t.installedPreloads[scriptID] = true }

// PreloadInstalled reports whether scriptID is already installed here.
func (t *Target) PreloadInstalled(scriptID string) bool { return t.installedPreloads[scriptID] }

// AttachParams builds the CDP Target.setAutoAttach params the manager sends
// on the root session and on every attached target, so the mux sees exactly
// one flat frame stream (spec §6.2).
func AttachParams() *cdpwire.SetAutoAttachParams {
	return &cdpwire.SetAutoAttachParams{AutoAttach: true, WaitForDebuggerOnStart: true, Flatten: true}
}

// variantFromType maps a CDP targetInfo.type to a Variant (spec §4.2 step 1).
func variantFromType(typ string) Variant {
	switch typ {
	case "page", "iframe":
		if typ == "page" {
			return VariantPage
		}
		return VariantIFrame
	case "worker":
		return VariantWorker
	case "service_worker":
		return VariantServiceWorker
	case "shared_worker":
		return VariantSharedWorker
	default:
		return VariantOther
	}
}
