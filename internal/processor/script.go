package processor

import (
	"context"
	"encoding/json"

	"github.com/chromedp/bidimapper/internal/bidierr"
	"github.com/chromedp/bidimapper/internal/browsingcontext"
	"github.com/chromedp/bidimapper/internal/cdpwire"
	"github.com/chromedp/bidimapper/internal/command"
	"github.com/chromedp/bidimapper/internal/preload"
	"github.com/chromedp/bidimapper/internal/realm"
	"github.com/chromedp/bidimapper/internal/script"
	"github.com/chromedp/bidimapper/internal/target"
)

// Script implements the "script" module: evaluate, callFunction, disown,
// addPreloadScript, removePreloadScript (spec §4.6).
type Script struct {
	realms   *realm.Storage
	contexts *browsingcontext.Storage
	targets  *target.Manager
	preloads *preload.Storage
}

// NewScript constructs the script Processor.
func NewScript(realms *realm.Storage, contexts *browsingcontext.Storage, targets *target.Manager, preloads *preload.Storage) *Script {
	return &Script{realms: realms, contexts: contexts, targets: targets, preloads: preloads}
}

// Register installs this module's handlers on cp.
func (s *Script) Register(cp *command.Processor) {
	cp.Register("script.evaluate", s.evaluate)
	cp.Register("script.callFunction", s.callFunction)
	cp.Register("script.disown", s.disown)
	cp.Register("script.addPreloadScript", s.addPreloadScript)
	cp.Register("script.removePreloadScript", s.removePreloadScript)
}

type evaluateParams struct {
	Expression   string `json:"expression"`
	Target       evalTarget `json:"target"`
	AwaitPromise bool   `json:"awaitPromise,omitempty"`
}

type evalTarget struct {
	Context string `json:"context,omitempty"`
	Realm   string `json:"realm,omitempty"`
}

type evaluateResult struct {
	Type      string              `json:"type"` // "success" | "exception"
	Result    *script.RemoteValue `json:"result,omitempty"`
	Exception *exceptionDetails   `json:"exceptionDetails,omitempty"`
}

type exceptionDetails struct {
	Text string `json:"text"`
}

func (s *Script) resolveRealm(t evalTarget) (*realm.Realm, *target.Target, error) {
	if t.Realm != "" {
		r, ok := s.realms.Get(t.Realm)
		if !ok {
			return nil, nil, bidierr.New(bidierr.UnknownError, "no such realm %q", t.Realm)
		}
		tg, ok := s.targets.Get(realmTargetID(s, r))
		if !ok {
			return nil, nil, bidierr.New(bidierr.UnknownError, "realm %q has no live target", t.Realm)
		}
		return r, tg, nil
	}

	bc, ok := s.contexts.Get(t.Context)
	if !ok {
		return nil, nil, bidierr.New(bidierr.NoSuchFrame, "no such context %q", t.Context)
	}
	windows := s.realms.WindowRealms(bc.ID, "")
	if len(windows) == 0 {
		return nil, nil, bidierr.New(bidierr.UnknownError, "context %q has no window realm yet", t.Context)
	}
	tg, ok := s.targets.Get(bc.CurrentTargetID())
	if !ok {
		return nil, nil, bidierr.New(bidierr.NoSuchFrame, "context %q has no live target", t.Context)
	}
	return windows[0], tg, nil
}

// realmTargetID maps a realm's CDP session back to the owning CdpTarget id.
// Realms don't store the CdpTarget id directly (only the CDP session id),
// so this walks the live target set once; a future revision could cache
// this if profiling showed it mattered (it is not on any hot path: called
// once per script.evaluate{target:{realm}} call, not per event).
func realmTargetID(s *Script, r *realm.Realm) string {
	for _, t := range s.targets.All() {
		if t.SessionID == r.SessionID {
			return t.ID
		}
	}
	return ""
}

func (s *Script) evaluate(ctx context.Context, raw json.RawMessage, _ string) (interface{}, error) {
	var p evaluateParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, bidierr.New(bidierr.InvalidArgument, "script.evaluate: %v", err)
	}

	r, t, err := s.resolveRealm(p.Target)
	if err != nil {
		return nil, err
	}

	var res cdpwire.EvaluateResult
	params := &cdpwire.EvaluateParams{
		Expression:      p.Expression,
		ContextID:       r.ExecutionContextID,
		AwaitPromise:    p.AwaitPromise,
		GeneratePreview: false,
	}
	if err := t.Client.Call(ctx, "Runtime.evaluate", params, &res); err != nil {
		return nil, bidierr.Wrap(bidierr.UnknownError, err, "script.evaluate: Runtime.evaluate")
	}

	if res.ExceptionDetails != nil {
		_, text, convErr := script.ExceptionToError(*res.ExceptionDetails, r)
		if convErr != nil {
			return nil, convErr
		}
		return evaluateResult{Type: "exception", Exception: &exceptionDetails{Text: text}}, nil
	}

	rv, err := script.FromCDP(res.Result, r)
	if err != nil {
		return nil, err
	}
	return evaluateResult{Type: "success", Result: &rv}, nil
}

type callFunctionParams struct {
	FunctionDeclaration string               `json:"functionDeclaration"`
	Target               evalTarget           `json:"target"`
	Arguments            []script.RemoteValue `json:"arguments,omitempty"`
	This                 *script.RemoteValue  `json:"this,omitempty"`
	AwaitPromise         bool                 `json:"awaitPromise,omitempty"`
}

func (s *Script) callFunction(ctx context.Context, raw json.RawMessage, _ string) (interface{}, error) {
	var p callFunctionParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, bidierr.New(bidierr.InvalidArgument, "script.callFunction: %v", err)
	}

	r, t, err := s.resolveRealm(p.Target)
	if err != nil {
		return nil, err
	}

	args := make([]cdpwire.CallArgument, 0, len(p.Arguments))
	for _, a := range p.Arguments {
		arg, err := script.ToCallArgument(a, r)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}

	objectID := ""
	if p.This != nil && p.This.Handle != "" {
		if id, ok := r.ObjectID(p.This.Handle); ok {
			objectID = id
		}
	}

	var res cdpwire.CallFunctionOnResult
	params := &cdpwire.CallFunctionOnParams{
		FunctionDeclaration: p.FunctionDeclaration,
		ObjectID:            objectID,
		Arguments:           args,
		AwaitPromise:        p.AwaitPromise,
		ExecutionContextID:  r.ExecutionContextID,
	}
	if err := t.Client.Call(ctx, "Runtime.callFunctionOn", params, &res); err != nil {
		return nil, bidierr.Wrap(bidierr.UnknownError, err, "script.callFunction: Runtime.callFunctionOn")
	}

	if res.ExceptionDetails != nil {
		_, text, convErr := script.ExceptionToError(*res.ExceptionDetails, r)
		if convErr != nil {
			return nil, convErr
		}
		return evaluateResult{Type: "exception", Exception: &exceptionDetails{Text: text}}, nil
	}

	rv, err := script.FromCDP(res.Result, r)
	if err != nil {
		return nil, err
	}
	return evaluateResult{Type: "success", Result: &rv}, nil
}

type disownParams struct {
	Handles []string   `json:"handles"`
	Target  evalTarget `json:"target"`
}

func (s *Script) disown(_ context.Context, raw json.RawMessage, _ string) (interface{}, error) {
	var p disownParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, bidierr.New(bidierr.InvalidArgument, "script.disown: %v", err)
	}
	r, _, err := s.resolveRealm(p.Target)
	if err != nil {
		return nil, err
	}
	for _, h := range p.Handles {
		r.Disown(h)
	}
	return struct{}{}, nil
}

type addPreloadScriptParams struct {
	FunctionDeclaration string   `json:"functionDeclaration"`
	Sandbox              string   `json:"sandbox,omitempty"`
	Contexts             []string `json:"contexts,omitempty"`
	UserContexts         []string `json:"userContexts,omitempty"`
}

type addPreloadScriptResult struct {
	Script string `json:"script"`
}

func (s *Script) addPreloadScript(ctx context.Context, raw json.RawMessage, _ string) (interface{}, error) {
	var p addPreloadScriptParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, bidierr.New(bidierr.InvalidArgument, "script.addPreloadScript: %v", err)
	}
	sc := s.preloads.Add(p.FunctionDeclaration, p.Sandbox, p.Contexts, p.UserContexts)

	// Install immediately on every currently live target this script now
	// applies to (spec §5 idempotence: recorded per (scriptId, targetId)).
	for _, t := range s.targets.All() {
		if t.PreloadInstalled(sc.ID) {
			continue
		}
		userContextID := ""
		if bc, ok := s.contexts.Get(t.ContextID); ok {
			userContextID = bc.UserContextID
		}
		if !sc.AppliesTo(t.ContextID, userContextID) {
			continue
		}
		var res struct {
			Identifier string `json:"identifier"`
		}
		if err := t.Client.Call(ctx, "Page.addScriptToEvaluateOnNewDocument", map[string]string{"source": sc.FunctionBody}, &res); err != nil {
			continue
		}
		sc.RecordInstall(t.ID, res.Identifier)
		t.MarkPreloadInstalled(sc.ID)
	}

	return addPreloadScriptResult{Script: sc.ID}, nil
}

type removePreloadScriptParams struct {
	Script string `json:"script"`
}

func (s *Script) removePreloadScript(ctx context.Context, raw json.RawMessage, _ string) (interface{}, error) {
	var p removePreloadScriptParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, bidierr.New(bidierr.InvalidArgument, "script.removePreloadScript: %v", err)
	}
	sc, ok := s.preloads.Remove(p.Script)
	if !ok {
		return nil, bidierr.New(bidierr.NoSuchScript, "no such script %q", p.Script)
	}
	for targetID, identifier := range sc.CdpIdentifiers() {
		t, ok := s.targets.Get(targetID)
		if !ok {
			continue
		}
		_ = t.Client.Call(ctx, "Page.removeScriptToEvaluateOnNewDocument", map[string]string{"identifier": identifier}, nil)
	}
	return struct{}{}, nil
}
