package processor

import (
	"context"
	"encoding/json"

	"github.com/chromedp/bidimapper/internal/bidierr"
	"github.com/chromedp/bidimapper/internal/cdpwire"
	"github.com/chromedp/bidimapper/internal/command"
)

// Permissions implements the "permissions" module: setPermission, mapped
// directly to CDP Browser.setPermission (per-origin, optionally scoped to a
// user context).
type Permissions struct {
	root rootCaller
}

// NewPermissions constructs the permissions Processor.
func NewPermissions(root rootCaller) *Permissions { return &Permissions{root: root} }

// Register installs this module's handlers on cp.
func (pm *Permissions) Register(cp *command.Processor) {
	cp.Register("permissions.setPermission", pm.setPermission)
}

type setPermissionParams struct {
	Descriptor  permissionDescriptor `json:"descriptor"`
	State       string               `json:"state"` // "granted" | "denied" | "prompt"
	Origin      string               `json:"origin"`
	UserContext string               `json:"userContext,omitempty"`
}

type permissionDescriptor struct {
	Name string `json:"name"`
}

func (pm *Permissions) setPermission(ctx context.Context, raw json.RawMessage, _ string) (interface{}, error) {
	var p setPermissionParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, bidierr.New(bidierr.InvalidArgument, "permissions.setPermission: %v", err)
	}
	params := &cdpwire.SetPermissionParams{
		Permission:       cdpwire.PermissionDescriptor{Name: p.Descriptor.Name},
		Setting:          p.State,
		Origin:           p.Origin,
		BrowserContextID: p.UserContext,
	}
	if err := pm.root.Call(ctx, "Browser.setPermission", params, nil); err != nil {
		return nil, bidierr.Wrap(bidierr.UnknownError, err, "permissions.setPermission")
	}
	return struct{}{}, nil
}
