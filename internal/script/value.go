// Package script implements the Realm scripting bridge (spec §4.6):
// BiDi RemoteValue <-> CDP RemoteObject / CallArgument conversion, used by
// the script module's evaluate and callFunction handlers.
package script

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/chromedp/bidimapper/internal/bidierr"
	"github.com/chromedp/bidimapper/internal/cdpwire"
	"github.com/chromedp/bidimapper/internal/realm"
)

// RemoteValue is the BiDi wire shape for any JS value (spec §4.6). Only
// Type is always present; Value carries primitives and serialized
// composite values, Handle carries a resultOwnership=root object
// reference, SharedID carries the node-specific shared reference.
type RemoteValue struct {
	Type     string          `json:"type"`
	Value    json.RawMessage `json:"value,omitempty"`
	Handle   string          `json:"handle,omitempty"`
	SharedID string          `json:"sharedId,omitempty"`
}

// FromCDP converts a CDP RemoteObject into a BiDi RemoteValue. Every symbol
// and function gets a handle minted in r; an object (including arrays,
// maps, sets and nodes) gets one when CDP supplied an objectId.
func FromCDP(obj cdpwire.RemoteObject, r *realm.Realm) (RemoteValue, error) {
	switch obj.Type {
	case "undefined":
		return RemoteValue{Type: "undefined"}, nil
	case "string", "number", "boolean":
		return RemoteValue{Type: obj.Type, Value: obj.Value}, nil
	case "bigint":
		// CDP represents a bigint via unserializableValue, e.g. "123n".
		raw := strings.TrimSuffix(obj.UnserializableValue, "n")
		return RemoteValue{Type: "bigint", Value: json.RawMessage(strconv.Quote(raw))}, nil
	case "symbol", "function":
		return RemoteValue{Type: obj.Type, Handle: r.Own(obj.ObjectID)}, nil
	case "object":
		return fromCDPObject(obj, r)
	default:
		return RemoteValue{}, bidierr.New(bidierr.UnknownError, "unrecognized CDP RemoteObject type %q", obj.Type)
	}
}

func fromCDPObject(obj cdpwire.RemoteObject, r *realm.Realm) (RemoteValue, error) {
	if obj.Subtype == "null" {
		return RemoteValue{Type: "null"}, nil
	}

	bidiType := "object"
	switch obj.Subtype {
	case "array":
		bidiType = "array"
	case "regexp":
		bidiType = "regexp"
	case "date":
		bidiType = "date"
	case "map":
		bidiType = "map"
	case "set":
		bidiType = "set"
	case "node":
		bidiType = "node"
	}

	rv := RemoteValue{Type: bidiType}
	if obj.ObjectID != "" {
		rv.Handle = r.Own(obj.ObjectID)
	}
	// Composite values are not expanded, at the top level or below: no
	// Value is set, and their contents are reachable only through the
	// handle (script.callFunction on the handle's objectId), matching the
	// CDP RemoteObject we hold, which carries no pre-walked property list.
	return rv, nil
}

// ToCallArgument converts a BiDi local/remote value argument into a CDP
// Runtime.CallArgument for Runtime.callFunctionOn (spec §4.6, the reverse
// direction: JS call arguments supplied by the client).
func ToCallArgument(v RemoteValue, r *realm.Realm) (cdpwire.CallArgument, error) {
	if v.Handle != "" {
		objectID, ok := r.ObjectID(v.Handle)
		if !ok {
			return cdpwire.CallArgument{}, bidierr.New(bidierr.NoSuchHandle, "unknown handle %q", v.Handle)
		}
		return cdpwire.CallArgument{ObjectID: objectID}, nil
	}
	if v.SharedID != "" {
		return cdpwire.CallArgument{}, bidierr.New(bidierr.UnsupportedOperation, "sharedId arguments require DOM.resolveNode, not yet wired for this call site")
	}

	switch v.Type {
	case "undefined":
		return cdpwire.CallArgument{UnserializableValue: "undefined"}, nil
	case "null":
		return cdpwire.CallArgument{Value: json.RawMessage("null")}, nil
	case "string", "number", "boolean":
		return cdpwire.CallArgument{Value: v.Value}, nil
	case "bigint":
		var s string
		if err := json.Unmarshal(v.Value, &s); err != nil {
			return cdpwire.CallArgument{}, bidierr.New(bidierr.InvalidArgument, "bigint value must be a numeric string: %v", err)
		}
		return cdpwire.CallArgument{UnserializableValue: s + "n"}, nil
	default:
		return cdpwire.CallArgument{}, bidierr.New(bidierr.InvalidArgument, "unsupported local value type %q", v.Type)
	}
}

// SharedID formats the DOM shared-reference scheme spec §4.6 defines:
// "f.<frameId>.d.<documentId>.e.<backendNodeId>".
func SharedID(frameID, documentID string, backendNodeID int64) string {
	return fmt.Sprintf("f.%s.d.%s.e.%d", frameID, documentID, backendNodeID)
}

// ParseSharedID parses the scheme SharedID produces.
func ParseSharedID(shared string) (frameID, documentID string, backendNodeID int64, err error) {
	parts := strings.Split(shared, ".")
	if len(parts) != 6 || parts[0] != "f" || parts[2] != "d" || parts[4] != "e" {
		return "", "", 0, bidierr.New(bidierr.InvalidArgument, "malformed sharedId %q", shared)
	}
	id, convErr := strconv.ParseInt(parts[5], 10, 64)
	if convErr != nil {
		return "", "", 0, bidierr.New(bidierr.InvalidArgument, "malformed sharedId backendNodeId %q", shared)
	}
	return parts[1], parts[3], id, nil
}

// ExceptionToError converts a CDP ExceptionDetails into a BiDi
// javascript-error, preserving the thrown value as a RemoteValue when CDP
// reported one (spec §4.6: "evaluate failures surface the thrown value,
// not just a message").
func ExceptionToError(details cdpwire.ExceptionDetails, r *realm.Realm) (RemoteValue, string, error) {
	text := details.Text
	if details.Exception == nil {
		return RemoteValue{Type: "undefined"}, text, nil
	}
	if details.Exception.Description != "" {
		text = details.Exception.Description
	}
	rv, err := FromCDP(*details.Exception, r)
	if err != nil {
		return RemoteValue{}, text, err
	}
	return rv, text, nil
}
