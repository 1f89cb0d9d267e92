package processor

import (
	"context"
	"encoding/json"

	"github.com/chromedp/bidimapper/internal/bidierr"
	"github.com/chromedp/bidimapper/internal/cdpwire"
	"github.com/chromedp/bidimapper/internal/command"
)

// Storage implements the "storage" module: getCookies, setCookie (spec §3
// module list; browser-context-scoped cookie jar via CDP Storage/Network).
type Storage struct {
	root rootCaller
}

// NewStorage constructs the storage Processor.
func NewStorage(root rootCaller) *Storage { return &Storage{root: root} }

// Register installs this module's handlers on cp.
func (s *Storage) Register(cp *command.Processor) {
	cp.Register("storage.getCookies", s.getCookies)
	cp.Register("storage.setCookie", s.setCookie)
}

type getCookiesParams struct {
	Filter      cookieFilter `json:"filter,omitempty"`
	UserContext string       `json:"userContext,omitempty"`
}

type cookieFilter struct {
	Name string `json:"name,omitempty"`
}

type getCookiesResult struct {
	Cookies []cdpwire.Cookie `json:"cookies"`
}

func (s *Storage) getCookies(ctx context.Context, raw json.RawMessage, _ string) (interface{}, error) {
	var p getCookiesParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, bidierr.New(bidierr.InvalidArgument, "storage.getCookies: %v", err)
	}

	var res cdpwire.GetCookiesResult
	params := &cdpwire.GetCookiesParams{BrowserContextID: p.UserContext}
	if err := s.root.Call(ctx, "Storage.getCookies", params, &res); err != nil {
		return nil, bidierr.Wrap(bidierr.UnknownError, err, "storage.getCookies")
	}

	cookies := res.Cookies
	if p.Filter.Name != "" {
		var filtered []cdpwire.Cookie
		for _, c := range cookies {
			if c.Name == p.Filter.Name {
				filtered = append(filtered, c)
			}
		}
		cookies = filtered
	}
	return getCookiesResult{Cookies: cookies}, nil
}

type setCookieParams struct {
	Cookie      cdpwire.Cookie `json:"cookie"`
	UserContext string         `json:"userContext,omitempty"`
}

func (s *Storage) setCookie(ctx context.Context, raw json.RawMessage, _ string) (interface{}, error) {
	var p setCookieParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, bidierr.New(bidierr.InvalidArgument, "storage.setCookie: %v", err)
	}
	params := &cdpwire.SetCookieParams{Cookie: p.Cookie, BrowserContextID: p.UserContext}
	if err := s.root.Call(ctx, "Storage.setCookie", params, nil); err != nil {
		return nil, bidierr.Wrap(bidierr.UnableToSetCookie, err, "storage.setCookie")
	}
	return struct{}{}, nil
}
