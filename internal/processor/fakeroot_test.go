package processor

import (
	"context"
	"encoding/json"

	"github.com/chromedp/cdproto"
)

// fakeRoot is a rootCaller test double that records every call it receives
// and plays back a canned (result, error) pair keyed by method.
type fakeRoot struct {
	calls   []fakeCall
	results map[cdproto.MethodType]interface{}
	errs    map[cdproto.MethodType]error
}

type fakeCall struct {
	Method cdproto.MethodType
	Params interface{}
}

func newFakeRoot() *fakeRoot {
	return &fakeRoot{
		results: make(map[cdproto.MethodType]interface{}),
		errs:    make(map[cdproto.MethodType]error),
	}
}

func (f *fakeRoot) Call(ctx context.Context, method cdproto.MethodType, params interface{}, res interface{}) error {
	f.calls = append(f.calls, fakeCall{Method: method, Params: params})
	if err := f.errs[method]; err != nil {
		return err
	}
	if canned, ok := f.results[method]; ok && res != nil {
		buf, err := json.Marshal(canned)
		if err != nil {
			return err
		}
		return json.Unmarshal(buf, res)
	}
	return nil
}
