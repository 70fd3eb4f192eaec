package oidcflow_test

import (
	"context"
	"sync"

	"github.com/mediamonks/oidcflow/transport"
)

// fakeTransport records every PerformTokenRequest call but does not
// invoke its completion until the test explicitly resolves it — this
// is what lets tests interleave a Cancel or a second request between
// "request sent" and "response arrives", exercising the request-cookie
// discipline.
type fakeTransport struct {
	mu    sync.Mutex
	calls []*fakeCall
}

type fakeCall struct {
	req        transport.Request
	completion transport.Completion
	resolved   bool
}

func (f *fakeTransport) PerformTokenRequest(_ context.Context, req transport.Request, completion transport.Completion) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, &fakeCall{req: req, completion: completion})
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeTransport) call(i int) *fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

// resolveLast invokes the completion of the most recently issued
// request, whether or not it was already resolved.
func (f *fakeTransport) resolveLast(result map[string]interface{}, err error) {
	f.mu.Lock()
	c := f.calls[len(f.calls)-1]
	f.mu.Unlock()
	c.resolved = true
	c.completion(result, err)
}

// resolve invokes the completion of the call at index i, regardless of
// how many later requests have since been issued.
func (f *fakeTransport) resolve(i int, result map[string]interface{}, err error) {
	c := f.call(i)
	c.resolved = true
	c.completion(result, err)
}
