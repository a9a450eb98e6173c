package testutil

import (
	"context"
	"net/http"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/newtron-network/netcam-meraki/pkg/dashboard"
)

// Response is one scripted reply of the fake dashboard.
type Response struct {
	Payload string
	Err     error
}

// Call records one invocation.
type Call struct {
	Op     string
	Params dashboard.Params
}

// FakeDashboard is a dashboard.Invoker with canned replies per operation.
// Replies registered with OnSequence are consumed in order; the last one
// repeats. Unregistered operations fail with a 404 APIError.
type FakeDashboard struct {
	// Gate, when set, blocks every Invoke until it is closed or receives.
	Gate chan struct{}

	mu        sync.Mutex
	responses map[string][]Response
	calls     []Call
}

// NewFakeDashboard creates an empty fake.
func NewFakeDashboard() *FakeDashboard {
	return &FakeDashboard{responses: map[string][]Response{}}
}

// On sets a fixed JSON payload for op.
func (f *FakeDashboard) On(op, payload string) *FakeDashboard {
	return f.OnSequence(op, Response{Payload: payload})
}

// OnError makes op fail with err.
func (f *FakeDashboard) OnError(op string, err error) *FakeDashboard {
	return f.OnSequence(op, Response{Err: err})
}

// OnSequence scripts successive replies for op.
func (f *FakeDashboard) OnSequence(op string, rs ...Response) *FakeDashboard {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[op] = append([]Response(nil), rs...)
	return f
}

// Invoke implements dashboard.Invoker.
func (f *FakeDashboard) Invoke(ctx context.Context, op string, params dashboard.Params) (gjson.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Op: op, Params: params})
	gate := f.Gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return gjson.Result{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	rs, ok := f.responses[op]
	if !ok || len(rs) == 0 {
		return gjson.Result{}, &dashboard.APIError{Op: op, Status: http.StatusNotFound, Message: "no fake response"}
	}
	r := rs[0]
	if len(rs) > 1 {
		f.responses[op] = rs[1:]
	}
	if r.Err != nil {
		return gjson.Result{}, r.Err
	}
	return gjson.Parse(r.Payload), nil
}

// Calls returns how many times op was invoked.
func (f *FakeDashboard) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// LastParams returns the params of the most recent call to op.
func (f *FakeDashboard) LastParams(op string) dashboard.Params {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].Op == op {
			return f.calls[i].Params
		}
	}
	return nil
}

// TotalCalls returns the number of invocations of any operation.
func (f *FakeDashboard) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
