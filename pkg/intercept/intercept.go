package intercept

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aretw0/davinci/pkg/domain"
)

// ErrOverrideConflict is returned when a second writer offers a resume
// request in the same submission cycle.
var ErrOverrideConflict = errors.New("request override already claimed for this submission")

// RequestInterceptor mutates an outbound request in place before it is sent.
type RequestInterceptor func(ctx context.Context, req *domain.Request)

// ResponseInterceptor observes or mutates a response after it is received.
type ResponseInterceptor func(ctx context.Context, resp *domain.Response)

type namedRequest struct {
	name string
	fn   RequestInterceptor
}

type namedResponse struct {
	name string
	fn   ResponseInterceptor
}

// Chain holds the ordered interceptors of a workflow. Registration order is
// execution order. Safe for concurrent registration while a chain is applied:
// Apply works on a snapshot.
type Chain struct {
	mu        sync.RWMutex
	requests  []namedRequest
	responses []namedResponse
}

// NewChain creates an empty chain.
func NewChain() *Chain {
	return &Chain{}
}

// UseRequest appends a request interceptor.
func (c *Chain) UseRequest(name string, fn RequestInterceptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, namedRequest{name: name, fn: fn})
}

// UseResponse appends a response interceptor.
func (c *Chain) UseResponse(name string, fn ResponseInterceptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, namedResponse{name: name, fn: fn})
}

// Remove drops every interceptor registered under name.
func (c *Chain) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	reqs := c.requests[:0:0]
	for _, r := range c.requests {
		if r.name != name {
			reqs = append(reqs, r)
		}
	}
	resps := c.responses[:0:0]
	for _, r := range c.responses {
		if r.name != name {
			resps = append(resps, r)
		}
	}
	c.requests, c.responses = reqs, resps
}

// Names lists request then response interceptor names, in order.
func (c *Chain) Names() (requests, responses []string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.requests {
		requests = append(requests, r.name)
	}
	for _, r := range c.responses {
		responses = append(responses, r.name)
	}
	return requests, responses
}

// ApplyRequest runs the request interceptors in registration order.
func (c *Chain) ApplyRequest(ctx context.Context, req *domain.Request) {
	c.mu.RLock()
	snapshot := append([]namedRequest(nil), c.requests...)
	c.mu.RUnlock()

	for _, r := range snapshot {
		r.fn(ctx, req)
	}
}

// ApplyResponse runs the response interceptors in registration order.
func (c *Chain) ApplyResponse(ctx context.Context, resp *domain.Response) {
	c.mu.RLock()
	snapshot := append([]namedResponse(nil), c.responses...)
	c.mu.RUnlock()

	for _, r := range snapshot {
		r.fn(ctx, resp)
	}
}

// Slot is the single-slot override channel of one submission cycle. At most
// one writer may claim it; the claimed request replaces the generic one.
type Slot struct {
	mu    sync.Mutex
	owner string
	req   *domain.Request
}

// Offer claims the slot for owner. A second claim fails with
// ErrOverrideConflict and leaves the first claim in place.
func (s *Slot) Offer(owner string, req domain.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.req != nil {
		return fmt.Errorf("%w: held by %q, offered by %q", ErrOverrideConflict, s.owner, owner)
	}
	r := req.Clone()
	s.owner, s.req = owner, &r
	return nil
}

// Apply replaces *req with the claimed request, if any, and reports the owner.
func (s *Slot) Apply(req *domain.Request) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.req == nil {
		return "", false
	}
	*req = s.req.Clone()
	return s.owner, true
}
