package davinci

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/aretw0/davinci/internal/logging"
	httpAdapter "github.com/aretw0/davinci/pkg/adapters/http"
	"github.com/aretw0/davinci/pkg/adapters/memory"
	"github.com/aretw0/davinci/pkg/collector"
	"github.com/aretw0/davinci/pkg/domain"
	"github.com/aretw0/davinci/pkg/intercept"
	"github.com/aretw0/davinci/pkg/node"
	"github.com/aretw0/davinci/pkg/ports"
	"github.com/aretw0/davinci/pkg/registry"
)

// Workflow drives one authentication flow: it starts the flow, submits
// steps, classifies responses and keeps the current node. It is meant for
// sequential use; concurrent submissions of the same step are rejected.
type Workflow struct {
	cfg       Config
	transport ports.Transport
	store     ports.TokenStore
	registry  *registry.Registry
	chain     *intercept.Chain
	parser    *node.Parser
	unknown   node.UnknownPolicy
	hooks     domain.LifecycleHooks
	logger    *slog.Logger

	mu      sync.Mutex
	current node.Node
	success *node.SuccessNode
}

// Option defines a functional option for configuring the Workflow.
type Option func(*Workflow)

// WithTransport replaces the default net/http transport.
func WithTransport(t ports.Transport) Option {
	return func(w *Workflow) {
		w.transport = t
	}
}

// WithTokenStore sets where the authenticated user is persisted. The default
// is an in-memory store.
func WithTokenStore(s ports.TokenStore) Option {
	return func(w *Workflow) {
		w.store = s
	}
}

// WithRegistry sets the collector registry. The default holds the built-in
// collectors.
func WithRegistry(r *registry.Registry) Option {
	return func(w *Workflow) {
		w.registry = r
	}
}

// WithInterceptors shares an interceptor chain with the workflow.
func WithInterceptors(c *intercept.Chain) Option {
	return func(w *Workflow) {
		w.chain = c
	}
}

// WithUnknownPolicy sets how unregistered field types are handled.
func WithUnknownPolicy(p node.UnknownPolicy) Option {
	return func(w *Workflow) {
		w.unknown = p
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(w *Workflow) {
		w.hooks = w.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger for the workflow.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workflow) {
		w.logger = logger
	}
}

// New creates a workflow for the given tenant.
func New(cfg Config, opts ...Option) (*Workflow, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	w := &Workflow{cfg: cfg.withDefaults()}
	for _, opt := range opts {
		opt(w)
	}

	if w.logger == nil {
		w.logger = logging.NewNop()
	}
	if w.transport == nil {
		w.transport = httpAdapter.NewClient(
			httpAdapter.WithTimeout(w.cfg.Timeout),
			httpAdapter.WithLogger(w.logger),
		)
	}
	if w.store == nil {
		w.store = memory.NewStore()
	}
	if w.registry == nil {
		w.registry = registry.NewDefault()
	}
	if w.chain == nil {
		w.chain = intercept.NewChain()
	}

	w.parser = node.NewParser(w.registry,
		node.WithUnknownPolicy(w.unknown),
		node.WithLogger(w.logger),
	)
	return w, nil
}

// Registry returns the collector registry of the workflow.
func (w *Workflow) Registry() *registry.Registry { return w.registry }

// Interceptors returns the interceptor chain of the workflow.
func (w *Workflow) Interceptors() *intercept.Chain { return w.chain }

// Current returns the current node, or nil before Start.
func (w *Workflow) Current() node.Node {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Start sends the initial request and returns the first node. Once the
// request succeeds, any user held in memory from a previous run is dropped.
func (w *Workflow) Start(ctx context.Context) (node.Node, error) {
	req := domainRequest(w.cfg.StartMethod, w.cfg.startURL())
	for k, v := range w.cfg.Headers {
		req.SetHeader(k, v)
	}

	next, err := w.roundTrip(ctx, req, nil)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.success = nil
	w.mu.Unlock()
	w.adopt(ctx, next, nil)
	return next, nil
}

// Next submits a step and returns the node that follows it. It implements
// node.Navigator; callers normally use ContinueNode.Next.
//
// The step must be the current node, or the step an ErrorNode offers for
// Retry. The current node only changes after a successful round trip.
func (w *Workflow) Next(ctx context.Context, n *node.ContinueNode) (node.Node, error) {
	if n == nil {
		return nil, domain.ErrNotStarted
	}
	if !n.Acquire() {
		return nil, domain.ErrStepInFlight
	}
	defer n.Release()

	if err := w.checkCurrent(n); err != nil {
		return nil, err
	}

	req, err := w.buildRequest(n)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for step %s: %w", n.ID(), err)
	}

	var slot intercept.Slot
	for _, c := range n.Collectors() {
		o, ok := c.(collector.Overrider)
		if !ok {
			continue
		}
		resume, ok := o.ResumeRequest()
		if !ok {
			continue
		}
		if err := slot.Offer(c.Key(), resume); err != nil {
			return nil, err
		}
	}
	if owner, ok := slot.Apply(&req); ok {
		w.logger.Debug("request replaced by collector", "step_id", n.ID(), "collector", owner)
	}

	next, err := w.roundTrip(ctx, req, n)
	if err != nil {
		return nil, err
	}
	w.adopt(ctx, next, n)
	return next, nil
}

func (w *Workflow) checkCurrent(n *node.ContinueNode) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch cur := w.current.(type) {
	case nil:
		return domain.ErrNotStarted
	case *node.ContinueNode:
		if cur == n {
			return nil
		}
	case *node.ErrorNode:
		if cur.Retry() == n {
			return nil
		}
	}
	return domain.ErrStaleNode
}

// roundTrip runs the interceptors, the transport and the classifier.
func (w *Workflow) roundTrip(ctx context.Context, req domain.Request, prior *node.ContinueNode) (node.Node, error) {
	w.chain.ApplyRequest(ctx, &req)

	resp, err := w.send(ctx, req)
	if err != nil {
		return nil, err
	}

	w.chain.ApplyResponse(ctx, &resp)

	next, err := node.Classify(resp, w.parser, node.Env{Flow: w, Navigator: w, Prior: prior})
	if err != nil {
		w.logger.Warn("unclassifiable response", "url", req.URL, "status", resp.Status, "err", err)
		return nil, err
	}
	return next, nil
}

// send executes req on the transport and emits the request hooks.
func (w *Workflow) send(ctx context.Context, req domain.Request) (domain.Response, error) {
	if w.hooks.OnRequest != nil {
		w.hooks.OnRequest(ctx, &domain.RequestEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventRequest},
			Method:    req.Method,
			URL:       req.URL,
		})
	}

	began := time.Now()
	resp, err := w.transport.Do(ctx, req)
	if err != nil && !domain.IsTransport(err) && !domain.IsProtocol(err) {
		err = &domain.TransportError{Method: req.Method, URL: req.URL, Err: err}
	}

	if w.hooks.OnResponse != nil {
		w.hooks.OnResponse(ctx, &domain.ResponseEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventResponse},
			Method:    req.Method,
			URL:       req.URL,
			Status:    resp.Status,
			Duration:  time.Since(began),
			Err:       err,
		})
	}

	if err != nil {
		w.logger.Warn("request failed", "method", req.Method, "url", req.URL, "err", err)
		return domain.Response{}, err
	}
	w.logger.Debug("request completed", "method", req.Method, "url", req.URL, "status", resp.Status)
	return resp, nil
}

// adopt makes next the current node and closes the steps left behind.
func (w *Workflow) adopt(ctx context.Context, next node.Node, prior *node.ContinueNode) {
	w.mu.Lock()
	old := w.current
	w.current = next
	if s, ok := next.(*node.SuccessNode); ok {
		w.success = s
	}
	w.mu.Unlock()

	if prior != nil {
		prior.Close()
	}
	if c, ok := old.(*node.ContinueNode); ok && c != prior {
		c.Close()
	}

	ev := &domain.NodeEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventNodeEnter},
		Kind:      string(next.Kind()),
	}
	if c, ok := next.(*node.ContinueNode); ok {
		ev.StepID, ev.Name = c.ID(), c.Name()
	}
	w.logger.Info("node entered", "node", ev.Kind, "step_id", ev.StepID, "name", ev.Name)
	if w.hooks.OnNodeEnter != nil {
		w.hooks.OnNodeEnter(ctx, ev)
	}

	if s, ok := next.(*node.SuccessNode); ok {
		if err := w.store.Save(ctx, w.cfg.Key(), s.User()); err != nil {
			w.logger.Error("failed to persist user", "key", w.cfg.Key(), "err", err)
		}
	}
}

// Send executes an auxiliary request on the workflow transport. It bypasses
// the interceptor chain and never changes the current node. Plugin
// collectors use it for out-of-band calls.
func (w *Workflow) Send(ctx context.Context, req domain.Request) (domain.Response, error) {
	return w.send(ctx, req)
}

// Step resolves the current step by id. While an ErrorNode is current, its
// retry step still resolves.
func (w *Workflow) Step(id string) (collector.Step, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch cur := w.current.(type) {
	case *node.ContinueNode:
		if cur.ID() == id {
			return cur, true
		}
	case *node.ErrorNode:
		if r := cur.Retry(); r != nil && r.ID() == id {
			return r, true
		}
	}
	return nil, false
}

// User returns the authenticated user: the one produced by the last
// SuccessNode, or else the one persisted in the token store. It returns
// domain.ErrSessionNotFound when there is none.
func (w *Workflow) User(ctx context.Context) (*domain.User, error) {
	w.mu.Lock()
	s := w.success
	w.mu.Unlock()

	if s != nil {
		if u := s.User(); u != nil {
			return u, nil
		}
	}
	return w.store.Load(ctx, w.cfg.Key())
}

// Logout forgets the user in memory and in the token store and, when a
// sign-off URL is configured, tells the server. Local state is cleared even
// when the sign-off request fails.
func (w *Workflow) Logout(ctx context.Context) error {
	user, _ := w.User(ctx)

	w.mu.Lock()
	if w.success != nil {
		w.success.Revoke()
	}
	old := w.current
	w.success = nil
	w.current = nil
	w.mu.Unlock()

	switch c := old.(type) {
	case *node.ContinueNode:
		c.Close()
	case *node.ErrorNode:
		if r := c.Retry(); r != nil {
			r.Close()
		}
	}

	var errs []error
	if err := w.store.Delete(ctx, w.cfg.Key()); err != nil {
		errs = append(errs, fmt.Errorf("failed to delete stored user: %w", err))
	}

	if w.cfg.SignoffURL != "" && user != nil {
		req := domainRequest("POST", w.cfg.SignoffURL)
		req.SetHeader("Content-Type", "application/json")
		if user.SessionID != "" {
			_ = req.Set("sessionId", user.SessionID)
		}
		if user.IDToken != "" {
			_ = req.Set("id_token_hint", user.IDToken)
		}
		resp, err := w.send(ctx, req)
		switch {
		case err != nil:
			errs = append(errs, err)
		case resp.Status >= 400:
			errs = append(errs, &domain.FlowError{
				Status:  resp.Status,
				Message: gjson.GetBytes(resp.Body, "message").String(),
			})
		}
	}

	w.logger.Info("logged out", "key", w.cfg.Key())
	return errors.Join(errs...)
}

func domainRequest(method, url string) domain.Request {
	req := domain.NewRequest(method, url)
	if method == "GET" {
		req.Body = nil
	}
	return req
}
