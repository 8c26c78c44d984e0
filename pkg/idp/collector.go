package idp

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/aretw0/davinci/pkg/collector"
	"github.com/aretw0/davinci/pkg/domain"
	"github.com/aretw0/davinci/pkg/registry"
)

// FieldType is the server type tag of social login fields.
const FieldType = "SOCIAL_LOGIN_BUTTON"

// Collector is a social login button. It is output only: it contributes
// nothing to the generic submission and instead claims the request override
// once authorized.
type Collector struct {
	collector.Descriptor

	mu     sync.Mutex
	ctx    collector.Context
	resume *domain.Request
}

// New is the registry factory for social login fields.
func New() collector.Collector { return &Collector{} }

// Register adds the social login collector under FieldType and any extra tags.
func Register(r *registry.Registry, extra ...string) {
	r.Register(New, append([]string{FieldType}, extra...)...)
}

// Provider is the display name of the identity provider.
func (c *Collector) Provider() string {
	if name := c.Raw().Get("idpName").String(); name != "" {
		return name
	}
	return c.Label()
}

// ProviderType is the provider family, e.g. GOOGLE or APPLE.
func (c *Collector) ProviderType() string { return c.Raw().Get("idpType").String() }

// Enabled reports whether the server allows this provider. Missing means yes.
func (c *Collector) Enabled() bool {
	r := c.Raw().Get("idpEnabled")
	return !r.Exists() || r.Bool()
}

// AuthenticateURL is the tenant endpoint that yields the provider redirect.
func (c *Collector) AuthenticateURL() string {
	return c.Raw().Get("links.authenticate.href").String()
}

func (c *Collector) SetContext(ctx collector.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctx = ctx
}

// Authorize runs the hand-off and arms the resume request. The owning step
// must still be the current node of the workflow.
func (c *Collector) Authorize(ctx context.Context, h Handler) error {
	if !c.Enabled() {
		return fmt.Errorf("%w: %s", ErrDisabled, c.Provider())
	}

	c.mu.Lock()
	sc := c.ctx
	c.mu.Unlock()

	if sc.Flow == nil {
		return ErrNoContext
	}
	step, ok := sc.Step()
	if !ok {
		return ErrStepGone
	}
	token := step.Input().Get("interactionToken").String()

	req := domain.NewRequest(http.MethodPost, c.AuthenticateURL())
	req.SetHeader("Accept", "application/json")
	req.SetHeader("Content-Type", "application/json")
	if token != "" {
		req.SetHeader("interactionToken", token)
	}
	resp, err := sc.Flow.Send(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to request %s redirect: %w", c.Provider(), err)
	}
	if !resp.IsJSON() || resp.Status >= 400 {
		return &domain.ProtocolError{Status: resp.Status, Reason: "unexpected authorize response", Body: resp.Body}
	}

	redirect := firstOf(resp.JSON(), "_links.redirect.href", "idp.url", "url")
	if redirect == "" {
		return ErrNoRedirect
	}

	cb, err := h.Authorize(ctx, HandOff{Provider: c.Provider(), Type: c.ProviderType(), URL: redirect})
	if err != nil {
		return fmt.Errorf("%s hand-off: %w", c.Provider(), err)
	}

	target := cb.URL
	if target == "" {
		target = step.Input().Get("_links.next.href").String()
	}
	resume := domain.NewRequest(http.MethodPost, target)
	resume.SetHeader("Content-Type", "application/json")
	if token != "" {
		resume.SetHeader("interactionToken", token)
	}
	for _, kv := range []struct {
		path  string
		value any
	}{
		{"id", step.Input().Get("id").String()},
		{"eventName", "continue"},
		{"interactionId", step.Input().Get("interactionId").String()},
		{"parameters.eventType", "action"},
		{"parameters.data.actionKey", c.Key()},
		{"parameters.data.formData", cb.Params},
	} {
		if err := resume.Set(kv.path, kv.value); err != nil {
			return err
		}
	}

	c.mu.Lock()
	c.resume = &resume
	c.mu.Unlock()
	return nil
}

// Authorized reports whether a resume request is armed.
func (c *Collector) Authorized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resume != nil
}

// ResumeRequest offers the armed resume request to the workflow.
func (c *Collector) ResumeRequest() (domain.Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resume == nil {
		return domain.Request{}, false
	}
	return c.resume.Clone(), true
}

// Close drops the resume request once the step is left behind.
func (c *Collector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resume = nil
}

func firstOf(doc gjson.Result, paths ...string) string {
	for _, p := range paths {
		if s := doc.Get(p).String(); s != "" {
			return s
		}
	}
	return ""
}
