// Package idp provides the social login collector and the hand-off to an
// external identity provider.
//
// A social login step carries one IDP field per provider. Calling
// Collector.Authorize asks the tenant for the provider redirect through the
// workflow transport, hands the redirect to a Handler (a browser, a native
// SDK, a helper process) and keeps the callback. The next submission of the
// step is then replaced by the resume request built from that callback.
package idp

import (
	"context"
	"errors"
)

var (
	// ErrNoContext is returned when the collector was not parsed by a workflow.
	ErrNoContext = errors.New("idp collector has no step context")

	// ErrStepGone is returned when the owning step is no longer current.
	ErrStepGone = errors.New("owning step is no longer current")

	// ErrNoRedirect is returned when the authorize response names no redirect.
	ErrNoRedirect = errors.New("authorize response has no redirect url")

	// ErrDisabled is returned by Authorize on a provider the server disabled.
	ErrDisabled = errors.New("identity provider is disabled")

	// ErrCanceled is returned by handlers when the user abandons the hand-off.
	ErrCanceled = errors.New("identity provider hand-off canceled")
)

// HandOff is what a Handler receives: where to send the user.
type HandOff struct {
	Provider string `json:"provider"`
	Type     string `json:"type"`
	URL      string `json:"url"`
}

// Callback is what a Handler returns once the provider sent the user back.
type Callback struct {
	// URL is where the flow resumes. When empty, the step's next link is used.
	URL string `json:"url"`

	// Params are submitted as form data of the resume request.
	Params map[string]string `json:"params"`
}

// Handler performs the external hand-off. It blocks until the provider calls
// back, the user gives up or ctx is done.
type Handler interface {
	Authorize(ctx context.Context, h HandOff) (Callback, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, h HandOff) (Callback, error)

func (f HandlerFunc) Authorize(ctx context.Context, h HandOff) (Callback, error) {
	return f(ctx, h)
}
