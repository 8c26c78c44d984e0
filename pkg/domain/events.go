package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter EventType = "node_enter"
	EventRequest   EventType = "request"
	EventResponse  EventType = "response"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// NodeEvent is emitted when the workflow adopts a new current node.
type NodeEvent struct {
	EventBase
	StepID string `json:"step_id,omitempty"`
	Kind   string `json:"kind"`
	Name   string `json:"name,omitempty"`
}

// RequestEvent is emitted right before a request is handed to the transport.
type RequestEvent struct {
	EventBase
	Method string `json:"method"`
	URL    string `json:"url"`
}

// ResponseEvent is emitted once the transport returns, successfully or not.
type ResponseEvent struct {
	EventBase
	Method   string        `json:"method"`
	URL      string        `json:"url"`
	Status   int           `json:"status,omitempty"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// LifecycleHooks defines callbacks for workflow observability.
type LifecycleHooks struct {
	OnNodeEnter func(context.Context, *NodeEvent)
	OnRequest   func(context.Context, *RequestEvent)
	OnResponse  func(context.Context, *ResponseEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnNodeEnter: chain(h.OnNodeEnter, other.OnNodeEnter),
		OnRequest:   chain(h.OnRequest, other.OnRequest),
		OnResponse:  chain(h.OnResponse, other.OnResponse),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
