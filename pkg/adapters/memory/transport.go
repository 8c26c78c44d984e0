package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/aretw0/davinci/pkg/domain"
)

// ErrExhausted is returned by Transport once every canned response has been
// served.
var ErrExhausted = errors.New("no canned response left")

// Reply is one canned response. Err, when set, is returned as a transport
// failure instead of a response.
type Reply struct {
	Status int
	Body   []byte
	Err    error
}

// Transport implements ports.Transport by replaying canned responses in
// order. It records every request it receives. Safe for concurrent use.
type Transport struct {
	mu       sync.Mutex
	replies  []Reply
	requests []domain.Request
}

// NewTransport creates a transport that serves the given replies in order.
func NewTransport(replies ...Reply) *Transport {
	return &Transport{replies: replies}
}

// JSON builds a Reply from a status and a JSON string.
func JSON(status int, body string) Reply {
	return Reply{Status: status, Body: []byte(body)}
}

// NewFromValues builds replies by marshalling each value with status 200.
// This handles serialization automatically, improving DX for tests.
func NewFromValues(values ...any) (*Transport, error) {
	replies := make([]Reply, 0, len(values))
	for i, v := range values {
		body, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal reply %d: %w", i, err)
		}
		replies = append(replies, Reply{Status: 200, Body: body})
	}
	return NewTransport(replies...), nil
}

// Push appends replies to the queue.
func (t *Transport) Push(replies ...Reply) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.replies = append(t.replies, replies...)
}

// Do serves the next canned reply.
func (t *Transport) Do(ctx context.Context, req domain.Request) (domain.Response, error) {
	if err := ctx.Err(); err != nil {
		return domain.Response{}, &domain.TransportError{Method: req.Method, URL: req.URL, Err: err}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.requests = append(t.requests, req.Clone())

	if len(t.replies) == 0 {
		return domain.Response{}, &domain.TransportError{Method: req.Method, URL: req.URL, Err: ErrExhausted}
	}
	r := t.replies[0]
	t.replies = t.replies[1:]

	if r.Err != nil {
		return domain.Response{}, &domain.TransportError{Method: req.Method, URL: req.URL, Err: r.Err}
	}
	return domain.Response{
		Status:  r.Status,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    append([]byte(nil), r.Body...),
	}, nil
}

// Requests returns the requests received so far, in order.
func (t *Transport) Requests() []domain.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.Request, len(t.requests))
	for i, r := range t.requests {
		out[i] = r.Clone()
	}
	return out
}

// Remaining reports how many replies are still queued.
func (t *Transport) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.replies)
}
