package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/davinci/internal/logging"
	"github.com/aretw0/davinci/pkg/domain"
)

const defaultMaxBody = 4 << 20

// Client implements ports.Transport over net/http. Non-2xx responses are
// returned as responses; only connectivity failures become errors.
type Client struct {
	http    *http.Client
	maxBody int64
	logger  *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout bounds every round trip.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithHTTPClient replaces the underlying client, e.g. an httptest client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// WithMaxBody limits how many response bytes are read.
func WithMaxBody(n int64) ClientOption {
	return func(c *Client) {
		c.maxBody = n
	}
}

// WithLogger sets the logger for round trip diagnostics.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a transport. The client keeps a cookie-less default
// http.Client unless one is supplied.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		maxBody: defaultMaxBody,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do performs the round trip.
func (c *Client) Do(ctx context.Context, req domain.Request) (domain.Response, error) {
	var body io.Reader
	if len(req.Body) > 0 && req.Method != http.MethodGet {
		body = bytes.NewReader(req.Body)
	}

	hreq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return domain.Response{}, &domain.TransportError{Method: req.Method, URL: req.URL, Err: err}
	}
	for k, v := range req.Headers {
		hreq.Header.Set(k, v)
	}
	if body != nil && hreq.Header.Get("Content-Type") == "" {
		hreq.Header.Set("Content-Type", "application/json")
	}
	if hreq.Header.Get("Accept") == "" {
		hreq.Header.Set("Accept", "application/json")
	}

	hresp, err := c.http.Do(hreq)
	if err != nil {
		return domain.Response{}, &domain.TransportError{Method: req.Method, URL: req.URL, Err: err}
	}
	defer hresp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(hresp.Body, c.maxBody+1))
	if err != nil {
		return domain.Response{}, &domain.TransportError{Method: req.Method, URL: req.URL, Err: fmt.Errorf("reading body: %w", err)}
	}
	if int64(len(data)) > c.maxBody {
		return domain.Response{}, &domain.ProtocolError{Status: hresp.StatusCode, Reason: fmt.Sprintf("response body exceeds %d bytes", c.maxBody)}
	}

	headers := make(map[string]string, len(hresp.Header))
	for k := range hresp.Header {
		headers[k] = hresp.Header.Get(k)
	}

	c.logger.Debug("round trip", "method", req.Method, "url", req.URL, "status", hresp.StatusCode, "bytes", len(data))
	return domain.Response{Status: hresp.StatusCode, Headers: headers, Body: data}, nil
}
