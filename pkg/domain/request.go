package domain

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Request is an outbound call produced by the engine (or by a plugin
// collector) and executed by the Transport.
type Request struct {
	URL     string
	Method  string
	Headers map[string]string

	// Body is a JSON document. Key order is preserved, which matters for
	// servers that read form data in declaration order.
	Body []byte
}

// NewRequest creates a request with an empty JSON object body.
func NewRequest(method, url string) Request {
	return Request{
		URL:     url,
		Method:  method,
		Headers: make(map[string]string),
		Body:    []byte("{}"),
	}
}

// SetHeader sets a header, allocating the map if needed.
func (r *Request) SetHeader(name, value string) {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[name] = value
}

// ErrPathNotSet is returned when sjson leaves the body untouched. Unescaped
// pipes, hashes, modifiers and wildcards make a complex path, which sjson can
// replace but never create. Use EscapePath for literal keys.
var ErrPathNotSet = errors.New("path cannot be created on request body")

// Set writes value at the given sjson path of the body.
func (r *Request) Set(path string, value any) error {
	body := r.Body
	if len(body) == 0 {
		body = []byte("{}")
	}
	out, err := sjson.SetBytes(body, path, value)
	if err != nil {
		return fmt.Errorf("failed to set %q on request body: %w", path, err)
	}
	if bytes.Equal(out, body) && !gjson.GetBytes(body, path).Exists() {
		return fmt.Errorf("failed to set %q: %w", path, ErrPathNotSet)
	}
	r.Body = out
	return nil
}

// SetRaw writes an already encoded JSON value at the given sjson path.
func (r *Request) SetRaw(path string, raw []byte) error {
	body := r.Body
	if len(body) == 0 {
		body = []byte("{}")
	}
	out, err := sjson.SetRawBytes(body, path, raw)
	if err != nil {
		return fmt.Errorf("failed to set %q on request body: %w", path, err)
	}
	r.Body = out
	return nil
}

// Get reads the given gjson path of the body.
func (r Request) Get(path string) gjson.Result {
	return gjson.GetBytes(r.Body, path)
}

// Clone returns a deep copy that can be mutated independently.
func (r Request) Clone() Request {
	c := Request{
		URL:    r.URL,
		Method: r.Method,
		Body:   append([]byte(nil), r.Body...),
	}
	if r.Headers != nil {
		c.Headers = make(map[string]string, len(r.Headers))
		for k, v := range r.Headers {
			c.Headers[k] = v
		}
	}
	return c
}

// Response is what the Transport returns for a Request.
type Response struct {
	Status  int
	Headers map[string]string
	Body    []byte
}

// JSON parses the body. The result is not validated; use IsJSON for that.
func (r Response) JSON() gjson.Result {
	return gjson.ParseBytes(r.Body)
}

// IsJSON reports whether the body is a well formed JSON object.
func (r Response) IsJSON() bool {
	return gjson.ValidBytes(r.Body) && r.JSON().IsObject()
}

// Header returns a header value using case-insensitive lookup.
func (r Response) Header(name string) string {
	if v, ok := r.Headers[name]; ok {
		return v
	}
	canonical := http.CanonicalHeaderKey(name)
	for k, v := range r.Headers {
		if http.CanonicalHeaderKey(k) == canonical {
			return v
		}
	}
	return ""
}

// EscapePath escapes a literal key so it can be used as one gjson/sjson path
// segment. Server keys may contain separators, wildcards, pipes, modifiers
// or queries. Numeric keys and "-1" are forced to stay object keys instead
// of becoming array indexes or appends. sjson reads the ":" force prefix but
// gjson does not, so escaped numeric keys are for writing only.
func EscapePath(key string) string {
	var b strings.Builder
	if key == "-1" || (key != "" && strings.Trim(key, "0123456789") == "") {
		b.WriteByte(':')
	}
	for i, r := range key {
		switch r {
		case '.', '*', '?', '\\', '|', '#', '@', '!':
			b.WriteRune('\\')
		case ':':
			if i == 0 {
				b.WriteRune('\\')
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}
