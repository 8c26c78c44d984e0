package middleware

import (
	"context"
	"regexp"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/aretw0/davinci/pkg/domain"
	"github.com/aretw0/davinci/pkg/ports"
)

// Mask replaces redacted values.
const Mask = "***"

type piiMiddleware struct {
	next     ports.TokenStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks, inside the stored raw
// success document, the values of every key matching one of the patterns.
// The token itself is never masked.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.TokenStore) ports.TokenStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, key string, user *domain.User) error {
	cloned := user.Clone()
	if len(cloned.Raw) > 0 && gjson.ValidBytes(cloned.Raw) {
		cloned.Raw = maskDocument(cloned.Raw, m.patterns)
	}
	return m.next.Save(ctx, key, cloned)
}

func (m *piiMiddleware) Load(ctx context.Context, key string) (*domain.User, error) {
	return m.next.Load(ctx, key)
}

func (m *piiMiddleware) Delete(ctx context.Context, key string) error {
	return m.next.Delete(ctx, key)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// Helpers

func maskDocument(doc []byte, patterns []*regexp.Regexp) []byte {
	var paths []string
	collectPaths(gjson.ParseBytes(doc), "", patterns, &paths)
	for _, p := range paths {
		if masked, err := sjson.SetBytes(doc, p, Mask); err == nil {
			doc = masked
		}
	}
	return doc
}

func collectPaths(node gjson.Result, prefix string, patterns []*regexp.Regexp, out *[]string) {
	if !node.IsObject() && !node.IsArray() {
		return
	}
	node.ForEach(func(k, v gjson.Result) bool {
		path := domain.EscapePath(k.String())
		if node.IsArray() {
			path = k.String()
		}
		if prefix != "" {
			path = prefix + "." + path
		}

		if node.IsObject() && matchesAny(k.String(), patterns) {
			*out = append(*out, path)
			return true
		}
		collectPaths(v, path, patterns, out)
		return true
	})
}

func matchesAny(key string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
