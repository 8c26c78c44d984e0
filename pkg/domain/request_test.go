package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/aretw0/davinci/pkg/domain"
)

func TestEscapePath(t *testing.T) {
	tests := []struct {
		key     string
		escaped string
	}{
		{"username", "username"},
		{"user name", "user name"},
		{"a.b", `a\.b`},
		{"a|b", `a\|b`},
		{"#", `\#`},
		{"@this", `\@this`},
		{"!x", `\!x`},
		{"q?", `q\?`},
		{"a*", `a\*`},
		{`a\b`, `a\\b`},
		{"42", ":42"},
		{"-1", ":-1"},
		{":x", `\:x`},
		{"x:y", "x:y"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.escaped, domain.EscapePath(tt.key))
		})
	}
}

func TestRequest_Set_EscapedKeys(t *testing.T) {
	keys := []string{
		"user name", "a.b", "a|b", "#", "@this", "!x", "q?", "a*",
		`a\b`, "42", "-1", ":x", "x:y",
	}

	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			req := domain.NewRequest("POST", "https://x")
			require.NoError(t, req.Set("data."+domain.EscapePath(key), "V"))

			data := req.Get("data")
			require.True(t, data.IsObject(), "body: %s", req.Body)
			assert.Len(t, data.Map(), 1)
			assert.Equal(t, "V", data.Map()[key].String(), "body: %s", req.Body)

			// Setting again replaces instead of adding a sibling.
			require.NoError(t, req.Set("data."+domain.EscapePath(key), "W"))
			assert.Len(t, req.Get("data").Map(), 1)
			assert.Equal(t, "W", req.Get("data").Map()[key].String())
		})
	}
}

func TestRequest_Set_UnescapedComplexPath(t *testing.T) {
	for _, path := range []string{"data.a|b", "data.@this", "data.a*"} {
		t.Run(path, func(t *testing.T) {
			req := domain.NewRequest("POST", "https://x")
			err := req.Set(path, "V")
			assert.ErrorIs(t, err, domain.ErrPathNotSet)
			assert.JSONEq(t, `{}`, string(req.Body))
		})
	}
}

func TestRequest_SetRaw(t *testing.T) {
	req := domain.NewRequest("POST", "https://x")
	require.NoError(t, req.Set("id", "s1"))
	require.NoError(t, req.SetRaw("parameters.formData", []byte(`{"b":1,"a|b":[true]}`)))

	assert.JSONEq(t, `{"id":"s1","parameters":{"formData":{"b":1,"a|b":[true]}}}`, string(req.Body))

	var order []string
	req.Get("parameters.formData").ForEach(func(k, _ gjson.Result) bool {
		order = append(order, k.String())
		return true
	})
	assert.Equal(t, []string{"b", "a|b"}, order)
}
