package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/aretw0/davinci/pkg/collector"
	"github.com/aretw0/davinci/pkg/domain"
	"github.com/aretw0/davinci/pkg/idp"
	"github.com/aretw0/davinci/pkg/node"
	"github.com/aretw0/davinci/pkg/registry"
)

const profileStep = `{"form":{"name":"Profile","description":"Tell us about you","components":{"fields":[
	{"type":"LABEL","key":"intro","content":"Almost **done**"},
	{"type":"TEXT","key":"name","label":"Name","required":true},
	{"type":"PASSWORD","key":"pin","label":"PIN"},
	{"type":"DROPDOWN","key":"country","label":"Country","options":[{"label":"Brazil","value":"BR"},{"label":"Portugal","value":"PT"}]},
	{"type":"CHECKBOX","key":"topics","label":"Topics","options":[{"label":"Go","value":"go"},{"label":"Rust","value":"rust"},{"label":"Zig","value":"zig"}]},
	{"type":"SUBMIT_BUTTON","key":"save","label":"Save"},
	{"type":"FLOW_BUTTON","key":"skip","label":"Skip"}
]}},"formData":{"value":{"name":"Ana"}}}`

func parse(t *testing.T, doc string) *node.ContinueNode {
	t.Helper()
	reg := registry.NewDefault()
	idp.Register(reg)
	return node.NewParser(reg).Parse(gjson.Parse(doc), node.Env{})
}

func value(t *testing.T, n *node.ContinueNode, key string) any {
	t.Helper()
	c, ok := n.Collector(key)
	require.True(t, ok)
	return c.(collector.Valuer).Value()
}

func TestPrompter_Step(t *testing.T) {
	n := parse(t, profileStep)
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("\n1234\n9\n2\n1, 3\n2\n"), &out)

	action, err := p.Step(n)
	require.NoError(t, err)
	require.NotNil(t, action)
	assert.Equal(t, "skip", action.Key())

	assert.Equal(t, "Ana", value(t, n, "name"), "empty input keeps the default")
	assert.Equal(t, "1234", value(t, n, "pin"))
	assert.Equal(t, "PT", value(t, n, "country"))
	assert.Equal(t, []string{"go", "zig"}, value(t, n, "topics"))

	text := out.String()
	assert.Contains(t, text, "## Profile")
	assert.Contains(t, text, "Almost **done**")
	assert.Contains(t, text, "Name * [Ana]: ")
	assert.Contains(t, text, "pick a number from the list")
	assert.Contains(t, text, "Continue with")
}

func TestPrompter_SingleSubmitIsImplicit(t *testing.T) {
	n := parse(t, `{"form":{"name":"Email","components":{"fields":[
		{"type":"TEXT","key":"email"},
		{"type":"SUBMIT_BUTTON","key":"next"}
	]}}}`)
	var out bytes.Buffer
	action, err := NewPrompter(strings.NewReader("a@b.c\n"), &out).Step(n)
	require.NoError(t, err)
	assert.Equal(t, "next", action.Key())
	assert.NotContains(t, out.String(), "Continue with")
}

func TestPrompter_SocialLoginIsAnAction(t *testing.T) {
	n := parse(t, `{"form":{"components":{"fields":[
		{"type":"SUBMIT_BUTTON","key":"submit","label":"Sign On"},
		{"type":"SOCIAL_LOGIN_BUTTON","key":"google","label":"Google"}
	]}}}`)
	action, err := NewPrompter(strings.NewReader("2\n"), &bytes.Buffer{}).Step(n)
	require.NoError(t, err)
	assert.IsType(t, &idp.Collector{}, action)
}

func TestPrompter_NoInput(t *testing.T) {
	n := parse(t, `{"form":{"components":{"fields":[{"type":"TEXT","key":"a"}]}}}`)
	_, err := NewPrompter(strings.NewReader(""), &bytes.Buffer{}).Step(n)
	assert.ErrorIs(t, err, ErrNoInput)
}

func TestPrompter_Messages(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader(""), &out)

	p.Problems(map[string][]string{"name": {"Name is required"}})
	p.Success(&domain.User{Subject: "u-1", TokenType: domain.TokenSession, Token: "s-1"})

	assert.Contains(t, out.String(), "name: Name is required")
	assert.Contains(t, out.String(), "subject: u-1")
	assert.Contains(t, out.String(), "session: s-1")
}

func TestPrintBanner(t *testing.T) {
	var out bytes.Buffer
	PrintBanner(&out, "1.2.3\n")
	assert.Contains(t, out.String(), "v1.2.3")
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		err   error
	}{
		{"plain", "alice@example.com", "alice@example.com", nil},
		{"tab kept", "a\tb", "a\tb", nil},
		{"escape stripped", "\x1b[31mred\x1b[0m", "[31mred[0m", nil},
		{"null and bell", "a\x00b\x07c", "abc", nil},
		{"invalid utf8", "a\xffb", "", ErrInvalidUTF8},
		{"too large", strings.Repeat("x", DefaultMaxInputSize+1), "", ErrInputTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeInput(tt.input)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeInput_EnvLimit(t *testing.T) {
	t.Setenv(EnvMaxInputSize, "3")
	_, err := SanitizeInput("abcd")
	assert.ErrorIs(t, err, ErrInputTooLarge)
}

func TestPrompter_RejectedAnswerIsAskedAgain(t *testing.T) {
	n := parse(t, `{"form":{"components":{"fields":[{"type":"TEXT","key":"a"}]}}}`)
	var out bytes.Buffer
	_, err := NewPrompter(strings.NewReader("bad\xff\ngood\n"), &out).Step(n)
	require.NoError(t, err)
	assert.Equal(t, "good", value(t, n, "a"))
	assert.Contains(t, out.String(), ErrInvalidUTF8.Error())
}
