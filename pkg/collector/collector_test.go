package collector_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/aretw0/davinci/pkg/collector"
)

const emailField = `{
	"type": "TEXT",
	"key": "email",
	"label": "Email",
	"required": true,
	"validation": {"regex": "^[^@]+@[^@]+\\.[^@]+$", "errorMessage": "Must be a valid email address"}
}`

func newText(t *testing.T, field string) *collector.Text {
	t.Helper()
	c := collector.NewText()
	c.Init(gjson.Parse(field))
	text, ok := c.(*collector.Text)
	require.True(t, ok)
	return text
}

func TestText_Descriptor(t *testing.T) {
	text := newText(t, emailField)

	assert.Equal(t, "TEXT", text.Type())
	assert.Equal(t, "email", text.Key())
	assert.Equal(t, "Email", text.Label())
	assert.True(t, text.Required())
	require.NotNil(t, text.Validation())
	assert.Equal(t, "Must be a valid email address", text.Validation().ErrorMessage)

	id := text.ID()
	text.Init(gjson.Parse(`{"type":"OTHER","key":"changed"}`))
	assert.Equal(t, "email", text.Key(), "descriptor is never re-derived")
	assert.Equal(t, id, text.ID())
}

func TestText_Validate(t *testing.T) {
	text := newText(t, emailField)

	text.SetValue("not-an-email")
	errs := text.Validate()
	require.Len(t, errs, 1)
	assert.Equal(t, collector.KindPatternMismatch, errs[0].Kind)
	assert.Equal(t, "Must be a valid email address", errs[0].Message)
	assert.Equal(t, "email", errs[0].Key)

	text.SetValue("a@b.co")
	assert.Empty(t, text.Validate())

	text.SetValue("")
	errs = text.Validate()
	require.Len(t, errs, 1)
	assert.Equal(t, collector.KindRequired, errs[0].Kind)
}

func TestText_RequiredWithoutRegex(t *testing.T) {
	text := newText(t, `{"type":"TEXT","key":"username","label":"Username","required":true}`)

	errs := text.Validate()
	require.Len(t, errs, 1)
	assert.Equal(t, collector.KindRequired, errs[0].Kind)
	assert.Equal(t, "Username is required", errs[0].Message)

	text.SetValue(42)
	assert.Equal(t, "42", text.Value())
	assert.Empty(t, text.Validate())
}

func TestText_InvalidServerRegexIsIgnored(t *testing.T) {
	// RE2 has no lookahead.
	text := newText(t, `{"type":"TEXT","key":"k","validation":{"regex":"^(?=.*\\d).+$","errorMessage":"digit"}}`)
	text.SetValue("abc")
	assert.Empty(t, text.Validate())
}

func TestButtons(t *testing.T) {
	submit := collector.NewSubmit().(*collector.Submit)
	submit.Init(gjson.Parse(`{"type":"SUBMIT_BUTTON","key":"submit","label":"Sign On"}`))
	assert.True(t, collector.OutputOnly(submit))
	assert.False(t, collector.Activated(submit))

	submit.Click()
	assert.True(t, collector.Activated(submit))
	assert.Equal(t, "submit", submit.Value())

	flow := collector.NewFlowButton().(*collector.FlowButton)
	flow.Init(gjson.Parse(`{"type":"FLOW_LINK","key":"register"}`))
	flow.SetValue("clicked")
	assert.True(t, collector.Activated(flow))

	label := collector.NewLabel().(*collector.Label)
	label.Init(gjson.Parse(`{"type":"LABEL","content":"Welcome **back**"}`))
	assert.True(t, collector.OutputOnly(label))
	assert.Equal(t, "Welcome **back**", label.Content())

	assert.False(t, collector.OutputOnly(collector.NewText()))
}

func TestSelects(t *testing.T) {
	field := `{"type":"DROPDOWN","key":"color","required":true,"options":[
		{"label":"Red","value":"red"},{"label":"Blue","value":"blue"}]}`

	single := collector.NewSingleSelect().(*collector.SingleSelect)
	single.Init(gjson.Parse(field))
	require.Len(t, single.Options(), 2)

	assert.Equal(t, collector.KindRequired, single.Validate()[0].Kind)
	single.SetValue("green")
	assert.Equal(t, collector.KindInvalidOption, single.Validate()[0].Kind)
	single.SetValue("blue")
	assert.Empty(t, single.Validate())

	multi := collector.NewMultiSelect().(*collector.MultiSelect)
	multi.Init(gjson.Parse(field))
	assert.Equal(t, []string{}, multi.Value())
	multi.SetValue([]any{"red", "blue"})
	assert.Equal(t, []string{"red", "blue"}, multi.Value())
	assert.Empty(t, multi.Validate())
	multi.SetValue("purple")
	assert.Len(t, multi.Validate(), 1)
}

func TestPassword_Policy(t *testing.T) {
	step := gjson.Parse(`{"passwordPolicy":{
		"length":{"min":8,"max":16},
		"minUniqueCharacters":4,
		"maxRepeatedCharacters":2,
		"minCharacters":{"0123456789":1,"ABCDEFGHIJKLMNOPQRSTUVWXYZ":1}
	}}`)

	p := collector.NewPassword().(*collector.Password)
	p.Init(gjson.Parse(`{"type":"PASSWORD","key":"password","label":"Password","required":true}`))
	p.SetContext(collector.Context{StepID: "s1", Input: step})
	require.NotNil(t, p.Policy())
	assert.Equal(t, 8, p.Policy().MinLength)

	p.SetValue("aaa")
	errs := p.Validate()
	msgs := collector.Messages(errs)["password"]
	assert.Contains(t, msgs, "password must be at least 8 characters long")
	assert.Contains(t, msgs, "password must not repeat a character more than 2 times in a row")
	for _, e := range errs {
		assert.Equal(t, collector.KindPolicy, e.Kind)
	}

	p.SetValue("Secr3tPass")
	assert.Empty(t, p.Validate())

	p.Close()
	assert.Equal(t, "", p.Value())
}

func TestContext_StepWithoutFlow(t *testing.T) {
	_, ok := collector.Context{StepID: "x"}.Step()
	assert.False(t, ok)
}
