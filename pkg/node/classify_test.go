package node_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/aretw0/davinci/pkg/domain"
	"github.com/aretw0/davinci/pkg/node"
	"github.com/aretw0/davinci/pkg/registry"
)

func response(status int, body string) domain.Response {
	return domain.Response{Status: status, Body: []byte(body)}
}

func TestClassify(t *testing.T) {
	p := node.NewParser(registry.NewDefault())

	tests := []struct {
		name string
		resp domain.Response
		kind node.Kind
	}{
		{"continue form", response(200, `{"form":{"components":{"fields":[]}}}`), node.KindContinue},
		{"continue link", response(200, `{"_links":{"next":{"href":"https://x/next"}}}`), node.KindContinue},
		{"continue event", response(200, `{"eventName":"continue"}`), node.KindContinue},
		{"error 400", response(400, `{"message":"Invalid username and/or password"}`), node.KindError},
		{"error code and message", response(200, `{"code":"requestFailed","message":"bad"}`), node.KindError},
		{"error object", response(200, `{"error":{"message":"bad"}}`), node.KindError},
		{"error httpResponseCode", response(200, `{"httpResponseCode":401,"message":"nope"}`), node.KindError},
		{"failure 500 with marker", response(500, `{"status":"FAILED","message":"boom"}`), node.KindFailure},
		{"error transient 503", response(503, `{"message":"try again later"}`), node.KindError},
		{"failure status", response(200, `{"status":"FAILED","message":"done for"}`), node.KindFailure},
		{"success code", response(200, `{"authorizeResponse":{"code":"abc"}}`), node.KindSuccess},
		{"success access token", response(200, `{"access_token":"at","id_token":"it"}`), node.KindSuccess},
		{"success session", response(200, `{"session":{"id":"s1","user":{"id":"u1"}}}`), node.KindSuccess},
		{"success status", response(200, `{"id":"flow-1","status":"COMPLETED"}`), node.KindSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := node.Classify(tt.resp, p, node.Env{})
			require.NoError(t, err)
			assert.Equal(t, tt.kind, n.Kind())
			assert.Equal(t, tt.kind != node.KindContinue, n.Terminal())
		})
	}
}

func TestClassify_ProtocolErrors(t *testing.T) {
	p := node.NewParser(registry.NewDefault())

	for name, resp := range map[string]domain.Response{
		"html":         response(502, `<html>Bad Gateway</html>`),
		"empty":        response(200, ``),
		"array":        response(200, `[1,2]`),
		"unclassified": response(200, `{"hello":"world"}`),
	} {
		t.Run(name, func(t *testing.T) {
			n, err := node.Classify(resp, p, node.Env{})
			assert.Nil(t, n)
			assert.True(t, domain.IsProtocol(err))
		})
	}
}

func TestClassify_ErrorWinsOverSuccess(t *testing.T) {
	p := node.NewParser(registry.NewDefault())
	resp := response(200, `{"code":"x","message":"conflict","session":{"id":"s1"}}`)

	n, err := node.Classify(resp, p, node.Env{})
	require.NoError(t, err)
	assert.Equal(t, node.KindError, n.Kind())
}

func TestClassify_ErrorDetails(t *testing.T) {
	p := node.NewParser(registry.NewDefault())
	prior := p.Parse(gjson.Parse(`{"form":{}}`), node.Env{})

	resp := response(400, `{
		"code": "requestFailed",
		"message": "Invalid username and/or password",
		"details": [{"rawResponse": {"details": [
			{"target": "username", "message": "unknown user"},
			{"target": "password", "message": "wrong password"}
		]}}]
	}`)

	n, err := node.Classify(resp, p, node.Env{Prior: prior})
	require.NoError(t, err)
	e := n.(*node.ErrorNode)

	assert.Equal(t, "Invalid username and/or password", e.Message())
	assert.Equal(t, "requestFailed", e.Code())
	assert.Equal(t, 400, e.Status())
	assert.Same(t, prior, e.Retry())
	assert.Equal(t, []node.FieldError{
		{Key: "username", Message: "unknown user"},
		{Key: "password", Message: "wrong password"},
	}, e.Details())

	var flowErr *domain.FlowError
	assert.ErrorAs(t, e.Err(), &flowErr)
}

func TestClassify_SuccessUser(t *testing.T) {
	p := node.NewParser(registry.NewDefault())

	n, err := node.Classify(response(200, `{"session":{"id":"s1","user":{"id":"u1"}}}`), p, node.Env{})
	require.NoError(t, err)
	s := n.(*node.SuccessNode)

	u := s.User()
	require.NotNil(t, u)
	assert.Equal(t, "s1", u.Token)
	assert.Equal(t, domain.TokenSession, u.TokenType)
	assert.Equal(t, "u1", u.Subject)

	u.Token = "tampered"
	assert.Equal(t, "s1", s.User().Token, "callers receive copies")

	s.Revoke()
	assert.Nil(t, s.User())
}

func TestClassify_TransientServerError(t *testing.T) {
	p := node.NewParser(registry.NewDefault())
	prior := p.Parse(gjson.Parse(`{"form":{}}`), node.Env{})

	n, err := node.Classify(response(503, `{"message":"Service Unavailable"}`), p, node.Env{Prior: prior})
	require.NoError(t, err)
	e, ok := n.(*node.ErrorNode)
	require.True(t, ok, "a bare 5xx does not end the session")
	assert.Equal(t, 503, e.Status())
	assert.Equal(t, "Service Unavailable", e.Message())
	assert.Same(t, prior, e.Retry())
}

func TestClassify_FailureMessage(t *testing.T) {
	n, err := node.Classify(response(503, `{"status":"FAILED","error":{"message":"maintenance"}}`), node.NewParser(registry.NewDefault()), node.Env{})
	require.NoError(t, err)
	f := n.(*node.FailureNode)
	assert.Equal(t, "maintenance", f.Message())
	assert.Equal(t, 503, f.Status())
}
