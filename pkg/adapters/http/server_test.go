package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	adapter "github.com/aretw0/davinci/pkg/adapters/http"
	"github.com/aretw0/davinci/pkg/domain"
)

func startServer(t *testing.T) (*adapter.Server, *httptest.Server) {
	t.Helper()
	script, err := adapter.LoadScriptFile("testdata/login.yaml")
	require.NoError(t, err)

	srv := adapter.NewServer(script)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func submit(t *testing.T, c *adapter.Client, step gjson.Result, params string) domain.Response {
	t.Helper()
	req := domain.NewRequest(http.MethodPost, step.Get("_links.next.href").String())
	req.SetHeader("interactionToken", step.Get("interactionToken").String())
	require.NoError(t, req.Set("id", step.Get("id").String()))
	require.NoError(t, req.Set("interactionId", step.Get("interactionId").String()))
	require.NoError(t, req.Set("parameters", gjson.Parse(params).Value()))

	resp, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	return resp
}

func TestServer_LoginFlow(t *testing.T) {
	srv, ts := startServer(t)
	c := adapter.NewClient(adapter.WithHTTPClient(ts.Client()))

	resp, err := c.Do(context.Background(), domain.NewRequest(http.MethodGet, ts.URL+"/authorize"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)

	step := resp.JSON()
	assert.Equal(t, "login", step.Get("id").String())
	assert.Equal(t, "continue", step.Get("eventName").String())
	assert.Equal(t, ts.URL+adapter.ContinuePath, step.Get("_links.next.href").String())
	assert.NotEmpty(t, step.Get("interactionToken").String())
	assert.Equal(t, 1, srv.Active())

	resp = submit(t, c, step, `{"eventType":"submit","data":{"actionKey":"submit","formData":{"username":"demo","password":"nope"}}}`)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "Invalid username and/or password", resp.JSON().Get("message").String())

	resp = submit(t, c, step, `{"eventType":"submit","data":{"actionKey":"submit","formData":{"username":"demo","password":"Passw0rd!"}}}`)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "sess-123", resp.JSON().Get("session.id").String())
	assert.Zero(t, srv.Active())
}

func TestServer_ActionRoute(t *testing.T) {
	_, ts := startServer(t)
	c := adapter.NewClient(adapter.WithHTTPClient(ts.Client()))

	resp, err := c.Do(context.Background(), domain.NewRequest(http.MethodPost, ts.URL+"/authorize"))
	require.NoError(t, err)

	resp = submit(t, c, resp.JSON(), `{"eventType":"action","data":{"actionKey":"register","formData":{}}}`)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "register", resp.JSON().Get("id").String())
}

func TestServer_RejectsWrongToken(t *testing.T) {
	_, ts := startServer(t)
	c := adapter.NewClient(adapter.WithHTTPClient(ts.Client()))

	resp, err := c.Do(context.Background(), domain.NewRequest(http.MethodGet, ts.URL+"/authorize"))
	require.NoError(t, err)

	forged, err := sjsonSet(resp.Body, "interactionToken", "forged")
	require.NoError(t, err)

	resp = submit(t, c, gjson.ParseBytes(forged), `{"eventType":"submit","data":{"formData":{}}}`)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
	assert.Equal(t, "invalidToken", resp.JSON().Get("code").String())
}

func TestServer_HealthAndInfo(t *testing.T) {
	_, ts := startServer(t)
	c := adapter.NewClient(adapter.WithHTTPClient(ts.Client()))

	resp, err := c.Do(context.Background(), domain.NewRequest(http.MethodGet, ts.URL+"/health"))
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.JSON().Get("status").String())

	resp, err = c.Do(context.Background(), domain.NewRequest(http.MethodGet, ts.URL+"/info"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), resp.JSON().Get("steps").Int())
}

func TestLoadScript_Invalid(t *testing.T) {
	_, err := adapter.LoadScript(strings.NewReader("start: missing\nsteps: {}\n"))
	assert.ErrorIs(t, err, adapter.ErrNoStart)

	_, err = adapter.LoadScript(strings.NewReader(`
start: a
steps:
  a:
    body: {form: {}}
    routes: [{goto: nowhere}]
`))
	assert.ErrorIs(t, err, adapter.ErrUnknownTarget)
}
