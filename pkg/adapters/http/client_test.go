package http_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/sjson"

	adapter "github.com/aretw0/davinci/pkg/adapters/http"
	"github.com/aretw0/davinci/pkg/domain"
)

func sjsonSet(doc []byte, path string, v any) ([]byte, error) {
	return sjson.SetBytes(doc, path, v)
}

func TestClient_SendsHeadersAndBody(t *testing.T) {
	var gotHeader, gotType string
	var gotBody []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("interactionToken")
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer ts.Close()

	req := domain.NewRequest(http.MethodPost, ts.URL)
	req.SetHeader("interactionToken", "tok")
	require.NoError(t, req.Set("id", "step-1"))

	resp, err := adapter.NewClient().Do(context.Background(), req)
	require.NoError(t, err, "non-2xx responses are not transport errors")
	assert.Equal(t, http.StatusTeapot, resp.Status)
	assert.Equal(t, "tok", gotHeader)
	assert.Equal(t, "application/json", gotType)
	assert.JSONEq(t, `{"id":"step-1"}`, string(gotBody))
}

func TestClient_TransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	_, err := adapter.NewClient().Do(context.Background(), domain.NewRequest(http.MethodGet, url))
	require.Error(t, err)
	assert.True(t, domain.IsTransport(err))
}

func TestClient_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer ts.Close()

	_, err := adapter.NewClient(adapter.WithTimeout(20*time.Millisecond)).Do(context.Background(), domain.NewRequest(http.MethodGet, ts.URL))
	assert.True(t, domain.IsTransport(err))
}

func TestClient_BodyLimit(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"padding":"0123456789"}`))
	}))
	defer ts.Close()

	_, err := adapter.NewClient(adapter.WithMaxBody(8)).Do(context.Background(), domain.NewRequest(http.MethodGet, ts.URL))
	assert.True(t, domain.IsProtocol(err))
}
