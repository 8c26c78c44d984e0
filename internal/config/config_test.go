package config

import (
	"encoding/base64"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/davinci/pkg/node"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "davinci.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
base_url: https://auth.example.com/env
client_id: from-file
scopes: [openid, profile]
timeout: 5s
headers:
  X-Tenant: acme
storage:
  driver: redis
  addr: localhost:6379
  ttl: 1h
unknown_fields: keep
`)
	t.Setenv("DAVINCI_CLIENT_ID", "from-env")
	t.Setenv("DAVINCI_STORAGE__DB", "3")
	t.Setenv("DAVINCI_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://auth.example.com/env", cfg.BaseURL)
	assert.Equal(t, "from-env", cfg.ClientID, "environment wins over the file")
	assert.Equal(t, []string{"openid", "profile"}, cfg.Scopes)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, map[string]string{"X-Tenant": "acme"}, cfg.Headers)
	assert.Equal(t, "/as/authorize", cfg.StartPath, "defaults survive")

	want := Storage{Driver: DriverRedis, Addr: "localhost:6379", DB: 3, TTL: time.Hour}
	if diff := cmp.Diff(want, cfg.Storage); diff != "" {
		t.Errorf("storage mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, node.KeepUnknown, cfg.UnknownPolicy())
	assert.Equal(t, slog.LevelDebug, cfg.Level())
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("DAVINCI_BASE_URL", "https://auth.example.com")
	t.Setenv("DAVINCI_SCOPES", "openid,email")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"openid", "email"}, cfg.Scopes)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, node.DropUnknown, cfg.UnknownPolicy())
}

func TestLoad_Invalid(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))

	tests := []struct {
		name string
		body string
		err  error
	}{
		{"driver", "base_url: https://a.example\nstorage: {driver: etcd}", ErrUnknownDriver},
		{"unknown fields", "base_url: https://a.example\nunknown_fields: explode", ErrInvalidUnknownFields},
		{"log level", "base_url: https://a.example\nlog_level: chatty", ErrInvalidLogLevel},
		{"short key", "base_url: https://a.example\nstorage: {encryption_key: c2hvcnQ=}", ErrInvalidKey},
		{"bad fallback", "base_url: https://a.example\nstorage: {encryption_key: " + key + ", fallback_keys: [nope]}", ErrInvalidKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestStorage_Keys(t *testing.T) {
	active := []byte(strings.Repeat("a", 32))
	old := []byte(strings.Repeat("o", 32))
	s := Storage{
		EncryptionKey: base64.StdEncoding.EncodeToString(active),
		FallbackKeys:  []string{base64.StdEncoding.EncodeToString(old)},
	}

	a, f, err := s.Keys()
	require.NoError(t, err)
	assert.Equal(t, active, a)
	assert.Equal(t, [][]byte{old}, f)

	a, f, err = Storage{}.Keys()
	assert.NoError(t, err)
	assert.Nil(t, a)
	assert.Nil(t, f)
}

func TestOverlayEnv(t *testing.T) {
	raw := map[string]any{"storage": map[string]any{"driver": "redis"}}
	overlayEnv(raw, []string{
		"DAVINCI_STORAGE__ADDR=cache:6379",
		"DAVINCI_HEADERS__X-TRACE=1",
		"HOME=/root",
	})

	want := map[string]any{
		"storage": map[string]any{"driver": "redis", "addr": "cache:6379"},
		"headers": map[string]any{"x-trace": "1"},
	}
	if diff := cmp.Diff(want, raw); diff != "" {
		t.Errorf("overlay mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load("", func(c *Config) {
		c.BaseURL = "http://127.0.0.1:9000"
		c.StartPath = "/authorize"
	})
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9000", cfg.BaseURL)
	assert.Equal(t, "/authorize", cfg.StartPath)

	_, err = Load("")
	assert.Error(t, err, "base url is required without an override")
}
