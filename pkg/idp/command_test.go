package idp

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandHandler_Authorize(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	h := NewCommandHandler()
	h.Register("GOOGLE", "sh", "-c", `echo "$DAVINCI_IDP_URL&code=abc"`)
	h.Register(DefaultCommand, "sh", "-c", `echo '{"url":"https://cb.example","params":{"provider":"'"$DAVINCI_IDP_PROVIDER"'"}}'`)
	h.Register("cancel", "sh", "-c", "exit 2")
	h.Register("broken", "sh", "-c", "echo boom >&2; exit 1")

	t.Run("url output", func(t *testing.T) {
		cb, err := h.Authorize(context.Background(), HandOff{Provider: "Google", Type: "GOOGLE", URL: "https://cb.example/return?state=s"})
		require.NoError(t, err)
		assert.Equal(t, "https://cb.example/return", cb.URL)
		assert.Equal(t, map[string]string{"state": "s", "code": "abc"}, cb.Params)
	})

	t.Run("json output via default", func(t *testing.T) {
		cb, err := h.Authorize(context.Background(), HandOff{Provider: "Okta", Type: "OKTA"})
		require.NoError(t, err)
		assert.Equal(t, "https://cb.example", cb.URL)
		assert.Equal(t, "Okta", cb.Params["provider"])
	})

	t.Run("canceled", func(t *testing.T) {
		_, err := h.Authorize(context.Background(), HandOff{Provider: "cancel"})
		assert.ErrorIs(t, err, ErrCanceled)
	})

	t.Run("failure carries stderr", func(t *testing.T) {
		_, err := h.Authorize(context.Background(), HandOff{Type: "broken"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})
}

func TestCommandHandler_NotRegistered(t *testing.T) {
	_, err := NewCommandHandler().Authorize(context.Background(), HandOff{Provider: "Google"})
	assert.ErrorIs(t, err, ErrNoCommand)
}

func TestLoadCommands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "handlers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
handlers:
  - provider: GOOGLE
    command: open-browser
    args: [--wait]
    env: {PORT: "8765"}
  - provider: ""
    command: ignored
`), 0o600))

	cmds, err := LoadCommands(path)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, []string{"--wait"}, cmds["google"].Args)

	h := NewCommandHandler(WithCommands(cmds))
	c, ok := h.lookup(HandOff{Type: "google"})
	require.True(t, ok)
	assert.Equal(t, "open-browser", c.Command)

	missing, err := LoadCommands(filepath.Join(dir, "none.yaml"))
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestParseCallback(t *testing.T) {
	_, err := parseCallback("not a url")
	assert.Error(t, err)

	_, err = parseCallback("{broken")
	assert.Error(t, err)
}
