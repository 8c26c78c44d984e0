package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/davinci/internal/logging"
)

// ErrNoCommand is returned when no command is registered for a provider.
var ErrNoCommand = errors.New("no hand-off command registered")

// DefaultCommand is the registration used when no provider specific one exists.
const DefaultCommand = "default"

// Command is an allow-listed hand-off program.
type Command struct {
	Provider string            `yaml:"provider" json:"provider"`
	Command  string            `yaml:"command" json:"command"`
	Args     []string          `yaml:"args" json:"args"`
	Env      map[string]string `yaml:"env" json:"env"`
}

type commandFile struct {
	Handlers []Command `yaml:"handlers" json:"handlers"`
}

// LoadCommands reads a handlers file (YAML, or JSON by extension). A missing
// file yields no commands.
func LoadCommands(path string) (map[string]Command, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Command{}, nil
		}
		return nil, fmt.Errorf("failed to read handlers: %w", err)
	}

	var f commandFile
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &f)
	} else {
		err = yaml.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse handlers %s: %w", path, err)
	}

	out := make(map[string]Command, len(f.Handlers))
	for _, c := range f.Handlers {
		if c.Provider == "" || c.Command == "" {
			continue
		}
		out[strings.ToLower(c.Provider)] = c
	}
	return out, nil
}

// CommandHandler hands off to a local program, e.g. a helper that opens the
// system browser and listens for the redirect. The program receives the
// hand-off in DAVINCI_IDP_* variables and prints the callback on stdout,
// either as a Callback JSON object or as the callback URL. Exit status 2
// means the user canceled.
type CommandHandler struct {
	commands map[string]Command
	baseDir  string
	logger   *slog.Logger
}

// CommandOption configures a CommandHandler.
type CommandOption func(*CommandHandler)

// WithCommands adds loaded registrations.
func WithCommands(cmds map[string]Command) CommandOption {
	return func(h *CommandHandler) {
		for k, c := range cmds {
			h.commands[strings.ToLower(k)] = c
		}
	}
}

// WithBaseDir sets the working directory of the programs.
func WithBaseDir(dir string) CommandOption {
	return func(h *CommandHandler) {
		h.baseDir = dir
	}
}

// WithCommandLogger sets the handler logger.
func WithCommandLogger(logger *slog.Logger) CommandOption {
	return func(h *CommandHandler) {
		h.logger = logger
	}
}

// NewCommandHandler creates a handler with an empty allow-list.
func NewCommandHandler(opts ...CommandOption) *CommandHandler {
	h := &CommandHandler{
		commands: make(map[string]Command),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register allow-lists a program for a provider type or name. Use
// DefaultCommand as a catch-all.
func (h *CommandHandler) Register(provider, command string, args ...string) {
	h.commands[strings.ToLower(provider)] = Command{Provider: provider, Command: command, Args: args}
}

func (h *CommandHandler) lookup(ho HandOff) (Command, bool) {
	for _, k := range []string{ho.Type, ho.Provider, DefaultCommand} {
		if c, ok := h.commands[strings.ToLower(k)]; ok && k != "" {
			return c, true
		}
	}
	return Command{}, false
}

// Authorize runs the registered program and parses its output.
func (h *CommandHandler) Authorize(ctx context.Context, ho HandOff) (Callback, error) {
	c, ok := h.lookup(ho)
	if !ok {
		return Callback{}, fmt.Errorf("%w: %s", ErrNoCommand, ho.Provider)
	}

	cmd := exec.CommandContext(ctx, c.Command, c.Args...)
	cmd.Dir = h.baseDir
	cmd.Env = append(cmd.Environ(),
		"DAVINCI_IDP_URL="+ho.URL,
		"DAVINCI_IDP_PROVIDER="+ho.Provider,
		"DAVINCI_IDP_TYPE="+ho.Type,
	)
	for k, v := range c.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	h.logger.Debug("idp hand-off", "provider", ho.Provider, "command", c.Command)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Callback{}, ctx.Err()
		}
		var exit *exec.ExitError
		if errors.As(err, &exit) && exit.ExitCode() == 2 {
			return Callback{}, ErrCanceled
		}
		return Callback{}, fmt.Errorf("hand-off command failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return parseCallback(stdout.String())
}

// parseCallback accepts a Callback JSON object or a callback URL whose query
// becomes the params.
func parseCallback(out string) (Callback, error) {
	out = strings.TrimSpace(out)
	if strings.HasPrefix(out, "{") {
		var cb Callback
		if err := json.Unmarshal([]byte(out), &cb); err != nil {
			return Callback{}, fmt.Errorf("invalid callback document: %w", err)
		}
		return cb, nil
	}

	u, err := url.Parse(out)
	if err != nil || u.Scheme == "" {
		return Callback{}, fmt.Errorf("invalid callback url %q", out)
	}
	cb := Callback{Params: make(map[string]string)}
	for k, v := range u.Query() {
		if len(v) > 0 {
			cb.Params[k] = v[0]
		}
	}
	u.RawQuery = ""
	cb.URL = u.String()
	return cb, nil
}
