package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/davinci"
	"github.com/aretw0/davinci/internal/config"
	"github.com/aretw0/davinci/internal/logging"
	"github.com/aretw0/davinci/internal/presentation/tui"
	httpAdapter "github.com/aretw0/davinci/pkg/adapters/http"
	"github.com/aretw0/davinci/pkg/domain"
	"github.com/aretw0/davinci/pkg/idp"
	"github.com/aretw0/davinci/pkg/observability"
)

// RunOptions contains all the configuration for the run command.
type RunOptions struct {
	ConfigPath string
	BaseURL    string
	ClientID   string
	Debug      bool

	// Reuse returns the stored user instead of authenticating again.
	Reuse bool

	// MockScript, when set, serves the script locally and runs against it.
	MockScript string
	MockAddr   string

	In  io.Reader
	Out io.Writer
}

func (o RunOptions) overrides() []func(*config.Config) {
	return []func(*config.Config){func(c *config.Config) {
		if o.BaseURL != "" {
			c.BaseURL = o.BaseURL
		}
		if o.ClientID != "" {
			c.ClientID = o.ClientID
		}
	}}
}

// Execute handles the run command: it authenticates interactively and
// prints the resulting user.
func Execute(opts RunOptions) error {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	prompt := tui.NewPrompter(opts.In, opts.Out)
	tui.PrintBanner(opts.Out, davinci.Version)

	// A blocked terminal read cannot be interrupted, so a signal returns
	// without waiting for the flow.
	done := make(chan error, 1)
	go func() { done <- Run(sigCtx, opts, prompt) }()

	var err error
	select {
	case err = <-done:
	case <-sigCtx.Done():
		err = sigCtx.Err()
	}
	logCompletion(prompt, err, sigCtx.Signal())
	return handleExecutionError(err)
}

// Run authenticates with the given prompter. The mock server and the
// metrics endpoint, when enabled, run alongside and stop with the flow.
func Run(ctx context.Context, opts RunOptions, prompt *tui.Prompter) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	overrides := opts.overrides()
	if opts.MockScript != "" {
		ln, srv, err := mockServer(opts.MockScript, opts.MockAddr, logging.NewNop())
		if err != nil {
			return err
		}
		base := "http://" + ln.Addr().String()
		overrides = append(overrides, func(c *config.Config) {
			c.BaseURL = base
			c.StartPath = "/authorize"
		})
		g.Go(func() error { return serve(gctx, srv, ln) })
		prompt.Info("Mock tenant listening on " + base)
	}

	cfg, err := config.Load(opts.ConfigPath, overrides...)
	if err != nil {
		cancel()
		_ = g.Wait()
		return err
	}
	logger := createLogger(cfg.Level(), opts.Debug)

	var hooks []domain.LifecycleHooks
	if opts.Debug {
		hooks = append(hooks, createDebugHooks(logger))
	}
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		hooks = append(hooks, observability.NewMetrics(reg).Hooks())

		ln, err := net.Listen("tcp", cfg.MetricsAddr)
		if err != nil {
			cancel()
			_ = g.Wait()
			return fmt.Errorf("failed to listen on metrics address: %w", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler(reg))
		g.Go(func() error { return serve(gctx, &http.Server{Handler: mux}, ln) })
		logger.Info("metrics server started", "addr", ln.Addr().String())
	}

	g.Go(func() error {
		defer cancel()
		user, err := authenticate(gctx, cfg, opts.Reuse, prompt, logger, hooks)
		if err != nil {
			return err
		}
		prompt.Success(user)
		return nil
	})
	return g.Wait()
}

func authenticate(ctx context.Context, cfg config.Config, reuse bool, prompt *tui.Prompter, logger *slog.Logger, hooks []domain.LifecycleHooks) (*domain.User, error) {
	vault, closeStore, err := createVault(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("failed to close token store", "err", err)
		}
	}()

	wf, err := createWorkflow(cfg, vault.Store(), logger, hooks...)
	if err != nil {
		return nil, err
	}

	s := &session{wf: wf, prompt: prompt, logger: logger}
	if cfg.IdPHandlers != "" {
		cmds, err := idp.LoadCommands(cfg.IdPHandlers)
		if err != nil {
			return nil, err
		}
		s.handler = idp.NewCommandHandler(idp.WithCommands(cmds), idp.WithCommandLogger(logger))
	}

	if reuse {
		return vault.LoadOrAuthenticate(ctx, cfg.Key(), s.authenticate)
	}
	return s.authenticate(ctx)
}

// mockServer loads a script and binds its listener.
func mockServer(path, addr string, logger *slog.Logger) (net.Listener, *http.Server, error) {
	script, err := httpAdapter.LoadScriptFile(path)
	if err != nil {
		return nil, nil, err
	}
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	srv := httpAdapter.NewServer(script,
		httpAdapter.WithVersion(davinci.Version),
		httpAdapter.WithServerLogger(logger),
	)
	return ln, &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: 5 * time.Second}, nil
}

// serve runs srv on ln until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = srv.Close()
		return fmt.Errorf("graceful shutdown did not complete: %w", err)
	}
	return nil
}

// Serve runs the mock tenant in the foreground until ctx is done.
func Serve(ctx context.Context, scriptPath, addr string, logger *slog.Logger) error {
	ln, srv, err := mockServer(scriptPath, addr, logger)
	if err != nil {
		return err
	}
	logger.Info("mock tenant listening", "addr", "http://"+ln.Addr().String())
	return serve(ctx, srv, ln)
}
