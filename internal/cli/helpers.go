package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aretw0/davinci/internal/logging"
	"github.com/aretw0/davinci/internal/presentation/tui"
	"github.com/aretw0/davinci/pkg/domain"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	start  sync.Once
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// Unlike signal.NotifyContext it remembers the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	sc.start.Do(func() {
		signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-sc.sigCh:
				sc.mu.Lock()
				sc.sigVal = sig
				sc.mu.Unlock()
				sc.Cancel()
			case <-sc.Context.Done():
			}
			sc.stop.Do(func() {
				signal.Stop(sc.sigCh)
			})
		}()
	})

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// createLogger configures the application logger. Without --debug only
// warnings and above reach stderr so the prompt stays readable.
func createLogger(level slog.Level, debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	if level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	return logging.New(level)
}

func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.Debug("Enter Node", "node", e.Kind, "step_id", e.StepID, "name", e.Name)
		},
		OnRequest: func(ctx context.Context, e *domain.RequestEvent) {
			logger.Debug("Request", "method", e.Method, "url", e.URL)
		},
		OnResponse: func(ctx context.Context, e *domain.ResponseEvent) {
			if e.Err != nil {
				logger.Debug("Response (Error)", "url", e.URL, "err", e.Err)
				return
			}
			logger.Debug("Response", "url", e.URL, "status", e.Status, "duration", e.Duration)
		},
	}
}

func isInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, tui.ErrNoInput)
}

func handleExecutionError(err error) error {
	if err == nil || isInterrupted(err) {
		return nil
	}
	return err
}

func logCompletion(p *tui.Prompter, err error, sig os.Signal) {
	switch {
	case err == nil:
		return
	case sig == os.Interrupt:
		fmt.Println("[CTRL+C]")
		p.Info("Interrupted.")
	case sig != nil:
		p.Info("Terminated.")
	case isInterrupted(err):
		p.Info("Input closed.")
	}
}
