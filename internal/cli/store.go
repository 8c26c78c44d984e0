package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/davinci/internal/config"
	sessionpkg "github.com/aretw0/davinci/pkg/session"
)

// Vault opens the configured token store. The caller must call the returned
// close func.
func Vault(opts RunOptions, logger *slog.Logger) (*sessionpkg.Vault, config.Config, func() error, error) {
	cfg, err := config.Load(opts.ConfigPath, opts.overrides()...)
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	v, closeFn, err := createVault(cfg, logger)
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	return v, cfg, closeFn, nil
}

// Logout signs the configured user off and forgets it.
func Logout(ctx context.Context, opts RunOptions, logger *slog.Logger) error {
	v, cfg, closeFn, err := Vault(opts, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	wf, err := createWorkflow(cfg, v.Store(), logger)
	if err != nil {
		return err
	}
	return wf.Logout(ctx)
}

// ListUsers writes the stored user keys, one per line.
func ListUsers(ctx context.Context, v *sessionpkg.Vault, w io.Writer) error {
	keys, err := v.List(ctx)
	if err != nil {
		return fmt.Errorf("error listing users: %w", err)
	}
	if len(keys) == 0 {
		fmt.Fprintln(w, "No stored users found.")
		return nil
	}
	for _, k := range keys {
		fmt.Fprintln(w, "- "+k)
	}
	return nil
}

// InspectUser writes a stored user as JSON with its token redacted.
func InspectUser(ctx context.Context, v *sessionpkg.Vault, key string, w io.Writer) error {
	u, err := v.Load(ctx, key)
	if err != nil {
		return fmt.Errorf("error loading user %q: %w", key, err)
	}
	if len(u.Token) > 8 {
		u.Token = u.Token[:4] + "…" + u.Token[len(u.Token)-4:]
	} else if u.Token != "" {
		u.Token = "…"
	}
	u.IDToken = ""
	u.Raw = nil

	data, err := json.MarshalIndent(u, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}
