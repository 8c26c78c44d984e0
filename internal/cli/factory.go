package cli

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/davinci"
	"github.com/aretw0/davinci/internal/config"
	"github.com/aretw0/davinci/pkg/adapters/file"
	"github.com/aretw0/davinci/pkg/adapters/memory"
	"github.com/aretw0/davinci/pkg/adapters/redis"
	"github.com/aretw0/davinci/pkg/domain"
	"github.com/aretw0/davinci/pkg/idp"
	"github.com/aretw0/davinci/pkg/persistence/middleware"
	"github.com/aretw0/davinci/pkg/ports"
	"github.com/aretw0/davinci/pkg/registry"
	sessionpkg "github.com/aretw0/davinci/pkg/session"
)

// createVault builds the token store stack: backend, masking, encryption,
// then the per-key vault. The returned func closes the backend.
func createVault(cfg config.Config, logger *slog.Logger) (*sessionpkg.Vault, func() error, error) {
	var (
		base    ports.TokenStore
		locker  ports.DistributedLocker
		closeFn = func() error { return nil }
	)

	switch cfg.Storage.Driver {
	case config.DriverRedis:
		var opts []redis.Option
		if cfg.Storage.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.Storage.TTL))
		}
		if cfg.Storage.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Storage.Prefix))
		}
		rs := redis.New(cfg.Storage.Addr, cfg.Storage.Password, cfg.Storage.DB, opts...)
		base = rs
		locker = redis.NewLocker(rs.Client(), cfg.Storage.Prefix)
		closeFn = rs.Client().Close
	case config.DriverFile:
		base = file.New(cfg.Storage.Path)
	default:
		base = memory.NewStore()
	}

	var mws []middleware.Middleware
	if len(cfg.Storage.MaskKeys) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(cfg.Storage.MaskKeys))
	}
	active, fallback, err := cfg.Storage.Keys()
	if err != nil {
		return nil, nil, err
	}
	if active != nil {
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		}))
	}

	opts := []sessionpkg.Option{sessionpkg.WithLogger(logger)}
	if locker != nil {
		opts = append(opts, sessionpkg.WithLocker(locker))
	}
	return sessionpkg.NewVault(middleware.Chain(base, mws...), opts...), closeFn, nil
}

// createWorkflow initializes a workflow with standard CLI conventions: the
// social login collector is registered and the vault's store persists users.
func createWorkflow(cfg config.Config, store ports.TokenStore, logger *slog.Logger, hooks ...domain.LifecycleHooks) (*davinci.Workflow, error) {
	reg := registry.NewDefault()
	idp.Register(reg)

	opts := []davinci.Option{
		davinci.WithLogger(logger),
		davinci.WithRegistry(reg),
		davinci.WithTokenStore(store),
		davinci.WithUnknownPolicy(cfg.UnknownPolicy()),
	}
	for _, h := range hooks {
		opts = append(opts, davinci.WithLifecycleHooks(h))
	}

	wf, err := davinci.New(cfg.Config, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing workflow: %w", err)
	}
	return wf, nil
}
