package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/davinci/internal/logging"
	"github.com/aretw0/davinci/pkg/domain"
	"github.com/aretw0/davinci/pkg/ports"
)

const defaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Vault serializes access to stored user handles, so that two workflows
// authenticating for the same key never interleave their writes. It uses
// reference counting to garbage collect unused locks.
//
// Vault implements ports.TokenStore and can be handed to a workflow in place
// of the raw store.
type Vault struct {
	store ports.TokenStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Vault.
type Option func(*Vault)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(v *Vault) {
		v.locker = locker
	}
}

// WithLockTTL sets how long a distributed lock may be held.
func WithLockTTL(ttl time.Duration) Option {
	return func(v *Vault) {
		v.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Vault.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Vault) {
		v.logger = logger
	}
}

// NewVault wraps store.
func NewVault(store ports.TokenStore, opts ...Option) *Vault {
	v := &Vault{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: defaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(key) after unlocking.
func (v *Vault) acquire(key string) *lockEntry {
	v.mu.Lock()
	defer v.mu.Unlock()

	entry, exists := v.locks[key]
	if !exists {
		entry = &lockEntry{}
		v.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (v *Vault) release(key string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	entry, exists := v.locks[key]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(v.locks, key)
	}
}

// Load retrieves a user.
func (v *Vault) Load(ctx context.Context, key string) (*domain.User, error) {
	var user *domain.User
	err := v.WithLock(ctx, key, func(ctx context.Context) error {
		var err error
		user, err = v.store.Load(ctx, key)
		return err
	})
	return user, err
}

// LoadOrAuthenticate returns the stored user for key. When none exists it
// runs authenticate under the lock and stores its result, so concurrent
// callers authenticate only once.
func (v *Vault) LoadOrAuthenticate(ctx context.Context, key string, authenticate func(context.Context) (*domain.User, error)) (*domain.User, error) {
	var user *domain.User
	err := v.WithLock(ctx, key, func(ctx context.Context) error {
		var err error
		user, err = v.store.Load(ctx, key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("failed to check stored user: %w", err)
		}

		user, err = authenticate(ctx)
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("authentication for %q produced no user", key)
		}
		if err := v.store.Save(ctx, key, user); err != nil {
			return fmt.Errorf("failed to store user: %w", err)
		}
		return nil
	})
	return user, err
}

// Save persists a user.
func (v *Vault) Save(ctx context.Context, key string, user *domain.User) error {
	return v.WithLock(ctx, key, func(ctx context.Context) error {
		return v.store.Save(ctx, key, user)
	})
}

// Delete removes a user.
func (v *Vault) Delete(ctx context.Context, key string) error {
	return v.WithLock(ctx, key, func(ctx context.Context) error {
		return v.store.Delete(ctx, key)
	})
}

// List delegates to the store.
func (v *Vault) List(ctx context.Context) ([]string, error) {
	return v.store.List(ctx)
}

// Store returns the underlying token store.
func (v *Vault) Store() ports.TokenStore {
	return v.store
}

// WithLock executes fn while holding the lock for key.
func (v *Vault) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	entry := v.acquire(key)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		v.release(key)
	}()

	if v.locker != nil {
		unlock, err := v.locker.Lock(ctx, key, v.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				v.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"key", key,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
