package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/davinci/pkg/domain"
)

type nopStore struct{}

func (nopStore) Save(ctx context.Context, key string, user *domain.User) error { return nil }
func (nopStore) Load(ctx context.Context, key string) (*domain.User, error)    { return nil, nil }
func (nopStore) Delete(ctx context.Context, key string) error                  { return nil }
func (nopStore) List(ctx context.Context) ([]string, error)                    { return nil, nil }

func TestVault_LockLifecycle(t *testing.T) {
	v := NewVault(nopStore{})
	ctx := context.Background()

	for i := 0; i < 10000; i++ {
		key := fmt.Sprintf("tenant-%d", i)
		_ = v.Save(ctx, key, &domain.User{})
		_ = v.Delete(ctx, key)
	}

	if n := len(v.locks); n != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after Delete", n)
	}
}
