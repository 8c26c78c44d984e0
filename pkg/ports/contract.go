package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/davinci/pkg/domain"
)

// RunTokenStoreContract runs a suite of tests to verify that a TokenStore
// implementation adheres to the interface contract.
func RunTokenStoreContract(t *testing.T, store TokenStore) {
	ctx := context.Background()
	key := "contract-test-" + time.Now().Format("20060102150405")

	newUser := func(token string) *domain.User {
		return &domain.User{
			Token:     token,
			TokenType: domain.TokenSession,
			SessionID: token,
			Subject:   "user-1",
			IssuedAt:  time.Now().UTC().Truncate(time.Second),
			Raw:       []byte(`{"session":{"id":"` + token + `"}}`),
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		user := newUser("tok-1")
		require.NoError(t, store.Save(ctx, key, user), "Save should not return error")

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, user.Token, loaded.Token)
		assert.Equal(t, user.TokenType, loaded.TokenType)
		assert.Equal(t, user.Subject, loaded.Subject)
		assert.True(t, user.IssuedAt.Equal(loaded.IssuedAt))
		assert.JSONEq(t, string(user.Raw), string(loaded.Raw))
	})

	t.Run("Save Replaces", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, key, newUser("tok-2")))
		loaded, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "tok-2", loaded.Token)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+key)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, key, newUser("tok-3")))
		require.NoError(t, store.Delete(ctx, key), "Delete should not return error")

		_, err := store.Load(ctx, key)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, key), "Delete of a missing key is not an error")
	})

	t.Run("List", func(t *testing.T) {
		k1, k2 := key+"-1", key+"-2"
		require.NoError(t, store.Save(ctx, k1, newUser("a")))
		require.NoError(t, store.Save(ctx, k2, newUser("b")))
		defer func() {
			_ = store.Delete(ctx, k1)
			_ = store.Delete(ctx, k2)
		}()

		keys, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, k1)
		assert.Contains(t, keys, k2)
	})
}
