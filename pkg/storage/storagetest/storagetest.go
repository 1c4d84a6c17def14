// Package storagetest checks a storage.Storage implementation against the shared contract.
package storagetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klwxsrx/go-auth-client/pkg/storage"
)

func Run(t *testing.T, newStorage func(t *testing.T) storage.Storage) {
	t.Helper()

	t.Run("get_absent_key_returns_not_found", func(t *testing.T) {
		s := newStorage(t)
		_, err := s.Get(context.Background(), "absent")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("get_returns_last_set_value", func(t *testing.T) {
		ctx := context.Background()
		s := newStorage(t)

		require.NoError(t, s.Set(ctx, "token", []byte(`{"access_token":"first"}`)))
		require.NoError(t, s.Set(ctx, "token", []byte(`{"access_token":"second"}`)))

		value, err := s.Get(ctx, "token")
		require.NoError(t, err)
		assert.JSONEq(t, `{"access_token":"second"}`, string(value))
	})

	t.Run("keys_are_independent", func(t *testing.T) {
		ctx := context.Background()
		s := newStorage(t)

		require.NoError(t, s.Set(ctx, "token", []byte(`"t"`)))
		require.NoError(t, s.Set(ctx, "user", []byte(`"u"`)))
		require.NoError(t, s.Delete(ctx, "token"))

		_, err := s.Get(ctx, "token")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		value, err := s.Get(ctx, "user")
		require.NoError(t, err)
		assert.Equal(t, `"u"`, string(value))
	})

	t.Run("delete_is_idempotent", func(t *testing.T) {
		ctx := context.Background()
		s := newStorage(t)

		assert.NoError(t, s.Delete(ctx, "absent"))
		require.NoError(t, s.Set(ctx, "user", []byte(`{}`)))
		assert.NoError(t, s.Delete(ctx, "user"))
		assert.NoError(t, s.Delete(ctx, "user"))

		_, err := s.Get(ctx, "user")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("stored_value_is_not_aliased", func(t *testing.T) {
		ctx := context.Background()
		s := newStorage(t)

		value := []byte(`"abc"`)
		require.NoError(t, s.Set(ctx, "user", value))
		value[1] = 'x'

		stored, err := s.Get(ctx, "user")
		require.NoError(t, err)
		assert.Equal(t, `"abc"`, string(stored))
	})
}
