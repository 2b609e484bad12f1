package secrets

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFileStore opens a store backed by the encrypted-file backend in a
// temporary directory, so tests never touch the system keyring.
func newFileStore(t *testing.T) *keyringStore {
	t.Helper()

	store, err := NewStore(Config{
		FileDir:      t.TempDir(),
		FilePassword: keyring.FixedStringPrompt("test-password"),
		Backends:     []keyring.BackendType{keyring.FileBackend},
	})
	require.NoError(t, err)
	return store
}

func TestNewStore(t *testing.T) {
	store := newFileStore(t)
	require.NotNil(t, store)
}

func TestStore_SetGet(t *testing.T) {
	t.Run("round-trips a secret", func(t *testing.T) {
		store := newFileStore(t)

		require.NoError(t, store.Set(PasswordKey("web-01"), "hunter2"))

		got, err := store.Get(PasswordKey("web-01"))
		require.NoError(t, err)
		assert.Equal(t, "hunter2", got)
	})

	t.Run("overwrites an existing secret", func(t *testing.T) {
		store := newFileStore(t)

		require.NoError(t, store.Set("password/web-01", "old"))
		require.NoError(t, store.Set("password/web-01", "new"))

		got, err := store.Get("password/web-01")
		require.NoError(t, err)
		assert.Equal(t, "new", got)
	})

	t.Run("returns ErrNotFound for a missing secret", func(t *testing.T) {
		store := newFileStore(t)

		_, err := store.Get("password/nonexistent")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_Delete(t *testing.T) {
	t.Run("removes an existing secret", func(t *testing.T) {
		store := newFileStore(t)

		require.NoError(t, store.Set("password/web-01", "hunter2"))
		require.NoError(t, store.Delete("password/web-01"))

		_, err := store.Get("password/web-01")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("tolerates a missing secret", func(t *testing.T) {
		store := newFileStore(t)

		assert.NoError(t, store.Delete("password/nonexistent"))
	})
}

func TestStore_Keys(t *testing.T) {
	store := newFileStore(t)

	require.NoError(t, store.Set("password/web-02", "b"))
	require.NoError(t, store.Set("password/web-01", "a"))
	require.NoError(t, store.Set("passphrase/db-01", "c"))

	keys, err := store.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"passphrase/db-01", "password/web-01", "password/web-02"}, keys)
}

func TestKeyConventions(t *testing.T) {
	assert.Equal(t, "password/web-01", PasswordKey("web-01"))
	assert.Equal(t, "passphrase/web-01", PassphraseKey("web-01"))
}
