package kvstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeUnderTest runs the Store contract against any implementation.
func storeUnderTest(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("get absent key", func(t *testing.T) {
		_, err := store.Get(ctx, "absent")
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "cart", []byte(`[{"id":1}]`)))
		value, err := store.Get(ctx, "cart")
		require.NoError(t, err)
		assert.Equal(t, []byte(`[{"id":1}]`), value)
	})

	t.Run("set replaces whole value", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "cart", []byte("first")))
		require.NoError(t, store.Set(ctx, "cart", []byte("second")))
		value, err := store.Get(ctx, "cart")
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), value)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "doomed", []byte("x")))
		require.NoError(t, store.Delete(ctx, "doomed"))
		_, err := store.Get(ctx, "doomed")
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("delete absent key is not an error", func(t *testing.T) {
		assert.NoError(t, store.Delete(ctx, "never-existed"))
	})

	t.Run("empty value round trip", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "empty", nil))
		value, err := store.Get(ctx, "empty")
		require.NoError(t, err)
		assert.Empty(t, value)
	})
}

func TestMemoryStore(t *testing.T) {
	storeUnderTest(t, NewMemoryStore())
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	original := []byte("original")
	require.NoError(t, store.Set(ctx, "k", original))
	original[0] = 'X'

	value, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), value, "stored value must not alias caller memory")

	value[0] = 'Y'
	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), again, "returned value must not alias stored memory")
}

func TestFileStore(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	storeUnderTest(t, store)
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "cart", []byte("persisted")))

	reopened, err := NewFileStore(dir)
	require.NoError(t, err)
	value, err := reopened.Get(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), value)
}

func TestFileStore_UnsafeKeysDoNotEscapeDir(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	for _, key := range []string{"../escape", "a/b", "", ".hidden", `C:\windows`} {
		require.NoError(t, store.Set(ctx, key, []byte(key)), "key %q", key)
		value, err := store.Get(ctx, key)
		require.NoError(t, err, "key %q", key)
		assert.Equal(t, []byte(key), value, "key %q", key)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.Equal(t, filepath.Base(entry.Name()), entry.Name())
	}
	_, err = os.Stat(filepath.Join(filepath.Dir(dir), "escape.json"))
	assert.True(t, os.IsNotExist(err), "key must not write outside the storage dir")
}

func TestFileStore_DistinctUnsafeKeysDoNotCollide(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "a/b", []byte("slash")))
	require.NoError(t, store.Set(ctx, `a\b`, []byte("backslash")))

	v1, err := store.Get(ctx, "a/b")
	require.NoError(t, err)
	v2, err := store.Get(ctx, `a\b`)
	require.NoError(t, err)
	assert.Equal(t, []byte("slash"), v1)
	assert.Equal(t, []byte("backslash"), v2)
}
