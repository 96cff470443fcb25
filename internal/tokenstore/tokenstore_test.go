package tokenstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	return New(filepath.Join(t.TempDir(), "tokens.json"), nil)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	in := &TokenSet{
		AccessToken:  "access-abc",
		RefreshToken: "refresh-xyz",
		ExpiresAt:    expiry,
		TokenType:    "Bearer",
	}

	require.NoError(t, store.Save(in))

	out := store.Load()
	require.NotNil(t, out)

	assert.Equal(t, in.AccessToken, out.AccessToken)
	assert.Equal(t, in.RefreshToken, out.RefreshToken)
	assert.True(t, in.ExpiresAt.Equal(out.ExpiresAt))
	assert.Equal(t, "Bearer", out.TokenType)
	assert.False(t, out.SavedAt.IsZero(), "Save stamps SavedAt")
}

func TestSaveRestrictsPermissions(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save(&TokenSet{AccessToken: "x"}))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FilePerms), info.Mode().Perm())
}

func TestSaveCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "tokens.json")
	store := New(path, nil)

	require.NoError(t, store.Save(&TokenSet{AccessToken: "x"}))
	require.NotNil(t, store.Load())
}

func TestLoadMissingFile(t *testing.T) {
	store := newTestStore(t)

	assert.Nil(t, store.Load())
}

func TestLoadCorruptFile(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), FilePerms))
	assert.Nil(t, store.Load())
}

func TestClear(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save(&TokenSet{AccessToken: "x"}))
	require.NoError(t, store.Clear())
	assert.Nil(t, store.Load())

	// Clearing again is not an error.
	assert.NoError(t, store.Clear())
}

func TestWatchSeesExternalWrite(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(&TokenSet{AccessToken: "first"}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := store.Watch(ctx)
	require.NoError(t, err)

	// Simulate the companion auth server writing fresh tokens.
	go func() {
		time.Sleep(50 * time.Millisecond)

		other := New(store.Path(), nil)
		_ = other.Save(&TokenSet{AccessToken: "second"})
	}()

	select {
	case _, ok := <-events:
		require.True(t, ok, "watch channel closed before delivering an event")
	case <-ctx.Done():
		t.Fatal("no watch event before timeout")
	}

	loaded := store.Load()
	require.NotNil(t, loaded)
	assert.Equal(t, "second", loaded.AccessToken)
}

func TestWatchClosesOnContextCancel(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(&TokenSet{AccessToken: "x"}))

	ctx, cancel := context.WithCancel(context.Background())

	events, err := store.Watch(ctx)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-events:
		assert.False(t, ok, "channel should close after cancel")
	case <-time.After(5 * time.Second):
		t.Fatal("watch channel did not close")
	}
}
