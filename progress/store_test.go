package progress

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"morakib/core"
	"morakib/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newLocalStore(t *testing.T) *LocalStore {
	t.Helper()
	ls, err := NewLocalStore(t.TempDir(), zap.NewNop().Sugar())
	require.NoError(t, err)
	return ls
}

func newRemoteStore(t *testing.T) (*RemoteStore, string) {
	t.Helper()
	logger := zap.NewNop().Sugar()
	db, err := storage.NewSQLite(filepath.Join(t.TempDir(), "progress.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	user := core.NewUser("progress@example.com", "Progress User")
	require.NoError(t, storage.NewSQLiteUserStorage(db, logger).CreateUser(user))

	return NewRemoteStore(storage.NewSQLiteProgressStorage(db, logger)), user.ID
}

func sampleProgress(userID, slug string) *core.SOPProgress {
	p := core.NewSOPProgress(userID, slug)
	p.ChecklistState = core.ChecklistState{"1": {"a": true, "b": false}}
	p.ActiveStep = 2
	p.ElapsedSeconds = 90
	p.Normalize(time.Now().UTC())
	return p
}

func TestLocalStore_RoundTrip(t *testing.T) {
	ls := newLocalStore(t)
	ctx := context.Background()
	key := Key{UserID: "u1", SOPSlug: "phishing-email-response"}

	_, err := ls.Load(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	p := sampleProgress(key.UserID, key.SOPSlug)
	require.NoError(t, ls.Save(ctx, key, p))

	got, err := ls.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ActiveStep)
	assert.Equal(t, 50, got.CompletionPercentage)
	assert.True(t, got.ChecklistState["1"]["a"])

	require.NoError(t, ls.Clear(ctx, key))
	_, err = ls.Load(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	// Clearing an absent entry is not an error.
	assert.NoError(t, ls.Clear(ctx, key))
}

func TestLocalStore_CorruptFileTreatedAsAbsent(t *testing.T) {
	dir := t.TempDir()
	ls, err := NewLocalStore(dir, zap.NewNop().Sugar())
	require.NoError(t, err)
	key := Key{UserID: "u1", SOPSlug: "broken"}

	require.NoError(t, os.WriteFile(ls.path(key), []byte("{not json"), 0644))

	_, err = ls.Load(context.Background(), key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoteStore_RoundTrip(t *testing.T) {
	rs, userID := newRemoteStore(t)
	ctx := context.Background()
	key := Key{UserID: userID, SOPSlug: "ssh-brute-force-triage"}

	_, err := rs.Load(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	p := sampleProgress(key.UserID, key.SOPSlug)
	require.NoError(t, rs.Save(ctx, key, p))

	got, err := rs.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 50, got.CompletionPercentage)

	require.NoError(t, rs.Clear(ctx, key))
	_, err = rs.Load(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}

// failingStore simulates an unreachable server.
type failingStore struct{}

var errUnreachable = errors.New("server unreachable")

func (failingStore) Load(context.Context, Key) (*core.SOPProgress, error) {
	return nil, errUnreachable
}
func (failingStore) Save(context.Context, Key, *core.SOPProgress) error { return errUnreachable }
func (failingStore) Clear(context.Context, Key) error                  { return errUnreachable }

func TestCompositeStore_SaveSurvivesRemoteFailure(t *testing.T) {
	ls := newLocalStore(t)
	cs := NewCompositeStore(ls, failingStore{}, zap.NewNop().Sugar())
	ctx := context.Background()
	key := Key{UserID: "u1", SOPSlug: "offline-work"}

	p := sampleProgress(key.UserID, key.SOPSlug)
	require.NoError(t, cs.Save(ctx, key, p))

	// The remote is down, so the load comes from the cache.
	got, err := cs.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 50, got.CompletionPercentage)
}

func TestCompositeStore_LoadPrefersRemote(t *testing.T) {
	ls := newLocalStore(t)
	rs, userID := newRemoteStore(t)
	cs := NewCompositeStore(ls, rs, zap.NewNop().Sugar())
	ctx := context.Background()
	key := Key{UserID: userID, SOPSlug: "sync-check"}

	stale := core.NewSOPProgress(key.UserID, key.SOPSlug)
	stale.Normalize(time.Now().UTC())
	require.NoError(t, ls.Save(ctx, key, stale))

	fresh := sampleProgress(key.UserID, key.SOPSlug)
	require.NoError(t, rs.Save(ctx, key, fresh))

	got, err := cs.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 50, got.CompletionPercentage)
}

func TestLoadOrNew(t *testing.T) {
	ls := newLocalStore(t)
	ctx := context.Background()
	key := Key{UserID: "u9", SOPSlug: "never-started"}

	p, err := LoadOrNew(ctx, ls, key)
	require.NoError(t, err)
	assert.Equal(t, key.UserID, p.UserID)
	assert.Equal(t, key.SOPSlug, p.SOPSlug)
	assert.Equal(t, 1, p.ActiveStep)
	assert.Empty(t, p.ChecklistState)
	assert.False(t, p.Completed)
}
