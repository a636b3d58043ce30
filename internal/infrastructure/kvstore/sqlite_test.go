package kvstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/heatmap-portal/internal/testutil"
)

func openTestStore(t *testing.T, path, origin string) *Store {
	t.Helper()
	s, err := Open(path, origin, testutil.NewLogger(), testutil.NewMetrics())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSetGetRemove(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "kv.db"), "portal")
	ctx := context.Background()

	_, found, err := s.Get(ctx, "access_token")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "access_token", "tok-123"))
	v, found, err := s.Get(ctx, "access_token")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "tok-123", v)

	require.NoError(t, s.Remove(ctx, "access_token"))
	_, found, err = s.Get(ctx, "access_token")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSetOverwrites(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "kv.db"), "portal")
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "guest_mode", "true"))
	require.NoError(t, s.Set(ctx, "guest_mode", "false"))

	v, found, err := s.Get(ctx, "guest_mode")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "false", v)
}

func TestRemoveAbsentKeyIsNotAnError(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "kv.db"), "portal")

	assert.NoError(t, s.Remove(context.Background(), "missing"))
}

func TestValuesSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	ctx := context.Background()

	first := openTestStore(t, path, "portal")
	require.NoError(t, first.Set(ctx, "user_info", `{"username":"zhang.wei"}`))
	require.NoError(t, first.Close())

	second := openTestStore(t, path, "portal")
	v, found, err := second.Get(ctx, "user_info")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Contains(t, v, "zhang.wei")
}

func TestOriginsAreIsolated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	ctx := context.Background()

	a := openTestStore(t, path, "portal-a")
	b := openTestStore(t, path, "portal-b")

	require.NoError(t, a.Set(ctx, "access_token", "tok-a"))

	_, found, err := b.Get(ctx, "access_token")
	require.NoError(t, err)
	assert.False(t, found)
}
