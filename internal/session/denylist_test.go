package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ummahbook-server/internal/repository/repotest"
)

func TestStoreDenyList(t *testing.T) {
	ctx := context.Background()
	list := NewStoreDenyList(repotest.NewRevocationRepository(), 100, time.Hour)
	defer list.Close()

	revoked, err := list.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, list.Revoke(ctx, "jti-1", time.Minute))

	revoked, err = list.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = list.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestStoreDenyListIgnoresExpired(t *testing.T) {
	ctx := context.Background()
	store := repotest.NewRevocationRepository()
	list := NewStoreDenyList(store, 100, time.Hour)
	defer list.Close()

	require.NoError(t, list.Revoke(ctx, "already-expired", 0))
	require.NoError(t, list.Revoke(ctx, "", time.Minute))
	require.NoError(t, list.Revoke(ctx, "short", 20*time.Millisecond))
	assert.Equal(t, 1, store.Count())

	revoked, _ := list.IsRevoked(ctx, "already-expired")
	assert.False(t, revoked)
	revoked, _ = list.IsRevoked(ctx, "")
	assert.False(t, revoked)

	revoked, _ = list.IsRevoked(ctx, "short")
	assert.True(t, revoked)

	assert.Eventually(t, func() bool {
		revoked, _ := list.IsRevoked(ctx, "short")
		return !revoked
	}, time.Second, 10*time.Millisecond)
}

func TestStoreDenyListSurvivesCacheEviction(t *testing.T) {
	ctx := context.Background()
	store := repotest.NewRevocationRepository()
	list := NewStoreDenyList(store, 2, time.Hour)
	defer list.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, list.Revoke(ctx, fmt.Sprintf("jti%d", i), time.Hour))
	}

	for i := 0; i < 5; i++ {
		revoked, err := list.IsRevoked(ctx, fmt.Sprintf("jti%d", i))
		require.NoError(t, err)
		assert.True(t, revoked, "jti%d", i)
	}
}

func TestStoreDenyListFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	store := repotest.NewRevocationRepository()
	require.NoError(t, store.Revoke(ctx, "other-instance", time.Now().Add(time.Hour)))
	require.NoError(t, store.Revoke(ctx, "stale", time.Now().Add(-time.Minute)))

	list := NewStoreDenyList(store, 10, time.Hour)
	defer list.Close()

	revoked, err := list.IsRevoked(ctx, "other-instance")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = list.IsRevoked(ctx, "stale")
	require.NoError(t, err)
	assert.False(t, revoked)

	lookups := store.Lookups
	revoked, err = list.IsRevoked(ctx, "other-instance")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Equal(t, lookups, store.Lookups, "positive answers are served from cache")
}

func TestStoreDenyListStoreErrors(t *testing.T) {
	ctx := context.Background()
	store := repotest.NewRevocationRepository()
	store.Err = errors.New("couchdb down")
	list := NewStoreDenyList(store, 10, time.Hour)
	defer list.Close()

	assert.Error(t, list.Revoke(ctx, "jti-1", time.Minute))

	revoked, err := list.IsRevoked(ctx, "jti-1")
	assert.Error(t, err)
	assert.False(t, revoked)
}
