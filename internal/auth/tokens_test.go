package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/shared"
)

func TestTokenManagerRoundTrip(t *testing.T) {
	manager := NewTokenManager("test-secret", time.Minute)

	token, err := manager.Issue(42)
	require.NoError(t, err)

	userID, err := manager.Verify(token)
	require.NoError(t, err)
	require.Equal(t, int64(42), userID)
}

func TestTokenManagerRejectsExpired(t *testing.T) {
	manager := NewTokenManager("test-secret", time.Minute)
	manager.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }

	token, err := manager.Issue(42)
	require.NoError(t, err)

	_, err = manager.Verify(token)
	require.ErrorIs(t, err, shared.ErrTokenInvalid)
}

func TestTokenManagerRejectsForeignSecret(t *testing.T) {
	token, err := NewTokenManager("secret-a", time.Minute).Issue(7)
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b", time.Minute).Verify(token)
	require.ErrorIs(t, err, shared.ErrTokenInvalid)
}

func TestRefreshStoreSingleUse(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRefreshStore(client, time.Hour)
	ctx := context.Background()

	token, err := store.Issue(ctx, 42)
	require.NoError(t, err)

	userID, err := store.Redeem(ctx, token)
	require.NoError(t, err)
	require.Equal(t, int64(42), userID)

	_, err = store.Redeem(ctx, token)
	require.ErrorIs(t, err, shared.ErrTokenExpired)
}

func TestRefreshStoreExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRefreshStore(client, time.Minute)
	ctx := context.Background()

	token, err := store.Issue(ctx, 7)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = store.Redeem(ctx, token)
	require.ErrorIs(t, err, shared.ErrTokenExpired)
}
