package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ledgerline/ledgerline/internal/shared"
)

type memoryUserRepo struct {
	byEmail map[string]*User
	byID    map[int64]*User
}

func newMemoryUserRepo(users ...*User) *memoryUserRepo {
	repo := &memoryUserRepo{byEmail: make(map[string]*User), byID: make(map[int64]*User)}
	for _, u := range users {
		repo.byEmail[u.Email] = u
		repo.byID[u.ID] = u
	}
	return repo
}

func (r *memoryUserRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	if u, ok := r.byEmail[email]; ok {
		return u, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memoryUserRepo) FindByID(ctx context.Context, id int64) (*User, error) {
	if u, ok := r.byID[id]; ok {
		return u, nil
	}
	return nil, shared.ErrNotFound
}

func newTestService(t *testing.T, users ...*User) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewService(
		newMemoryUserRepo(users...),
		NewTokenManager("test-secret", time.Minute),
		NewRefreshStore(client, time.Hour),
	)
}

func testUser(t *testing.T, id int64, email, password string, active bool) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &User{ID: id, Email: email, PasswordHash: string(hash), IsActive: active}
}

func TestLoginIssuesTokenPair(t *testing.T) {
	user := testUser(t, 1, "pat@example.com", "correct horse", true)
	service := newTestService(t, user)

	got, pair, err := service.Login(context.Background(), "pat@example.com", "correct horse")
	require.NoError(t, err)
	require.Equal(t, int64(1), got.ID)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	service := newTestService(t, testUser(t, 1, "pat@example.com", "correct horse", true))

	_, _, err := service.Login(context.Background(), "pat@example.com", "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	service := newTestService(t, testUser(t, 1, "pat@example.com", "correct horse", false))

	_, _, err := service.Login(context.Background(), "pat@example.com", "correct horse")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestRefreshRotatesToken(t *testing.T) {
	user := testUser(t, 1, "pat@example.com", "correct horse", true)
	service := newTestService(t, user)
	ctx := context.Background()

	_, pair, err := service.Login(ctx, "pat@example.com", "correct horse")
	require.NoError(t, err)

	next, err := service.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	// The redeemed token is gone.
	_, err = service.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, shared.ErrTokenExpired)
}
