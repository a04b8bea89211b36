package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ledgerline/ledgerline/internal/shared"
)

// TokenManager issues and verifies short-lived bearer tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager constructs a TokenManager.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed access token for the user.
func (m *TokenManager) Issue(userID int64) (string, error) {
	now := m.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify parses a token and returns the embedded user id.
func (m *TokenManager) Verify(raw string) (int64, error) {
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, shared.ErrTokenInvalid
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return 0, shared.ErrTokenInvalid
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, shared.ErrTokenInvalid
	}
	return id, nil
}

// RefreshStore keeps opaque refresh tokens in redis with a TTL. Tokens are
// single use: Redeem removes the key so a stolen token cannot be replayed.
type RefreshStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRefreshStore constructs a RefreshStore.
func NewRefreshStore(client *redis.Client, ttl time.Duration) *RefreshStore {
	return &RefreshStore{client: client, ttl: ttl}
}

func (s *RefreshStore) key(token string) string {
	return "refresh:" + token
}

// Issue stores a fresh refresh token for the user.
func (s *RefreshStore) Issue(ctx context.Context, userID int64) (string, error) {
	token := uuid.NewString()
	if err := s.client.Set(ctx, s.key(token), strconv.FormatInt(userID, 10), s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Redeem consumes a refresh token and returns the user it belongs to.
func (s *RefreshStore) Redeem(ctx context.Context, token string) (int64, error) {
	raw, err := s.client.GetDel(ctx, s.key(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, shared.ErrTokenExpired
		}
		return 0, err
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, shared.ErrTokenInvalid
	}
	return id, nil
}

// Revoke deletes a refresh token, used on logout.
func (s *RefreshStore) Revoke(ctx context.Context, token string) error {
	err := s.client.Del(ctx, s.key(token)).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
