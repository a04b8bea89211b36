package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/ledgerline/ledgerline/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo    Repository
	tokens  *TokenManager
	refresh *RefreshStore
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenManager, refresh *RefreshStore) *Service {
	return &Service{repo: repo, tokens: tokens, refresh: refresh}
}

// TokenPair carries a signed access token and its refresh counterpart.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, email, password string) (*User, *TokenPair, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}
	pair, err := s.issuePair(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh rotates a refresh token into a new token pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	userID, err := s.refresh.Redeem(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil || !user.IsActive {
		return nil, shared.ErrTokenInvalid
	}
	return s.issuePair(ctx, userID)
}

// Logout revokes the refresh token.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.refresh.Revoke(ctx, refreshToken)
}

func (s *Service) issuePair(ctx context.Context, userID int64) (*TokenPair, error) {
	access, err := s.tokens.Issue(userID)
	if err != nil {
		return nil, err
	}
	refresh, err := s.refresh.Issue(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
