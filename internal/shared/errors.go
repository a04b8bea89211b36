package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenInvalid occurs when a bearer or refresh token cannot be verified.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired occurs when a refresh token is no longer stored.
	ErrTokenExpired = errors.New("token expired")
)
