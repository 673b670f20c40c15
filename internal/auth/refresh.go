package auth

import (
	"errors"
	"time"
)

var (
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshRevoked       = errors.New("refresh token revoked")
	ErrRefreshExpired       = errors.New("refresh token expired")
	ErrRefreshMismatch      = errors.New("refresh token does not match stored hash")
)

// RefreshToken is the persisted side of a refresh JWT; ID is the token's jti.
type RefreshToken struct {
	ID         string
	UserID     string
	TokenHash  string
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	ReplacedBy *string
	CreatedAt  time.Time
}

// CheckRotatable reports why a stored token may not be exchanged, or nil.
// The hash comparison stops a valid jti being paired with a different token.
func CheckRotatable(row RefreshToken, presentedHash string, now time.Time) error {
	if row.RevokedAt != nil {
		return ErrRefreshRevoked
	}
	if now.After(row.ExpiresAt) {
		return ErrRefreshExpired
	}
	if row.TokenHash != presentedHash {
		return ErrRefreshMismatch
	}
	return nil
}
