// Package auth establishes sessions and resolves bearer tokens to identities.
//
// Token handling sits behind IdentityProvider; exactly one implementation is
// selected at start-up from configuration.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/petite-maison/internal/config"
	"github.com/vasiliy-maslov/petite-maison/internal/user"
)

var (
	ErrInvalidToken     = errors.New("invalid or expired token")
	ErrSessionRevoked   = errors.New("refresh session revoked or unknown")
	ErrUnknownProvider  = errors.New("unknown identity provider")
	ErrMissingSecret    = errors.New("jwt secret is empty")
	ErrInvalidTokenType = errors.New("invalid token type")
)

// Identity is the authenticated caller attached to a request.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Roles  []user.Role
}

// HasAnyRole reports whether the identity holds at least one of roles.
func (i *Identity) HasAnyRole(roles ...user.Role) bool {
	for _, have := range i.Roles {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// RefreshClaims is what a verified refresh token carries.
type RefreshClaims struct {
	UserID    uuid.UUID
	SessionID string
	ExpiresAt time.Time
}

// IdentityProvider issues and verifies credentials.
type IdentityProvider interface {
	// IssueTokens mints an access/refresh pair. sessionID is embedded in the
	// refresh token so it can be revoked.
	IssueTokens(u *user.User, sessionID string) (TokenPair, error)
	VerifyAccess(token string) (*Identity, error)
	VerifyRefresh(token string) (*RefreshClaims, error)
	RefreshTTL() time.Duration
}

// NewProvider returns the provider named by cfg.Provider.
func NewProvider(cfg config.AuthConfig) (IdentityProvider, error) {
	switch cfg.Provider {
	case "", "local":
		return NewJWTProvider(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

type ctxKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IdentityFrom returns the identity stored by WithIdentity, or nil.
func IdentityFrom(ctx context.Context) *Identity {
	id, _ := ctx.Value(ctxKey{}).(*Identity)
	return id
}
