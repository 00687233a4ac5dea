package auth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated subject
type Identity interface {
	ID() string
	Email() string
	Role() string
	RenewalCredential() string
}

// Directory is the user store the authenticator consumes. Role
// normalization happens behind this interface: identities returned from
// the read path always carry a concrete role.
type Directory interface {
	FindIdentityByID(ctx context.Context, id string) (Identity, error)
	FindIdentityByEmail(ctx context.Context, email string) (Identity, error)
	VerifyIdentity(ctx context.Context, email, password string) (Identity, error)
	StoreRenewalCredential(ctx context.Context, id string, credential *string) error
}

// TokenPair is one issued credential pair. The access token is stateless;
// the renewal token is also persisted against the identity so logout can
// invalidate it.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RenewalToken     string    `json:"renewal_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RenewalExpiresAt time.Time `json:"renewal_expires_at"`
}

// TokenService issues and verifies credential pairs
type TokenService interface {
	IssuePair(identity Identity) (*TokenPair, error)
	VerifyAccess(raw string) (*SessionClaims, error)
	VerifyRenewal(raw string) (*SessionClaims, error)
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Login(ctx context.Context, email, password string) (Identity, *TokenPair, error)
	Authenticate(ctx context.Context, accessRaw, renewalRaw string) (*Session, *TokenPair, error)
	Refresh(ctx context.Context, id string) (*Session, *TokenPair, error)
	Logout(ctx context.Context, id string) error
}

// Config holds auth options
type Config interface {
	GetAccessSigningKey() string
	GetRenewalSigningKey() string
	GetAccessTokenTTL() time.Duration
	GetRenewalTokenTTL() time.Duration
	GetIssuer() string
	GetAccessCookieName() string
	GetRenewalCookieName() string
	GetCookieSecure() bool
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
