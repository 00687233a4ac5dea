package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the claim set embedded in both credentials of a pair:
// the minimal {id, email, role} triple plus the registered claims.
type SessionClaims struct {
	jwt.RegisteredClaims
	UID       string `json:"uid,omitempty"`
	UserEmail string `json:"email,omitempty"`
	UserRole  string `json:"role,omitempty"`
}

var _ jwt.Claims = (*SessionClaims)(nil)

// UserID returns the user ID
func (c *SessionClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// Email returns the email claim
func (c *SessionClaims) Email() string {
	return c.UserEmail
}

// Role returns the role claim
func (c *SessionClaims) Role() string {
	return c.UserRole
}

// Expires returns the expiration time
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// Session is the resolved identity attached to an authenticated request.
// It is rebuilt from the directory record on every request, never persisted.
type Session struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role"`
}

// HasRole checks for an exact role match
func (s *Session) HasRole(role UserRole) bool {
	return s != nil && s.Role == role
}

// IsAdmin reports whether the session belongs to an administrator
func (s *Session) IsAdmin() bool {
	return s.HasRole(RoleAdmin)
}

// sessionFromIdentity builds the request context claim set from the stored
// record, so a rotated token always reflects current directory state.
func sessionFromIdentity(identity Identity) *Session {
	return &Session{
		UserID: identity.ID(),
		Email:  identity.Email(),
		Role:   NormalizeRole(identity.Role()),
	}
}
