package auth

import (
	"github.com/goliatone/go-errors"
)

// Authentication failures. Every one of these surfaces as 401 at the HTTP
// boundary; the text code is the only distinction we keep, mostly for logs.
var (
	// ErrNoSessionCredentials is returned when a request carries neither an
	// access token nor a renewal token.
	ErrNoSessionCredentials = errors.New("no access or renewal token provided", errors.CategoryAuth).
				WithCode(errors.CodeUnauthorized).
				WithTextCode("NO_SESSION")

	// ErrTokenExpired is returned for a token past its expiry.
	ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
			WithCode(errors.CodeUnauthorized).
			WithTextCode("TOKEN_EXPIRED")

	// ErrTokenMalformed is returned for tokens that fail to parse or whose
	// signature does not verify.
	ErrTokenMalformed = errors.New("token is malformed or has an invalid signature", errors.CategoryAuth).
				WithCode(errors.CodeUnauthorized).
				WithTextCode("TOKEN_MALFORMED")

	// ErrInvalidRenewalToken ends the session: the renewal token is expired,
	// forged, or no longer matches the credential stored on the identity.
	ErrInvalidRenewalToken = errors.New("invalid renewal token", errors.CategoryAuth).
				WithCode(errors.CodeUnauthorized).
				WithTextCode("INVALID_RENEWAL")

	// ErrIdentityNotFound is returned when a credential references an
	// identity that no longer exists. Deliberately indistinguishable from a
	// bad token to callers.
	ErrIdentityNotFound = errors.New("identity not found", errors.CategoryAuth).
				WithCode(errors.CodeUnauthorized).
				WithTextCode("IDENTITY_NOT_FOUND")

	// ErrMismatchedHashAndPassword is the generic bad-credentials error.
	ErrMismatchedHashAndPassword = errors.New("invalid credentials", errors.CategoryAuth).
					WithCode(errors.CodeUnauthorized).
					WithTextCode("INVALID_CREDENTIALS")

	// ErrNotAuthenticated is returned by the role gate when no session was
	// attached to the request context at all.
	ErrNotAuthenticated = errors.New("request is not authenticated", errors.CategoryAuth).
				WithCode(errors.CodeUnauthorized).
				WithTextCode("NOT_AUTHENTICATED")
)

// ErrInsufficientRole is the only Forbidden outcome: a valid identity whose
// role does not satisfy the route's requirement.
var ErrInsufficientRole = errors.New("insufficient role", errors.CategoryAuthz).
	WithCode(errors.CodeForbidden).
	WithTextCode("INSUFFICIENT_ROLE")

// ErrNoEmptyString rejects empty passwords before hashing.
var ErrNoEmptyString = errors.New("value must not be empty", errors.CategoryValidation).
	WithTextCode("EMPTY_STRING")

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	return hasTextCode(err, "TOKEN_EXPIRED")
}

// IsMalformedError will check for unparseable or forged tokens
func IsMalformedError(err error) bool {
	return hasTextCode(err, "TOKEN_MALFORMED")
}

// IsUnauthenticatedError reports whether err collapses to the 401 outcome.
func IsUnauthenticatedError(err error) bool {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	return richErr.Category == errors.CategoryAuth
}

func hasTextCode(err error, code string) bool {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}
