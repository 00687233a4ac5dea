package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
)

// SessionContextKey is the fiber.Ctx locals key holding the resolved session
const SessionContextKey = "session"

// CookieAuthenticator is the HTTP face of the authenticator: it reads the
// credential pair from cookies, runs the authenticate flow, and when a
// silent renewal happens writes the rotated pair back before the handler
// chain runs.
type CookieAuthenticator struct {
	auth         Authenticator
	cfg          Config
	Logger       Logger
	ErrorHandler func(c *fiber.Ctx, err error) error
}

func NewCookieAuthenticator(auther Authenticator, cfg Config) *CookieAuthenticator {
	a := &CookieAuthenticator{
		auth:   auther,
		cfg:    cfg,
		Logger: defLogger{},
	}
	a.ErrorHandler = a.defaultErrHandler
	return a
}

func (a *CookieAuthenticator) WithLogger(l Logger) *CookieAuthenticator {
	a.Logger = l
	return a
}

// Protected authenticates every request passing through it. Requests with
// no resolvable session never reach the next handler.
func (a *CookieAuthenticator) Protected() fiber.Handler {
	return func(c *fiber.Ctx) error {
		accessRaw := c.Cookies(a.cfg.GetAccessCookieName())
		renewalRaw := c.Cookies(a.cfg.GetRenewalCookieName())

		session, rotated, err := a.auth.Authenticate(c.UserContext(), accessRaw, renewalRaw)
		if err != nil {
			return a.ErrorHandler(c, err)
		}

		if rotated != nil {
			a.SetCookiePair(c, rotated)
		}

		c.Locals(SessionContextKey, session)
		c.SetUserContext(WithSession(c.UserContext(), session))

		return c.Next()
	}
}

// RequireRole gates a route behind a role. It distinguishes the two
// failure modes: no session at all is 401, a session with the wrong role
// is 403.
func (a *CookieAuthenticator) RequireRole(role UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, ok := GetRouteSession(c)
		if !ok {
			return a.ErrorHandler(c, ErrNotAuthenticated)
		}

		if !session.HasRole(role) {
			a.Logger.Warn("role gate rejected session", "user_id", session.UserID, "role", session.Role, "required", string(role))
			return a.ErrorHandler(c, ErrInsufficientRole)
		}

		return c.Next()
	}
}

// GetRouteSession finds the session the Protected middleware attached
func GetRouteSession(c *fiber.Ctx) (*Session, bool) {
	session, ok := c.Locals(SessionContextKey).(*Session)
	if !ok || session == nil {
		return nil, false
	}
	return session, true
}

// SetCookiePair writes both credential cookies. They are HTTP only and
// same-site strict so scripts never see them and cross-site requests never
// send them.
func (a *CookieAuthenticator) SetCookiePair(c *fiber.Ctx, pair *TokenPair) {
	c.Cookie(&fiber.Cookie{
		Name:     a.cfg.GetAccessCookieName(),
		Value:    pair.AccessToken,
		Expires:  pair.AccessExpiresAt,
		HTTPOnly: true,
		Secure:   a.cfg.GetCookieSecure(),
		SameSite: fiber.CookieSameSiteStrictMode,
	})

	c.Cookie(&fiber.Cookie{
		Name:     a.cfg.GetRenewalCookieName(),
		Value:    pair.RenewalToken,
		Expires:  pair.RenewalExpiresAt,
		HTTPOnly: true,
		Secure:   a.cfg.GetCookieSecure(),
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

// ClearCookies expires both credential cookies
func (a *CookieAuthenticator) ClearCookies(c *fiber.Ctx) {
	expired := time.Now().Add(-time.Hour)

	for _, name := range []string{a.cfg.GetAccessCookieName(), a.cfg.GetRenewalCookieName()} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			Expires:  expired,
			HTTPOnly: true,
			Secure:   a.cfg.GetCookieSecure(),
			SameSite: fiber.CookieSameSiteStrictMode,
		})
	}
}

// defaultErrHandler renders an auth failure. Infrastructure errors keep
// their category's status: a directory outage is a 500, never a prompt to
// re-login.
func (a *CookieAuthenticator) defaultErrHandler(c *fiber.Ctx, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
			WithCode(errors.CodeUnauthorized)
	}

	status := richErr.Code
	if status == 0 {
		status = statusFromCategory(richErr.Category)
	}

	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"message":   richErr.Message,
			"text_code": richErr.TextCode,
		},
	})
}
