package auth

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
)

// AuthController serves the session endpoints: login, refresh, logout
type AuthController struct {
	auth    Authenticator
	cookies *CookieAuthenticator
	Logger  Logger
}

func NewAuthController(auther Authenticator, cookies *CookieAuthenticator) *AuthController {
	return &AuthController{
		auth:    auther,
		cookies: cookies,
		Logger:  defLogger{},
	}
}

func (a *AuthController) WithLogger(l Logger) *AuthController {
	a.Logger = l
	return a
}

// LoginPayload is the login request body
type LoginPayload struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// Validate will validate the payload. No length rule on the password:
// a wrong password of any length is a credential failure, not a 400.
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// LoginPost verifies credentials and opens a session by setting both
// credential cookies.
func (a *AuthController) LoginPost(c *fiber.Ctx) error {
	payload := new(LoginPayload)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return badRequest(c, "Error parsing body")
	}

	if err := payload.Validate(); err != nil {
		return validationFailed(c, err)
	}

	identity, pair, err := a.auth.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		if IsUnauthenticatedError(err) {
			a.Logger.Warn("login rejected", "email", NormalizeEmail(payload.Email))
			return a.cookies.ErrorHandler(c, ErrMismatchedHashAndPassword)
		}
		return a.cookies.ErrorHandler(c, err)
	}

	a.cookies.SetCookiePair(c, pair)

	return c.JSON(fiber.Map{
		"id":    identity.ID(),
		"email": identity.Email(),
		"role":  identity.Role(),
	})
}

// RefreshPost reissues both credentials for an already authenticated
// session. It runs behind the Protected middleware, so an expired access
// cookie with a live renewal cookie still reaches it.
func (a *AuthController) RefreshPost(c *fiber.Ctx) error {
	session, ok := GetRouteSession(c)
	if !ok {
		return a.cookies.ErrorHandler(c, ErrNotAuthenticated)
	}

	fresh, pair, err := a.auth.Refresh(c.UserContext(), session.UserID)
	if err != nil {
		a.Logger.Error("refresh failed", "error", err, "user_id", session.UserID)
		return a.cookies.ErrorHandler(c, err)
	}

	a.cookies.SetCookiePair(c, pair)

	return c.JSON(fiber.Map{
		"id":    fresh.UserID,
		"email": fresh.Email,
		"role":  fresh.Role,
	})
}

// LogoutPost invalidates the stored renewal credential and expires both
// cookies. Safe to call without a session; the cookies are cleared either
// way.
func (a *AuthController) LogoutPost(c *fiber.Ctx) error {
	if session, ok := GetRouteSession(c); ok {
		if err := a.auth.Logout(c.UserContext(), session.UserID); err != nil {
			a.Logger.Error("logout failed", "error", err, "user_id", session.UserID)
			return a.cookies.ErrorHandler(c, errors.Wrap(err, errors.CategoryInternal, "failed to close session"))
		}
	}

	a.cookies.ClearCookies(c)

	return c.JSON(fiber.Map{
		"message": "logged out",
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": fiber.Map{
			"message": msg,
		},
	})
}

func validationFailed(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": fiber.Map{
			"message": "Error validating payload",
			"details": err.Error(),
		},
	})
}
