package auth

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UsersController serves the account administration endpoints
type UsersController struct {
	repo    RepositoryManager
	auth    Authenticator
	cookies *CookieAuthenticator
	Logger  Logger
}

func NewUsersController(repo RepositoryManager, auther Authenticator, cookies *CookieAuthenticator) *UsersController {
	return &UsersController{
		repo:    repo,
		auth:    auther,
		cookies: cookies,
		Logger:  defLogger{},
	}
}

func (u *UsersController) WithLogger(l Logger) *UsersController {
	u.Logger = l
	return u
}

// CreateUserPayload is the registration request body
type CreateUserPayload struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Role     string `json:"role" form:"role"`
}

// Validate will validate the payload
func (r CreateUserPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
		validation.Field(&r.Role, validation.In(RoleUser, RoleAdmin)),
	)
}

// Create registers an account and opens a session for it, so a new user is
// logged in with the same response that created them.
func (u *UsersController) Create(c *fiber.Ctx) error {
	payload := new(CreateUserPayload)

	if err := c.BodyParser(payload); err != nil {
		u.Logger.Error("create user parse payload", "error", err)
		return badRequest(c, "Error parsing body")
	}

	if err := payload.Validate(); err != nil {
		return validationFailed(c, err)
	}

	_, err := u.repo.Users().GetByEmail(c.UserContext(), payload.Email)
	if err == nil {
		return conflict(c, "email already registered")
	}
	if !repository.IsRecordNotFound(err) && !errors.IsNotFound(err) {
		u.Logger.Error("email availability check failed", "error", err, "email", NormalizeEmail(payload.Email))
		return u.renderError(c, errors.Wrap(err, errors.CategoryInternal, "failed to check email availability"))
	}

	var created *User
	handler := NewRegisterUserHandler(u.repo)
	err = handler.Execute(c.UserContext(), RegisterUserMessage{
		Email:    payload.Email,
		Password: payload.Password,
		Role:     payload.Role,
		OnResponse: func(record *User) {
			created = record
		},
	})
	if err != nil {
		u.Logger.Error("create user failed", "error", err, "email", NormalizeEmail(payload.Email))
		return u.renderError(c, err)
	}

	_, pair, err := u.auth.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		u.Logger.Error("post-registration login failed", "error", err, "user_id", created.ID.String())
		return u.renderError(c, err)
	}

	u.cookies.SetCookiePair(c, pair)

	return c.Status(fiber.StatusCreated).JSON(created)
}

// List returns every account. Password hashes and renewal credentials never
// serialize.
func (u *UsersController) List(c *fiber.Ctx) error {
	records, err := u.repo.Users().ListAll(c.UserContext())
	if err != nil {
		u.Logger.Error("list users failed", "error", err)
		return u.renderError(c, errors.Wrap(err, errors.CategoryInternal, "failed to list users"))
	}

	return c.JSON(records)
}

// Show returns a single account by id
func (u *UsersController) Show(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid user id")
	}

	record, err := u.repo.Users().GetByID(c.UserContext(), id.String())
	if err != nil {
		return u.renderError(c, err)
	}

	return c.JSON(record)
}

// UpdateUserPayload is the account update body. Every field is optional;
// absent fields are left untouched.
type UpdateUserPayload struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Role     string `json:"role" form:"role"`
}

// Validate will validate the payload
func (r UpdateUserPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, is.Email),
		validation.Field(&r.Password, validation.Length(6, 100)),
		validation.Field(&r.Role, validation.In(RoleUser, RoleAdmin)),
	)
}

// Update applies a partial update to an account, re-hashing the password
// when one is provided.
func (u *UsersController) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid user id")
	}

	payload := new(UpdateUserPayload)
	if err := c.BodyParser(payload); err != nil {
		u.Logger.Error("update user parse payload", "error", err)
		return badRequest(c, "Error parsing body")
	}

	if err := payload.Validate(); err != nil {
		return validationFailed(c, err)
	}

	record := &User{}
	err = u.repo.RunInTx(c.UserContext(), nil, func(ctx context.Context, tx bun.Tx) error {
		if txErr := tx.NewSelect().
			Model(record).
			Where("?TableAlias.id = ?", id).
			Limit(1).
			Scan(ctx); txErr != nil {
			return txErr
		}

		if payload.Email != "" && NormalizeEmail(payload.Email) != record.Email {
			_, txErr := u.repo.Users().GetByEmailTx(ctx, tx, payload.Email)
			if txErr == nil {
				return errors.New("email already registered", errors.CategoryConflict).
					WithTextCode("EMAIL_TAKEN")
			}
			if !repository.IsRecordNotFound(txErr) && !errors.IsNotFound(txErr) {
				return txErr
			}
			record.Email = NormalizeEmail(payload.Email)
		}

		if payload.Role != "" {
			record.Role = payload.Role
		}

		if payload.Password != "" {
			hash, txErr := HashPassword(payload.Password)
			if txErr != nil {
				return txErr
			}
			record.PasswordHash = hash
		}

		updated, txErr := u.repo.Users().UpdateTx(ctx, tx, record, repository.UpdateByID(id.String()))
		if txErr != nil {
			return txErr
		}
		record = updated

		return nil
	})
	if err != nil {
		u.Logger.Error("update user failed", "error", err, "user_id", id.String())
		return u.renderError(c, err)
	}

	return c.JSON(record)
}

// Delete removes an account. Runs behind the admin role gate; the handler
// additionally refuses self-deletion and deleting the last admin.
func (u *UsersController) Delete(c *fiber.Ctx) error {
	session, ok := GetRouteSession(c)
	if !ok {
		return u.cookies.ErrorHandler(c, ErrNotAuthenticated)
	}

	handler := NewDeleteUserHandler(u.repo)
	err := handler.Execute(c.UserContext(), DeleteUserMessage{
		UserID:      c.Params("id"),
		RequestedBy: session.UserID,
	})
	if err != nil {
		u.Logger.Warn("delete user refused", "error", err, "user_id", c.Params("id"), "requested_by", session.UserID)
		return u.renderError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "user deleted",
	})
}

func (u *UsersController) renderError(c *fiber.Ctx, err error) error {
	if repository.IsRecordNotFound(err) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": fiber.Map{"message": "user not found"},
		})
	}

	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fiber.Map{"message": "internal error"},
		})
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

func statusFromCategory(category errors.Category) int {
	switch category {
	case errors.CategoryAuth:
		return fiber.StatusUnauthorized
	case errors.CategoryAuthz:
		return fiber.StatusForbidden
	case errors.CategoryNotFound:
		return fiber.StatusNotFound
	case errors.CategoryValidation, errors.CategoryBadInput:
		return fiber.StatusBadRequest
	case errors.CategoryConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func conflict(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusConflict).JSON(fiber.Map{
		"error": fiber.Map{
			"message": msg,
		},
	})
}
