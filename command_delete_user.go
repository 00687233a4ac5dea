package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account deletion guard failures. Both are conflicts, not permission
// errors: the caller is an admin, the operation itself is what we refuse.
var (
	ErrCannotDeleteSelf = goerrors.New("cannot delete your own account", goerrors.CategoryConflict).
				WithTextCode("DELETE_SELF")

	ErrCannotDeleteLastAdmin = goerrors.New("cannot delete the last admin account", goerrors.CategoryConflict).
					WithTextCode("DELETE_LAST_ADMIN")
)

type DeleteUserMessage struct {
	// UserID is the account to delete
	UserID string `json:"user_id"`
	// RequestedBy is the admin performing the deletion
	RequestedBy string `json:"requested_by"`
}

func (e DeleteUserMessage) Type() string { return "user.delete" }

// DeleteUserHandler removes an account. The self and last-admin checks run
// inside the same transaction as the delete so the admin count cannot race.
type DeleteUserHandler struct {
	repo RepositoryManager
}

func NewDeleteUserHandler(repo RepositoryManager) *DeleteUserHandler {
	return &DeleteUserHandler{repo: repo}
}

func (h *DeleteUserHandler) Execute(ctx context.Context, event DeleteUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user deletion",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *DeleteUserHandler) execute(ctx context.Context, event DeleteUserMessage) error {
	id, err := uuid.Parse(event.UserID)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid user id")
	}

	if event.UserID == event.RequestedBy {
		return ErrCannotDeleteSelf
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user := &User{}
		if err := tx.NewSelect().
			Model(user).
			Where("?TableAlias.id = ?", id).
			Limit(1).
			Scan(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryNotFound, "user not found")
		}

		if user.Role == RoleAdmin {
			admins, err := h.repo.Users().CountByRoleTx(ctx, tx, RoleAdmin)
			if err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to count admins")
			}
			if admins <= 1 {
				return ErrCannotDeleteLastAdmin
			}
		}

		return h.repo.Users().DeleteByIDTx(ctx, tx, id)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "user deletion transaction failed")
	}

	return nil
}
