package auth

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// UserProvider adapts the Users repository to the Directory the
// authenticator consumes
type UserProvider struct {
	store  Users
	logger Logger
}

var _ Directory = (*UserProvider)(nil)

// NewUserProvider will create a new UserProvider
func NewUserProvider(store Users) *UserProvider {
	return &UserProvider{
		store:  store,
		logger: defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	u.logger = l
	return u
}

// VerifyIdentity will find the user, compare the password, and return the
// identity. A missing account and a wrong password produce the same error.
func (u *UserProvider) VerifyIdentity(ctx context.Context, email, password string) (Identity, error) {
	user, err := u.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, ErrMismatchedHashAndPassword
	}

	return identityFromUser(user), nil
}

func (u *UserProvider) FindIdentityByID(ctx context.Context, id string) (Identity, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrIdentityNotFound
	}

	user, err := u.store.GetByID(ctx, uid.String())
	if err != nil {
		return nil, err
	}

	return identityFromUser(user), nil
}

func (u *UserProvider) FindIdentityByEmail(ctx context.Context, email string) (Identity, error) {
	user, err := u.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	return identityFromUser(user), nil
}

// StoreRenewalCredential persists, or clears when nil, the single live
// renewal credential for the identity.
func (u *UserProvider) StoreRenewalCredential(ctx context.Context, id string, credential *string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ErrIdentityNotFound
	}

	return u.store.SetRenewalToken(ctx, uid, credential)
}

func identityFromUser(user *User) authIdentity {
	aid := authIdentity{
		id:    user.ID.String(),
		email: user.Email,
		role:  string(NormalizeRole(user.Role)),
	}

	if user.RenewalToken != nil {
		aid.renewalCredential = *user.RenewalToken
	}

	return aid
}

type authIdentity struct {
	id                string
	email             string
	role              string
	renewalCredential string
}

func (a authIdentity) ID() string {
	return a.id
}

func (a authIdentity) Email() string {
	return a.email
}

func (a authIdentity) Role() string {
	return a.role
}

func (a authIdentity) RenewalCredential() string {
	return a.renewalCredential
}

var _ Identity = authIdentity{}
