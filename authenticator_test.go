package auth_test

import (
	"context"
	"testing"
	"time"

	auth "github.com/flotilla-hq/fleet-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAuthenticator_Login(t *testing.T) {
	cfg := newTestConfig()
	ctx := context.Background()

	t.Run("issues and persists a credential pair", func(t *testing.T) {
		identity := testIdentity{id: "user-1", email: "ops@example.com", role: "user"}

		directory := &MockDirectory{}
		directory.On("VerifyIdentity", ctx, "ops@example.com", "secret-pw").Return(identity, nil)
		directory.On("StoreRenewalCredential", ctx, "user-1", mock.AnythingOfType("*string")).Return(nil)

		auther := auth.NewAuthenticator(directory, cfg)

		got, pair, err := auther.Login(ctx, "ops@example.com", "secret-pw")

		require.NoError(t, err)
		assert.Equal(t, "user-1", got.ID())
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RenewalToken)

		directory.AssertExpectations(t)

		// the persisted credential is the renewal token itself
		stored := directory.Calls[len(directory.Calls)-1].Arguments.Get(2).(*string)
		assert.Equal(t, pair.RenewalToken, *stored)
	})

	t.Run("propagates bad credentials", func(t *testing.T) {
		directory := &MockDirectory{}
		directory.On("VerifyIdentity", ctx, "ops@example.com", "wrong").
			Return(nil, auth.ErrMismatchedHashAndPassword)

		auther := auth.NewAuthenticator(directory, cfg)

		_, _, err := auther.Login(ctx, "ops@example.com", "wrong")
		assert.ErrorIs(t, err, auth.ErrMismatchedHashAndPassword)
		directory.AssertNotCalled(t, "StoreRenewalCredential", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAuthenticator_Authenticate(t *testing.T) {
	cfg := newTestConfig()
	ctx := context.Background()

	identity := testIdentity{id: "user-1", email: "ops@example.com", role: "user"}

	mint := func(c *testConfig, id auth.Identity) *auth.TokenPair {
		pair, err := auth.NewTokenService(c, nil).IssuePair(id)
		require.NoError(t, err)
		return pair
	}

	t.Run("no credentials at all", func(t *testing.T) {
		auther := auth.NewAuthenticator(&MockDirectory{}, cfg)

		_, _, err := auther.Authenticate(ctx, "", "")
		assert.ErrorIs(t, err, auth.ErrNoSessionCredentials)
	})

	t.Run("valid access token resolves without rotation", func(t *testing.T) {
		pair := mint(cfg, identity)

		directory := &MockDirectory{}
		directory.On("FindIdentityByID", ctx, "user-1").Return(identity, nil)

		auther := auth.NewAuthenticator(directory, cfg)

		session, rotated, err := auther.Authenticate(ctx, pair.AccessToken, "")

		require.NoError(t, err)
		assert.Nil(t, rotated)
		assert.Equal(t, "user-1", session.UserID)
		assert.Equal(t, "ops@example.com", session.Email)
		assert.Equal(t, auth.RoleUser, session.Role)
	})

	t.Run("session reflects the stored record, not the token claims", func(t *testing.T) {
		// minted when the user was a plain user, but the directory has
		// since promoted them
		pair := mint(cfg, identity)
		promoted := testIdentity{id: "user-1", email: "ops@example.com", role: "admin"}

		directory := &MockDirectory{}
		directory.On("FindIdentityByID", ctx, "user-1").Return(promoted, nil)

		auther := auth.NewAuthenticator(directory, cfg)

		session, _, err := auther.Authenticate(ctx, pair.AccessToken, "")

		require.NoError(t, err)
		assert.Equal(t, auth.RoleAdmin, session.Role)
	})

	t.Run("deleted identity is indistinguishable from a bad token", func(t *testing.T) {
		pair := mint(cfg, identity)

		directory := &MockDirectory{}
		directory.On("FindIdentityByID", ctx, "user-1").Return(nil, auth.ErrIdentityNotFound)

		auther := auth.NewAuthenticator(directory, cfg)

		_, _, err := auther.Authenticate(ctx, pair.AccessToken, "")
		assert.ErrorIs(t, err, auth.ErrIdentityNotFound)
		assert.True(t, auth.IsUnauthenticatedError(err))
	})

	t.Run("tampered access token with no renewal fails", func(t *testing.T) {
		pair := mint(cfg, identity)

		auther := auth.NewAuthenticator(&MockDirectory{}, cfg)

		_, _, err := auther.Authenticate(ctx, pair.AccessToken+"xx", "")
		assert.Error(t, err)
		assert.True(t, auth.IsMalformedError(err))
	})

	t.Run("expired access with valid renewal rotates silently", func(t *testing.T) {
		expiredCfg := newTestConfig()
		expiredCfg.accessTTL = -time.Minute

		stale := mint(expiredCfg, identity)

		// the stored credential must match the presented renewal token
		current := testIdentity{
			id: "user-1", email: "ops@example.com", role: "user",
			credential: stale.RenewalToken,
		}

		directory := &MockDirectory{}
		directory.On("FindIdentityByID", ctx, "user-1").Return(current, nil)
		directory.On("StoreRenewalCredential", ctx, "user-1", mock.AnythingOfType("*string")).Return(nil)

		auther := auth.NewAuthenticator(directory, cfg)

		session, rotated, err := auther.Authenticate(ctx, stale.AccessToken, stale.RenewalToken)

		require.NoError(t, err)
		require.NotNil(t, rotated)
		assert.Equal(t, "user-1", session.UserID)
		assert.NotEqual(t, stale.AccessToken, rotated.AccessToken)
		assert.NotEqual(t, stale.RenewalToken, rotated.RenewalToken)

		// the rotated access token verifies against the access secret
		claims, err := auther.TokenService().VerifyAccess(rotated.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID())

		directory.AssertExpectations(t)
	})

	t.Run("rotation mints from current stored claims", func(t *testing.T) {
		expiredCfg := newTestConfig()
		expiredCfg.accessTTL = -time.Minute

		stale := mint(expiredCfg, identity)

		promoted := testIdentity{
			id: "user-1", email: "ops@example.com", role: "admin",
			credential: stale.RenewalToken,
		}

		directory := &MockDirectory{}
		directory.On("FindIdentityByID", ctx, "user-1").Return(promoted, nil)
		directory.On("StoreRenewalCredential", ctx, "user-1", mock.AnythingOfType("*string")).Return(nil)

		auther := auth.NewAuthenticator(directory, cfg)

		session, rotated, err := auther.Authenticate(ctx, stale.AccessToken, stale.RenewalToken)

		require.NoError(t, err)
		assert.Equal(t, auth.RoleAdmin, session.Role)

		claims, err := auther.TokenService().VerifyAccess(rotated.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, auth.RoleAdmin, claims.Role())
	})

	t.Run("renewal token that no longer matches the stored credential fails", func(t *testing.T) {
		expiredCfg := newTestConfig()
		expiredCfg.accessTTL = -time.Minute

		stale := mint(expiredCfg, identity)

		// logout cleared the credential
		loggedOut := testIdentity{id: "user-1", email: "ops@example.com", role: "user"}

		directory := &MockDirectory{}
		directory.On("FindIdentityByID", ctx, "user-1").Return(loggedOut, nil)

		auther := auth.NewAuthenticator(directory, cfg)

		_, _, err := auther.Authenticate(ctx, stale.AccessToken, stale.RenewalToken)
		assert.ErrorIs(t, err, auth.ErrInvalidRenewalToken)
		directory.AssertNotCalled(t, "StoreRenewalCredential", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("expired access and expired renewal fails", func(t *testing.T) {
		expiredCfg := newTestConfig()
		expiredCfg.accessTTL = -time.Minute
		expiredCfg.renewalTTL = -time.Minute

		stale := mint(expiredCfg, identity)

		auther := auth.NewAuthenticator(&MockDirectory{}, cfg)

		_, _, err := auther.Authenticate(ctx, stale.AccessToken, stale.RenewalToken)
		assert.ErrorIs(t, err, auth.ErrInvalidRenewalToken)
	})

	t.Run("renewal signed with the access secret is rejected", func(t *testing.T) {
		expiredCfg := newTestConfig()
		expiredCfg.accessTTL = -time.Minute

		stale := mint(expiredCfg, identity)
		fresh := mint(cfg, identity)

		auther := auth.NewAuthenticator(&MockDirectory{}, cfg)

		// presenting an access token in the renewal slot must never rotate
		_, _, err := auther.Authenticate(ctx, stale.AccessToken, fresh.AccessToken)
		assert.ErrorIs(t, err, auth.ErrInvalidRenewalToken)
	})
}

func TestAuthenticator_Refresh(t *testing.T) {
	cfg := newTestConfig()
	ctx := context.Background()

	t.Run("reissues unconditionally for a known identity", func(t *testing.T) {
		identity := testIdentity{id: "user-1", email: "ops@example.com", role: "user"}

		directory := &MockDirectory{}
		directory.On("FindIdentityByID", ctx, "user-1").Return(identity, nil)
		directory.On("StoreRenewalCredential", ctx, "user-1", mock.AnythingOfType("*string")).Return(nil)

		auther := auth.NewAuthenticator(directory, cfg)

		session, pair, err := auther.Refresh(ctx, "user-1")

		require.NoError(t, err)
		assert.Equal(t, "user-1", session.UserID)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RenewalToken)
		directory.AssertExpectations(t)
	})

	t.Run("fails for a deleted identity", func(t *testing.T) {
		directory := &MockDirectory{}
		directory.On("FindIdentityByID", ctx, "ghost").Return(nil, auth.ErrIdentityNotFound)

		auther := auth.NewAuthenticator(directory, cfg)

		_, _, err := auther.Refresh(ctx, "ghost")
		assert.ErrorIs(t, err, auth.ErrIdentityNotFound)
	})
}

func TestAuthenticator_Logout(t *testing.T) {
	cfg := newTestConfig()
	ctx := context.Background()

	t.Run("clears the stored credential", func(t *testing.T) {
		directory := &MockDirectory{}
		directory.On("StoreRenewalCredential", ctx, "user-1", (*string)(nil)).Return(nil)

		auther := auth.NewAuthenticator(directory, cfg)

		require.NoError(t, auther.Logout(ctx, "user-1"))
		directory.AssertExpectations(t)
	})
}
