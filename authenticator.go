package auth

import (
	"context"

	"github.com/goliatone/go-errors"
)

// Auther decides, per request, whether the presented credentials resolve
// to a live identity, transparently rotating an expired access token when
// a valid renewal token accompanies it.
type Auther struct {
	directory Directory
	tokens    TokenService
	logger    Logger
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(directory Directory, cfg Config) *Auther {
	return &Auther{
		directory: directory,
		tokens:    NewTokenService(cfg, defLogger{}),
		logger:    defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = logger
	return s
}

// WithTokenService overrides the token service, mostly for tests
func (s *Auther) WithTokenService(tokens TokenService) *Auther {
	s.tokens = tokens
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokens
}

// Login verifies the password for the given email and issues a credential
// pair, persisting the renewal token against the identity.
func (s *Auther) Login(ctx context.Context, email, password string) (Identity, *TokenPair, error) {
	identity, err := s.directory.VerifyIdentity(ctx, email, password)
	if err != nil {
		s.logger.Error("login verify identity error", "error", err)
		return nil, nil, err
	}

	pair, err := s.issueAndStore(ctx, identity)
	if err != nil {
		return nil, nil, err
	}

	return identity, pair, nil
}

// Authenticate resolves a request's credentials. Either raw token may be
// empty. On success it returns the session built from the stored record
// and, when a silent renewal happened, the rotated pair the caller must
// deliver to the client. Renewal is single-shot: it runs at most once per
// request and never recurses.
func (s *Auther) Authenticate(ctx context.Context, accessRaw, renewalRaw string) (*Session, *TokenPair, error) {
	if accessRaw == "" && renewalRaw == "" {
		return nil, nil, ErrNoSessionCredentials
	}

	var accessErr error
	if accessRaw != "" {
		claims, err := s.tokens.VerifyAccess(accessRaw)
		if err == nil {
			identity, err := s.lookup(ctx, claims.UserID())
			if err != nil {
				return nil, nil, err
			}
			return sessionFromIdentity(identity), nil, nil
		}
		accessErr = err
	}

	if renewalRaw == "" {
		if accessErr != nil {
			return nil, nil, accessErr
		}
		return nil, nil, ErrNoSessionCredentials
	}

	return s.renew(ctx, renewalRaw)
}

// Refresh unconditionally reissues a credential pair for an identity that
// already passed authentication, reloading its current claims first.
func (s *Auther) Refresh(ctx context.Context, id string) (*Session, *TokenPair, error) {
	identity, err := s.lookup(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.issueAndStore(ctx, identity)
	if err != nil {
		return nil, nil, err
	}

	return sessionFromIdentity(identity), pair, nil
}

// Logout clears the stored renewal credential so the outstanding renewal
// token can no longer open a new session.
func (s *Auther) Logout(ctx context.Context, id string) error {
	if err := s.directory.StoreRenewalCredential(ctx, id, nil); err != nil {
		s.logger.Error("logout failed to clear renewal credential", "error", err, "user_id", id)
		return err
	}
	return nil
}

// renew is the rotation path: a valid renewal token that still matches the
// credential stored on the identity yields a brand-new pair minted from the
// identity's current claims, never from the stale access token.
func (s *Auther) renew(ctx context.Context, renewalRaw string) (*Session, *TokenPair, error) {
	claims, err := s.tokens.VerifyRenewal(renewalRaw)
	if err != nil {
		s.logger.Warn("renewal token rejected", "error", err)
		return nil, nil, ErrInvalidRenewalToken
	}

	identity, err := s.lookup(ctx, claims.UserID())
	if err != nil {
		return nil, nil, err
	}

	if identity.RenewalCredential() != renewalRaw {
		s.logger.Warn("renewal token does not match stored credential", "user_id", identity.ID())
		return nil, nil, ErrInvalidRenewalToken
	}

	pair, err := s.issueAndStore(ctx, identity)
	if err != nil {
		return nil, nil, err
	}

	return sessionFromIdentity(identity), pair, nil
}

func (s *Auther) issueAndStore(ctx context.Context, identity Identity) (*TokenPair, error) {
	pair, err := s.tokens.IssuePair(identity)
	if err != nil {
		s.logger.Error("failed to issue credential pair", "error", err)
		return nil, err
	}

	if err := s.directory.StoreRenewalCredential(ctx, identity.ID(), &pair.RenewalToken); err != nil {
		s.logger.Error("failed to persist renewal credential", "error", err, "user_id", identity.ID())
		return nil, err
	}

	return pair, nil
}

// lookup resolves a credential subject to its stored record. A missing
// identity is reported as an authentication failure, not a 404: a deleted
// account must be indistinguishable from a bad token.
func (s *Auther) lookup(ctx context.Context, id string) (Identity, error) {
	identity, err := s.directory.FindIdentityByID(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) || IsUnauthenticatedError(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "directory lookup failed")
	}

	return identity, nil
}
