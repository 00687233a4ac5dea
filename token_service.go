package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenServiceImpl implements the TokenService interface. Access and
// renewal tokens are signed with distinct secrets so possession of one
// never allows forging the other.
type TokenServiceImpl struct {
	accessKey  []byte
	renewalKey []byte
	accessTTL  time.Duration
	renewalTTL time.Duration
	issuer     string
	logger     Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(cfg Config, logger Logger) TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		accessKey:  []byte(cfg.GetAccessSigningKey()),
		renewalKey: []byte(cfg.GetRenewalSigningKey()),
		accessTTL:  cfg.GetAccessTokenTTL(),
		renewalTTL: cfg.GetRenewalTokenTTL(),
		issuer:     cfg.GetIssuer(),
		logger:     logger,
	}
}

// IssuePair mints a fresh access/renewal credential pair bound to the
// identity's current claim set. Issuing has no side effects; the caller
// persists the renewal token against the identity.
func (ts *TokenServiceImpl) IssuePair(identity Identity) (*TokenPair, error) {
	if identity == nil {
		return nil, errors.New("identity must not be nil", errors.CategoryInternal)
	}

	now := time.Now()
	accessExpiry := now.Add(ts.accessTTL)
	renewalExpiry := now.Add(ts.renewalTTL)

	access, err := ts.sign(ts.newClaims(identity, now, accessExpiry), ts.accessKey)
	if err != nil {
		return nil, err
	}

	renewal, err := ts.sign(ts.newClaims(identity, now, renewalExpiry), ts.renewalKey)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		RenewalToken:     renewal,
		AccessExpiresAt:  accessExpiry,
		RenewalExpiresAt: renewalExpiry,
	}, nil
}

// VerifyAccess parses and validates an access token, returning its claims
func (ts *TokenServiceImpl) VerifyAccess(raw string) (*SessionClaims, error) {
	return ts.verify(raw, ts.accessKey)
}

// VerifyRenewal parses and validates a renewal token, returning its claims
func (ts *TokenServiceImpl) VerifyRenewal(raw string) (*SessionClaims, error) {
	return ts.verify(raw, ts.renewalKey)
}

func (ts *TokenServiceImpl) newClaims(identity Identity, issuedAt, expiresAt time.Time) *SessionClaims {
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UID:       identity.ID(),
		UserEmail: identity.Email(),
		UserRole:  NormalizeRole(identity.Role()),
	}

	ensureTokenID(&claims.RegisteredClaims)

	return claims
}

func (ts *TokenServiceImpl) sign(claims *SessionClaims, key []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(key)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signed, nil
}

func (ts *TokenServiceImpl) verify(raw string, key []byte) (*SessionClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 1)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token verification encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("token verification could not decode claims")
	return nil, ErrTokenMalformed
}

// ensureTokenID gives every minted token a unique jti so two pairs issued
// for identical claims remain distinguishable.
func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
