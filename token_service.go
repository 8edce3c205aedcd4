package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// DefaultTokenTTL is the fixed credential lifetime
const DefaultTokenTTL = 7 * 24 * time.Hour

// TokenService issues and verifies credentials
type TokenService interface {
	CredentialVerifier
	Issue(identity Identity) (string, error)
	TTL() time.Duration
}

// TokenOption customizes a TokenService
type TokenOption func(*TokenServiceImpl)

// WithClock replaces time.Now. Used by tests to issue credentials in the past.
func WithClock(now func() time.Time) TokenOption {
	return func(ts *TokenServiceImpl) {
		if now != nil {
			ts.now = now
		}
	}
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	now        func() time.Time
	logger     Logger
}

// NewTokenService creates a new TokenService. The signing key is read once and
// never changes for the lifetime of the service; an empty key is a
// configuration error.
func NewTokenService(cfg Config, logger Logger, opts ...TokenOption) (TokenService, error) {
	if cfg == nil || strings.TrimSpace(cfg.GetSigningKey()) == "" {
		return nil, configurationError("signing_key")
	}

	var aud jwt.ClaimStrings
	if audience := cfg.GetAudience(); len(audience) > 0 {
		aud = append(aud, audience...)
	}

	ts := &TokenServiceImpl{
		signingKey: []byte(cfg.GetSigningKey()),
		ttl:        DefaultTokenTTL,
		issuer:     cfg.GetIssuer(),
		audience:   aud,
		now:        time.Now,
		logger:     normalizeLogger(logger),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	return ts, nil
}

// TTL returns the credential lifetime
func (ts *TokenServiceImpl) TTL() time.Duration {
	return ts.ttl
}

// Issue creates a signed credential for identity
func (ts *TokenServiceImpl) Issue(identity Identity) (string, error) {
	if strings.TrimSpace(identity.ID) == "" {
		return "", errors.New("identity id is required", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest)
	}

	if !identity.Role.IsValid() {
		return "", kindOf(ErrInvalidRole, map[string]any{"role": string(identity.Role)})
	}

	now := ts.now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   identity.ID,
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
		},
		UID:      identity.ID,
		Email:    identity.Email,
		UserRole: string(identity.Role),
	}

	ensureTokenID(&claims.RegisteredClaims)

	return ts.signClaims(claims)
}

func (ts *TokenServiceImpl) signClaims(claims *JWTClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Verify parses and validates a credential. Every failure, whatever its cause,
// is reported as ErrInvalidCredential; the cause is only logged.
func (ts *TokenServiceImpl) Verify(credential string) (*Principal, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(ts.now),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(credential, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		ts.logger.Debug("TokenService verify rejected credential: %v", err)
		return nil, invalidCredential()
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		ts.logger.Debug("TokenService verify could not decode claims")
		return nil, invalidCredential()
	}

	principal, err := claims.principal()
	if err != nil {
		ts.logger.Debug("TokenService verify rejected claims: %v", err)
		return nil, invalidCredential()
	}

	return principal, nil
}
