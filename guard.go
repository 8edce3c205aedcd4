package auth

import (
	"strings"
)

const (
	// DefaultCookieName holds the credential when no Authorization header is sent
	DefaultCookieName = "jobboard_session"
	// DefaultAuthScheme is the Authorization header scheme
	DefaultAuthScheme = "Bearer"
)

// AccessGuard resolves the caller's identity from a request and enforces role
// membership. It holds no per-request state and is safe for concurrent use.
type AccessGuard struct {
	verifier   CredentialVerifier
	cookieName string
	authScheme string
	logger     Logger
}

// GuardOption customizes an AccessGuard
type GuardOption func(*AccessGuard)

// WithCookieName sets the fallback cookie name
func WithCookieName(name string) GuardOption {
	return func(g *AccessGuard) {
		if name = strings.TrimSpace(name); name != "" {
			g.cookieName = name
		}
	}
}

// WithAuthScheme sets the Authorization header scheme
func WithAuthScheme(scheme string) GuardOption {
	return func(g *AccessGuard) {
		if scheme = strings.TrimSpace(scheme); scheme != "" {
			g.authScheme = scheme
		}
	}
}

// WithGuardLogger sets the logger
func WithGuardLogger(logger Logger) GuardOption {
	return func(g *AccessGuard) {
		g.logger = normalizeLogger(logger)
	}
}

// NewAccessGuard returns a guard backed by verifier
func NewAccessGuard(verifier CredentialVerifier, opts ...GuardOption) *AccessGuard {
	g := &AccessGuard{
		verifier:   verifier,
		cookieName: DefaultCookieName,
		authScheme: DefaultAuthScheme,
		logger:     DefaultLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// NewAccessGuardFromConfig wires a guard using the cookie and scheme settings in cfg
func NewAccessGuardFromConfig(verifier CredentialVerifier, cfg Config, logger Logger) *AccessGuard {
	return NewAccessGuard(verifier,
		WithCookieName(cfg.GetCookieName()),
		WithAuthScheme(cfg.GetAuthScheme()),
		WithGuardLogger(logger),
	)
}

// CookieName returns the credential cookie name
func (g *AccessGuard) CookieName() string {
	return g.cookieName
}

// ExtractCredential returns the raw credential. The Authorization header wins
// over the cookie; a header that is not "<scheme> <token>" counts as absent.
func (g *AccessGuard) ExtractCredential(req RequestReader) (string, bool) {
	if req == nil {
		return "", false
	}

	if token, ok := g.fromHeader(req.Header(HeaderAuthorization)); ok {
		return token, true
	}

	if token := strings.TrimSpace(req.Cookie(g.cookieName)); token != "" {
		return token, true
	}

	return "", false
}

func (g *AccessGuard) fromHeader(value string) (string, bool) {
	value = strings.TrimSpace(value)
	l := len(g.authScheme)
	if len(value) <= l+1 || !strings.EqualFold(value[:l], g.authScheme) || value[l] != ' ' {
		return "", false
	}
	token := strings.TrimSpace(value[l+1:])
	return token, token != ""
}

// RequireIdentity returns the verified caller or ErrUnauthorized
func (g *AccessGuard) RequireIdentity(req RequestReader) (*Principal, error) {
	credential, ok := g.ExtractCredential(req)
	if !ok {
		g.logger.Debug("AccessGuard: no credential presented")
		return nil, unauthorized()
	}

	if g.verifier == nil {
		g.logger.Error("AccessGuard: no credential verifier configured")
		return nil, unauthorized()
	}

	principal, err := g.verifier.Verify(credential)
	if err != nil || principal == nil {
		g.logger.Debug("AccessGuard: credential rejected: %v", err)
		return nil, unauthorized()
	}

	return principal, nil
}

// RequireRole returns the verified caller when its role is in allowed.
// Unauthorized failures from RequireIdentity are returned unchanged.
func (g *AccessGuard) RequireRole(req RequestReader, allowed RoleSet) (*Principal, error) {
	principal, err := g.RequireIdentity(req)
	if err != nil {
		return nil, err
	}

	if !allowed.Contains(principal.Role) {
		g.logger.Debug("AccessGuard: role %s not in %v", principal.Role, allowed.Roles())
		return nil, forbidden(principal.Role)
	}

	return principal, nil
}
