package auth

import (
	"context"
)

// Auther signs users in and out. It turns a verified password into a
// credential and leaves a login or logout entry in the audit ledger.
type Auther struct {
	provider IdentityProvider
	tokens   TokenService
	recorder *AuditRecorder
	logger   Logger
}

// NewAuthenticator returns a new Authenticator. recorder may be nil, in which
// case logins are not audited.
func NewAuthenticator(provider IdentityProvider, tokens TokenService, recorder *AuditRecorder) *Auther {
	return &Auther{
		provider: provider,
		tokens:   tokens,
		recorder: recorder,
		logger:   DefaultLogger(),
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = normalizeLogger(logger)
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokens
}

// Login verifies the password and issues a credential. Failed logins are not
// audited because there is no verified actor to attribute them to.
func (s *Auther) Login(ctx context.Context, identifier, password string, meta RequestMeta) (string, *Principal, error) {
	account, err := s.provider.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		s.logger.Debug("Login verify identity error: %v", err)
		return "", nil, err
	}

	if account == nil {
		return "", nil, kindOf(ErrInvalidLogin)
	}

	token, err := s.tokens.Issue(account.Identity())
	if err != nil {
		s.logger.Error("Login failed to issue credential for %s: %v", account.ID, err)
		return "", nil, err
	}

	principal, err := s.tokens.Verify(token)
	if err != nil {
		s.logger.Error("Login issued an unverifiable credential for %s: %v", account.ID, err)
		return "", nil, err
	}

	s.recorder.Emit(ctx, ActionLogin, EntityUser, account.Actor(),
		WithEntityID(account.ID),
		WithRequestMeta(meta),
	)

	return token, principal, nil
}

// Logout records the logout. Credentials are not revocable, so the caller is
// responsible for dropping the cookie or header on its side.
func (s *Auther) Logout(ctx context.Context, principal Principal, displayName string, meta RequestMeta) {
	s.recorder.Emit(ctx, ActionLogout, EntityUser, ActorFromPrincipal(principal, displayName),
		WithEntityID(principal.ID),
		WithRequestMeta(meta),
	)
}

// Reissue issues a fresh credential for an already verified principal
func (s *Auther) Reissue(principal Principal) (string, error) {
	token, err := s.tokens.Issue(principal.Identity())
	if err != nil {
		s.logger.Error("Reissue failed for %s: %v", principal.ID, err)
		return "", err
	}
	return token, nil
}
