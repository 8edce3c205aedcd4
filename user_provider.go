package auth

import (
	"context"
	"strings"

	"github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

// PasswordHashCost is the bcrypt work factor for new account hashes
var PasswordHashCost = 12

// MaxPasswordBytes is the longest password bcrypt uses in full
const MaxPasswordBytes = 72

// Account is the login view of a user record. It lives in the platform's user
// store; this package only reads it.
type Account struct {
	ID           string
	Email        string
	DisplayName  string
	Role         Role
	PasswordHash string
}

// Identity returns the identity a credential is issued for
func (a Account) Identity() Identity {
	return Identity{ID: a.ID, Email: a.Email, Role: a.Role}
}

// Actor returns the audit actor for the account
func (a Account) Actor() Actor {
	return Actor{ID: a.ID, Email: a.Email, DisplayName: a.DisplayName}
}

// AccountStore is a store we can use to retrieve accounts by email or id.
// It returns ErrIdentityNotFound (or any not_found error) for unknown identifiers.
type AccountStore interface {
	GetByIdentifier(ctx context.Context, identifier string) (*Account, error)
}

// AccountStoreFunc adapts a function to the AccountStore interface.
type AccountStoreFunc func(ctx context.Context, identifier string) (*Account, error)

// GetByIdentifier implements AccountStore.
func (f AccountStoreFunc) GetByIdentifier(ctx context.Context, identifier string) (*Account, error) {
	return f(ctx, identifier)
}

// AccountProvider verifies passwords against an AccountStore
type AccountProvider struct {
	store  AccountStore
	logger Logger
}

var _ IdentityProvider = (*AccountProvider)(nil)

// NewAccountProvider will create a new AccountProvider
func NewAccountProvider(store AccountStore, logger Logger) *AccountProvider {
	return &AccountProvider{store: store, logger: normalizeLogger(logger)}
}

// VerifyIdentity will find the account and compare the password. Unknown
// identifiers and wrong passwords both yield ErrInvalidLogin.
func (p *AccountProvider) VerifyIdentity(ctx context.Context, identifier, password string) (*Account, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, kindOf(ErrInvalidLogin)
	}

	account, err := p.store.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.IsNotFound(err) || errors.Is(err, ErrIdentityNotFound) {
			return nil, kindOf(ErrInvalidLogin)
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve account during verification")
	}

	if account == nil {
		return nil, kindOf(ErrInvalidLogin)
	}

	if err := ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		if errors.Is(err, ErrMismatchedHashAndPassword) {
			p.logger.Debug("AccountProvider: password mismatch for %s", account.ID)
		} else {
			p.logger.Error("AccountProvider: account %s has an unusable password hash: %v", account.ID, err)
		}
		return nil, kindOf(ErrInvalidLogin)
	}

	if !account.Role.IsValid() {
		p.logger.Error("AccountProvider: account %s has unknown role %q", account.ID, account.Role)
		return nil, kindOf(ErrInvalidRole, map[string]any{"role": string(account.Role)})
	}

	return account, nil
}

// HashPassword returns the value stored in Account.PasswordHash
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", kindOf(ErrNoEmptyString)
	}
	if len(password) > MaxPasswordBytes {
		return "", kindOf(ErrPasswordTooLong, map[string]any{"max_bytes": MaxPasswordBytes})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordHashCost)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
	}
	return string(hash), nil
}

// ComparePasswordAndHash returns ErrMismatchedHashAndPassword when password
// does not match hash. A malformed hash is an internal error.
func ComparePasswordAndHash(password, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return kindOf(ErrMismatchedHashAndPassword)
	default:
		return errors.Wrap(err, errors.CategoryInternal, "stored password hash is unusable")
	}
}
