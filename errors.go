package auth

import (
	"net/http"

	"github.com/goliatone/go-errors"
)

// Text codes for the error kinds raised by this package.
const (
	TextCodeUnauthorized      = "UNAUTHORIZED"
	TextCodeForbidden         = "FORBIDDEN"
	TextCodeInvalidCredential = "INVALID_CREDENTIAL"
	TextCodeAuditWriteFailed  = "AUDIT_WRITE_FAILED"
	TextCodeConfiguration     = "CONFIGURATION_ERROR"
	TextCodeInvalidRole       = "INVALID_ROLE"
	TextCodeInvalidAudit      = "INVALID_AUDIT_INPUT"
)

// ErrUnauthorized is raised by AccessGuard when no usable credential was presented.
// Missing, expired, tampered and malformed credentials all map to it.
var ErrUnauthorized = errors.New("unauthorized", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeUnauthorized)

// ErrForbidden is raised when the credential is valid but its role is not allowed
var ErrForbidden = errors.New("forbidden", errors.CategoryAuthz).
	WithCode(errors.CodeForbidden).
	WithTextCode(TextCodeForbidden)

// ErrInvalidCredential is the single failure TokenService.Verify reports
var ErrInvalidCredential = errors.New("invalid credential", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCredential)

// ErrAuditWriteFailed reports an audit entry that could not be persisted.
// It is non-fatal: callers log it and carry on with the primary operation.
var ErrAuditWriteFailed = errors.New("audit write failed", errors.CategoryOperation).
	WithCode(errors.CodeInternal).
	WithTextCode(TextCodeAuditWriteFailed).
	WithSeverity(errors.SeverityWarning)

// ErrConfiguration is returned at startup when required settings are missing
var ErrConfiguration = errors.New("invalid auth configuration", errors.CategoryInternal).
	WithCode(errors.CodeInternal).
	WithTextCode(TextCodeConfiguration).
	WithSeverity(errors.SeverityFatal)

// ErrInvalidRole is returned when a role is outside the closed set
var ErrInvalidRole = errors.New("invalid role", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest).
	WithTextCode(TextCodeInvalidRole)

// ErrInvalidAuditInput is returned when Record receives values outside the closed sets
var ErrInvalidAuditInput = errors.New("invalid audit input", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest).
	WithTextCode(TextCodeInvalidAudit)

// ErrInvalidLogin is returned for unknown accounts and wrong passwords alike
var ErrInvalidLogin = errors.New("invalid identifier or password", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(errors.TextCodeInvalidCredentials)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = errors.New("empty password not allowed", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest).
	WithTextCode(errors.TextCodeEmptyPassword)

// ErrPasswordTooLong is returned for passwords bcrypt would truncate
var ErrPasswordTooLong = errors.New("password too long", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned when a password does not match its hash
var ErrMismatchedHashAndPassword = errors.New("password does not match", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// kindOf returns a private copy of a sentinel that still satisfies errors.Is.
func kindOf(sentinel *errors.Error, metas ...map[string]any) *errors.Error {
	clone := sentinel.Clone()
	clone.Source = sentinel
	clone.Metadata = nil
	if len(metas) > 0 {
		clone = clone.WithMetadata(metas...)
	}
	return clone
}

func unauthorized() error {
	return kindOf(ErrUnauthorized)
}

func forbidden(role Role) error {
	return kindOf(ErrForbidden, map[string]any{"role": string(role)})
}

func invalidCredential() error {
	return kindOf(ErrInvalidCredential)
}

func configurationError(setting string) error {
	clone := kindOf(ErrConfiguration, map[string]any{"setting": setting})
	clone.Message = "missing required setting: " + setting
	return clone
}

func auditWriteFailed(entryID string, cause error) error {
	meta := map[string]any{"entry_id": entryID}
	if cause != nil {
		meta["cause"] = cause.Error()
	}
	return kindOf(ErrAuditWriteFailed, meta)
}

// IdentityNotFound is returned by account stores for unknown identifiers
func IdentityNotFound(identifier string) error {
	return kindOf(ErrIdentityNotFound, map[string]any{"identifier": identifier})
}

// IsUnauthorized reports whether err is (or wraps) ErrUnauthorized
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsForbidden reports whether err is (or wraps) ErrForbidden
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsInvalidCredential reports whether err is (or wraps) ErrInvalidCredential
func IsInvalidCredential(err error) bool {
	return errors.Is(err, ErrInvalidCredential)
}

// IsAuditWriteFailed reports whether err is (or wraps) ErrAuditWriteFailed
func IsAuditWriteFailed(err error) bool {
	return errors.Is(err, ErrAuditWriteFailed)
}

// IsConfigurationError reports whether err is (or wraps) ErrConfiguration
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// StatusCode maps an error to the HTTP status a route handler should answer with.
// Only the two guard kinds are distinguished; everything else is a 500.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsUnauthorized(err):
		return http.StatusUnauthorized
	case IsForbidden(err):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
