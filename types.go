package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAudience() []string
	GetCookieName() string
	GetAuthScheme() string
	GetEnvironment() string
}

// IdentityProvider ensure we have a store to verify login attempts against
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, identifier, password string) (*Account, error)
}

// CredentialVerifier turns a raw credential back into a Principal.
type CredentialVerifier interface {
	Verify(credential string) (*Principal, error)
}

// CredentialVerifierFunc adapts a function into a CredentialVerifier.
type CredentialVerifierFunc func(credential string) (*Principal, error)

// Verify satisfies the CredentialVerifier interface.
func (f CredentialVerifierFunc) Verify(credential string) (*Principal, error) {
	if f == nil {
		return nil, invalidCredential()
	}
	return f(credential)
}

// glogLogger adapts a structured go-logger logger to Logger. The message is
// formatted up front; the first error argument is also attached under "error"
// so the rich error handler can expand it.
type glogLogger struct {
	l glog.Logger
}

// FromGlog wraps a go-logger logger. A nil logger discards everything.
func FromGlog(l glog.Logger) Logger {
	if l == nil {
		return NopLogger{}
	}
	return glogLogger{l: l}
}

func (g glogLogger) Debug(format string, args ...any) {
	g.l.Debug(fmt.Sprintf(format, args...), errorAttr(args)...)
}

func (g glogLogger) Info(format string, args ...any) {
	g.l.Info(fmt.Sprintf(format, args...), errorAttr(args)...)
}

func (g glogLogger) Warn(format string, args ...any) {
	g.l.Warn(fmt.Sprintf(format, args...), errorAttr(args)...)
}

func (g glogLogger) Error(format string, args ...any) {
	g.l.Error(fmt.Sprintf(format, args...), errorAttr(args)...)
}

func errorAttr(args []any) []any {
	for _, arg := range args {
		if err, ok := arg.(error); ok && err != nil {
			return []any{"error", err}
		}
	}
	return nil
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}

var defaultLogger = sync.OnceValue(func() Logger {
	return FromGlog(glog.NewLogger(
		glog.WithName("auth"),
		glog.WithLoggerTypeConsole(),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	))
})

// DefaultLogger returns the console logger used when none is configured.
func DefaultLogger() Logger {
	return defaultLogger()
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return DefaultLogger()
	}
	return l
}
