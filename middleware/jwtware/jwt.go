package jwtware

import (
	"net/http"

	"github.com/goliatone/go-router"

	auth "github.com/jobboard/go-auth"
)

// ValidationListener is invoked after the caller has been verified and
// authorized, before the request proceeds.
type ValidationListener func(ctx router.Context, principal auth.Principal) error

type Config struct {
	Filter         func(router.Context) bool
	SuccessHandler router.HandlerFunc
	ErrorHandler   router.ErrorHandler
	// Guard is required
	Guard *auth.AccessGuard
	// Roles restricts the route. Empty means any verified caller.
	Roles []auth.Role
	// ContextKey is the Locals key the principal is stored under
	ContextKey string

	ValidationListeners []ValidationListener
}

// New returns a middleware that resolves the caller through the guard, stores
// the principal in Locals and in the request context, and rejects the request
// with ErrUnauthorized or ErrForbidden.
func New(config ...Config) router.MiddlewareFunc {
	cfg := GetDefaultConfig(config...)
	allowed := auth.NewRoleSet(cfg.Roles...)

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			req := Request(ctx)

			var (
				principal *auth.Principal
				err       error
			)
			if len(cfg.Roles) > 0 {
				principal, err = cfg.Guard.RequireRole(req, allowed)
			} else {
				principal, err = cfg.Guard.RequireIdentity(req)
			}
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			if err := cfg.runValidationListeners(ctx, *principal); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, *principal)
			ctx.SetContext(auth.WithPrincipal(ctx.Context(), principal))

			return cfg.SuccessHandler(ctx)
		}
	}
}

// PrincipalFromLocals returns the principal stored by the middleware
func PrincipalFromLocals(ctx router.Context, key ...string) (auth.Principal, bool) {
	k := DefaultContextKey
	if len(key) > 0 && key[0] != "" {
		k = key[0]
	}
	p, ok := ctx.Locals(k).(auth.Principal)
	return p, ok
}

// DefaultContextKey is the Locals key used when Config.ContextKey is empty
const DefaultContextKey = "principal"

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = DefaultErrorHandler
	}

	if cfg.Guard == nil {
		panic("AUTH: JWT middleware configuration: Guard is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	return cfg
}

// DefaultErrorHandler answers with the guard status and a generic body that
// does not reveal why the credential was rejected.
func DefaultErrorHandler(ctx router.Context, err error) error {
	switch status := auth.StatusCode(err); status {
	case http.StatusUnauthorized:
		return ctx.Status(status).SendString("Unauthorized")
	case http.StatusForbidden:
		return ctx.Status(status).SendString("Forbidden")
	default:
		return ctx.Status(http.StatusInternalServerError).SendString("Internal Server Error")
	}
}

func (cfg *Config) runValidationListeners(ctx router.Context, principal auth.Principal) error {
	for _, listener := range cfg.ValidationListeners {
		if listener == nil {
			continue
		}
		if err := listener(ctx, principal); err != nil {
			return err
		}
	}
	return nil
}
