package controller

import (
	"github.com/goliatone/go-router"

	auth "github.com/jobboard/go-auth"
	"github.com/jobboard/go-auth/middleware/jwtware"
)

// passError hands guard failures to ErrorMiddleware
func passError(_ router.Context, err error) error {
	return err
}

// RegisterAuthRoutes mounts login, logout, refresh and me under r
func RegisterAuthRoutes[T any](r router.Router[T], controller *AuthController) {
	protected := jwtware.New(jwtware.Config{
		Guard:        controller.Guard,
		ContextKey:   controller.ContextKey,
		ErrorHandler: passError,
	})

	r.Post(controller.Routes.Login, controller.LoginPost).SetName("auth.login")
	r.Post(controller.Routes.Logout, controller.LogoutPost, protected).SetName("auth.logout")
	r.Post(controller.Routes.Refresh, controller.RefreshPost, protected).SetName("auth.refresh")
	r.Get(controller.Routes.Me, controller.MeGet, protected).SetName("auth.me")
}

// RegisterAuditRoutes mounts the admin only ledger listing under r
func RegisterAuditRoutes[T any](r router.Router[T], guard *auth.AccessGuard, controller *AuditController) {
	adminOnly := jwtware.New(jwtware.Config{
		Guard:        guard,
		Roles:        []auth.Role{auth.RoleAdmin},
		ErrorHandler: passError,
	})

	r.Get("/audit", controller.List, adminOnly).SetName("admin.audit")
}
