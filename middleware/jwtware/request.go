package jwtware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"

	auth "github.com/jobboard/go-auth"
)

// ClientIPKey is the Locals key CaptureClientIP stores the remote address under
const ClientIPKey = "client_ip"

type routerRequest struct {
	ctx router.Context
}

// Request adapts a router context to the guard's request view
func Request(ctx router.Context) auth.RequestReader {
	return routerRequest{ctx: ctx}
}

func (r routerRequest) Header(key string) string {
	return r.ctx.Header(key)
}

func (r routerRequest) Cookie(name string) string {
	if name == "" {
		return ""
	}
	return r.ctx.Cookies(name)
}

// CaptureClientIP is a fiber adapter option. router.Context does not expose
// the remote address, so it is copied into Locals before routing.
func CaptureClientIP(app *fiber.App) *fiber.App {
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(ClientIPKey, c.IP())
		return c.Next()
	})
	return app
}

// RequestMeta captures the caller IP and user agent for audit entries
func RequestMeta(ctx router.Context) auth.RequestMeta {
	ip, _ := ctx.Locals(ClientIPKey).(string)
	if ip == "" {
		if fwd := ctx.Header(fiber.HeaderXForwardedFor); fwd != "" {
			ip = strings.TrimSpace(strings.Split(fwd, ",")[0])
		}
	}
	return auth.RequestMeta{
		IP:        ip,
		UserAgent: ctx.Header(fiber.HeaderUserAgent),
	}
}
