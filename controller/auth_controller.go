package controller

import (
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"

	auth "github.com/jobboard/go-auth"
	"github.com/jobboard/go-auth/middleware/jwtware"
)

type AuthControllerRoutes struct {
	Login   string
	Logout  string
	Refresh string
	Me      string
}

type AuthController struct {
	Debug      bool
	Secure     bool
	Logger     auth.Logger
	Routes     *AuthControllerRoutes
	Auther     *auth.Auther
	Guard      *auth.AccessGuard
	ContextKey string
}

type AuthControllerOption func(*AuthController) *AuthController

// WithSecureCookies marks the credential cookie Secure
func WithSecureCookies(secure bool) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		ac.Secure = secure
		return ac
	}
}

// WithControllerLogger sets the logger
func WithControllerLogger(logger auth.Logger) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		if logger != nil {
			ac.Logger = logger
		}
		return ac
	}
}

// WithDebug dumps login payloads, without the password, to stdout
func WithDebug(debug bool) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		ac.Debug = debug
		return ac
	}
}

func NewAuthController(auther *auth.Auther, guard *auth.AccessGuard, opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:     auth.DefaultLogger(),
		Auther:     auther,
		Guard:      guard,
		ContextKey: jwtware.DefaultContextKey,
		Routes: &AuthControllerRoutes{
			Login:   "/login",
			Logout:  "/logout",
			Refresh: "/refresh",
			Me:      "/me",
		},
	}

	for _, opt := range opts {
		if opt != nil {
			c = opt(c)
		}
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.Guard == nil {
		panic("Missing AccessGuard in auth controller...")
	}

	return c
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
}

// Validate will run validation rules. The identifier is an email or an
// account id.
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Identifier, validation.Required, validation.By(emailOrAccountID)),
		validation.Field(&r.Password, validation.Required, validation.Length(1, auth.MaxPasswordBytes)),
	)
}

func emailOrAccountID(value any) error {
	s, _ := value.(string)
	if is.EmailFormat.Validate(s) == nil || is.UUID.Validate(s) == nil {
		return nil
	}
	return validation.NewError("validation_identifier", "must be an email address or an account id")
}

// SessionResponse is returned by login and refresh
type SessionResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Principal auth.Principal `json:"principal"`
}

func (a *AuthController) LoginPost(c router.Context) error {
	payload := new(LoginRequest)

	if err := c.Bind(payload); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "unable to parse login payload")
	}

	payload.Identifier = strings.TrimSpace(payload.Identifier)

	if err := payload.Validate(); err != nil {
		return errors.FromOzzoValidation(err, "invalid login payload")
	}

	if a.Debug {
		a.Logger.Debug("login attempt: %s", print.MaybePrettyJSON(map[string]any{
			"identifier": payload.Identifier,
		}))
	}

	token, principal, err := a.Auther.Login(c.Context(), payload.Identifier, payload.Password, jwtware.RequestMeta(c))
	if err != nil {
		return err
	}

	a.setCookie(c, token, principal.ExpiresAt)

	return c.JSON(http.StatusOK, SessionResponse{
		Token:     token,
		ExpiresAt: principal.ExpiresAt,
		Principal: *principal,
	})
}

func (a *AuthController) LogoutPost(c router.Context) error {
	principal, ok := jwtware.PrincipalFromLocals(c, a.ContextKey)
	if !ok {
		return auth.ErrUnauthorized
	}

	a.Auther.Logout(c.Context(), principal, "", jwtware.RequestMeta(c))
	a.clearCookie(c)

	return c.NoContent(http.StatusNoContent)
}

func (a *AuthController) RefreshPost(c router.Context) error {
	principal, ok := jwtware.PrincipalFromLocals(c, a.ContextKey)
	if !ok {
		return auth.ErrUnauthorized
	}

	token, err := a.Auther.Reissue(principal)
	if err != nil {
		return err
	}

	refreshed, err := a.Auther.TokenService().Verify(token)
	if err != nil {
		return err
	}

	a.setCookie(c, token, refreshed.ExpiresAt)

	return c.JSON(http.StatusOK, SessionResponse{
		Token:     token,
		ExpiresAt: refreshed.ExpiresAt,
		Principal: *refreshed,
	})
}

func (a *AuthController) MeGet(c router.Context) error {
	principal, ok := jwtware.PrincipalFromLocals(c, a.ContextKey)
	if !ok {
		return auth.ErrUnauthorized
	}
	return c.JSON(http.StatusOK, principal)
}

func (a *AuthController) setCookie(c router.Context, token string, expires time.Time) {
	c.Cookie(&router.Cookie{
		Name:     a.Guard.CookieName(),
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   a.Secure,
		SameSite: router.CookieSameSiteLaxMode,
	})
}

func (a *AuthController) clearCookie(c router.Context) {
	c.Cookie(&router.Cookie{
		Name:     a.Guard.CookieName(),
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   a.Secure,
		SameSite: router.CookieSameSiteLaxMode,
	})
}
