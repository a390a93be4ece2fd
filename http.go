package identity

import (
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/homequest/go-identity/middleware/guardware"
)

// LoginPayload is the request shape RouteGuard.Login consumes.
type LoginPayload interface {
	GetIdentifier() string
	GetPassword() string
	GetExtendedSession() bool
}

// RouteGuard wires the session manager, token service, and guard middleware
// into HTTP routes: cookie issuance on login, token checks plus role and
// verification gating on protected routes.
type RouteGuard struct {
	sessions               *SessionManager
	tokens                 TokenService
	cfg                    Config
	cookieDuration         time.Duration
	extendedCookieDuration time.Duration
	Logger                 Logger
	AuthErrorHandler       func(c router.Context, err error) error
	ErrorHandler           func(c router.Context, err error) error
}

func NewRouteGuard(sessions *SessionManager, tokens TokenService, cfg Config) (*RouteGuard, error) {
	cookieDuration := 24 * time.Hour
	if cfg.GetTokenExpiration() > 0 {
		cookieDuration = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}

	extendedCookieDuration := cookieDuration
	if cfg.GetExtendedTokenDuration() > 0 {
		extendedCookieDuration = time.Duration(cfg.GetExtendedTokenDuration()) * time.Hour
	}

	g := &RouteGuard{
		sessions:               sessions,
		tokens:                 tokens,
		cfg:                    cfg,
		Logger:                 defLogger{},
		cookieDuration:         cookieDuration,
		extendedCookieDuration: extendedCookieDuration,
	}

	g.ErrorHandler = g.defaultErrHandler
	g.AuthErrorHandler = g.defaultAuthErrHandler

	return g, nil
}

func (g RouteGuard) GetCookieDuration() time.Duration {
	return g.cookieDuration
}

func (g RouteGuard) GetExtendedCookieDuration() time.Duration {
	return g.extendedCookieDuration
}

// ProtectedRoute guards a route with token validation plus every check the
// gate config names, approval included. Role names go through the canonical
// role mapping inside the claims.
func (g *RouteGuard) ProtectedRoute(gate GateConfig, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	allowed := make([]string, 0, len(gate.AllowedRoles))
	for _, role := range gate.AllowedRoles {
		allowed = append(allowed, string(role))
	}

	handler := errorHandler
	if handler != nil {
		handler = func(ctx router.Context, err error) error {
			return errorHandler(ctx, translateGuardError(err))
		}
	}

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return guardware.New(guardware.Config{
			ErrorHandler: handler,
			SigningKey: guardware.SigningKey{
				Key:    []byte(g.cfg.GetSigningKey()),
				JWTAlg: g.cfg.GetSigningMethod(),
			},
			AuthScheme:          g.cfg.GetAuthScheme(),
			ContextKey:          g.cfg.GetContextKey(),
			TokenLookup:         g.cfg.GetTokenLookup(),
			TokenValidator:      guardValidator{tokens: g.tokens},
			AllowedRoles:        allowed,
			RequireVerification: gate.RequireVerification,
			RequireApproval:     gate.RequireApproval,
		})(hf)
	}
}

// translateGuardError maps middleware authorization failures onto the package
// error taxonomy, so HTTP handlers see the same text codes the gate produces.
func translateGuardError(err error) error {
	switch {
	case errors.Is(err, guardware.ErrNotApproved):
		return ErrAccountNotApproved
	case errors.Is(err, guardware.ErrNotVerified):
		return ErrAccountNotVerified
	case errors.Is(err, guardware.ErrRoleNotAllowed):
		return ErrForbiddenRole
	default:
		return err
	}
}

// Login authenticates the payload, mints a session token, and sets it as an
// HTTP-only cookie.
func (g *RouteGuard) Login(ctx router.Context, payload LoginPayload) error {
	identity, profile, err := g.sessions.SignIn(ctx.Context(), payload.GetIdentifier(), payload.GetPassword())
	if err != nil {
		g.Logger.Error("Login error: %s", err)
		return err
	}

	token, err := g.tokens.Generate(identity, profile)
	if err != nil {
		g.Logger.Error("Login token error: %s", err)
		return err
	}

	duration := g.cookieDuration
	if payload.GetExtendedSession() {
		duration = g.extendedCookieDuration
	}

	g.setCookieToken(ctx, token, duration)
	return nil
}

// Logout clears the session cookie and the in-process session.
func (g *RouteGuard) Logout(ctx router.Context) {
	g.sessions.SignOut(ctx.Context())
	g.cookieDel(ctx, g.cfg.GetContextKey())
}

func (g *RouteGuard) MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		if errors.As(err, &richErr) {
			switch richErr.TextCode {
			case ErrTokenExpired.TextCode, ErrTokenMalformed.TextCode,
				ErrForbiddenRole.TextCode, ErrAccountNotVerified.TextCode, ErrAccountNotApproved.TextCode:
			default:
				richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
					WithCode(errors.CodeUnauthorized)
			}
		} else {
			richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
				WithCode(errors.CodeUnauthorized)
		}

		if optional {
			g.Logger.Info("Optional auth failed, proceeding: %s", richErr.Message)
			return ctx.Next()
		}

		return g.ErrorHandler(ctx, richErr)
	}
}

func (g *RouteGuard) GetRedirect(ctx router.Context, def ...string) string {
	rejectedRoute := g.cfg.GetRejectedRouteKey()
	r := ctx.Cookies(rejectedRoute)
	if r == "" {
		return def[0]
	}
	g.cookieDel(ctx, rejectedRoute)
	return r
}

func (g *RouteGuard) GetRedirectOrDefault(ctx router.Context) string {
	rejectedRoute := g.cfg.GetRejectedRouteKey()
	refererHeader := string(ctx.Referer())

	r := ctx.Cookies(rejectedRoute, refererHeader)
	if r == "" {
		r = g.cfg.GetRejectedRouteDefault()
	}
	g.cookieDel(ctx, rejectedRoute)
	return r
}

func (g *RouteGuard) SetRedirect(ctx router.Context) {
	rejectedRoute := g.cfg.GetRejectedRouteKey()

	g.Logger.Info("Setting redirect cookie %s for %s", rejectedRoute, ctx.OriginalURL())

	ctx.Cookie(&router.Cookie{
		Name:     rejectedRoute,
		Value:    ctx.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (g *RouteGuard) setCookieToken(c router.Context, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     g.cfg.GetContextKey(),
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (g *RouteGuard) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (g *RouteGuard) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "An unexpected authentication error").
			WithCode(errors.CodeUnauthorized)
	}

	g.Logger.Info(
		"Authentication error %q (%s), redirecting to login from %s",
		richErr.Message,
		richErr.TextCode,
		c.OriginalURL(),
	)

	g.SetRedirect(c)

	statusCode := http.StatusSeeOther
	if c.Method() == string(router.GET) {
		statusCode = http.StatusFound
	}
	return c.Redirect("/login", statusCode)
}

func (g *RouteGuard) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	g.Logger.Info(
		"Middleware error handler %q (%s): %s",
		richErr.Message,
		richErr.Category,
		print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return g.AuthErrorHandler(c, richErr)
	default:
		return c.JSON(richErr.Code, router.ViewContext{
			"error": richErr,
		})
	}
}

// guardValidator adapts the package TokenService to the middleware's
// validator interface.
type guardValidator struct {
	tokens TokenService
}

func (v guardValidator) Validate(tokenString string) (guardware.AuthClaims, error) {
	claims, err := v.tokens.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
