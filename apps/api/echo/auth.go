package echoapi

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/aurorarobotics/aurora/core"
	"github.com/aurorarobotics/aurora/core/user"
)

const (
	SessionCookie = "aurora_session"

	contextTokenKey = "userToken"
	contextUserKey  = "user"
)

// Claims represents the authorization claims carried by the session cookie.
type Claims struct {
	jwt.StandardClaims
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// authenticator issues, checks and revokes admin sessions.
type authenticator struct {
	appName  string
	key      []byte
	ttl      time.Duration
	secure   bool
	sessions core.SessionStore
	usrSvc   *user.Service
	nowFunc  func() time.Time
}

func newAuthenticator(conf *core.Config, sessions core.SessionStore, usrSvc *user.Service) *authenticator {
	ttl := conf.Server.SessionTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &authenticator{
		appName:  conf.AppName,
		key:      []byte(conf.SecretKey),
		ttl:      ttl,
		secure:   conf.Server.CookieSecure,
		sessions: sessions,
		usrSvc:   usrSvc,
		nowFunc:  time.Now,
	}
}

// GetUserClaims returns fresh session claims for usr, with a new token id.
func GetUserClaims(usr user.User, issuer string, ttl time.Duration) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.New().String(),
			Issuer:    issuer,
			Subject:   usr.ID,
			ExpiresAt: now.Add(ttl).Unix(),
			IssuedAt:  now.Unix(),
		},
		Email: usr.Email,
		Roles: usr.Roles,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(claims *Claims, key []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(key)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (a *authenticator) jwtConfig() middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    a.key,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
		TokenLookup:   "cookie:" + SessionCookie,
	}
}

// middleware authenticates the session cookie, then rejects revoked sessions and
// deactivated accounts.
func (a *authenticator) middleware() []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{middleware.JWTWithConfig(a.jwtConfig()), a.sessionMiddleware}
}

func (a *authenticator) sessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return err
		}
		revoked, err := a.sessions.IsRevoked(ctx.Request().Context(), claims.Id)
		if err != nil {
			return errors.Wrap(err, "checking session")
		}
		if revoked {
			return errSessionRevoked
		}

		usr, err := getContextUser(ctx, a.usrSvc)
		if err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				return errUnauthorized
			}
			return errors.Wrap(err, "getting context user")
		}
		if !usr.IsActive {
			return errAccountDeactivated
		}
		return next(ctx)
	}
}

func (a *authenticator) setCookie(ctx echo.Context, value string, expires time.Time) {
	ctx.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     adminPrefix,
		Expires:  expires,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// login checks the credentials and starts a session.
func (a *authenticator) login(ctx echo.Context, email, pwd string) (user.User, error) {
	usr, err := a.usrSvc.Authenticate(ctx.Request().Context(), email, pwd)
	if err != nil {
		return user.User{}, err
	}
	claims := GetUserClaims(usr, a.appName, a.ttl)
	token, err := GenerateToken(claims, a.key)
	if err != nil {
		return user.User{}, err
	}
	a.setCookie(ctx, token, time.Unix(claims.ExpiresAt, 0))
	return usr, nil
}

// logout revokes the session until it would have expired and clears the cookie.
func (a *authenticator) logout(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	ttl := time.Unix(claims.ExpiresAt, 0).Sub(a.nowFunc())
	if err = a.sessions.Revoke(ctx.Request().Context(), claims.Id, ttl); err != nil {
		return errors.Wrap(err, "revoking session")
	}
	a.setCookie(ctx, "", time.Unix(0, 0))
	return nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextUser(ctx echo.Context, svc *user.Service) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting context claims")
	}
	usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

// ownerMiddleware lets through users with the owner role only.
func ownerMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if !usr.IsOwner() {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

type sessionApi struct {
	auth     *authenticator
	validate *validator.Validate
}

func registerSessionAPI(g *echo.Group, auth *authenticator, validate *validator.Validate) {
	api := sessionApi{auth: auth, validate: validate}

	g.POST("/login", api.login)
	g.POST("/logout", api.logout, auth.middleware()...)
	g.GET("/me", api.me, auth.middleware()...)
}

func (api *sessionApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.auth.login(ctx, data.Email, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *sessionApi) logout(ctx echo.Context) error {
	if err := api.auth.logout(ctx); err != nil {
		return errors.Wrap(err, "logging out")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sessionApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.auth.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, usr)
}
