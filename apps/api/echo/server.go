package echoapi

import (
	"context"
	"net/http"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/httprate"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/aurorarobotics/aurora/core"
	"github.com/aurorarobotics/aurora/core/content"
	"github.com/aurorarobotics/aurora/core/mailer"
	"github.com/aurorarobotics/aurora/core/media"
	"github.com/aurorarobotics/aurora/core/payment"
	"github.com/aurorarobotics/aurora/core/referral"
	"github.com/aurorarobotics/aurora/core/student"
	"github.com/aurorarobotics/aurora/core/user"
)

const adminPrefix = "/api/admin"

type (
	Deps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Sessions   core.SessionStore

		UserSvc     *user.Service
		ContentSvc  *content.Service
		StudentSvc  *student.Service
		PaymentSvc  *payment.Service
		ReferralSvc *referral.Service
		MailerSvc   *mailer.Service
		MediaSvc    *media.Service

		// DisableReqLogs turns off the request logger (tests).
		DisableReqLogs bool
	}

	Server interface {
		http.Handler
		Start() error
		Shutdown(ctx context.Context) error
		Close() error
	}

	server struct {
		deps     Deps
		app      *echo.Echo
		shutdown chan<- os.Signal
	}
)

var _ Server = (*server)(nil)

// NewServer sets up the API. shutdown, when not nil, receives a signal whenever
// a handler fails with a core shutdown error.
func NewServer(deps Deps, shutdown chan<- os.Signal) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		shutdown: shutdown,
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Pre(adminGateMiddleware(conf.AdminEnabled))
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.GET("/health", health)
	if conf.Media.Dir != "" && strings.HasPrefix(conf.Media.BaseURL, "/") {
		s.app.Static(conf.Media.BaseURL, conf.Media.Dir)
	}

	api := s.app.Group("/api")
	registerPublicAPI(s.app, api, s.deps, registrationLimiter(conf.RegistrationRateLimit))

	auth := newAuthenticator(conf, s.deps.Sessions, s.deps.UserSvc)
	admin := api.Group("/admin")
	registerSessionAPI(admin, auth, s.deps.Validate)

	authed := admin.Group("", auth.middleware()...)
	registerContentAPI(authed, s.deps.ContentSvc, s.deps.Validate)
	registerStudentAPI(authed, s.deps.StudentSvc, s.deps.MailerSvc, s.deps.Validate, conf.ImportMaxSize)
	registerPaymentAPI(authed, s.deps.PaymentSvc)
	registerReferralAPI(authed, s.deps.ReferralSvc, s.deps.Validate)
	registerEmailAPI(authed, s.deps.MailerSvc, s.deps.Validate)
	registerMediaAPI(authed, s.deps.MediaSvc)
	registerUserAPI(authed, s.deps.UserSvc, s.deps.Validate)
}

func (s *server) signalShutdown() {
	if s.shutdown == nil {
		return
	}
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *server) Start() error {
	err := s.app.Start(s.deps.Conf.Server.Host)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.app.ServeHTTP(w, r)
}

// adminGateMiddleware hides the admin surface when it is disabled: every admin path
// answers like an unknown route.
func adminGateMiddleware(enabled bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if !enabled {
				p := ctx.Request().URL.Path
				if p == adminPrefix || strings.HasPrefix(p, adminPrefix+"/") {
					return echo.ErrNotFound
				}
			}
			return next(ctx)
		}
	}
}

// registrationLimiter limits public registrations per client IP and minute. 0 disables it.
func registrationLimiter(perMinute int) echo.MiddlewareFunc {
	if perMinute <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return echo.WrapMiddleware(httprate.LimitByIP(perMinute, time.Minute))
}

func health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
