package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/aurorarobotics/aurora/core"
	"github.com/aurorarobotics/aurora/core/content"
	"github.com/aurorarobotics/aurora/core/mailer"
	"github.com/aurorarobotics/aurora/core/media"
	"github.com/aurorarobotics/aurora/core/payment"
	"github.com/aurorarobotics/aurora/core/referral"
	"github.com/aurorarobotics/aurora/core/student"
	"github.com/aurorarobotics/aurora/core/user"
)

var (
	errUnauthorized       = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errSessionRevoked     = echo.NewHTTPError(http.StatusUnauthorized, "session has been revoked")
	errAccountDeactivated = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errHttpForbidden      = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound       = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// domainErrCodes maps the sentinel errors of the core packages to HTTP status codes.
var domainErrCodes = map[error]int{
	user.ErrNotFound:                http.StatusNotFound,
	user.ErrInvalidCredentials:      http.StatusBadRequest,
	user.ErrAccountDeactivated:      http.StatusForbidden,
	content.ErrNotFound:             http.StatusNotFound,
	content.ErrSectionNotFound:      http.StatusNotFound,
	content.ErrBlockNotFound:        http.StatusNotFound,
	content.ErrPublishedNotFound:    http.StatusNotFound,
	student.ErrNotFound:             http.StatusNotFound,
	student.ErrInvalidCode:          http.StatusBadRequest,
	student.ErrNoEmailColumn:        http.StatusBadRequest,
	student.ErrEmptyFile:            http.StatusBadRequest,
	student.ErrUnsupportedFormat:    http.StatusBadRequest,
	payment.ErrNotFound:             http.StatusNotFound,
	payment.ErrRegistrationNotFound: http.StatusNotFound,
	payment.ErrInvalidSignature:     http.StatusUnauthorized,
	payment.ErrInvalidPayload:       http.StatusBadRequest,
	payment.ErrAmountMismatch:       http.StatusBadRequest,
	referral.ErrNotFound:            http.StatusNotFound,
	mailer.ErrTemplateNotFound:      http.StatusNotFound,
	mailer.ErrDailyCapReached:       http.StatusTooManyRequests,
	mailer.ErrNoRecipients:          http.StatusBadRequest,
	media.ErrNotFound:               http.StatusNotFound,
	media.ErrTooLarge:               http.StatusRequestEntityTooLarge,
	media.ErrUnsupportedType:        http.StatusUnsupportedMediaType,
	media.ErrEmptyFile:              http.StatusBadRequest,
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		switch origErr := cause.(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = errUnauthorized.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			if c, ok := domainErrCodes[cause]; ok {
				code = c
				message = cause.Error()
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID = claims.Subject
				usr.Email = claims.Email
			}
			logger.Error(msg, errors.Wrap(err, msg), usr)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
