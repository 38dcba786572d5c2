package echoapi

import (
	"io/ioutil"
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aurorarobotics/aurora/core"
	"github.com/aurorarobotics/aurora/core/content"
	"github.com/aurorarobotics/aurora/core/payment"
	"github.com/aurorarobotics/aurora/core/referral"
	"github.com/aurorarobotics/aurora/core/student"
)

const (
	maxWebhookBody  = 64 << 10
	signatureHeader = "x-paystack-signature"
)

type publicApi struct {
	siteBaseURL string
	logger      core.Logger
	validate    *validator.Validate
	contentSvc  *content.Service
	studentSvc  *student.Service
	paymentSvc  *payment.Service
	referralSvc *referral.Service
}

func registerPublicAPI(app *echo.Echo, g *echo.Group, deps Deps, limiter echo.MiddlewareFunc) {
	api := publicApi{
		siteBaseURL: deps.Conf.SiteBaseURL,
		logger:      deps.Logger,
		validate:    deps.Validate,
		contentSvc:  deps.ContentSvc,
		studentSvc:  deps.StudentSvc,
		paymentSvc:  deps.PaymentSvc,
		referralSvc: deps.ReferralSvc,
	}

	g.GET("/pages/:slug", api.page)
	g.POST("/registrations", api.register, limiter)
	g.GET("/payments/verify/:reference", api.verifyPayment)
	g.POST("/payments/webhook", api.webhook)
	g.GET("/certificates/:code", api.certificate)

	app.GET("/r/:code", api.referralRedirect)
}

func (api *publicApi) page(ctx echo.Context) error {
	snap, err := api.contentSvc.GetPublished(ctx.Request().Context(), ctx.Param("slug"))
	if err != nil {
		return errors.Wrap(err, "getting published page")
	}
	return ctx.JSON(http.StatusOK, snap)
}

func (api *publicApi) register(ctx echo.Context) error {
	var data payment.NewRegistration
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRegistration")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.paymentSvc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *publicApi) verifyPayment(ctx echo.Context) error {
	p, err := api.paymentSvc.Verify(ctx.Request().Context(), ctx.Param("reference"))
	if err != nil {
		return errors.Wrap(err, "verifying payment")
	}
	return ctx.JSON(http.StatusOK, PaymentStatus{
		Reference:   p.Reference,
		Status:      p.Status,
		AmountMinor: p.AmountMinor,
		Currency:    p.Currency,
		PaidAt:      p.PaidAt,
	})
}

func (api *publicApi) webhook(ctx echo.Context) error {
	req := ctx.Request()
	body, err := ioutil.ReadAll(http.MaxBytesReader(ctx.Response(), req.Body, maxWebhookBody))
	if err != nil {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "request body too large")
	}

	if err = api.paymentSvc.HandleWebhook(req.Context(), body, req.Header.Get(signatureHeader)); err != nil {
		return errors.Wrap(err, "handling webhook")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"received": true})
}

func (api *publicApi) certificate(ctx echo.Context) error {
	cert, err := api.studentSvc.Verify(ctx.Request().Context(), ctx.Param("code"))
	if err != nil {
		return errors.Wrap(err, "verifying certificate")
	}
	return ctx.JSON(http.StatusOK, cert)
}

// referralRedirect counts the click and sends the visitor to the site. Unknown and
// inactive codes still land on the site, without the ref parameter.
func (api *publicApi) referralRedirect(ctx echo.Context) error {
	target := api.siteBaseURL

	link, err := api.referralSvc.TrackClick(ctx.Request().Context(), ctx.Param("code"))
	switch errors.Cause(err) {
	case nil:
		target += "?" + url.Values{"ref": {link.Code}}.Encode()
	case referral.ErrNotFound:
	default:
		api.logger.Error("tracking referral click", err)
	}
	return ctx.Redirect(http.StatusFound, target)
}
