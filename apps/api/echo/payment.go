package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aurorarobotics/aurora/core/payment"
)

type paymentApi struct {
	svc *payment.Service
}

func registerPaymentAPI(g *echo.Group, svc *payment.Service) {
	api := paymentApi{svc: svc}

	g.GET("/registrations", api.queryRegistrations)
	g.GET("/registrations/:id", api.retrieveRegistration)

	pg := g.Group("/payments")
	pg.GET("", api.queryPayments)
	pg.GET("/:reference", api.retrievePayment)
	pg.POST("/:reference/verify", api.verify)
}

func (api *paymentApi) queryRegistrations(ctx echo.Context) error {
	filter := new(payment.RegistrationFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []payment.Registration{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	regs, err := api.svc.QueryRegistrations(ctx.Request().Context(), *filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying registrations")
	}
	if regs == nil {
		regs = []payment.Registration{}
	}
	return ctx.JSON(http.StatusOK, regs)
}

func (api *paymentApi) retrieveRegistration(ctx echo.Context) error {
	reg, err := api.svc.GetRegistration(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting registration")
	}
	return ctx.JSON(http.StatusOK, reg)
}

func (api *paymentApi) queryPayments(ctx echo.Context) error {
	filter := new(payment.PaymentFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []payment.Payment{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	payments, err := api.svc.QueryPayments(ctx.Request().Context(), *filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	if payments == nil {
		payments = []payment.Payment{}
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (api *paymentApi) retrievePayment(ctx echo.Context) error {
	p, err := api.svc.GetPayment(ctx.Request().Context(), ctx.Param("reference"))
	if err != nil {
		return errors.Wrap(err, "getting payment")
	}
	return ctx.JSON(http.StatusOK, p)
}

// verify re-checks a payment with the gateway, for payments whose webhook never arrived.
func (api *paymentApi) verify(ctx echo.Context) error {
	p, err := api.svc.Verify(ctx.Request().Context(), ctx.Param("reference"))
	if err != nil {
		return errors.Wrap(err, "verifying payment")
	}
	return ctx.JSON(http.StatusOK, p)
}
