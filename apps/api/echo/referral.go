package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aurorarobotics/aurora/core/referral"
)

type referralApi struct {
	svc      *referral.Service
	validate *validator.Validate
}

func registerReferralAPI(g *echo.Group, svc *referral.Service, validate *validator.Validate) {
	api := referralApi{svc: svc, validate: validate}

	rg := g.Group("/referrals")
	rg.GET("", api.query)
	rg.POST("", api.create)
	rg.GET("/:id", api.retrieve)
	rg.PUT("/:id", api.setActive)
	rg.DELETE("/:id", api.destroy)
}

func (api *referralApi) query(ctx echo.Context) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	links, err := api.svc.Query(ctx.Request().Context(), ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying referral links")
	}
	if links == nil {
		links = []referral.Link{}
	}
	return ctx.JSON(http.StatusOK, links)
}

func (api *referralApi) create(ctx echo.Context) error {
	var data referral.NewLink
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLink")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	link, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating referral link")
	}
	return ctx.JSON(http.StatusCreated, link)
}

func (api *referralApi) retrieve(ctx echo.Context) error {
	link, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting referral link")
	}
	return ctx.JSON(http.StatusOK, link)
}

func (api *referralApi) setActive(ctx echo.Context) error {
	var data referral.SetActive
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetActive")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	link, err := api.svc.SetActive(ctx.Request().Context(), ctx.Param("id"), *data.IsActive)
	if err != nil {
		return errors.Wrap(err, "updating referral link")
	}
	return ctx.JSON(http.StatusOK, link)
}

func (api *referralApi) destroy(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	link, err := api.svc.Get(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting referral link")
	}
	if err = api.svc.Delete(reqCtx, link.ID); err != nil {
		return errors.Wrap(err, "deleting referral link")
	}
	return ctx.NoContent(http.StatusNoContent)
}
