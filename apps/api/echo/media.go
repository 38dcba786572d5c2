package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aurorarobotics/aurora/core"
	"github.com/aurorarobotics/aurora/core/media"
)

type mediaApi struct {
	svc *media.Service
}

func registerMediaAPI(g *echo.Group, svc *media.Service) {
	api := mediaApi{svc: svc}

	mg := g.Group("/media")
	mg.GET("", api.query)
	mg.POST("", api.upload)
	mg.GET("/:id", api.retrieve)
	mg.DELETE("/:id", api.destroy)
}

func (api *mediaApi) query(ctx echo.Context) error {
	filter := new(media.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []media.Item{})
	}
	filter.Clean()

	items, err := api.svc.Query(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying media")
	}
	if items == nil {
		items = []media.Item{}
	}
	return ctx.JSON(http.StatusOK, items)
}

// upload stores the multipart `file` field.
func (api *mediaApi) upload(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewFieldError("file", errors.New("a file is required"))
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer f.Close()

	item, err := api.svc.Upload(ctx.Request().Context(), fh.Filename, f)
	if err != nil {
		return errors.Wrap(err, "uploading media")
	}
	return ctx.JSON(http.StatusCreated, item)
}

func (api *mediaApi) retrieve(ctx echo.Context) error {
	item, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting media item")
	}
	return ctx.JSON(http.StatusOK, item)
}

func (api *mediaApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting media item")
	}
	return ctx.NoContent(http.StatusNoContent)
}
