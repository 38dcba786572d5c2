package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aurorarobotics/aurora/core/content"
)

type contentApi struct {
	svc      *content.Service
	validate *validator.Validate
}

func registerContentAPI(g *echo.Group, svc *content.Service, validate *validator.Validate) {
	api := contentApi{svc: svc, validate: validate}

	pg := g.Group("/pages")
	pg.GET("", api.queryPages)
	pg.POST("", api.createPage)
	pg.GET("/:id", api.retrievePage)
	pg.PUT("/:id", api.updatePage)
	pg.DELETE("/:id", api.destroyPage)
	pg.POST("/:id/publish", api.publish)
	pg.POST("/:id/unpublish", api.unpublish)
	pg.POST("/:id/sections", api.createSection)
	pg.PUT("/:id/sections/order", api.reorderSections)

	sg := g.Group("/sections")
	sg.PUT("/:id", api.updateSection)
	sg.DELETE("/:id", api.destroySection)
	sg.POST("/:id/blocks", api.createBlock)
	sg.PUT("/:id/blocks/order", api.reorderBlocks)

	bg := g.Group("/blocks")
	bg.PUT("/:id", api.updateBlock)
	bg.DELETE("/:id", api.destroyBlock)
}

// Pages

func (api *contentApi) queryPages(ctx echo.Context) error {
	pages, err := api.svc.QueryPages(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying pages")
	}
	if pages == nil {
		pages = []content.Page{}
	}
	return ctx.JSON(http.StatusOK, pages)
}

func (api *contentApi) createPage(ctx echo.Context) error {
	var data content.NewPage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPage")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	page, err := api.svc.CreatePage(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating page")
	}
	return ctx.JSON(http.StatusCreated, page)
}

func (api *contentApi) retrievePage(ctx echo.Context) error {
	tree, err := api.svc.GetPage(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting page")
	}
	return ctx.JSON(http.StatusOK, tree)
}

func (api *contentApi) updatePage(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	page, err := api.svc.GetPageRow(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting page")
	}

	var data content.UpdatePage
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePage")
	}
	if err = data.Validate(reqCtx, page, api.validate, api.svc); err != nil {
		return err
	}

	page, err = api.svc.UpdatePage(reqCtx, page, data)
	if err != nil {
		return errors.Wrap(err, "updating page")
	}
	return ctx.JSON(http.StatusOK, page)
}

func (api *contentApi) destroyPage(ctx echo.Context) error {
	if err := api.svc.DeletePage(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting page")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *contentApi) publish(ctx echo.Context) error {
	page, err := api.svc.Publish(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "publishing page")
	}
	return ctx.JSON(http.StatusOK, page)
}

func (api *contentApi) unpublish(ctx echo.Context) error {
	page, err := api.svc.Unpublish(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "unpublishing page")
	}
	return ctx.JSON(http.StatusOK, page)
}

// Sections

func (api *contentApi) createSection(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	page, err := api.svc.GetPageRow(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting page")
	}

	var data content.NewSection
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSection")
	}
	if err = data.Validate(reqCtx, page.ID, api.validate, api.svc); err != nil {
		return err
	}

	sec, err := api.svc.CreateSection(reqCtx, page.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating section")
	}
	return ctx.JSON(http.StatusCreated, sec)
}

func (api *contentApi) updateSection(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	sec, err := api.svc.GetSection(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting section")
	}

	var data content.UpdateSection
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSection")
	}
	if err = data.Validate(reqCtx, sec, api.validate, api.svc); err != nil {
		return err
	}

	sec, err = api.svc.UpdateSection(reqCtx, sec, data)
	if err != nil {
		return errors.Wrap(err, "updating section")
	}
	return ctx.JSON(http.StatusOK, sec)
}

func (api *contentApi) destroySection(ctx echo.Context) error {
	if err := api.svc.DeleteSection(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting section")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *contentApi) reorderSections(ctx echo.Context) error {
	var data content.Reorder
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Reorder")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	secs, err := api.svc.ReorderSections(ctx.Request().Context(), ctx.Param("id"), data.IDs)
	if err != nil {
		return errors.Wrap(err, "reordering sections")
	}
	return ctx.JSON(http.StatusOK, secs)
}

// Blocks

func (api *contentApi) createBlock(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	sec, err := api.svc.GetSection(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting section")
	}

	var data content.NewBlock
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBlock")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	blk, err := api.svc.CreateBlock(reqCtx, sec.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating block")
	}
	return ctx.JSON(http.StatusCreated, blk)
}

func (api *contentApi) updateBlock(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	blk, err := api.svc.GetBlock(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting block")
	}

	var data content.UpdateBlock
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateBlock")
	}
	if err = data.Validate(blk, api.validate); err != nil {
		return err
	}

	blk, err = api.svc.UpdateBlock(reqCtx, blk, data)
	if err != nil {
		return errors.Wrap(err, "updating block")
	}
	return ctx.JSON(http.StatusOK, blk)
}

func (api *contentApi) destroyBlock(ctx echo.Context) error {
	if err := api.svc.DeleteBlock(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting block")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *contentApi) reorderBlocks(ctx echo.Context) error {
	var data content.Reorder
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Reorder")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	blks, err := api.svc.ReorderBlocks(ctx.Request().Context(), ctx.Param("id"), data.IDs)
	if err != nil {
		return errors.Wrap(err, "reordering blocks")
	}
	return ctx.JSON(http.StatusOK, blks)
}
