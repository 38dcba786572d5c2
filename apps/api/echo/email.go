package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aurorarobotics/aurora/core"
	"github.com/aurorarobotics/aurora/core/mailer"
)

type emailApi struct {
	svc      *mailer.Service
	validate *validator.Validate
}

func registerEmailAPI(g *echo.Group, svc *mailer.Service, validate *validator.Validate) {
	api := emailApi{svc: svc, validate: validate}

	eg := g.Group("/emails")
	eg.POST("/send", api.send)
	eg.GET("/logs", api.queryLogs)
	eg.GET("/stats", api.stats)

	tg := eg.Group("/templates")
	tg.GET("", api.queryTemplates)
	tg.GET("/:key", api.retrieveTemplate)
	tg.PUT("/:key", api.saveTemplate)
	tg.DELETE("/:key", api.destroyTemplate)
}

func (api *emailApi) send(ctx echo.Context) error {
	var data mailer.SendRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SendRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.Send(ctx.Request().Context(), data.Message()); err != nil {
		return errors.Wrap(err, "sending email")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Email sent."})
}

// queryLogs accepts status, recipient and since (RFC 3339 or YYYY-MM-DD) query params.
func (api *emailApi) queryLogs(ctx echo.Context) error {
	filter := mailer.LogFilter{
		Status:    ctx.QueryParam("status"),
		Recipient: ctx.QueryParam("recipient"),
	}
	if v := ctx.QueryParam("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			if since, err = time.Parse("2006-01-02", v); err != nil {
				return core.NewFieldError("since", errors.New("must be a date or an RFC 3339 timestamp"))
			}
		}
		filter.Since = since
	}
	filter.Clean()

	logs, err := api.svc.QueryLogs(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying email logs")
	}
	if logs == nil {
		logs = []mailer.Log{}
	}
	return ctx.JSON(http.StatusOK, logs)
}

func (api *emailApi) stats(ctx echo.Context) error {
	n, err := api.svc.SentToday(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "counting emails sent today")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"sent_today": n})
}

func (api *emailApi) queryTemplates(ctx echo.Context) error {
	tmpls, err := api.svc.QueryTemplates(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying email templates")
	}
	if tmpls == nil {
		tmpls = []mailer.Template{}
	}
	return ctx.JSON(http.StatusOK, tmpls)
}

func (api *emailApi) retrieveTemplate(ctx echo.Context) error {
	tmpl, err := api.svc.GetTemplate(ctx.Request().Context(), ctx.Param("key"))
	if err != nil {
		return errors.Wrap(err, "getting email template")
	}
	return ctx.JSON(http.StatusOK, tmpl)
}

func (api *emailApi) saveTemplate(ctx echo.Context) error {
	var data mailer.SaveTemplate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SaveTemplate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	tmpl, err := api.svc.SaveTemplate(ctx.Request().Context(), ctx.Param("key"), data)
	if err != nil {
		return errors.Wrap(err, "saving email template")
	}
	return ctx.JSON(http.StatusOK, tmpl)
}

func (api *emailApi) destroyTemplate(ctx echo.Context) error {
	if err := api.svc.DeleteTemplate(ctx.Request().Context(), ctx.Param("key")); err != nil {
		return errors.Wrap(err, "deleting email template")
	}
	return ctx.NoContent(http.StatusNoContent)
}
