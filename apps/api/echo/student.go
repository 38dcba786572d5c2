package echoapi

import (
	"net/http"
	"net/mail"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/aurorarobotics/aurora/core"
	"github.com/aurorarobotics/aurora/core/mailer"
	"github.com/aurorarobotics/aurora/core/student"
)

const certificateTemplate = "certificate_issued"

var errNoCertificate = errors.New("student has no certificate code")

type studentApi struct {
	svc       *student.Service
	mailerSvc *mailer.Service
	validate  *validator.Validate
}

// registerStudentAPI registers the student routes. Import requests larger than importMaxSize
// bytes are rejected with 413; 0 disables the limit.
func registerStudentAPI(
	g *echo.Group,
	svc *student.Service,
	mailerSvc *mailer.Service,
	validate *validator.Validate,
	importMaxSize int64,
) {
	api := studentApi{svc: svc, mailerSvc: mailerSvc, validate: validate}

	var importMw []echo.MiddlewareFunc
	if importMaxSize > 0 {
		importMw = append(importMw, middleware.BodyLimit(strconv.FormatInt(importMaxSize, 10)))
	}

	sg := g.Group("/students")
	sg.GET("", api.query)
	sg.POST("", api.save)
	sg.DELETE("", api.destroyMultiple)
	sg.POST("/import", api.importFile, importMw...)
	sg.GET("/:id", api.retrieve)
	sg.DELETE("/:id", api.destroy)
	sg.POST("/:id/send-certificate", api.sendCertificate)
}

func (api *studentApi) query(ctx echo.Context) error {
	filter := new(student.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []student.Student{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	students, err := api.svc.Query(ctx.Request().Context(), *filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) save(ctx echo.Context) error {
	var data student.SaveStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SaveStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.Save(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "saving student")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	s, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	s, err := api.svc.Get(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	if err = api.svc.Delete(reqCtx, s.ID); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studentApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if len(query.IDs) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting students")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// importFile imports the multipart `file` field. Optional form fields: cohort, prefix
// and issued_at (YYYY-MM-DD).
func (api *studentApi) importFile(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewFieldError("file", errors.New("a CSV or XLSX file is required"))
	}

	opts := student.ImportOptions{
		Cohort: ctx.FormValue("cohort"),
		Prefix: ctx.FormValue("prefix"),
	}
	if v := ctx.FormValue("issued_at"); v != "" {
		if opts.IssuedAt, err = time.Parse("2006-01-02", v); err != nil {
			return core.NewFieldError("issued_at", errors.New("must be a date in the YYYY-MM-DD format"))
		}
	}

	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer f.Close()

	res, err := api.svc.Import(ctx.Request().Context(), fh.Filename, f, opts)
	if err != nil {
		return errors.Wrap(err, "importing students")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *studentApi) sendCertificate(ctx echo.Context) error {
	var data SendCertificateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SendCertificateRequest")
	}
	tmpl := certificateTemplate
	if data.TemplateKey != "" {
		tmpl = mailer.NormalizeKey(data.TemplateKey)
	}

	reqCtx := ctx.Request().Context()
	s, err := api.svc.Get(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	if !s.CertCode.Valid {
		return core.NewValidationError(errNoCertificate)
	}

	cert := student.Certificate{
		Code:     s.CertCode.String,
		FullName: s.FullName,
		Cohort:   s.Cohort,
		IssuedAt: s.IssuedAt.Time,
	}
	to := []mail.Address{{Name: s.FullName, Address: s.Email}}
	if err = api.mailerSvc.SendTemplate(reqCtx, tmpl, to, cert); err != nil {
		return errors.Wrap(err, "sending certificate")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Certificate sent to " + s.Email + "."})
}
