package student

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/aurorarobotics/aurora/core"
)

type Student struct {
	ID        string      `json:"id"`
	FullName  string      `json:"full_name"`
	Email     string      `json:"email"`
	Phone     string      `json:"phone"`
	Cohort    string      `json:"cohort"`
	CertCode  null.String `json:"cert_code"`
	IssuedAt  null.Time   `json:"issued_at"`
	CreatedAt time.Time   `json:"created_at"` // UTC
	UpdatedAt time.Time   `json:"updated_at"` // UTC
}

// Certificate is the public view of an issued certificate.
type Certificate struct {
	Code     string    `json:"code"`
	FullName string    `json:"full_name"`
	Cohort   string    `json:"cohort"`
	IssuedAt time.Time `json:"issued_at"`
}

// SaveStudent creates a Student, or updates the one with the same email.
type SaveStudent struct {
	FullName string     `json:"full_name" validate:"notblank,max=200"`
	Email    string     `json:"email" validate:"required,email,max=254"`
	Phone    string     `json:"phone" validate:"max=50"`
	Cohort   string     `json:"cohort" validate:"max=100"`
	IssuedAt *time.Time `json:"issued_at"`
	// Reissue generates a new certificate code even if the student has one.
	Reissue bool `json:"reissue"`
}

func (ss *SaveStudent) Clean() {
	ss.FullName = core.CleanString(ss.FullName)
	ss.Email = core.CleanString(ss.Email, true /* lower */)
	ss.Phone = core.CleanString(ss.Phone)
	ss.Cohort = core.CleanString(ss.Cohort)
}

func (ss *SaveStudent) Validate(validate *validator.Validate) error {
	ss.Clean()
	return validate.Struct(ss)
}

type QueryFilter struct {
	Search  string `query:"search"`
	Cohort  string `query:"cohort"`
	HasCert *bool  `query:"has_cert"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Cohort = core.CleanString(qf.Cohort)
}

type ImportOptions struct {
	// Cohort is used for rows without a cohort column value.
	Cohort   string
	IssuedAt time.Time
	// Prefix overrides the configured certificate code prefix.
	Prefix string
}

// RowError reports a skipped row. Row is 1-based and counts the header row.
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

type ImportResult struct {
	Created int        `json:"created"`
	Updated int        `json:"updated"`
	Skipped int        `json:"skipped"`
	Errors  []RowError `json:"errors"`
}
