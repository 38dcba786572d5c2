package student

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/aurorarobotics/aurora/core"
	"github.com/aurorarobotics/aurora/core/cert"
)

var (
	// errors
	ErrNotFound          = errors.New("student not found")
	ErrInvalidCode       = errors.New("invalid certificate code")
	ErrNoEmailColumn     = errors.New("no email column found in header")
	ErrEmptyFile         = errors.New("file is empty")
	ErrUnsupportedFormat = errors.New("unsupported file format: use .csv or .xlsx")
)

type (
	Repository interface {
		// QueryStudents applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of name, email or cert code.
		QueryStudents(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		GetStudentByID(ctx context.Context, id string) (Student, error)
		// GetStudentByEmail matches email case-insensitively.
		GetStudentByEmail(ctx context.Context, email string) (Student, error)
		GetStudentByCertCode(ctx context.Context, code string) (Student, error)
		CertCodeExists(ctx context.Context, code string) (bool, error)
		CreateStudent(ctx context.Context, s Student) (Student, error)
		UpdateStudent(ctx context.Context, s Student) (Student, error)
		DeleteStudentsByID(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo     Repository
		issuer   *cert.Issuer
		prefix   string
		validate *validator.Validate
		logger   core.Logger
		nowFunc  func() time.Time
	}
)

func NewService(repo Repository, conf *core.Config, validate *validator.Validate, logger core.Logger) *Service {
	return &Service{
		repo:     repo,
		issuer:   cert.NewIssuer(repo),
		prefix:   conf.CertPrefix,
		validate: validate,
		logger:   logger,
		nowFunc:  time.Now,
	}
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, filter, ordering)
}

func (svc *Service) Get(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteStudentsByID(ctx, ids...)
}

// Save creates or updates (by email) a student. A certificate code is issued if the
// student has none or if ss.Reissue is set. ss must have been validated.
func (svc *Service) Save(ctx context.Context, ss SaveStudent) (Student, error) {
	s, _, err := svc.upsert(ctx, ss, svc.prefix)
	return s, err
}

func (svc *Service) upsert(ctx context.Context, ss SaveStudent, prefix string) (Student, bool, error) {
	now := svc.nowFunc().UTC()

	s, err := svc.repo.GetStudentByEmail(ctx, ss.Email)
	created := errors.Cause(err) == ErrNotFound
	if err != nil && !created {
		return Student{}, false, errors.Wrap(err, "finding student by email")
	}
	if created {
		s = Student{ID: uuid.New().String(), Email: ss.Email, CreatedAt: now}
	}
	if ss.FullName != "" {
		s.FullName = ss.FullName
	} else if s.FullName == "" {
		s.FullName = strings.SplitN(s.Email, "@", 2)[0]
	}
	if ss.Phone != "" {
		s.Phone = ss.Phone
	}
	if ss.Cohort != "" {
		s.Cohort = ss.Cohort
	}
	s.UpdatedAt = now

	if !s.CertCode.Valid || ss.Reissue {
		issuedAt := now
		if ss.IssuedAt != nil && !ss.IssuedAt.IsZero() {
			issuedAt = ss.IssuedAt.UTC()
		}
		code, err := svc.issuer.Issue(ctx, cert.CodeInput{
			Prefix:   prefix,
			Cohort:   s.Cohort,
			FullName: s.FullName,
			IssuedAt: issuedAt,
			Seq:      1,
		})
		if err != nil {
			return Student{}, false, errors.Wrap(err, "issuing certificate code")
		}
		s.CertCode = null.StringFrom(code)
		s.IssuedAt = null.TimeFrom(issuedAt)
	}

	if created {
		s, err = svc.repo.CreateStudent(ctx, s)
		return s, true, errors.Wrap(err, "creating student")
	}
	s, err = svc.repo.UpdateStudent(ctx, s)
	return s, false, errors.Wrap(err, "updating student")
}

// Verify looks up a certificate by its code. Codes with a bad checksum are rejected
// without hitting the database.
func (svc *Service) Verify(ctx context.Context, code string) (Certificate, error) {
	if !cert.VerifyChecksum(code) {
		return Certificate{}, ErrInvalidCode
	}
	s, err := svc.repo.GetStudentByCertCode(ctx, strings.ToUpper(core.CleanString(code)))
	if err != nil {
		return Certificate{}, err
	}
	return Certificate{
		Code:     s.CertCode.String,
		FullName: s.FullName,
		Cohort:   s.Cohort,
		IssuedAt: s.IssuedAt.Time,
	}, nil
}
