package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/aurorarobotics/aurora/core"
	"github.com/aurorarobotics/aurora/core/student"
)

const studentColumns = "id, full_name, email, phone, cohort, cert_code, issued_at, created_at, updated_at"

var studentOrderings = map[string]string{
	"full_name":  "full_name",
	"email":      "email",
	"cohort":     "cohort",
	"issued_at":  "issued_at",
	"created_at": "created_at",
}

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) QueryStudents(ctx context.Context, filter student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	w := &where{}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		w.add("(full_name ILIKE ? OR email ILIKE ? OR cert_code ILIKE ?)", pattern, pattern, pattern)
	}
	if filter.Cohort != "" {
		w.add("LOWER(cohort) = LOWER(?)", filter.Cohort)
	}
	if filter.HasCert != nil {
		if *filter.HasCert {
			w.add("cert_code IS NOT NULL")
		} else {
			w.add("cert_code IS NULL")
		}
	}

	students := make([]student.Student, 0)
	q := selectQuery(repo.db, studentColumns, "student", w, core.OrderByClause(ordering, studentOrderings, "full_name ASC"))
	if err := repo.db.SelectContext(ctx, &students, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return students, nil
}

func (repo *studentRepository) getBy(ctx context.Context, cond string, arg interface{}) (student.Student, error) {
	var s student.Student
	q := repo.db.Rebind("SELECT " + studentColumns + " FROM student WHERE " + cond + " LIMIT 1")
	if err := repo.db.GetContext(ctx, &s, q, arg); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "getting student")
	}
	return s, nil
}

func (repo *studentRepository) GetStudentByID(ctx context.Context, id string) (student.Student, error) {
	return repo.getBy(ctx, "id = ?", id)
}

func (repo *studentRepository) GetStudentByEmail(ctx context.Context, email string) (student.Student, error) {
	return repo.getBy(ctx, "LOWER(email) = LOWER(?)", email)
}

func (repo *studentRepository) GetStudentByCertCode(ctx context.Context, code string) (student.Student, error) {
	return repo.getBy(ctx, "cert_code = ?", code)
}

func (repo *studentRepository) CertCodeExists(ctx context.Context, code string) (bool, error) {
	var found bool
	err := repo.db.GetContext(ctx, &found, "SELECT EXISTS (SELECT 1 FROM student WHERE cert_code = $1)", code)
	return found, errors.Wrap(err, "checking certificate code")
}

func (repo *studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	q := `INSERT INTO student (` + studentColumns + `)
		VALUES (:id, :full_name, :email, :phone, :cohort, :cert_code, :issued_at, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, s); err != nil {
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return s, nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	q := `UPDATE student SET full_name = :full_name, email = :email, phone = :phone, cohort = :cohort,
		cert_code = :cert_code, issued_at = :issued_at, updated_at = :updated_at WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, s)
	if err = checkAffected(res, err, student.ErrNotFound, "updating student"); err != nil {
		return student.Student{}, err
	}
	return s, nil
}

func (repo *studentRepository) DeleteStudentsByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := repo.db.ExecContext(ctx, "DELETE FROM student WHERE id = ANY($1::uuid[])", pq.StringArray(ids))
	return errors.Wrap(err, "deleting students")
}
