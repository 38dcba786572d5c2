package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/aurorarobotics/aurora/core"
	"github.com/aurorarobotics/aurora/core/student"
)

type studentRepository struct {
	db *studentTable
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db.student}
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter student.QueryFilter, _ []core.DBOrdering) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]student.Student, 0)
	for _, s := range repo.db.table {
		if filter.Search != "" &&
			!containsFold(s.FullName, filter.Search) &&
			!containsFold(s.Email, filter.Search) &&
			!containsFold(s.CertCode.String, filter.Search) {
			continue
		}
		if filter.Cohort != "" && !strings.EqualFold(s.Cohort, filter.Cohort) {
			continue
		}
		if filter.HasCert != nil && s.CertCode.Valid != *filter.HasCert {
			continue
		}
		students = append(students, *s)
	}
	sort.Slice(students, func(i, j int) bool { return students[i].FullName < students[j].FullName })
	return students, nil
}

func (repo *studentRepository) GetStudentByID(_ context.Context, id string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.table[id]; ok {
		return *s, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) GetStudentByEmail(_ context.Context, email string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, s := range repo.db.table {
		if strings.EqualFold(s.Email, email) {
			return *s, nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) GetStudentByCertCode(_ context.Context, code string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, s := range repo.db.table {
		if s.CertCode.Valid && s.CertCode.String == code {
			return *s, nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) CertCodeExists(ctx context.Context, code string) (bool, error) {
	_, err := repo.GetStudentByCertCode(ctx, code)
	return err == nil, nil
}

func (repo *studentRepository) CreateStudent(_ context.Context, s student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[s.ID] = &s
	return s, nil
}

func (repo *studentRepository) UpdateStudent(_ context.Context, s student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[s.ID]; !ok {
		return student.Student{}, student.ErrNotFound
	}
	repo.db.table[s.ID] = &s
	return s, nil
}

func (repo *studentRepository) DeleteStudentsByID(_ context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
