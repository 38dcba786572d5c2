package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/aurorarobotics/aurora/core/mailer"
)

type mailerRepository struct {
	db *mailerTables
}

var _ mailer.Repository = (*mailerRepository)(nil)

func NewMailerRepository(db *DB) *mailerRepository {
	return &mailerRepository{db: db.mailer}
}

func (repo *mailerRepository) QueryTemplates(context.Context) ([]mailer.Template, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	tmpls := make([]mailer.Template, 0, len(repo.db.templates))
	for _, t := range repo.db.templates {
		tmpls = append(tmpls, *t)
	}
	sort.Slice(tmpls, func(i, j int) bool { return tmpls[i].Key < tmpls[j].Key })
	return tmpls, nil
}

func (repo *mailerRepository) GetTemplateByKey(_ context.Context, key string) (mailer.Template, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.templates[key]; ok {
		return *t, nil
	}
	return mailer.Template{}, mailer.ErrTemplateNotFound
}

func (repo *mailerRepository) SaveTemplate(_ context.Context, tmpl mailer.Template) (mailer.Template, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if orig, ok := repo.db.templates[tmpl.Key]; ok {
		tmpl.ID = orig.ID
	}
	repo.db.templates[tmpl.Key] = &tmpl
	return tmpl, nil
}

func (repo *mailerRepository) DeleteTemplate(_ context.Context, key string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.templates[key]; !ok {
		return mailer.ErrTemplateNotFound
	}
	delete(repo.db.templates, key)
	return nil
}

func (repo *mailerRepository) CreateLog(_ context.Context, log mailer.Log) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.logs = append(repo.db.logs, log)
	return nil
}

func (repo *mailerRepository) QueryLogs(_ context.Context, filter mailer.LogFilter) ([]mailer.Log, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	logs := make([]mailer.Log, 0)
	for i := len(repo.db.logs) - 1; i >= 0; i-- {
		log := repo.db.logs[i]
		if filter.Status != "" && log.Status != filter.Status {
			continue
		}
		if filter.Recipient != "" && !containsFold(log.Recipient, filter.Recipient) {
			continue
		}
		if !filter.Since.IsZero() && log.CreatedAt.Before(filter.Since) {
			continue
		}
		logs = append(logs, log)
	}
	return logs, nil
}

func (repo *mailerRepository) CountSentSince(_ context.Context, since time.Time) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var n int
	for _, log := range repo.db.logs {
		if log.Status == mailer.StatusSent && !log.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}
