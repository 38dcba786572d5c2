package sqlxrepos

import (
	"context"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/aurorarobotics/aurora/core/mailer"
)

const (
	templateColumns = "id, key, subject, html_body, text_body, updated_at"
	logColumns      = "id, recipient, subject, template_key, provider, status, error, created_at"
	maxLogs         = 500
)

type mailerRepository struct {
	db *sqlx.DB
}

var _ mailer.Repository = (*mailerRepository)(nil) // interface compliance check

func NewMailerRepository(db *sqlx.DB) *mailerRepository {
	return &mailerRepository{db: db}
}

func (repo *mailerRepository) QueryTemplates(ctx context.Context) ([]mailer.Template, error) {
	tmpls := make([]mailer.Template, 0)
	if err := repo.db.SelectContext(ctx, &tmpls, "SELECT "+templateColumns+" FROM email_template ORDER BY key"); err != nil {
		return nil, errors.Wrap(err, "querying email templates")
	}
	return tmpls, nil
}

func (repo *mailerRepository) GetTemplateByKey(ctx context.Context, key string) (mailer.Template, error) {
	var tmpl mailer.Template
	if err := repo.db.GetContext(ctx, &tmpl, "SELECT "+templateColumns+" FROM email_template WHERE key = $1", key); err != nil {
		return mailer.Template{}, trapNoRowsErr(err, mailer.ErrTemplateNotFound, "getting email template")
	}
	return tmpl, nil
}

func (repo *mailerRepository) SaveTemplate(ctx context.Context, tmpl mailer.Template) (mailer.Template, error) {
	q := `INSERT INTO email_template (` + templateColumns + `)
		VALUES (:id, :key, :subject, :html_body, :text_body, :updated_at)
		ON CONFLICT (key) DO UPDATE
		SET subject = EXCLUDED.subject, html_body = EXCLUDED.html_body, text_body = EXCLUDED.text_body,
		updated_at = EXCLUDED.updated_at
		RETURNING ` + templateColumns
	rows, err := repo.db.NamedQueryContext(ctx, q, tmpl)
	if err != nil {
		return mailer.Template{}, errors.Wrap(err, "saving email template")
	}
	defer func() { _ = rows.Close() }()

	var saved mailer.Template
	if rows.Next() {
		if err = rows.StructScan(&saved); err != nil {
			return mailer.Template{}, errors.Wrap(err, "scanning email template")
		}
	}
	return saved, errors.Wrap(rows.Err(), "saving email template")
}

func (repo *mailerRepository) DeleteTemplate(ctx context.Context, key string) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM email_template WHERE key = $1", key)
	return checkAffected(res, err, mailer.ErrTemplateNotFound, "deleting email template")
}

func (repo *mailerRepository) CreateLog(ctx context.Context, log mailer.Log) error {
	q := `INSERT INTO email_log (` + logColumns + `)
		VALUES (:id, :recipient, :subject, :template_key, :provider, :status, :error, :created_at)`
	_, err := repo.db.NamedExecContext(ctx, q, log)
	return errors.Wrap(err, "inserting email log")
}

// QueryLogs returns at most maxLogs logs, newest first.
func (repo *mailerRepository) QueryLogs(ctx context.Context, filter mailer.LogFilter) ([]mailer.Log, error) {
	w := &where{}
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}
	if filter.Recipient != "" {
		w.add("recipient ILIKE ?", likePattern(filter.Recipient))
	}
	if !filter.Since.IsZero() {
		w.add("created_at >= ?", filter.Since.UTC())
	}

	logs := make([]mailer.Log, 0)
	q := selectQuery(repo.db, logColumns, "email_log", w, "created_at DESC") + " LIMIT " + strconv.Itoa(maxLogs)
	if err := repo.db.SelectContext(ctx, &logs, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying email logs")
	}
	return logs, nil
}

func (repo *mailerRepository) CountSentSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	q := "SELECT COUNT(*) FROM email_log WHERE status = $1 AND created_at >= $2"
	err := repo.db.GetContext(ctx, &n, q, mailer.StatusSent, since.UTC())
	return n, errors.Wrap(err, "counting sent emails")
}
