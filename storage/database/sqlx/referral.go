package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/aurorarobotics/aurora/core"
	"github.com/aurorarobotics/aurora/core/referral"
)

const linkColumns = "id, code, owner_name, owner_email, clicks, registrations, is_active, created_at"

var linkOrderings = map[string]string{
	"code":          "code",
	"owner_name":    "owner_name",
	"clicks":        "clicks",
	"registrations": "registrations",
	"created_at":    "created_at",
}

type referralRepository struct {
	db *sqlx.DB
}

var _ referral.Repository = (*referralRepository)(nil) // interface compliance check

func NewReferralRepository(db *sqlx.DB) *referralRepository {
	return &referralRepository{db: db}
}

func (repo *referralRepository) QueryLinks(ctx context.Context, ordering []core.DBOrdering) ([]referral.Link, error) {
	links := make([]referral.Link, 0)
	q := selectQuery(repo.db, linkColumns, "referral_link", &where{}, core.OrderByClause(ordering, linkOrderings, "created_at DESC"))
	if err := repo.db.SelectContext(ctx, &links, q); err != nil {
		return nil, errors.Wrap(err, "querying referral links")
	}
	return links, nil
}

func (repo *referralRepository) GetLinkByID(ctx context.Context, id string) (referral.Link, error) {
	var link referral.Link
	if err := repo.db.GetContext(ctx, &link, "SELECT "+linkColumns+" FROM referral_link WHERE id = $1", id); err != nil {
		return referral.Link{}, trapNoRowsErr(err, referral.ErrNotFound, "getting referral link")
	}
	return link, nil
}

func (repo *referralRepository) GetLinkByCode(ctx context.Context, code string) (referral.Link, error) {
	var link referral.Link
	if err := repo.db.GetContext(ctx, &link, "SELECT "+linkColumns+" FROM referral_link WHERE code = $1", code); err != nil {
		return referral.Link{}, trapNoRowsErr(err, referral.ErrNotFound, "getting referral link")
	}
	return link, nil
}

func (repo *referralRepository) CreateLink(ctx context.Context, link referral.Link) (referral.Link, error) {
	q := `INSERT INTO referral_link (` + linkColumns + `)
		VALUES (:id, :code, :owner_name, :owner_email, :clicks, :registrations, :is_active, :created_at)
		ON CONFLICT (code) DO NOTHING`
	res, err := repo.db.NamedExecContext(ctx, q, link)
	if err = checkAffected(res, err, referral.ErrCodeExists, "inserting referral link"); err != nil {
		return referral.Link{}, err
	}
	return link, nil
}

func (repo *referralRepository) UpdateLink(ctx context.Context, link referral.Link) (referral.Link, error) {
	q := `UPDATE referral_link SET owner_name = :owner_name, owner_email = :owner_email, is_active = :is_active
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, link)
	if err = checkAffected(res, err, referral.ErrNotFound, "updating referral link"); err != nil {
		return referral.Link{}, err
	}
	return link, nil
}

func (repo *referralRepository) DeleteLink(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx, "DELETE FROM referral_link WHERE id = $1", id)
	return errors.Wrap(err, "deleting referral link")
}

func (repo *referralRepository) IncrementClicks(ctx context.Context, code string) error {
	res, err := repo.db.ExecContext(ctx, "UPDATE referral_link SET clicks = clicks + 1 WHERE code = $1", code)
	return checkAffected(res, err, referral.ErrNotFound, "incrementing clicks")
}

func (repo *referralRepository) IncrementRegistrations(ctx context.Context, code string) error {
	res, err := repo.db.ExecContext(ctx, "UPDATE referral_link SET registrations = registrations + 1 WHERE code = $1", code)
	return checkAffected(res, err, referral.ErrNotFound, "incrementing registrations")
}
