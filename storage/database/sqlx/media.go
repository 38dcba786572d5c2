package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/aurorarobotics/aurora/core/media"
)

const mediaColumns = "id, object_key, filename, content_type, size, url, created_at"

type mediaRepository struct {
	db *sqlx.DB
}

var _ media.Repository = (*mediaRepository)(nil) // interface compliance check

func NewMediaRepository(db *sqlx.DB) *mediaRepository {
	return &mediaRepository{db: db}
}

func (repo *mediaRepository) QueryItems(ctx context.Context, filter media.QueryFilter) ([]media.Item, error) {
	w := &where{}
	if filter.Search != "" {
		w.add("filename ILIKE ?", likePattern(filter.Search))
	}
	if filter.ContentType != "" {
		w.add("content_type LIKE ?", filter.ContentType+"%")
	}

	items := make([]media.Item, 0)
	if err := repo.db.SelectContext(ctx, &items, selectQuery(repo.db, mediaColumns, "media_item", w, "created_at DESC"), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying media items")
	}
	return items, nil
}

func (repo *mediaRepository) GetItem(ctx context.Context, id string) (media.Item, error) {
	var item media.Item
	if err := repo.db.GetContext(ctx, &item, "SELECT "+mediaColumns+" FROM media_item WHERE id = $1", id); err != nil {
		return media.Item{}, trapNoRowsErr(err, media.ErrNotFound, "getting media item")
	}
	return item, nil
}

func (repo *mediaRepository) CreateItem(ctx context.Context, item media.Item) (media.Item, error) {
	q := `INSERT INTO media_item (` + mediaColumns + `)
		VALUES (:id, :object_key, :filename, :content_type, :size, :url, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, item); err != nil {
		return media.Item{}, errors.Wrap(err, "inserting media item")
	}
	return item, nil
}

func (repo *mediaRepository) DeleteItem(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx, "DELETE FROM media_item WHERE id = $1", id)
	return errors.Wrap(err, "deleting media item")
}
