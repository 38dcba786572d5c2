package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/aurorarobotics/aurora/core/content"
)

const (
	pageColumns    = "id, slug, title, description, status, created_at, updated_at, published_at"
	sectionColumns = "id, page_id, key, title, position, is_visible, created_at, updated_at"
	blockColumns   = "id, section_id, kind, data, position, is_visible, created_at, updated_at"
)

type publishedRow struct {
	PageID      string    `json:"page_id"`
	Slug        string    `json:"slug"`
	Snapshot    []byte    `json:"snapshot"`
	PublishedAt time.Time `json:"published_at"`
}

type contentRepository struct {
	db *sqlx.DB
}

var _ content.Repository = (*contentRepository)(nil) // interface compliance check

func NewContentRepository(db *sqlx.DB) *contentRepository {
	return &contentRepository{db: db}
}

// Pages

func (repo *contentRepository) QueryPages(ctx context.Context) ([]content.Page, error) {
	pages := make([]content.Page, 0)
	if err := repo.db.SelectContext(ctx, &pages, "SELECT "+pageColumns+" FROM page ORDER BY slug"); err != nil {
		return nil, errors.Wrap(err, "querying pages")
	}
	return pages, nil
}

func (repo *contentRepository) GetPage(ctx context.Context, id string) (content.Page, error) {
	var p content.Page
	if err := repo.db.GetContext(ctx, &p, "SELECT "+pageColumns+" FROM page WHERE id = $1", id); err != nil {
		return content.Page{}, trapNoRowsErr(err, content.ErrNotFound, "getting page")
	}
	return p, nil
}

func (repo *contentRepository) GetPageBySlug(ctx context.Context, slug string) (content.Page, error) {
	var p content.Page
	if err := repo.db.GetContext(ctx, &p, "SELECT "+pageColumns+" FROM page WHERE slug = $1", slug); err != nil {
		return content.Page{}, trapNoRowsErr(err, content.ErrNotFound, "getting page")
	}
	return p, nil
}

func (repo *contentRepository) CreatePage(ctx context.Context, page content.Page) (content.Page, error) {
	q := `INSERT INTO page (` + pageColumns + `)
		VALUES (:id, :slug, :title, :description, :status, :created_at, :updated_at, :published_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, page); err != nil {
		return content.Page{}, errors.Wrap(err, "inserting page")
	}
	return page, nil
}

func (repo *contentRepository) UpdatePage(ctx context.Context, page content.Page) (content.Page, error) {
	q := `UPDATE page SET slug = :slug, title = :title, description = :description, status = :status,
		updated_at = :updated_at, published_at = :published_at WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, page)
	if err = checkAffected(res, err, content.ErrNotFound, "updating page"); err != nil {
		return content.Page{}, err
	}
	return page, nil
}

// DeletePage relies on ON DELETE CASCADE for sections, blocks and the snapshot.
func (repo *contentRepository) DeletePage(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx, "DELETE FROM page WHERE id = $1", id)
	return errors.Wrap(err, "deleting page")
}

// Sections

func (repo *contentRepository) QuerySections(ctx context.Context, pageID string) ([]content.Section, error) {
	sections := make([]content.Section, 0)
	q := "SELECT " + sectionColumns + " FROM page_section WHERE page_id = $1 ORDER BY position, created_at"
	if err := repo.db.SelectContext(ctx, &sections, q, pageID); err != nil {
		return nil, errors.Wrap(err, "querying sections")
	}
	return sections, nil
}

func (repo *contentRepository) GetSection(ctx context.Context, id string) (content.Section, error) {
	var s content.Section
	if err := repo.db.GetContext(ctx, &s, "SELECT "+sectionColumns+" FROM page_section WHERE id = $1", id); err != nil {
		return content.Section{}, trapNoRowsErr(err, content.ErrSectionNotFound, "getting section")
	}
	return s, nil
}

func (repo *contentRepository) CreateSection(ctx context.Context, section content.Section) (content.Section, error) {
	q := `INSERT INTO page_section (` + sectionColumns + `)
		VALUES (:id, :page_id, :key, :title, :position, :is_visible, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, section); err != nil {
		return content.Section{}, errors.Wrap(err, "inserting section")
	}
	return section, nil
}

func (repo *contentRepository) UpdateSection(ctx context.Context, section content.Section) (content.Section, error) {
	q := `UPDATE page_section SET key = :key, title = :title, position = :position, is_visible = :is_visible,
		updated_at = :updated_at WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, section)
	if err = checkAffected(res, err, content.ErrSectionNotFound, "updating section"); err != nil {
		return content.Section{}, err
	}
	return section, nil
}

func (repo *contentRepository) DeleteSection(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx, "DELETE FROM page_section WHERE id = $1", id)
	return errors.Wrap(err, "deleting section")
}

// setPositions updates position = index in ids for the rows of table owned by parentID, in one transaction.
func (repo *contentRepository) setPositions(ctx context.Context, table, parentCol, parentID string, ids []string) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	q := "UPDATE " + table + " SET position = $1 WHERE id = $2 AND " + parentCol + " = $3"
	for pos, id := range ids {
		if _, err = tx.ExecContext(ctx, q, pos, id, parentID); err != nil {
			return errors.Wrapf(err, "updating %s position", table)
		}
	}
	return errors.Wrap(tx.Commit(), "committing positions")
}

func (repo *contentRepository) SetSectionPositions(ctx context.Context, pageID string, ids []string) error {
	return repo.setPositions(ctx, "page_section", "page_id", pageID, ids)
}

// Blocks

func (repo *contentRepository) QueryBlocks(ctx context.Context, sectionIDs ...string) ([]content.Block, error) {
	blocks := make([]content.Block, 0)
	if len(sectionIDs) == 0 {
		return blocks, nil
	}
	q := "SELECT " + blockColumns + " FROM page_block WHERE section_id = ANY($1::uuid[]) ORDER BY position, created_at"
	if err := repo.db.SelectContext(ctx, &blocks, q, pq.StringArray(sectionIDs)); err != nil {
		return nil, errors.Wrap(err, "querying blocks")
	}
	return blocks, nil
}

func (repo *contentRepository) GetBlock(ctx context.Context, id string) (content.Block, error) {
	var b content.Block
	if err := repo.db.GetContext(ctx, &b, "SELECT "+blockColumns+" FROM page_block WHERE id = $1", id); err != nil {
		return content.Block{}, trapNoRowsErr(err, content.ErrBlockNotFound, "getting block")
	}
	return b, nil
}

func (repo *contentRepository) CreateBlock(ctx context.Context, block content.Block) (content.Block, error) {
	q := `INSERT INTO page_block (` + blockColumns + `)
		VALUES (:id, :section_id, :kind, :data, :position, :is_visible, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, block); err != nil {
		return content.Block{}, errors.Wrap(err, "inserting block")
	}
	return block, nil
}

func (repo *contentRepository) UpdateBlock(ctx context.Context, block content.Block) (content.Block, error) {
	q := `UPDATE page_block SET kind = :kind, data = :data, position = :position, is_visible = :is_visible,
		updated_at = :updated_at WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, block)
	if err = checkAffected(res, err, content.ErrBlockNotFound, "updating block"); err != nil {
		return content.Block{}, err
	}
	return block, nil
}

func (repo *contentRepository) DeleteBlock(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx, "DELETE FROM page_block WHERE id = $1", id)
	return errors.Wrap(err, "deleting block")
}

func (repo *contentRepository) SetBlockPositions(ctx context.Context, sectionID string, ids []string) error {
	return repo.setPositions(ctx, "page_block", "section_id", sectionID, ids)
}

// Published snapshots

func (repo *contentRepository) SavePublished(ctx context.Context, pp content.PublishedPage) error {
	q := `INSERT INTO published_page (page_id, slug, snapshot, published_at)
		VALUES (:page_id, :slug, :snapshot, :published_at)
		ON CONFLICT (page_id) DO UPDATE
		SET slug = EXCLUDED.slug, snapshot = EXCLUDED.snapshot, published_at = EXCLUDED.published_at`
	row := publishedRow{PageID: pp.PageID, Slug: pp.Slug, Snapshot: pp.Snapshot, PublishedAt: pp.PublishedAt.UTC()}
	_, err := repo.db.NamedExecContext(ctx, q, row)
	return errors.Wrap(err, "saving published page")
}

func (repo *contentRepository) DeletePublished(ctx context.Context, pageID string) error {
	_, err := repo.db.ExecContext(ctx, "DELETE FROM published_page WHERE page_id = $1", pageID)
	return errors.Wrap(err, "deleting published page")
}

func (repo *contentRepository) GetPublishedBySlug(ctx context.Context, slug string) (content.PublishedPage, error) {
	var row publishedRow
	q := "SELECT page_id, slug, snapshot, published_at FROM published_page WHERE slug = $1"
	if err := repo.db.GetContext(ctx, &row, q, slug); err != nil {
		return content.PublishedPage{}, trapNoRowsErr(err, content.ErrPublishedNotFound, "getting published page")
	}
	return content.PublishedPage{
		PageID:      row.PageID,
		Slug:        row.Slug,
		Snapshot:    row.Snapshot,
		PublishedAt: row.PublishedAt.UTC(),
	}, nil
}
