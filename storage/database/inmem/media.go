package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/aurorarobotics/aurora/core/media"
)

type mediaRepository struct {
	db *mediaTable
}

var _ media.Repository = (*mediaRepository)(nil)

func NewMediaRepository(db *DB) *mediaRepository {
	return &mediaRepository{db: db.media}
}

func (repo *mediaRepository) QueryItems(_ context.Context, filter media.QueryFilter) ([]media.Item, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	items := make([]media.Item, 0)
	for _, item := range repo.db.table {
		if !containsFold(item.Filename, filter.Search) {
			continue
		}
		if filter.ContentType != "" && !strings.HasPrefix(item.ContentType, filter.ContentType) {
			continue
		}
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items, nil
}

func (repo *mediaRepository) GetItem(_ context.Context, id string) (media.Item, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if item, ok := repo.db.table[id]; ok {
		return *item, nil
	}
	return media.Item{}, media.ErrNotFound
}

func (repo *mediaRepository) CreateItem(_ context.Context, item media.Item) (media.Item, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[item.ID] = &item
	return item, nil
}

func (repo *mediaRepository) DeleteItem(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	delete(repo.db.table, id)
	return nil
}
