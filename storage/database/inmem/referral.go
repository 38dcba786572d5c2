package inmemdb

import (
	"context"
	"sort"

	"github.com/aurorarobotics/aurora/core"
	"github.com/aurorarobotics/aurora/core/referral"
)

type referralRepository struct {
	db *referralTable
}

var _ referral.Repository = (*referralRepository)(nil)

func NewReferralRepository(db *DB) *referralRepository {
	return &referralRepository{db: db.referral}
}

func (repo *referralRepository) byCode(code string) *referral.Link {
	for _, link := range repo.db.table {
		if link.Code == code {
			return link
		}
	}
	return nil
}

func (repo *referralRepository) QueryLinks(context.Context, []core.DBOrdering) ([]referral.Link, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	links := make([]referral.Link, 0, len(repo.db.table))
	for _, link := range repo.db.table {
		links = append(links, *link)
	}
	sort.Slice(links, func(i, j int) bool { return links[i].CreatedAt.After(links[j].CreatedAt) })
	return links, nil
}

func (repo *referralRepository) GetLinkByID(_ context.Context, id string) (referral.Link, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if link, ok := repo.db.table[id]; ok {
		return *link, nil
	}
	return referral.Link{}, referral.ErrNotFound
}

func (repo *referralRepository) GetLinkByCode(_ context.Context, code string) (referral.Link, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if link := repo.byCode(code); link != nil {
		return *link, nil
	}
	return referral.Link{}, referral.ErrNotFound
}

func (repo *referralRepository) CreateLink(_ context.Context, link referral.Link) (referral.Link, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.byCode(link.Code) != nil {
		return referral.Link{}, referral.ErrCodeExists
	}
	repo.db.table[link.ID] = &link
	return link, nil
}

func (repo *referralRepository) UpdateLink(_ context.Context, link referral.Link) (referral.Link, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[link.ID]; !ok {
		return referral.Link{}, referral.ErrNotFound
	}
	repo.db.table[link.ID] = &link
	return link, nil
}

func (repo *referralRepository) DeleteLink(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	delete(repo.db.table, id)
	return nil
}

func (repo *referralRepository) IncrementClicks(_ context.Context, code string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	link := repo.byCode(code)
	if link == nil {
		return referral.ErrNotFound
	}
	link.Clicks++
	return nil
}

func (repo *referralRepository) IncrementRegistrations(_ context.Context, code string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	link := repo.byCode(code)
	if link == nil {
		return referral.ErrNotFound
	}
	link.Registrations++
	return nil
}
