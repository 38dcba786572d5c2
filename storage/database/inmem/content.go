package inmemdb

import (
	"context"
	"sort"

	"github.com/aurorarobotics/aurora/core/content"
)

type contentRepository struct {
	db *contentTables
}

var _ content.Repository = (*contentRepository)(nil)

func NewContentRepository(db *DB) *contentRepository {
	return &contentRepository{db: db.content}
}

// Pages

func (repo *contentRepository) QueryPages(context.Context) ([]content.Page, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	pages := make([]content.Page, 0, len(repo.db.pages))
	for _, p := range repo.db.pages {
		pages = append(pages, *p)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Slug < pages[j].Slug })
	return pages, nil
}

func (repo *contentRepository) GetPage(_ context.Context, id string) (content.Page, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.pages[id]; ok {
		return *p, nil
	}
	return content.Page{}, content.ErrNotFound
}

func (repo *contentRepository) GetPageBySlug(_ context.Context, slug string) (content.Page, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, p := range repo.db.pages {
		if p.Slug == slug {
			return *p, nil
		}
	}
	return content.Page{}, content.ErrNotFound
}

func (repo *contentRepository) CreatePage(_ context.Context, page content.Page) (content.Page, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.pages[page.ID] = &page
	return page, nil
}

func (repo *contentRepository) UpdatePage(_ context.Context, page content.Page) (content.Page, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.pages[page.ID]; !ok {
		return content.Page{}, content.ErrNotFound
	}
	repo.db.pages[page.ID] = &page
	return page, nil
}

func (repo *contentRepository) DeletePage(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for sid, s := range repo.db.sections {
		if s.PageID != id {
			continue
		}
		for bid, b := range repo.db.blocks {
			if b.SectionID == sid {
				delete(repo.db.blocks, bid)
			}
		}
		delete(repo.db.sections, sid)
	}
	delete(repo.db.published, id)
	delete(repo.db.pages, id)
	return nil
}

// Sections

func (repo *contentRepository) QuerySections(_ context.Context, pageID string) ([]content.Section, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	sections := make([]content.Section, 0)
	for _, s := range repo.db.sections {
		if s.PageID == pageID {
			sections = append(sections, *s)
		}
	}
	sort.Slice(sections, func(i, j int) bool { return sections[i].Position < sections[j].Position })
	return sections, nil
}

func (repo *contentRepository) GetSection(_ context.Context, id string) (content.Section, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.sections[id]; ok {
		return *s, nil
	}
	return content.Section{}, content.ErrSectionNotFound
}

func (repo *contentRepository) CreateSection(_ context.Context, section content.Section) (content.Section, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.sections[section.ID] = &section
	return section, nil
}

func (repo *contentRepository) UpdateSection(_ context.Context, section content.Section) (content.Section, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.sections[section.ID]; !ok {
		return content.Section{}, content.ErrSectionNotFound
	}
	repo.db.sections[section.ID] = &section
	return section, nil
}

func (repo *contentRepository) DeleteSection(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for bid, b := range repo.db.blocks {
		if b.SectionID == id {
			delete(repo.db.blocks, bid)
		}
	}
	delete(repo.db.sections, id)
	return nil
}

func (repo *contentRepository) SetSectionPositions(_ context.Context, pageID string, ids []string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for pos, id := range ids {
		if s, ok := repo.db.sections[id]; ok && s.PageID == pageID {
			s.Position = pos
		}
	}
	return nil
}

// Blocks

func (repo *contentRepository) QueryBlocks(_ context.Context, sectionIDs ...string) ([]content.Block, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	wanted := make(map[string]bool, len(sectionIDs))
	for _, id := range sectionIDs {
		wanted[id] = true
	}
	blocks := make([]content.Block, 0)
	for _, b := range repo.db.blocks {
		if wanted[b.SectionID] {
			blocks = append(blocks, *b)
		}
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Position < blocks[j].Position })
	return blocks, nil
}

func (repo *contentRepository) GetBlock(_ context.Context, id string) (content.Block, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if b, ok := repo.db.blocks[id]; ok {
		return *b, nil
	}
	return content.Block{}, content.ErrBlockNotFound
}

func (repo *contentRepository) CreateBlock(_ context.Context, block content.Block) (content.Block, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.blocks[block.ID] = &block
	return block, nil
}

func (repo *contentRepository) UpdateBlock(_ context.Context, block content.Block) (content.Block, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.blocks[block.ID]; !ok {
		return content.Block{}, content.ErrBlockNotFound
	}
	repo.db.blocks[block.ID] = &block
	return block, nil
}

func (repo *contentRepository) DeleteBlock(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	delete(repo.db.blocks, id)
	return nil
}

func (repo *contentRepository) SetBlockPositions(_ context.Context, sectionID string, ids []string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for pos, id := range ids {
		if b, ok := repo.db.blocks[id]; ok && b.SectionID == sectionID {
			b.Position = pos
		}
	}
	return nil
}

// Published snapshots

func (repo *contentRepository) SavePublished(_ context.Context, pp content.PublishedPage) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.published[pp.PageID] = &pp
	return nil
}

func (repo *contentRepository) DeletePublished(_ context.Context, pageID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	delete(repo.db.published, pageID)
	return nil
}

func (repo *contentRepository) GetPublishedBySlug(_ context.Context, slug string) (content.PublishedPage, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, pp := range repo.db.published {
		if pp.Slug == slug {
			return *pp, nil
		}
	}
	return content.PublishedPage{}, content.ErrPublishedNotFound
}
