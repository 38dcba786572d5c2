package content

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/aurorarobotics/aurora/core"
)

var (
	// errors
	ErrNotFound          = errors.New("page not found")
	ErrSectionNotFound   = errors.New("section not found")
	ErrBlockNotFound     = errors.New("block not found")
	ErrSlugExists        = errors.New("a page with this slug already exists")
	ErrSlugLocked        = errors.New("unpublish the page before changing its slug")
	ErrSectionKeyExists  = errors.New("a section with this key already exists on the page")
	ErrDataNotObject     = errors.New("data must be a JSON object")
	ErrInvalidOrder      = errors.New("ids must list every item exactly once")
	ErrPublishedNotFound = errors.New("published page not found")
)

type (
	Repository interface {
		QueryPages(ctx context.Context) ([]Page, error)
		GetPage(ctx context.Context, id string) (Page, error)
		GetPageBySlug(ctx context.Context, slug string) (Page, error)
		CreatePage(ctx context.Context, page Page) (Page, error)
		UpdatePage(ctx context.Context, page Page) (Page, error)
		// DeletePage also deletes the page sections, blocks and published snapshot.
		DeletePage(ctx context.Context, id string) error

		// QuerySections returns the sections of a page ordered by position.
		QuerySections(ctx context.Context, pageID string) ([]Section, error)
		GetSection(ctx context.Context, id string) (Section, error)
		CreateSection(ctx context.Context, section Section) (Section, error)
		UpdateSection(ctx context.Context, section Section) (Section, error)
		DeleteSection(ctx context.Context, id string) error
		// SetSectionPositions sets the position of each section to its index in ids.
		SetSectionPositions(ctx context.Context, pageID string, ids []string) error

		// QueryBlocks returns the blocks of the given sections ordered by position.
		QueryBlocks(ctx context.Context, sectionIDs ...string) ([]Block, error)
		GetBlock(ctx context.Context, id string) (Block, error)
		CreateBlock(ctx context.Context, block Block) (Block, error)
		UpdateBlock(ctx context.Context, block Block) (Block, error)
		DeleteBlock(ctx context.Context, id string) error
		SetBlockPositions(ctx context.Context, sectionID string, ids []string) error

		// SavePublished inserts or replaces the snapshot of a page.
		SavePublished(ctx context.Context, pp PublishedPage) error
		DeletePublished(ctx context.Context, pageID string) error
		GetPublishedBySlug(ctx context.Context, slug string) (PublishedPage, error)
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (svc *Service) checkSlug(ctx context.Context, slug string) error {
	_, err := svc.repo.GetPageBySlug(ctx, slug)
	switch errors.Cause(err) {
	case nil:
		return core.NewFieldError("slug", ErrSlugExists)
	case ErrNotFound:
		return nil
	default:
		return errors.Wrap(err, "checking slug")
	}
}

func (svc *Service) checkSectionKey(ctx context.Context, pageID, key string) error {
	sections, err := svc.repo.QuerySections(ctx, pageID)
	if err != nil {
		return errors.Wrap(err, "querying sections")
	}
	for _, s := range sections {
		if s.Key == key {
			return core.NewFieldError("key", ErrSectionKeyExists)
		}
	}
	return nil
}

// Pages

func (svc *Service) QueryPages(ctx context.Context) ([]Page, error) {
	return svc.repo.QueryPages(ctx)
}

// GetPage returns the draft tree of a page.
func (svc *Service) GetPage(ctx context.Context, id string) (PageTree, error) {
	page, err := svc.repo.GetPage(ctx, id)
	if err != nil {
		return PageTree{}, err
	}
	return svc.buildTree(ctx, page)
}

func (svc *Service) buildTree(ctx context.Context, page Page) (PageTree, error) {
	sections, err := svc.repo.QuerySections(ctx, page.ID)
	if err != nil {
		return PageTree{}, errors.Wrap(err, "querying sections")
	}

	tree := PageTree{Page: page, Sections: make([]SectionTree, 0, len(sections))}
	if len(sections) == 0 {
		return tree, nil
	}

	ids := make([]string, 0, len(sections))
	for _, s := range sections {
		ids = append(ids, s.ID)
	}
	blocks, err := svc.repo.QueryBlocks(ctx, ids...)
	if err != nil {
		return PageTree{}, errors.Wrap(err, "querying blocks")
	}
	bySection := make(map[string][]Block, len(sections))
	for _, b := range blocks {
		bySection[b.SectionID] = append(bySection[b.SectionID], b)
	}

	for _, s := range sections {
		sb := bySection[s.ID]
		if sb == nil {
			sb = []Block{}
		}
		tree.Sections = append(tree.Sections, SectionTree{Section: s, Blocks: sb})
	}
	return tree, nil
}

func (svc *Service) CreatePage(ctx context.Context, np NewPage) (Page, error) {
	now := time.Now().UTC()
	page := Page{
		ID:          uuid.New().String(),
		Slug:        np.Slug,
		Title:       np.Title,
		Description: np.Description,
		Status:      StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreatePage(ctx, page)
}

func (svc *Service) GetPageRow(ctx context.Context, id string) (Page, error) {
	return svc.repo.GetPage(ctx, id)
}

func (svc *Service) UpdatePage(ctx context.Context, orig Page, up UpdatePage) (Page, error) {
	page := orig
	page.Slug = up.Slug
	page.Title = up.Title
	if up.Description != nil {
		page.Description = *up.Description
	}
	page.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdatePage(ctx, page)
}

func (svc *Service) DeletePage(ctx context.Context, id string) error {
	return svc.repo.DeletePage(ctx, id)
}

// Sections

func (svc *Service) GetSection(ctx context.Context, id string) (Section, error) {
	return svc.repo.GetSection(ctx, id)
}

// CreateSection appends a section at the end of the page.
func (svc *Service) CreateSection(ctx context.Context, pageID string, ns NewSection) (Section, error) {
	sections, err := svc.repo.QuerySections(ctx, pageID)
	if err != nil {
		return Section{}, errors.Wrap(err, "querying sections")
	}
	pos := 0
	for _, s := range sections {
		if s.Position >= pos {
			pos = s.Position + 1
		}
	}

	now := time.Now().UTC()
	section := Section{
		ID:        uuid.New().String(),
		PageID:    pageID,
		Key:       ns.Key,
		Title:     ns.Title,
		Position:  pos,
		IsVisible: ns.IsVisible == nil || *ns.IsVisible,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateSection(ctx, section)
}

func (svc *Service) UpdateSection(ctx context.Context, orig Section, us UpdateSection) (Section, error) {
	section := orig
	section.Key = us.Key
	if us.Title != nil {
		section.Title = *us.Title
	}
	if us.IsVisible != nil {
		section.IsVisible = *us.IsVisible
	}
	section.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateSection(ctx, section)
}

func (svc *Service) DeleteSection(ctx context.Context, id string) error {
	return svc.repo.DeleteSection(ctx, id)
}

// ReorderSections sets the order of a page's sections. ids must be exactly the page's sections.
func (svc *Service) ReorderSections(ctx context.Context, pageID string, ids []string) ([]Section, error) {
	sections, err := svc.repo.QuerySections(ctx, pageID)
	if err != nil {
		return nil, errors.Wrap(err, "querying sections")
	}
	current := make([]string, 0, len(sections))
	for _, s := range sections {
		current = append(current, s.ID)
	}
	if !sameSet(current, ids) {
		return nil, core.NewFieldError("ids", ErrInvalidOrder)
	}
	if err = svc.repo.SetSectionPositions(ctx, pageID, ids); err != nil {
		return nil, errors.Wrap(err, "setting section positions")
	}
	return svc.repo.QuerySections(ctx, pageID)
}

// Blocks

func (svc *Service) GetBlock(ctx context.Context, id string) (Block, error) {
	return svc.repo.GetBlock(ctx, id)
}

// CreateBlock appends a block at the end of the section.
func (svc *Service) CreateBlock(ctx context.Context, sectionID string, nb NewBlock) (Block, error) {
	blocks, err := svc.repo.QueryBlocks(ctx, sectionID)
	if err != nil {
		return Block{}, errors.Wrap(err, "querying blocks")
	}
	pos := 0
	for _, b := range blocks {
		if b.Position >= pos {
			pos = b.Position + 1
		}
	}

	now := time.Now().UTC()
	block := Block{
		ID:        uuid.New().String(),
		SectionID: sectionID,
		Kind:      nb.Kind,
		Data:      nb.Data,
		Position:  pos,
		IsVisible: nb.IsVisible == nil || *nb.IsVisible,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateBlock(ctx, block)
}

func (svc *Service) UpdateBlock(ctx context.Context, orig Block, ub UpdateBlock) (Block, error) {
	block := orig
	block.Kind = ub.Kind
	block.Data = ub.Data
	if ub.IsVisible != nil {
		block.IsVisible = *ub.IsVisible
	}
	block.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateBlock(ctx, block)
}

func (svc *Service) DeleteBlock(ctx context.Context, id string) error {
	return svc.repo.DeleteBlock(ctx, id)
}

func (svc *Service) ReorderBlocks(ctx context.Context, sectionID string, ids []string) ([]Block, error) {
	blocks, err := svc.repo.QueryBlocks(ctx, sectionID)
	if err != nil {
		return nil, errors.Wrap(err, "querying blocks")
	}
	current := make([]string, 0, len(blocks))
	for _, b := range blocks {
		current = append(current, b.ID)
	}
	if !sameSet(current, ids) {
		return nil, core.NewFieldError("ids", ErrInvalidOrder)
	}
	if err = svc.repo.SetBlockPositions(ctx, sectionID, ids); err != nil {
		return nil, errors.Wrap(err, "setting block positions")
	}
	return svc.repo.QueryBlocks(ctx, sectionID)
}

// Publishing

// BuildSnapshot renders the public view of a draft tree: hidden sections and blocks are dropped.
func BuildSnapshot(tree PageTree, publishedAt time.Time) Snapshot {
	snap := Snapshot{
		Slug:        tree.Slug,
		Title:       tree.Title,
		Description: tree.Description,
		PublishedAt: publishedAt,
		Sections:    make([]SnapshotSection, 0, len(tree.Sections)),
	}
	for _, s := range tree.Sections {
		if !s.IsVisible {
			continue
		}
		ss := SnapshotSection{Key: s.Key, Title: s.Title, Blocks: make([]SnapshotBlock, 0, len(s.Blocks))}
		for _, b := range s.Blocks {
			if !b.IsVisible {
				continue
			}
			ss.Blocks = append(ss.Blocks, SnapshotBlock{Kind: b.Kind, Data: b.Data})
		}
		snap.Sections = append(snap.Sections, ss)
	}
	return snap
}

// Publish copies the current draft of a page into its published snapshot.
func (svc *Service) Publish(ctx context.Context, pageID string) (Page, error) {
	tree, err := svc.GetPage(ctx, pageID)
	if err != nil {
		return Page{}, errors.Wrap(err, "getting page tree")
	}

	now := time.Now().UTC()
	snap := BuildSnapshot(tree, now)
	data, err := json.Marshal(snap)
	if err != nil {
		return Page{}, errors.Wrap(err, "marshalling snapshot")
	}
	pp := PublishedPage{PageID: tree.ID, Slug: tree.Slug, Snapshot: data, PublishedAt: now}
	if err = svc.repo.SavePublished(ctx, pp); err != nil {
		return Page{}, errors.Wrap(err, "saving snapshot")
	}

	page := tree.Page
	page.Status = StatusPublished
	page.PublishedAt = null.TimeFrom(now)
	page.UpdatedAt = now
	page, err = svc.repo.UpdatePage(ctx, page)
	if err != nil {
		return Page{}, errors.Wrap(err, "updating page")
	}
	svc.logger.Info("page published", map[string]interface{}{"page": page.Slug, "sections": len(snap.Sections)})
	return page, nil
}

// Unpublish removes the snapshot of a page and puts it back in draft.
func (svc *Service) Unpublish(ctx context.Context, pageID string) (Page, error) {
	page, err := svc.repo.GetPage(ctx, pageID)
	if err != nil {
		return Page{}, err
	}
	if err = svc.repo.DeletePublished(ctx, pageID); err != nil {
		return Page{}, errors.Wrap(err, "deleting snapshot")
	}
	page.Status = StatusDraft
	page.PublishedAt = null.Time{}
	page.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdatePage(ctx, page)
}

// GetPublished returns the published snapshot of a page. Draft tables are never read.
func (svc *Service) GetPublished(ctx context.Context, slug string) (Snapshot, error) {
	pp, err := svc.repo.GetPublishedBySlug(ctx, core.CleanString(slug, true /* lower */))
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err = json.Unmarshal(pp.Snapshot, &snap); err != nil {
		return Snapshot{}, errors.Wrap(err, "unmarshalling snapshot")
	}
	return snap, nil
}

func sameSet(current, wanted []string) bool {
	if len(current) != len(wanted) {
		return false
	}
	a := append([]string(nil), current...)
	b := append([]string(nil), wanted...)
	sort.Strings(a)
	sort.Strings(b)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
