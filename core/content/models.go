package content

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/aurorarobotics/aurora/core"
)

// Page statuses
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

type Page struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
	PublishedAt null.Time `json:"published_at"`
}

func (p Page) IsPublished() bool { return p.Status == StatusPublished }

// Section is a named grouping of blocks within a page (e.g. "hero").
type Section struct {
	ID        string    `json:"id"`
	PageID    string    `json:"page_id"`
	Key       string    `json:"key"`
	Title     string    `json:"title"`
	Position  int       `json:"position"`
	IsVisible bool      `json:"is_visible"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Block is a typed unit of content. Data is a JSON object whose shape depends on Kind.
type Block struct {
	ID        string          `json:"id"`
	SectionID string          `json:"section_id"`
	Kind      string          `json:"kind"`
	Data      json.RawMessage `json:"data"`
	Position  int             `json:"position"`
	IsVisible bool            `json:"is_visible"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PageTree is the draft page with all its sections and blocks, ordered by position.
type PageTree struct {
	Page
	Sections []SectionTree `json:"sections"`
}

type SectionTree struct {
	Section
	Blocks []Block `json:"blocks"`
}

// Snapshot is the denormalized copy of a page served to the public site.
type Snapshot struct {
	Slug        string            `json:"slug"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	PublishedAt time.Time         `json:"published_at"`
	Sections    []SnapshotSection `json:"sections"`
}

type SnapshotSection struct {
	Key    string          `json:"key"`
	Title  string          `json:"title"`
	Blocks []SnapshotBlock `json:"blocks"`
}

type SnapshotBlock struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// PublishedPage is the stored form of a Snapshot.
type PublishedPage struct {
	PageID      string
	Slug        string
	Snapshot    []byte
	PublishedAt time.Time
}

// NewPage contains information needed to create a new Page.
type NewPage struct {
	Slug        string `json:"slug" validate:"required,slug,max=100"`
	Title       string `json:"title" validate:"notblank,max=200"`
	Description string `json:"description" validate:"max=500"`
}

func (np *NewPage) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	np.Slug = core.Slugify(np.Slug)
	np.Title = core.CleanString(np.Title)
	np.Description = core.CleanString(np.Description)

	if err := validate.Struct(np); err != nil {
		return err
	}
	return svc.checkSlug(ctx, np.Slug)
}

// UpdatePage defines what information may be provided to modify an existing Page.
// Empty fields keep their current value.
type UpdatePage struct {
	Slug        string  `json:"slug" validate:"omitempty,slug,max=100"`
	Title       string  `json:"title" validate:"max=200"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

func (up *UpdatePage) Validate(ctx context.Context, orig Page, validate *validator.Validate, svc *Service) error {
	if slug := core.Slugify(up.Slug); slug != "" {
		up.Slug = slug
	} else {
		up.Slug = orig.Slug
	}
	if title := core.CleanString(up.Title); title != "" {
		up.Title = title
	} else {
		up.Title = orig.Title
	}
	if up.Description != nil {
		desc := core.CleanString(*up.Description)
		up.Description = &desc
	}

	if err := validate.Struct(up); err != nil {
		return err
	}
	if up.Slug == orig.Slug {
		return nil
	}
	if orig.IsPublished() {
		return core.NewFieldError("slug", ErrSlugLocked)
	}
	return svc.checkSlug(ctx, up.Slug)
}

type NewSection struct {
	Key       string `json:"key" validate:"required,slug,max=100"`
	Title     string `json:"title" validate:"max=200"`
	IsVisible *bool  `json:"is_visible"`
}

func (ns *NewSection) Validate(ctx context.Context, pageID string, validate *validator.Validate, svc *Service) error {
	ns.Key = core.Slugify(ns.Key)
	ns.Title = core.CleanString(ns.Title)
	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.checkSectionKey(ctx, pageID, ns.Key)
}

type UpdateSection struct {
	Key       string  `json:"key" validate:"omitempty,slug,max=100"`
	Title     *string `json:"title" validate:"omitempty,max=200"`
	IsVisible *bool   `json:"is_visible"`
}

func (us *UpdateSection) Validate(ctx context.Context, orig Section, validate *validator.Validate, svc *Service) error {
	if key := core.Slugify(us.Key); key != "" {
		us.Key = key
	} else {
		us.Key = orig.Key
	}
	if us.Title != nil {
		title := core.CleanString(*us.Title)
		us.Title = &title
	}
	if err := validate.Struct(us); err != nil {
		return err
	}
	if us.Key == orig.Key {
		return nil
	}
	return svc.checkSectionKey(ctx, orig.PageID, us.Key)
}

type NewBlock struct {
	Kind      string          `json:"kind" validate:"required,slug,max=50"`
	Data      json.RawMessage `json:"data"`
	IsVisible *bool           `json:"is_visible"`
}

func (nb *NewBlock) Validate(validate *validator.Validate) error {
	nb.Kind = core.CleanString(nb.Kind, true /* lower */)
	if len(bytes.TrimSpace(nb.Data)) == 0 {
		nb.Data = json.RawMessage("{}")
	}
	if err := validate.Struct(nb); err != nil {
		return err
	}
	return checkBlockData(nb.Data)
}

type UpdateBlock struct {
	Kind      string          `json:"kind" validate:"omitempty,slug,max=50"`
	Data      json.RawMessage `json:"data"`
	IsVisible *bool           `json:"is_visible"`
}

func (ub *UpdateBlock) Validate(orig Block, validate *validator.Validate) error {
	if kind := core.CleanString(ub.Kind, true /* lower */); kind != "" {
		ub.Kind = kind
	} else {
		ub.Kind = orig.Kind
	}
	if len(bytes.TrimSpace(ub.Data)) == 0 {
		ub.Data = orig.Data
	}
	if err := validate.Struct(ub); err != nil {
		return err
	}
	return checkBlockData(ub.Data)
}

// Reorder lists every child id of a page (sections) or section (blocks) in the wanted order.
type Reorder struct {
	IDs []string `json:"ids" validate:"required,min=1,unique"`
}

func (ro *Reorder) Validate(validate *validator.Validate) error {
	return validate.Struct(ro)
}

func checkBlockData(data json.RawMessage) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		return core.NewFieldError("data", ErrDataNotObject)
	}
	return nil
}
