package content

import (
	"context"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/aurorarobotics/aurora/core"
)

// Template describes a page and its default sections, as found in pages.yaml.
type Template struct {
	Slug        string            `yaml:"slug"`
	Title       string            `yaml:"title"`
	Description string            `yaml:"description"`
	Sections    []SectionTemplate `yaml:"sections"`
}

type SectionTemplate struct {
	Key    string          `yaml:"key"`
	Title  string          `yaml:"title"`
	Blocks []BlockTemplate `yaml:"blocks"`
}

type BlockTemplate struct {
	Kind string                 `yaml:"kind"`
	Data map[string]interface{} `yaml:"data"`
}

// LoadTemplates decodes a YAML document of the form `pages: [Template...]`.
func LoadTemplates(r io.Reader) ([]Template, error) {
	var doc struct {
		Pages []Template `yaml:"pages"`
	}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "decoding page templates")
	}
	return doc.Pages, nil
}

// ApplyTemplates creates the pages described by tmpls, skipping those whose slug already exists.
// It returns the slugs of the created pages.
func (svc *Service) ApplyTemplates(ctx context.Context, tmpls []Template) ([]string, error) {
	created := make([]string, 0, len(tmpls))
	for _, tmpl := range tmpls {
		slug := core.Slugify(tmpl.Slug)
		if slug == "" {
			return created, errors.Errorf("page template %q: empty slug", tmpl.Title)
		}
		_, err := svc.repo.GetPageBySlug(ctx, slug)
		if err == nil {
			continue
		}
		if errors.Cause(err) != ErrNotFound {
			return created, errors.Wrap(err, "checking slug")
		}

		title := core.CleanString(tmpl.Title)
		if title == "" {
			title = slug
		}
		page, err := svc.CreatePage(ctx, NewPage{Slug: slug, Title: title, Description: core.CleanString(tmpl.Description)})
		if err != nil {
			return created, errors.Wrapf(err, "creating page %s", slug)
		}

		for _, st := range tmpl.Sections {
			section, err := svc.CreateSection(ctx, page.ID, NewSection{Key: core.Slugify(st.Key), Title: st.Title})
			if err != nil {
				return created, errors.Wrapf(err, "creating section %s/%s", slug, st.Key)
			}
			for _, bt := range st.Blocks {
				data := bt.Data
				if data == nil {
					data = map[string]interface{}{}
				}
				raw, err := json.Marshal(data)
				if err != nil {
					return created, errors.Wrapf(err, "encoding block data %s/%s", slug, st.Key)
				}
				nb := NewBlock{Kind: core.CleanString(bt.Kind, true /* lower */), Data: raw}
				if _, err = svc.CreateBlock(ctx, section.ID, nb); err != nil {
					return created, errors.Wrapf(err, "creating block %s/%s", slug, st.Key)
				}
			}
		}
		created = append(created, slug)
	}
	return created, nil
}
