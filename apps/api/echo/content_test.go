package echoapi_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurorarobotics/aurora/core/content"
)

func TestContentAPI(t *testing.T) {
	f := newFixture(t)
	editor := f.cookie(t, f.editor)

	// create a draft page
	rec := f.serve(newRequest(http.MethodPost, "/api/admin/pages", editor,
		[]byte(`{"slug":"Summer Camp","title":"  Summer camp  ","description":"Robots!"}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var page content.Page
	unmarshal(t, rec, &page)
	assert.Equal(t, "summer-camp", page.Slug)
	assert.Equal(t, "Summer camp", page.Title)
	assert.Equal(t, content.StatusDraft, page.Status)

	f.run(t, httpTest{
		name:     "duplicate slug",
		method:   http.MethodPost,
		path:     "/api/admin/pages",
		body:     []byte(`{"slug":"summer-camp","title":"Again"}`),
		cookie:   editor,
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, map[string]string{"slug": content.ErrSlugExists.Error()}),
	})

	// sections and blocks
	rec = f.serve(newRequest(http.MethodPost, "/api/admin/pages/"+page.ID+"/sections", editor, []byte(`{"key":"hero","title":"Hero"}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var hero content.Section
	unmarshal(t, rec, &hero)

	rec = f.serve(newRequest(http.MethodPost, "/api/admin/pages/"+page.ID+"/sections", editor, []byte(`{"key":"faq","is_visible":false}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var faq content.Section
	unmarshal(t, rec, &faq)

	rec = f.serve(newRequest(http.MethodPost, "/api/admin/sections/"+hero.ID+"/blocks", editor,
		[]byte(`{"kind":"heading","data":{"text":"Build robots"}}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var heading content.Block
	unmarshal(t, rec, &heading)

	tests := []httpTest{
		{
			name:     "block data must be an object",
			method:   http.MethodPost,
			path:     "/api/admin/sections/" + hero.ID + "/blocks",
			body:     []byte(`{"kind":"heading","data":[1,2]}`),
			cookie:   editor,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"data": content.ErrDataNotObject.Error()}),
		},
		{
			name:     "block in unknown section",
			method:   http.MethodPost,
			path:     "/api/admin/sections/nope/blocks",
			body:     []byte(`{"kind":"heading"}`),
			cookie:   editor,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: content.ErrSectionNotFound.Error()}),
		},
		{
			name:     "reorder must list every section",
			method:   http.MethodPut,
			path:     "/api/admin/pages/" + page.ID + "/sections/order",
			body:     marchallObj(t, content.Reorder{IDs: []string{faq.ID}}),
			cookie:   editor,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"ids": content.ErrInvalidOrder.Error()}),
		},
		{
			name:     "not published yet",
			method:   http.MethodGet,
			path:     "/api/pages/summer-camp",
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: content.ErrPublishedNotFound.Error()}),
		},
		{
			name:     "unknown page",
			method:   http.MethodGet,
			path:     "/api/admin/pages/nope",
			cookie:   editor,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: content.ErrNotFound.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.run(t, tt)
		})
	}

	// faq first
	rec = f.serve(newRequest(http.MethodPut, "/api/admin/pages/"+page.ID+"/sections/order", editor,
		marchallObj(t, content.Reorder{IDs: []string{faq.ID, hero.ID}})))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.serve(newRequest(http.MethodGet, "/api/admin/pages/"+page.ID, editor, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tree content.PageTree
	unmarshal(t, rec, &tree)
	require.Len(t, tree.Sections, 2)
	assert.Equal(t, "faq", tree.Sections[0].Key)
	require.Len(t, tree.Sections[1].Blocks, 1)

	// publish: hidden sections are left out of the snapshot
	rec = f.serve(newRequest(http.MethodPost, "/api/admin/pages/"+page.ID+"/publish", editor, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	unmarshal(t, rec, &page)
	assert.True(t, page.IsPublished())

	rec = f.serve(newRequest(http.MethodGet, "/api/pages/Summer-Camp", nil, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var snap content.Snapshot
	unmarshal(t, rec, &snap)
	assert.Equal(t, "Summer camp", snap.Title)
	require.Len(t, snap.Sections, 1)
	assert.Equal(t, "hero", snap.Sections[0].Key)
	require.Len(t, snap.Sections[0].Blocks, 1)
	assert.JSONEq(t, `{"text":"Build robots"}`, string(snap.Sections[0].Blocks[0].Data))

	// draft edits do not leak to the public page until published again
	rec = f.serve(newRequest(http.MethodPut, "/api/admin/blocks/"+heading.ID, editor, []byte(`{"data":{"text":"Draft"}}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = f.serve(newRequest(http.MethodGet, "/api/pages/summer-camp", nil, nil))
	unmarshal(t, rec, &snap)
	assert.JSONEq(t, `{"text":"Build robots"}`, string(snap.Sections[0].Blocks[0].Data))

	f.run(t, httpTest{
		name:     "slug locked while published",
		method:   http.MethodPut,
		path:     "/api/admin/pages/" + page.ID,
		body:     []byte(`{"slug":"winter-camp"}`),
		cookie:   editor,
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, map[string]string{"slug": content.ErrSlugLocked.Error()}),
	})

	// unpublish
	rec = f.serve(newRequest(http.MethodPost, "/api/admin/pages/"+page.ID+"/unpublish", editor, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	f.run(t, httpTest{method: http.MethodGet, path: "/api/pages/summer-camp", wantCode: http.StatusNotFound})

	// delete
	rec = f.serve(newRequest(http.MethodDelete, "/api/admin/pages/"+page.ID, editor, nil))
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	rec = f.serve(newRequest(http.MethodGet, "/api/admin/pages", editor, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var pages []json.RawMessage
	unmarshal(t, rec, &pages)
	assert.Empty(t, pages)
}
