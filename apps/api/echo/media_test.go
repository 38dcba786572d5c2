package echoapi_test

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurorarobotics/aurora/core/media"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

func TestMediaAPI(t *testing.T) {
	f := newFixture(t)
	editor := f.cookie(t, f.editor)

	rec := f.serve(newUploadRequest(t, "/api/admin/media", editor, "Robot Arm.png", pngHeader, nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var item media.Item
	unmarshal(t, rec, &item)
	assert.Equal(t, "image/png", item.ContentType)
	assert.Equal(t, "Robot Arm.png", item.Filename)
	require.True(t, strings.HasPrefix(item.URL, "/media/"), item.URL)

	// served as a static file
	rec = f.serve(newRequest(http.MethodGet, item.URL, nil, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.Equal(pngHeader, rec.Body.Bytes()))

	tests := []struct {
		name     string
		filename string
		content  []byte
		wantCode int
		wantData []byte
	}{
		{
			name:     "text is rejected",
			filename: "notes.png",
			content:  []byte("just some notes"),
			wantCode: http.StatusUnsupportedMediaType,
			wantData: marchallObj(t, httpErr{Error: media.ErrUnsupportedType.Error()}),
		},
		{
			name:     "empty file",
			filename: "empty.png",
			content:  []byte{},
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: media.ErrEmptyFile.Error()}),
		},
		{
			name:     "no file",
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"file": "a file is required"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.serve(newUploadRequest(t, "/api/admin/media", editor, tt.filename, tt.content, nil))
			checkCodeAndData(t, httpTest{wantCode: tt.wantCode, wantData: tt.wantData}, rec)
		})
	}

	f.run(t, httpTest{
		name:     "list images",
		method:   http.MethodGet,
		path:     "/api/admin/media?content_type=image/",
		cookie:   editor,
		wantCode: http.StatusOK,
		wantData: marchallObj(t, []media.Item{item}),
	})

	rec = f.serve(newRequest(http.MethodDelete, "/api/admin/media/"+item.ID, editor, nil))
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	rec = f.serve(newRequest(http.MethodGet, item.URL, nil, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	f.run(t, httpTest{method: http.MethodGet, path: "/api/admin/media/" + item.ID, cookie: editor, wantCode: http.StatusNotFound})
}
