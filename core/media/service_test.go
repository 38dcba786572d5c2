package media_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurorarobotics/aurora/core"
	"github.com/aurorarobotics/aurora/core/media"
	inmemdb "github.com/aurorarobotics/aurora/storage/database/inmem"
	"github.com/aurorarobotics/aurora/storage/objects/disk"
	testutil "github.com/aurorarobotics/aurora/tests"
)

var (
	pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	pdfHeader = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n")
)

type brokenRepo struct {
	media.Repository
}

func (brokenRepo) CreateItem(context.Context, media.Item) (media.Item, error) {
	return media.Item{}, errors.New("db down")
}

func newService(t *testing.T, maxSize int64) (*media.Service, *disk.Storage, media.Repository) {
	t.Helper()
	conf := core.NewTestConfig()
	conf.Media.Dir = t.TempDir()
	conf.Media.BaseURL = "/media/"
	conf.Media.MaxSize = maxSize
	storage := disk.New(conf)
	repo := inmemdb.NewMediaRepository(inmemdb.Open())
	return media.NewService(repo, storage, conf, testutil.NewLogger()), storage, repo
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	n := 0
	err := filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			n++
		}
		return err
	})
	require.NoError(t, err)
	return n
}

func TestService_Upload(t *testing.T) {
	ctx := context.Background()
	svc, storage, _ := newService(t, 1<<10)

	tests := []struct {
		name     string
		filename string
		content  []byte
		wantType string
		wantExt  string
		wantErr  error
	}{
		{name: "png", filename: "robot.PNG", content: pngHeader, wantType: "image/png", wantExt: ".png"},
		{name: "pdf with a lying name", filename: "syllabus.txt", content: pdfHeader, wantType: "application/pdf", wantExt: ".pdf"},
		{name: "text", filename: "notes.png", content: []byte("just some notes"), wantErr: media.ErrUnsupportedType},
		{name: "empty", filename: "empty.png", wantErr: media.ErrEmptyFile},
		{name: "too large", filename: "big.png", content: append(append([]byte{}, pngHeader...), make([]byte, 1<<10)...), wantErr: media.ErrTooLarge},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			item, err := svc.Upload(ctx, tc.filename, bytes.NewReader(tc.content))
			if tc.wantErr != nil {
				assert.Equal(t, tc.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantType, item.ContentType)
			assert.Equal(t, tc.filename, item.Filename)
			assert.Equal(t, int64(len(tc.content)), item.Size)
			assert.True(t, strings.HasSuffix(item.ObjectKey, item.ID+tc.wantExt), item.ObjectKey)
			assert.Equal(t, "/media/"+item.ObjectKey, item.URL)

			stored, err := os.ReadFile(filepath.Join(storage.Dir(), filepath.FromSlash(item.ObjectKey)))
			require.NoError(t, err)
			assert.Equal(t, tc.content, stored)
		})
	}

	items, err := svc.Query(ctx, media.QueryFilter{ContentType: "image/"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "robot.PNG", items[0].Filename)

	items, err = svc.Query(ctx, media.QueryFilter{Search: "SYLLA"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, countFiles(t, storage.Dir()))
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, storage, _ := newService(t, 0)

	item, err := svc.Upload(ctx, "robot.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	require.Equal(t, 1, countFiles(t, storage.Dir()))

	require.NoError(t, svc.Delete(ctx, item.ID))
	assert.Equal(t, 0, countFiles(t, storage.Dir()))
	_, err = svc.Get(ctx, item.ID)
	assert.Equal(t, media.ErrNotFound, errors.Cause(err))
	assert.Equal(t, media.ErrNotFound, errors.Cause(svc.Delete(ctx, item.ID)))
}

func TestService_Upload_orphanRemoved(t *testing.T) {
	ctx := context.Background()
	conf := core.NewTestConfig()
	conf.Media.Dir = t.TempDir()
	storage := disk.New(conf)
	repo := brokenRepo{inmemdb.NewMediaRepository(inmemdb.Open())}
	svc := media.NewService(repo, storage, conf, testutil.NewLogger())

	_, err := svc.Upload(ctx, "robot.png", bytes.NewReader(pngHeader))
	require.Error(t, err)
	assert.Equal(t, 0, countFiles(t, storage.Dir()))
}
