package media

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/aurorarobotics/aurora/core"
)

var (
	// errors
	ErrNotFound        = errors.New("media item not found")
	ErrTooLarge        = errors.New("file is too large")
	ErrUnsupportedType = errors.New("unsupported file type: only images, videos and PDFs are allowed")
	ErrEmptyFile       = errors.New("file is empty")
)

type (
	// Storage persists object bytes; implemented in storage/objects.
	Storage interface {
		// Put stores r under key and returns its public URL.
		Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
		Delete(ctx context.Context, key string) error
	}

	Repository interface {
		// QueryItems matches QueryFilter.Search against the filename and
		// QueryFilter.ContentType as a prefix. Newest first.
		QueryItems(ctx context.Context, filter QueryFilter) ([]Item, error)
		GetItem(ctx context.Context, id string) (Item, error)
		CreateItem(ctx context.Context, item Item) (Item, error)
		DeleteItem(ctx context.Context, id string) error
	}

	Service struct {
		repo    Repository
		storage Storage
		maxSize int64
		logger  core.Logger
		nowFunc func() time.Time
	}
)

func NewService(repo Repository, storage Storage, conf *core.Config, logger core.Logger) *Service {
	return &Service{
		repo:    repo,
		storage: storage,
		maxSize: conf.Media.MaxSize,
		logger:  logger,
		nowFunc: time.Now,
	}
}

func allowed(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		ct := m.String()
		if strings.HasPrefix(ct, "image/") || strings.HasPrefix(ct, "video/") || m.Is("application/pdf") {
			return true
		}
	}
	return false
}

// Upload sniffs the content type of r, stores it under `yyyy/mm/<uuid><ext>` and saves the item.
func (svc *Service) Upload(ctx context.Context, filename string, r io.Reader) (Item, error) {
	lr := r
	if svc.maxSize > 0 {
		lr = io.LimitReader(r, svc.maxSize+1)
	}
	content, err := io.ReadAll(lr)
	if err != nil {
		return Item{}, errors.Wrap(err, "reading upload")
	}
	size := int64(len(content))
	switch {
	case size == 0:
		return Item{}, ErrEmptyFile
	case svc.maxSize > 0 && size > svc.maxSize:
		return Item{}, ErrTooLarge
	}

	mtype := mimetype.Detect(content)
	if !allowed(mtype) {
		return Item{}, ErrUnsupportedType
	}
	ext := mtype.Extension()
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(filename))
	}
	contentType := strings.SplitN(mtype.String(), ";", 2)[0]

	now := svc.nowFunc().UTC()
	id := uuid.New().String()
	key := now.Format("2006/01") + "/" + id + ext

	url, err := svc.storage.Put(ctx, key, bytes.NewReader(content), contentType)
	if err != nil {
		return Item{}, errors.Wrap(err, "storing object")
	}

	item := Item{
		ID:          id,
		ObjectKey:   key,
		Filename:    filepath.Base(core.CleanString(filename)),
		ContentType: contentType,
		Size:        size,
		URL:         url,
		CreatedAt:   now,
	}
	if item, err = svc.repo.CreateItem(ctx, item); err != nil {
		if delErr := svc.storage.Delete(ctx, key); delErr != nil {
			svc.logger.Error("removing orphan object", delErr, map[string]interface{}{"key": key})
		}
		return Item{}, errors.Wrap(err, "saving media item")
	}
	return item, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Item, error) {
	return svc.repo.QueryItems(ctx, filter)
}

func (svc *Service) Get(ctx context.Context, id string) (Item, error) {
	return svc.repo.GetItem(ctx, id)
}

// Delete removes the stored object, then the row.
func (svc *Service) Delete(ctx context.Context, id string) error {
	item, err := svc.repo.GetItem(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.storage.Delete(ctx, item.ObjectKey); err != nil {
		return errors.Wrap(err, "deleting object")
	}
	return svc.repo.DeleteItem(ctx, id)
}
