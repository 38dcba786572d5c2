// Package disk stores media objects in a local directory served by the API under the media base URL.
package disk

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/aurorarobotics/aurora/core"
	"github.com/aurorarobotics/aurora/core/media"
)

type Storage struct {
	dir     string
	baseURL string
}

var _ media.Storage = (*Storage)(nil)

func New(conf *core.Config) *Storage {
	return &Storage{dir: conf.Media.Dir, baseURL: strings.TrimRight(conf.Media.BaseURL, "/")}
}

func (s *Storage) Dir() string { return s.dir }

// path resolves key inside the storage dir, rejecting keys escaping it.
func (s *Storage) path(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", errors.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.dir, filepath.FromSlash(clean)), nil
}

func (s *Storage) Put(ctx context.Context, key string, r io.Reader, _ string) (string, error) {
	fp, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err = ctx.Err(); err != nil {
		return "", err
	}
	if err = os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return "", errors.Wrap(err, "creating object dir")
	}

	f, err := os.Create(fp)
	if err != nil {
		return "", errors.Wrap(err, "creating object")
	}
	if _, err = io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(fp)
		return "", errors.Wrap(err, "writing object")
	}
	if err = f.Close(); err != nil {
		return "", errors.Wrap(err, "closing object")
	}
	return s.baseURL + "/" + strings.TrimPrefix(path.Clean("/"+key), "/"), nil
}

func (s *Storage) Delete(_ context.Context, key string) error {
	fp, err := s.path(key)
	if err != nil {
		return err
	}
	if err = os.Remove(fp); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "deleting object")
	}
	return nil
}
