package dao

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Laisky/errors/v2"
)

var _ MediaStore = (*LocalMediaStore)(nil)

// LocalMediaStore keeps media as flat files in one directory
type LocalMediaStore struct {
	dir           string
	publicBaseURL string
}

// NewLocalMediaStore creates dir if missing.
// publicBaseURL is where the directory is served, like http://localhost:8080/media
func NewLocalMediaStore(dir, publicBaseURL string) (*LocalMediaStore, error) {
	if dir == "" {
		return nil, errors.New("media dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create media dir %q", dir)
	}

	return &LocalMediaStore{dir: dir, publicBaseURL: publicBaseURL}, nil
}

// Dir returns the directory holding the files
func (s *LocalMediaStore) Dir() string {
	return s.dir
}

func (s *LocalMediaStore) path(key string) (string, error) {
	if key == "" || key == "." || key == ".." ||
		strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return "", errors.Errorf("invalid media key %q", key)
	}

	return filepath.Join(s.dir, key), nil
}

// Put implements MediaStore
func (s *LocalMediaStore) Put(ctx context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	fpath, err := s.path(key)
	if err != nil {
		return "", errors.WithStack(err)
	}
	if err = ctx.Err(); err != nil {
		return "", errors.WithStack(err)
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", errors.Wrap(err, "create temp file")
	}
	defer os.Remove(tmp.Name()) // nolint: errcheck

	if _, err = io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		return "", errors.Wrap(err, "write media")
	}
	if err = tmp.Close(); err != nil {
		return "", errors.Wrap(err, "close media")
	}
	if err = os.Rename(tmp.Name(), fpath); err != nil {
		return "", errors.Wrap(err, "move media")
	}

	return s.URL(key), nil
}

// Remove implements MediaStore
func (s *LocalMediaStore) Remove(_ context.Context, key string) error {
	fpath, err := s.path(key)
	if err != nil {
		return errors.WithStack(err)
	}

	if err = os.Remove(fpath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrapf(err, "remove media %q", key)
	}

	return nil
}

// Exists implements MediaStore
func (s *LocalMediaStore) Exists(_ context.Context, key string) (bool, error) {
	fpath, err := s.path(key)
	if err != nil {
		return false, nil
	}

	if _, err = os.Stat(fpath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, errors.Wrapf(err, "stat media %q", key)
	}

	return true, nil
}

// List implements MediaStore
func (s *LocalMediaStore) List(_ context.Context) ([]string, error) {
	ents, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(err, "read media dir")
	}

	var keys []string
	for _, ent := range ents {
		if ent.IsDir() || strings.HasPrefix(ent.Name(), ".") {
			continue
		}
		keys = append(keys, ent.Name())
	}

	return keys, nil
}

// URL implements MediaStore
func (s *LocalMediaStore) URL(key string) string {
	return publicURL(s.publicBaseURL, key)
}
