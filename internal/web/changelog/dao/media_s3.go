package dao

import (
	"context"
	"io"
	"strings"

	"github.com/Laisky/errors/v2"

	"github.com/Laisky/laisky-changelog/library/db/s3"
)

var (
	_ MediaStore   = (*S3MediaStore)(nil)
	_ objectBucket = (*s3.DB)(nil)
)

type objectBucket interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// S3MediaStore keeps media in an S3 compatible bucket
type S3MediaStore struct {
	db            objectBucket
	prefix        string
	publicBaseURL string
}

// NewS3MediaStore creates a media store under prefix in db's bucket.
// publicBaseURL is the public origin serving the bucket, like https://pub-<id>.r2.dev
func NewS3MediaStore(db *s3.DB, prefix, publicBaseURL string) (*S3MediaStore, error) {
	if db == nil {
		return nil, errors.New("s3 db is nil")
	}

	return newS3MediaStore(db, prefix, publicBaseURL)
}

func newS3MediaStore(db objectBucket, prefix, publicBaseURL string) (*S3MediaStore, error) {
	if publicBaseURL == "" {
		return nil, errors.New("s3 public base url is empty")
	}

	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}

	return &S3MediaStore{db: db, prefix: prefix, publicBaseURL: publicBaseURL}, nil
}

func (s *S3MediaStore) objectKey(key string) string {
	return s.prefix + key
}

// Put implements MediaStore
func (s *S3MediaStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	if err := s.db.Put(ctx, s.objectKey(key), body, size, contentType); err != nil {
		return "", errors.WithStack(err)
	}

	return s.URL(key), nil
}

// Remove implements MediaStore
func (s *S3MediaStore) Remove(ctx context.Context, key string) error {
	return s.db.Remove(ctx, s.objectKey(key))
}

// Exists implements MediaStore
func (s *S3MediaStore) Exists(ctx context.Context, key string) (bool, error) {
	return s.db.Exists(ctx, s.objectKey(key))
}

// List implements MediaStore
func (s *S3MediaStore) List(ctx context.Context) ([]string, error) {
	keys, err := s.db.List(ctx, s.prefix)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	for i := range keys {
		keys[i] = strings.TrimPrefix(keys[i], s.prefix)
	}
	return keys, nil
}

// URL implements MediaStore
func (s *S3MediaStore) URL(key string) string {
	return publicURL(s.publicBaseURL, s.objectKey(key))
}
