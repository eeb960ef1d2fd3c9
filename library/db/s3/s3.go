// Package s3 wraps a minio client bound to one bucket.
package s3

import (
	"context"
	"io"

	"github.com/Laisky/errors/v2"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// DialInfo describes an S3 compatible endpoint
type DialInfo struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Secure    bool
	// Region skips the bucket location lookup when set, R2 uses "auto"
	Region string
}

// DB is an object bucket
type DB struct {
	cli    *minio.Client
	bucket string
}

// NewDB creates a bucket handle, it does not contact the endpoint
func NewDB(dialInfo DialInfo) (*DB, error) {
	if dialInfo.Endpoint == "" || dialInfo.Bucket == "" {
		return nil, errors.New("s3 endpoint and bucket are required")
	}

	cli, err := minio.New(dialInfo.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(dialInfo.AccessKey, dialInfo.SecretKey, ""),
		Secure: dialInfo.Secure,
		Region: dialInfo.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, "new minio client")
	}

	return &DB{cli: cli, bucket: dialInfo.Bucket}, nil
}

// Bucket returns the bound bucket name
func (db *DB) Bucket() string {
	return db.bucket
}

// Put uploads body under key
func (db *DB) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	_, err := db.cli.PutObject(ctx, db.bucket, key, body, size,
		minio.PutObjectOptions{
			ContentType: contentType,
		},
	)
	if err != nil {
		return errors.Wrapf(err, "put object %q", key)
	}

	return nil
}

// Remove deletes key, a missing key is not an error
func (db *DB) Remove(ctx context.Context, key string) error {
	if err := db.cli.RemoveObject(ctx, db.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrapf(err, "remove object %q", key)
	}

	return nil
}

// Exists reports whether key is stored
func (db *DB) Exists(ctx context.Context, key string) (bool, error) {
	_, err := db.cli.StatObject(ctx, db.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}

		return false, errors.Wrapf(err, "stat object %q", key)
	}

	return true, nil
}

// List returns every key under prefix
func (db *DB) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range db.cli.ListObjects(ctx, db.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, "list objects")
		}

		keys = append(keys, obj.Key)
	}

	return keys, nil
}
