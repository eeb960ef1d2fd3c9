// Package firestore wraps the Google Cloud Firestore client.
package firestore

import (
	"context"

	fsSDK "cloud.google.com/go/firestore"
	"github.com/Laisky/errors/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DB is a firestore client bound to one project
type DB struct {
	*fsSDK.Client
	projectID string
}

// NewDB create firestore client
func NewDB(ctx context.Context, projectID string, opts ...option.ClientOption) (db *DB, err error) {
	if projectID == "" {
		return nil, errors.New("firestore project id is empty")
	}

	db = &DB{
		projectID: projectID,
	}
	var cli *fsSDK.Client
	if cli, err = fsSDK.NewClient(ctx, projectID, opts...); err != nil {
		return nil, errors.Wrap(err, "create firestore client")
	}

	db.Client = cli
	return db, nil
}

// ClientOptions builds client options from an optional service account file
func ClientOptions(credentialFile string) []option.ClientOption {
	if credentialFile == "" {
		return nil
	}

	return []option.ClientOption{option.WithCredentialsFile(credentialFile)}
}

// ProjectID returns the bound project
func (db *DB) ProjectID() string {
	return db.projectID
}

// NotFound reports whether err is a firestore NotFound status
func NotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}
