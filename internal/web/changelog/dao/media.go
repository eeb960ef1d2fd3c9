package dao

import (
	"context"
	"io"
	"net/url"
	"strings"
)

// MediaStore keeps uploaded binaries and exposes them by public URL
type MediaStore interface {
	// Put stores body under key and returns its public URL
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	// Remove deletes key, missing keys are ignored
	Remove(ctx context.Context, key string) error
	// Exists reports whether key is stored
	Exists(ctx context.Context, key string) (bool, error)
	// List returns all stored keys
	List(ctx context.Context) ([]string, error)
	// URL returns the public URL of key without checking it exists
	URL(key string) string
}

// escapeObjectKey escapes key as one path segment.
// colons are escaped too, so keys never look like a scheme.
func escapeObjectKey(key string) string {
	return strings.ReplaceAll(url.PathEscape(key), ":", "%3A")
}

// publicURL joins base and key, escaping each path segment of key
func publicURL(base, key string) string {
	segments := strings.Split(key, "/")
	for i := range segments {
		segments[i] = escapeObjectKey(segments[i])
	}

	return strings.TrimSuffix(base, "/") + "/" + strings.Join(segments, "/")
}
