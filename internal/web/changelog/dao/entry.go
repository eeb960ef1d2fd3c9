// Package dao contains the storage backends of changelog entries and media.
package dao

import (
	"context"
	"regexp"

	"github.com/Laisky/errors/v2"
)

// ErrNotFound is returned when no payload is stored under a key
var ErrNotFound = errors.New("entry not found")

// regexpEntryKey accepts display dates like "2nd Mar, 2024 10:5"
var regexpEntryKey = regexp.MustCompile(`^[a-zA-Z0-9 ,:_\-]{1,128}$`)

// EntryStore maps entry keys to serialized entries
type EntryStore interface {
	// ListKeys returns all stored keys
	ListKeys(ctx context.Context) ([]string, error)
	// Get returns the payload stored under key, or ErrNotFound
	Get(ctx context.Context, key string) (string, error)
	// Put stores payload under key, overwriting any previous value
	Put(ctx context.Context, key, payload string) error
	// Exists reports whether key is stored
	Exists(ctx context.Context, key string) (bool, error)
}

// ValidKey reports whether key can be stored by every backend
func ValidKey(key string) bool {
	return regexpEntryKey.MatchString(key)
}
