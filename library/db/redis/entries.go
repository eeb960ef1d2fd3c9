package redis

import (
	"context"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/redis/go-redis/v9"
)

// ErrEntryNotFound is returned when no entry is stored under the name
var ErrEntryNotFound = errors.New("entry not found")

const scanBatch = 200

// PutEntry stores payload under name without expiration
func (db *DB) PutEntry(ctx context.Context, name, payload string) error {
	if err := db.db.SetItem(ctx, EntryKey(name), payload, 0); err != nil {
		return errors.Wrapf(err, "set entry %q", name)
	}

	return nil
}

// GetEntry loads the payload stored under name
func (db *DB) GetEntry(ctx context.Context, name string) (string, error) {
	payload, err := db.db.GetItem(ctx, EntryKey(name))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", errors.Wrapf(ErrEntryNotFound, "entry %q", name)
		}

		return "", errors.Wrapf(err, "get entry %q", name)
	}

	return payload, nil
}

// EntryExists reports whether name is stored
func (db *DB) EntryExists(ctx context.Context, name string) (bool, error) {
	n, err := db.db.Exists(ctx, EntryKey(name)).Result()
	if err != nil {
		return false, errors.Wrapf(err, "check entry %q", name)
	}

	return n > 0, nil
}

// ListEntryNames returns the names of all stored entries.
//
// SCAN gives no ordering guarantee.
func (db *DB) ListEntryNames(ctx context.Context) ([]string, error) {
	var (
		names  []string
		cursor uint64
	)
	for {
		keys, next, err := db.db.Scan(ctx, cursor, KeyPrefixChangelogEntry+"*", scanBatch).Result()
		if err != nil {
			return nil, errors.Wrap(err, "scan entries")
		}

		for _, key := range keys {
			names = append(names, strings.TrimPrefix(key, KeyPrefixChangelogEntry))
		}

		if next == 0 {
			return names, nil
		}
		cursor = next
	}
}
