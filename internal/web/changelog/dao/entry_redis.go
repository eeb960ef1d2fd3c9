package dao

import (
	"context"

	"github.com/Laisky/errors/v2"

	rlib "github.com/Laisky/laisky-changelog/library/db/redis"
)

var _ EntryStore = (*RedisEntryStore)(nil)

// RedisEntryStore keeps entries as plain redis strings
type RedisEntryStore struct {
	db *rlib.DB
}

// NewRedisEntryStore wraps db
func NewRedisEntryStore(db *rlib.DB) (*RedisEntryStore, error) {
	if db == nil {
		return nil, errors.New("redis db is nil")
	}

	return &RedisEntryStore{db: db}, nil
}

// ListKeys implements EntryStore
func (s *RedisEntryStore) ListKeys(ctx context.Context) ([]string, error) {
	return s.db.ListEntryNames(ctx)
}

// Get implements EntryStore
func (s *RedisEntryStore) Get(ctx context.Context, key string) (string, error) {
	payload, err := s.db.GetEntry(ctx, key)
	if err != nil {
		if errors.Is(err, rlib.ErrEntryNotFound) {
			return "", errors.Wrapf(ErrNotFound, "key %q", key)
		}

		return "", errors.WithStack(err)
	}

	return payload, nil
}

// Put implements EntryStore
func (s *RedisEntryStore) Put(ctx context.Context, key, payload string) error {
	if !ValidKey(key) {
		return errors.Errorf("invalid key %q", key)
	}

	return s.db.PutEntry(ctx, key, payload)
}

// Exists implements EntryStore
func (s *RedisEntryStore) Exists(ctx context.Context, key string) (bool, error) {
	return s.db.EntryExists(ctx, key)
}
