package dao

import (
	"context"
	"database/sql"

	"github.com/Laisky/errors/v2"

	"github.com/Laisky/laisky-changelog/library/db/sql/kv"
)

var _ EntryStore = (*SQLEntryStore)(nil)

// SQLEntryStore keeps entries in a kv table, works on sqlite and postgres
type SQLEntryStore struct {
	kv kv.Interface
}

// NewSQLEntryStore creates the table if missing
func NewSQLEntryStore(db *sql.DB, table string) (*SQLEntryStore, error) {
	opts := []kv.Option{kv.WithKeyPattern(regexpEntryKey)}
	if table != "" {
		opts = append(opts, kv.WithDBName(table))
	}

	store, err := kv.NewKv(db, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "new kv")
	}

	return &SQLEntryStore{kv: store}, nil
}

// ListKeys implements EntryStore
func (s *SQLEntryStore) ListKeys(ctx context.Context) ([]string, error) {
	keys, err := s.kv.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list kv keys")
	}

	return keys, nil
}

// Get implements EntryStore
func (s *SQLEntryStore) Get(ctx context.Context, key string) (string, error) {
	item, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kv.ErrKeyNotFound) {
			return "", errors.Wrapf(ErrNotFound, "key %q", key)
		}

		return "", errors.Wrapf(err, "get kv %q", key)
	}

	return item.Value, nil
}

// Put implements EntryStore
func (s *SQLEntryStore) Put(ctx context.Context, key, payload string) error {
	if err := s.kv.Set(ctx, key, payload); err != nil {
		return errors.Wrapf(err, "set kv %q", key)
	}

	return nil
}

// Exists implements EntryStore
func (s *SQLEntryStore) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := s.kv.Exists(ctx, key)
	if err != nil {
		return false, errors.Wrapf(err, "check kv %q", key)
	}

	return ok, nil
}
