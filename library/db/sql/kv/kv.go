package kv

import (
	"context"
	"database/sql"
	"regexp"
	"time"

	errors "github.com/Laisky/errors/v2"
)

var (
	_ Interface = new(Kv)

	defaultKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9_]{1,64}$`)
	regexpTableName   = regexp.MustCompile(`^[a-zA-Z0-9_]{1,64}$`)
	// ErrKeyNotFound is returned by Get when no row holds the key
	ErrKeyNotFound = errors.New("key not found")
)

// KvItem is a kv doc
type KvItem struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// Interface is a kv interface
type Interface interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (*KvItem, error)
	Exists(ctx context.Context, key string) (bool, error)
	List(ctx context.Context) ([]string, error)
}

// Kv is a key-value store over database/sql, tested on sqlite and postgres
type Kv struct {
	opt *option
	db  *sql.DB
}

type option struct {
	tableName  string
	keyPattern *regexp.Regexp
}

// Option is a function that configures the kv
type Option func(*option) error

func applyOpts(opts ...Option) (*option, error) {
	// fill default
	o := &option{
		tableName:  "kv",
		keyPattern: defaultKeyPattern,
	}

	// apply opts
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	return o, nil
}

// WithDBName is a option to set db name
func WithDBName(tableName string) Option {
	return func(o *option) error {
		if !regexpTableName.MatchString(tableName) {
			return errors.Errorf("invalid table name: %s", tableName)
		}
		o.tableName = tableName
		return nil
	}
}

// WithKeyPattern replaces the default key validation pattern
func WithKeyPattern(pattern *regexp.Regexp) Option {
	return func(o *option) error {
		if pattern == nil {
			return errors.New("key pattern cannot be nil")
		}
		o.keyPattern = pattern
		return nil
	}
}

// NewKv create a new kv
func NewKv(db *sql.DB, opts ...Option) (*Kv, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}

	opt, err := applyOpts(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "apply opts")
	}

	kv := &Kv{
		opt: opt,
		db:  db,
	}

	if err := kv.setup(); err != nil {
		return nil, errors.Wrap(err, "setup kv")
	}

	return kv, nil
}

func (kv *Kv) setup() error {
	stmt := `
CREATE TABLE IF NOT EXISTS ` + kv.opt.tableName + ` (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  created_at TIMESTAMP NOT NULL
)`

	if _, err := kv.db.Exec(stmt); err != nil {
		return errors.Wrap(err, "create kv table")
	}

	return nil
}

func (kv *Kv) validKey(key string) error {
	if !kv.opt.keyPattern.MatchString(key) {
		return errors.Errorf("invalid key: %s", key)
	}

	return nil
}

func (kv *Kv) validValue(_ string) error {
	return nil
}

// Set stores the key-value pair, the creation time of an existing key is kept.
func (kv *Kv) Set(ctx context.Context, key, value string) error {
	if err := kv.validKey(key); err != nil {
		return errors.WithStack(err)
	}
	if err := kv.validValue(value); err != nil {
		return errors.WithStack(err)
	}

	stmt := `
INSERT INTO ` + kv.opt.tableName + ` (key, value, created_at)
VALUES ($1, $2, $3)
ON CONFLICT(key)
DO UPDATE SET value = EXCLUDED.value`

	if _, err := kv.db.ExecContext(ctx, stmt, key, value, time.Now().UTC()); err != nil {
		return errors.Wrap(err, "upsert kv item")
	}

	return nil
}

// Get retrieves the key's document
func (kv *Kv) Get(ctx context.Context, key string) (*KvItem, error) {
	var doc KvItem
	stmt := `SELECT key, value, created_at FROM ` + kv.opt.tableName + ` WHERE key = $1 LIMIT 1`
	err := kv.db.QueryRowContext(ctx, stmt, key).Scan(&doc.Key, &doc.Value, &doc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(ErrKeyNotFound, "key %s", key)
		}
		return nil, errors.Wrap(err, "failed to get key")
	}

	return &doc, nil
}

// Exists checks whether a key exists
func (kv *Kv) Exists(ctx context.Context, key string) (bool, error) {
	stmt := `SELECT 1 FROM ` + kv.opt.tableName + ` WHERE key = $1 LIMIT 1`
	var one int
	if err := kv.db.QueryRowContext(ctx, stmt, key).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, errors.Wrap(err, "failed to check existence")
	}

	return true, nil
}

// List returns all keys ordered by creation time.
func (kv *Kv) List(ctx context.Context) ([]string, error) {
	stmt := `SELECT key FROM ` + kv.opt.tableName + ` ORDER BY created_at ASC, key ASC`
	rows, err := kv.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, errors.Wrap(err, "list keys")
	}
	defer rows.Close() // nolint: errcheck

	var keys []string
	for rows.Next() {
		var key string
		if err = rows.Scan(&key); err != nil {
			return nil, errors.Wrap(err, "scan key")
		}

		keys = append(keys, key)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate keys")
	}

	return keys, nil
}
