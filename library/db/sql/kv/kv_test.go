package kv

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

func setupTestKv(t *testing.T, opts ...Option) *Kv {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err, "failed to connect to in-memory db")
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	opts = append([]Option{WithDBName("test_kv")}, opts...)
	kvInstance, err := NewKv(db, opts...)
	require.NoError(t, err, "failed to create kv instance")
	return kvInstance
}

func TestSetAndGet(t *testing.T) {
	kvInstance := setupTestKv(t)
	ctx := context.Background()

	require.NoError(t, kvInstance.Set(ctx, "testkey", "v1"))
	first, err := kvInstance.Get(ctx, "testkey")
	require.NoError(t, err)
	require.Equal(t, "testkey", first.Key)
	require.Equal(t, "v1", first.Value)
	require.False(t, first.CreatedAt.IsZero())

	require.NoError(t, kvInstance.Set(ctx, "testkey", "v2"))
	second, err := kvInstance.Get(ctx, "testkey")
	require.NoError(t, err)
	require.Equal(t, "v2", second.Value)
	require.True(t, first.CreatedAt.Equal(second.CreatedAt), "overwrite keeps creation time")
}

func TestExists(t *testing.T) {
	kvInstance := setupTestKv(t)
	ctx := context.Background()

	exists, err := kvInstance.Exists(ctx, "existkey")
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, kvInstance.Set(ctx, "existkey", "v"))
	exists, err = kvInstance.Exists(ctx, "existkey")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestGetMissing(t *testing.T) {
	kvInstance := setupTestKv(t)

	_, err := kvInstance.Get(context.Background(), "nope")
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestList(t *testing.T) {
	kvInstance := setupTestKv(t)
	ctx := context.Background()

	keys, err := kvInstance.List(ctx)
	require.NoError(t, err)
	require.Empty(t, keys)

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, kvInstance.Set(ctx, k, "v"))
	}

	keys, err = kvInstance.List(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "b", "c"}, keys)
}

func TestKeyPattern(t *testing.T) {
	ctx := context.Background()

	t.Run("default rejects spaces", func(t *testing.T) {
		kvInstance := setupTestKv(t)
		require.Error(t, kvInstance.Set(ctx, "2nd Mar, 2024 10:5", "v"))
	})

	t.Run("custom pattern", func(t *testing.T) {
		kvInstance := setupTestKv(t, WithKeyPattern(regexp.MustCompile(`^[a-zA-Z0-9 ,:]+$`)))
		require.NoError(t, kvInstance.Set(ctx, "2nd Mar, 2024 10:5", "v"))
		require.Error(t, kvInstance.Set(ctx, "bad/key", "v"))
	})

	t.Run("nil pattern", func(t *testing.T) {
		_, err := applyOpts(WithKeyPattern(nil))
		require.Error(t, err)
	})
}

func TestInvalidTableName(t *testing.T) {
	_, err := applyOpts(WithDBName("drop table;"))
	require.Error(t, err)
}

func TestListQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() // nolint: errcheck

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS kv").
		WillReturnResult(sqlmock.NewResult(0, 0))
	kvInstance, err := NewKv(db)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT key FROM kv").
		WillReturnError(fmt.Errorf("connection reset"))
	_, err = kvInstance.List(context.Background())
	require.ErrorContains(t, err, "connection reset")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExistsQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() // nolint: errcheck

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS kv").
		WillReturnResult(sqlmock.NewResult(0, 0))
	kvInstance, err := NewKv(db)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT 1 FROM kv").
		WillReturnError(fmt.Errorf("connection reset"))
	_, err = kvInstance.Exists(context.Background(), "k")
	require.ErrorContains(t, err, "connection reset")
	require.NoError(t, mock.ExpectationsWereMet())
}
