// Package postgres opens database/sql handles backed by the pgx driver.
package postgres

import (
	"context"
	"database/sql"
	"net"
	"strings"
	"time"

	errors "github.com/Laisky/errors/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const defaultPort = "5432"

// DB postgres db
type DB struct {
	DB *sql.DB
}

// DialInfo postgres dial info
type DialInfo struct {
	// Addr is host or host:port
	Addr,
	DBName,
	User,
	Pwd string
}

// BuildDSN builds a keyword/value PostgreSQL DSN.
func BuildDSN(dialInfo DialInfo) string {
	host, port := dialInfo.Addr, defaultPort
	if h, p, err := net.SplitHostPort(dialInfo.Addr); err == nil {
		host, port = h, p
	}

	parts := []string{
		"host=" + host,
		"port=" + port,
		"user=" + quoteDSNValue(dialInfo.User),
		"password=" + quoteDSNValue(dialInfo.Pwd),
		"dbname=" + quoteDSNValue(dialInfo.DBName),
		"sslmode=disable",
		"TimeZone=UTC",
	}
	return strings.Join(parts, " ")
}

// quoteDSNValue single-quotes v when it holds characters the DSN parser treats specially
func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}

	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// NewDB create a new postgres db
func NewDB(ctx context.Context, dialInfo DialInfo) (*DB, error) {
	db, err := sql.Open("pgx", BuildDSN(dialInfo))
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}

	db.SetMaxIdleConns(6)
	db.SetMaxOpenConns(50)
	db.SetConnMaxLifetime(time.Hour)

	return &DB{DB: db}, nil
}

// Close closes the pool
func (db *DB) Close() error {
	return db.DB.Close()
}
