// Package mongo provides a wrapper for the MongoDB client.
package mongo

import (
	"context"
	"net/url"
	"time"

	"github.com/Laisky/laisky-changelog/library/log"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultHeartbeat = 10 * time.Second
)

// DialInfo defines the MongoDB connection information.
type DialInfo struct {
	Addr,
	DBName,
	User,
	Pwd string
	AuthDB string
}

// DB is a connected client bound to one database
type DB struct {
	cli    *mongo.Client
	dbName string
}

var (
	connectMongo = func(ctx context.Context, clientOpts *options.ClientOptions) (*mongo.Client, error) {
		return mongo.Connect(ctx, clientOpts)
	}
	pingMongo = func(ctx context.Context, cli *mongo.Client) error {
		return cli.Ping(ctx, readpref.Primary())
	}
	disconnectMongo = func(ctx context.Context, cli *mongo.Client) error {
		return cli.Disconnect(ctx)
	}
)

// buildMongoURI builds a MongoDB connection URI from the given dial info.
func buildMongoURI(dialInfo DialInfo) string {
	uri := &url.URL{
		Scheme: "mongodb",
		Host:   dialInfo.Addr,
		Path:   "/" + dialInfo.DBName,
	}
	if dialInfo.User != "" || dialInfo.Pwd != "" {
		uri.User = url.UserPassword(dialInfo.User, dialInfo.Pwd)
	}
	if dialInfo.AuthDB != "" {
		query := url.Values{}
		query.Set("authSource", dialInfo.AuthDB)
		uri.RawQuery = query.Encode()
	}
	return uri.String()
}

// NewDB connects to mongo and verifies the primary is reachable
func NewDB(ctx context.Context, dialInfo DialInfo) (*DB, error) {
	if dialInfo.DBName == "" {
		return nil, errors.New("mongo db name is empty")
	}

	logger := log.Logger.Named("mongo")
	logger.Info("try to connect to mongodb",
		zap.String("addr", dialInfo.Addr),
		zap.String("db", dialInfo.DBName))

	connCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(buildMongoURI(dialInfo)).
		SetConnectTimeout(defaultTimeout).
		SetHeartbeatInterval(defaultHeartbeat)
	cli, err := connectMongo(connCtx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "connect mongo")
	}

	if err = pingMongo(connCtx, cli); err != nil {
		if derr := disconnectMongo(ctx, cli); derr != nil {
			logger.Warn("disconnect after failed ping", zap.Error(derr))
		}
		return nil, errors.Wrap(err, "ping mongo")
	}

	logger.Info("connected to mongodb", zap.String("addr", dialInfo.Addr))
	return NewDBFromClient(cli, dialInfo.DBName), nil
}

// NewDBFromClient binds an already connected client to dbName
func NewDBFromClient(cli *mongo.Client, dbName string) *DB {
	return &DB{cli: cli, dbName: dbName}
}

// CurrentDB returns the database named in DialInfo
func (d *DB) CurrentDB() *mongo.Database {
	return d.cli.Database(d.dbName)
}

// GetCol returns a collection of the current database
func (d *DB) GetCol(colName string) *mongo.Collection {
	return d.CurrentDB().Collection(colName)
}

// Close disconnects the client
func (d *DB) Close(ctx context.Context) error {
	if err := disconnectMongo(ctx, d.cli); err != nil {
		return errors.Wrap(err, "disconnect mongo")
	}

	return nil
}
