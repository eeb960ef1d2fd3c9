package dao

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	"go.mongodb.org/mongo-driver/bson"
	mongoLib "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Laisky/laisky-changelog/library/db/mongo"
)

const colEntries = "entries"

var _ EntryStore = (*MongoEntryStore)(nil)

type mongoEntryDoc struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	CreatedAt time.Time `bson:"created_at"`
}

// MongoEntryStore keeps one document per entry, keyed by _id
type MongoEntryStore struct {
	db      *mongo.DB
	colName string
}

// NewMongoEntryStore wraps db, colName defaults to "entries"
func NewMongoEntryStore(db *mongo.DB, colName string) (*MongoEntryStore, error) {
	if db == nil {
		return nil, errors.New("mongo db is nil")
	}
	if colName == "" {
		colName = colEntries
	}

	return &MongoEntryStore{db: db, colName: colName}, nil
}

func (s *MongoEntryStore) col() *mongoLib.Collection {
	return s.db.GetCol(s.colName)
}

// ListKeys implements EntryStore
func (s *MongoEntryStore) ListKeys(ctx context.Context) ([]string, error) {
	cur, err := s.col().Find(ctx, bson.M{},
		options.Find().
			SetProjection(bson.M{"_id": 1}).
			SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "find entries")
	}
	defer cur.Close(ctx) // nolint: errcheck

	var keys []string
	for cur.Next(ctx) {
		var doc mongoEntryDoc
		if err = cur.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "decode entry key")
		}
		keys = append(keys, doc.Key)
	}
	if err = cur.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate entries")
	}

	return keys, nil
}

// Get implements EntryStore
func (s *MongoEntryStore) Get(ctx context.Context, key string) (string, error) {
	var doc mongoEntryDoc
	if err := s.col().FindOne(ctx, bson.M{"_id": key}).Decode(&doc); err != nil {
		if mongo.NotFound(err) {
			return "", errors.Wrapf(ErrNotFound, "key %q", key)
		}

		return "", errors.Wrapf(err, "find entry %q", key)
	}

	return doc.Value, nil
}

// Put implements EntryStore
func (s *MongoEntryStore) Put(ctx context.Context, key, payload string) error {
	if !ValidKey(key) {
		return errors.Errorf("invalid key %q", key)
	}

	_, err := s.col().UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{
			"$set":         bson.M{"value": payload},
			"$setOnInsert": bson.M{"created_at": time.Now().UTC()},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return errors.Wrapf(err, "upsert entry %q", key)
	}

	return nil
}

// Exists implements EntryStore
func (s *MongoEntryStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.col().CountDocuments(ctx, bson.M{"_id": key}, options.Count().SetLimit(1))
	if err != nil {
		return false, errors.Wrapf(err, "count entry %q", key)
	}

	return n > 0, nil
}
