package dao

import (
	"context"
	"time"

	fsSDK "cloud.google.com/go/firestore"
	"github.com/Laisky/errors/v2"
	"google.golang.org/api/iterator"

	"github.com/Laisky/laisky-changelog/library/db/firestore"
)

const colFirestoreEntries = "changelog_entries"

var _ EntryStore = (*FirestoreEntryStore)(nil)

type firestoreEntryDoc struct {
	Value     string    `firestore:"value"`
	CreatedAt time.Time `firestore:"created_at"`
}

// FirestoreEntryStore keeps one document per entry, the key is the document id
type FirestoreEntryStore struct {
	db      *firestore.DB
	colName string
}

// NewFirestoreEntryStore wraps db, colName defaults to "changelog_entries"
func NewFirestoreEntryStore(db *firestore.DB, colName string) (*FirestoreEntryStore, error) {
	if db == nil {
		return nil, errors.New("firestore db is nil")
	}
	if colName == "" {
		colName = colFirestoreEntries
	}

	return &FirestoreEntryStore{db: db, colName: colName}, nil
}

func (s *FirestoreEntryStore) col() *fsSDK.CollectionRef {
	return s.db.Collection(s.colName)
}

// ListKeys implements EntryStore
func (s *FirestoreEntryStore) ListKeys(ctx context.Context) ([]string, error) {
	iter := s.col().OrderBy("created_at", fsSDK.Asc).Documents(ctx)
	defer iter.Stop()

	var keys []string
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return keys, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "iterate entries")
		}

		keys = append(keys, snap.Ref.ID)
	}
}

// Get implements EntryStore
func (s *FirestoreEntryStore) Get(ctx context.Context, key string) (string, error) {
	if !ValidKey(key) {
		return "", errors.Wrapf(ErrNotFound, "key %q", key)
	}

	snap, err := s.col().Doc(key).Get(ctx)
	if err != nil {
		if firestore.NotFound(err) {
			return "", errors.Wrapf(ErrNotFound, "key %q", key)
		}

		return "", errors.Wrapf(err, "get entry %q", key)
	}

	var doc firestoreEntryDoc
	if err = snap.DataTo(&doc); err != nil {
		return "", errors.Wrapf(err, "decode entry %q", key)
	}

	return doc.Value, nil
}

// Put implements EntryStore
func (s *FirestoreEntryStore) Put(ctx context.Context, key, payload string) error {
	if !ValidKey(key) {
		return errors.Errorf("invalid key %q", key)
	}

	_, err := s.col().Doc(key).Set(ctx, firestoreEntryDoc{
		Value:     payload,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return errors.Wrapf(err, "set entry %q", key)
	}

	return nil
}

// Exists implements EntryStore
func (s *FirestoreEntryStore) Exists(ctx context.Context, key string) (bool, error) {
	if !ValidKey(key) {
		return false, nil
	}

	_, err := s.col().Doc(key).Get(ctx)
	if err != nil {
		if firestore.NotFound(err) {
			return false, nil
		}

		return false, errors.Wrapf(err, "get entry %q", key)
	}

	return true, nil
}
