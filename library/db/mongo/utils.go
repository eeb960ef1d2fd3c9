package mongo

import (
	"github.com/Laisky/errors/v2"
	mongoLib "go.mongodb.org/mongo-driver/mongo"
)

// NotFound reports whether err means no document matched
func NotFound(err error) bool {
	return errors.Is(err, mongoLib.ErrNoDocuments)
}
