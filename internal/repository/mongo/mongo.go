// Package mongo implements the repository interfaces on MongoDB.
//
// Each collection has its own document struct with primitive.ObjectID ids;
// model types carry ids as hex strings. An id that is not valid hex can never
// match a document, so lookups by such an id report NotFound, while writes
// that would store it as a reference report a validation error.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/faculty-review/internal/apperror"
	"github.com/sakif/faculty-review/internal/repository"
)

var _ repository.Store = (*DB)(nil)

const (
	colUsers         = "users"
	colFaculties     = "faculties"
	colReviews       = "reviews"
	colNotifications = "notifications"
	colActivities    = "activities"
	colVisitors      = "visitors"
)

// DB holds a connected client and the application database.
type DB struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time
}

// Connect dials uri, pings the primary and ensures indexes on database.
func Connect(ctx context.Context, uri, database string) (*DB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connecting: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: pinging: %w", err)
	}

	db := &DB{
		client: client,
		db:     client.Database(database),
		now:    func() time.Time { return time.Now().UTC() },
	}
	if err := db.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return db, nil
}

// Close disconnects, waiting at most five seconds for in-flight operations.
func (db *DB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return db.client.Disconnect(ctx)
}

func (db *DB) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		colUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "role", Value: 1}}},
		},
		colFaculties: {
			{Keys: bson.D{{Key: "initial", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colReviews: {
			{Keys: bson.D{{Key: "faculty", Value: 1}}},
			{Keys: bson.D{{Key: "user", Value: 1}}},
		},
		colNotifications: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		colActivities: {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
		colVisitors: {
			{Keys: bson.D{{Key: "visitorId", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for name, models := range indexes {
		if _, err := db.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongo: creating %s indexes: %w", name, err)
		}
	}
	return nil
}

func (db *DB) col(name string) *mongo.Collection {
	return db.db.Collection(name)
}

func (db *DB) count(ctx context.Context, name string) (int64, error) {
	n, err := db.col(name).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("mongo: counting %s: %w", name, err)
	}
	return n, nil
}

// newestFirst is the sort used by every time-ordered listing.
var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

// lookupID parses id for use in a filter. ok is false when id cannot match
// any document.
func lookupID(id string) (oid primitive.ObjectID, ok bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	return oid, err == nil
}

// refID parses an id that is about to be stored as a reference.
func refID(field, id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperror.ValidationFailed(field, fmt.Sprintf("%q is not a valid id", id))
	}
	return oid, nil
}

// refIDs parses ids for storage. Invalid entries are a validation error.
func refIDs(field string, ids []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := refID(field, id)
		if err != nil {
			return nil, err
		}
		out = append(out, oid)
	}
	return out, nil
}

// lookupIDs parses ids for an $in filter, dropping those that cannot match.
func lookupIDs(ids []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, ok := lookupID(id); ok {
			out = append(out, oid)
		}
	}
	return out
}

func hexIDs(oids []primitive.ObjectID) []string {
	out := make([]string, len(oids))
	for i, oid := range oids {
		out[i] = oid.Hex()
	}
	return out
}

func decodeAll[T any](ctx context.Context, cur *mongo.Cursor) ([]T, error) {
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
