package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/faculty-review/internal/repository"
)

var _ repository.VisitorRepository = (*DB)(nil)

func (db *DB) UpsertVisitor(ctx context.Context, visitorID string, at time.Time) error {
	_, err := db.col(colVisitors).UpdateOne(ctx,
		bson.M{"visitorId": visitorID},
		bson.M{"$set": bson.M{"lastVisit": at.UTC()}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo: upserting visitor %s: %w", visitorID, err)
	}
	return nil
}

func (db *DB) CountVisitors(ctx context.Context) (int64, error) {
	return db.count(ctx, colVisitors)
}
