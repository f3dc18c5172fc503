package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/faculty-review/internal/model"
	"github.com/sakif/faculty-review/internal/repository"
)

var _ repository.ActivityRepository = (*DB)(nil)

type activityDoc struct {
	ID            primitive.ObjectID  `bson:"_id"`
	Type          string              `bson:"type"`
	User          primitive.ObjectID  `bson:"user"`
	Description   string              `bson:"description"`
	RelatedEntity *primitive.ObjectID `bson:"relatedEntity,omitempty"`
	EntityModel   string              `bson:"entityModel,omitempty"`
	CreatedAt     time.Time           `bson:"createdAt"`
}

func (db *DB) CreateActivity(ctx context.Context, a *model.Activity) error {
	user, err := refID("user", a.UserID)
	if err != nil {
		return err
	}
	doc := activityDoc{
		ID:          primitive.NewObjectID(),
		Type:        string(a.Type),
		User:        user,
		Description: a.Description,
		EntityModel: string(a.EntityModel),
		CreatedAt:   db.now(),
	}
	if a.RelatedEntity != "" {
		related, err := refID("relatedEntity", a.RelatedEntity)
		if err != nil {
			return err
		}
		doc.RelatedEntity = &related
	}

	if _, err := db.col(colActivities).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("mongo: inserting %s activity: %w", a.Type, err)
	}
	a.ID = doc.ID.Hex()
	a.CreatedAt = doc.CreatedAt
	return nil
}

func (db *DB) ListRecentActivities(ctx context.Context, limit int) ([]model.Activity, error) {
	cur, err := db.col(colActivities).Find(ctx, bson.M{},
		options.Find().SetSort(newestFirst).SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("mongo: listing activities: %w", err)
	}
	docs, err := decodeAll[activityDoc](ctx, cur)
	if err != nil {
		return nil, fmt.Errorf("mongo: decoding activities: %w", err)
	}

	out := make([]model.Activity, len(docs))
	for i, d := range docs {
		out[i] = model.Activity{
			ID:          d.ID.Hex(),
			Type:        model.ActivityType(d.Type),
			UserID:      d.User.Hex(),
			Description: d.Description,
			EntityModel: model.EntityModel(d.EntityModel),
			CreatedAt:   d.CreatedAt,
		}
		if d.RelatedEntity != nil {
			out[i].RelatedEntity = d.RelatedEntity.Hex()
		}
	}
	return out, nil
}
