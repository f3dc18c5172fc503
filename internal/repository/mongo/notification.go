package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/faculty-review/internal/apperror"
	"github.com/sakif/faculty-review/internal/model"
	"github.com/sakif/faculty-review/internal/repository"
)

var _ repository.NotificationRepository = (*DB)(nil)

type notificationDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Type      string             `bson:"type"`
	Message   string             `bson:"message"`
	Review    primitive.ObjectID `bson:"review"`
	User      primitive.ObjectID `bson:"user"`
	IsRead    bool               `bson:"isRead"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (d *notificationDoc) toModel() model.Notification {
	return model.Notification{
		ID:        d.ID.Hex(),
		Type:      model.NotificationType(d.Type),
		Message:   d.Message,
		ReviewID:  d.Review.Hex(),
		UserID:    d.User.Hex(),
		IsRead:    d.IsRead,
		CreatedAt: d.CreatedAt,
	}
}

func (db *DB) CreateNotification(ctx context.Context, n *model.Notification) error {
	review, err := refID("review", n.ReviewID)
	if err != nil {
		return err
	}
	user, err := refID("user", n.UserID)
	if err != nil {
		return err
	}
	doc := notificationDoc{
		ID:        primitive.NewObjectID(),
		Type:      string(n.Type),
		Message:   n.Message,
		Review:    review,
		User:      user,
		IsRead:    n.IsRead,
		CreatedAt: db.now(),
	}
	if _, err := db.col(colNotifications).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("mongo: inserting notification for %s: %w", n.UserID, err)
	}
	n.ID = doc.ID.Hex()
	n.CreatedAt = doc.CreatedAt
	return nil
}

func (db *DB) GetNotificationByID(ctx context.Context, id string) (*model.Notification, error) {
	oid, ok := lookupID(id)
	if !ok {
		return nil, apperror.NotFound("notification", id)
	}
	var doc notificationDoc
	if err := db.col(colNotifications).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if isNoDocuments(err) {
			return nil, apperror.NotFound("notification", id)
		}
		return nil, fmt.Errorf("mongo: finding notification %s: %w", id, err)
	}
	n := doc.toModel()
	return &n, nil
}

func (db *DB) ListNotificationsForUser(ctx context.Context, userID string) ([]model.Notification, error) {
	uid, ok := lookupID(userID)
	if !ok {
		return []model.Notification{}, nil
	}
	cur, err := db.col(colNotifications).Find(ctx, bson.M{"user": uid},
		options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, fmt.Errorf("mongo: listing notifications for %s: %w", userID, err)
	}
	docs, err := decodeAll[notificationDoc](ctx, cur)
	if err != nil {
		return nil, fmt.Errorf("mongo: decoding notifications: %w", err)
	}
	out := make([]model.Notification, len(docs))
	for i := range docs {
		out[i] = docs[i].toModel()
	}
	return out, nil
}

func (db *DB) DeleteNotification(ctx context.Context, id string) error {
	return db.deleteByID(ctx, colNotifications, "notification", id)
}
