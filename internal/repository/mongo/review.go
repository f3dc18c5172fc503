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
	"github.com/sakif/faculty-review/internal/model"
	"github.com/sakif/faculty-review/internal/repository"
)

var _ repository.ReviewRepository = (*DB)(nil)

type flagDoc struct {
	User      primitive.ObjectID `bson:"user"`
	CreatedAt time.Time          `bson:"createdAt"`
}

type reviewDoc struct {
	ID        primitive.ObjectID   `bson:"_id"`
	User      *primitive.ObjectID  `bson:"user,omitempty"`
	Faculty   primitive.ObjectID   `bson:"faculty"`
	Rating    int                  `bson:"rating"`
	Text      string               `bson:"text"`
	IsAdmin   bool                 `bson:"isAdmin"`
	Likes     []primitive.ObjectID `bson:"likes"`
	Dislikes  []primitive.ObjectID `bson:"dislikes"`
	Flags     []flagDoc            `bson:"flags"`
	CreatedAt time.Time            `bson:"createdAt"`
}

func (d *reviewDoc) toModel() model.Review {
	r := model.Review{
		ID:        d.ID.Hex(),
		FacultyID: d.Faculty.Hex(),
		Rating:    d.Rating,
		Text:      d.Text,
		IsAdmin:   d.IsAdmin,
		Likes:     hexIDs(d.Likes),
		Dislikes:  hexIDs(d.Dislikes),
		Flags:     make([]model.Flag, len(d.Flags)),
		CreatedAt: d.CreatedAt,
	}
	if d.User != nil {
		r.UserID = d.User.Hex()
	}
	for i, f := range d.Flags {
		r.Flags[i] = model.Flag{UserID: f.User.Hex(), CreatedAt: f.CreatedAt}
	}
	return r
}

func (db *DB) CreateReview(ctx context.Context, r *model.Review) error {
	faculty, err := refID("facultyId", r.FacultyID)
	if err != nil {
		return err
	}
	likes, err := refIDs("likes", r.Likes)
	if err != nil {
		return err
	}
	dislikes, err := refIDs("dislikes", r.Dislikes)
	if err != nil {
		return err
	}
	doc := reviewDoc{
		ID:        primitive.NewObjectID(),
		Faculty:   faculty,
		Rating:    r.Rating,
		Text:      r.Text,
		IsAdmin:   r.IsAdmin,
		Likes:     likes,
		Dislikes:  dislikes,
		Flags:     make([]flagDoc, 0, len(r.Flags)),
		CreatedAt: db.now(),
	}
	if r.UserID != "" {
		uid, err := refID("user", r.UserID)
		if err != nil {
			return err
		}
		doc.User = &uid
	}
	for _, f := range r.Flags {
		uid, err := refID("flags", f.UserID)
		if err != nil {
			return err
		}
		doc.Flags = append(doc.Flags, flagDoc{User: uid, CreatedAt: f.CreatedAt.UTC()})
	}

	if _, err := db.col(colReviews).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("mongo: inserting review for faculty %s: %w", r.FacultyID, err)
	}
	r.ID = doc.ID.Hex()
	r.CreatedAt = doc.CreatedAt
	return nil
}

func (db *DB) GetReviewByID(ctx context.Context, id string) (*model.Review, error) {
	oid, ok := lookupID(id)
	if !ok {
		return nil, apperror.NotFound("review", id)
	}
	var doc reviewDoc
	if err := db.col(colReviews).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if isNoDocuments(err) {
			return nil, apperror.NotFound("review", id)
		}
		return nil, fmt.Errorf("mongo: finding review %s: %w", id, err)
	}
	r := doc.toModel()
	return &r, nil
}

func (db *DB) ListReviews(ctx context.Context, filter repository.ReviewFilter) ([]model.Review, error) {
	q, ok := reviewQuery(filter)
	if !ok {
		return []model.Review{}, nil
	}

	cur, err := db.col(colReviews).Find(ctx, q, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, fmt.Errorf("mongo: listing reviews: %w", err)
	}
	docs, err := decodeAll[reviewDoc](ctx, cur)
	if err != nil {
		return nil, fmt.Errorf("mongo: decoding reviews: %w", err)
	}

	out := make([]model.Review, len(docs))
	for i := range docs {
		out[i] = docs[i].toModel()
	}
	return out, nil
}

func (db *DB) UpdateReviewContent(ctx context.Context, id string, rating int, text string) error {
	return db.updateReview(ctx, id, bson.M{"$set": bson.M{"rating": rating, "text": text}})
}

func (db *DB) SetReactions(ctx context.Context, id string, likes, dislikes []string) error {
	liked := make(map[string]bool, len(likes))
	for _, u := range likes {
		liked[u] = true
	}
	for _, u := range dislikes {
		if liked[u] {
			return apperror.ValidationFailed("likes", "a user cannot both like and dislike a review")
		}
	}

	likeIDs, err := refIDs("likes", likes)
	if err != nil {
		return err
	}
	dislikeIDs, err := refIDs("dislikes", dislikes)
	if err != nil {
		return err
	}
	return db.updateReview(ctx, id, bson.M{"$set": bson.M{"likes": likeIDs, "dislikes": dislikeIDs}})
}

// AddFlag appends with a single conditional update, so two concurrent
// flags by the same user cannot both succeed.
func (db *DB) AddFlag(ctx context.Context, id string, flag model.Flag) error {
	oid, ok := lookupID(id)
	if !ok {
		return apperror.NotFound("review", id)
	}
	uid, err := refID("user", flag.UserID)
	if err != nil {
		return err
	}

	res, err := db.col(colReviews).UpdateOne(ctx,
		bson.M{"_id": oid, "flags.user": bson.M{"$ne": uid}},
		bson.M{"$push": bson.M{"flags": flagDoc{User: uid, CreatedAt: flag.CreatedAt.UTC()}}})
	if err != nil {
		return fmt.Errorf("mongo: flagging review %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return db.missingOr(ctx, colReviews, oid, apperror.NotFound("review", id),
			apperror.Conflict("you have already flagged this review"))
	}
	return nil
}

func (db *DB) DeleteReview(ctx context.Context, id string) error {
	return db.deleteByID(ctx, colReviews, "review", id)
}

func (db *DB) DeleteReviews(ctx context.Context, filter repository.ReviewFilter) (int64, error) {
	q, ok := reviewQuery(filter)
	if !ok {
		return 0, nil
	}
	if len(q) == 0 {
		return 0, errors.New("mongo: refusing to delete reviews with an empty filter")
	}
	res, err := db.col(colReviews).DeleteMany(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("mongo: deleting reviews: %w", err)
	}
	return res.DeletedCount, nil
}

func (db *DB) SummarizeRatings(ctx context.Context, facultyID string) (model.RatingSummary, error) {
	oid, ok := lookupID(facultyID)
	if !ok {
		return model.RatingSummary{}, nil
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"faculty": oid}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"count": bson.M{"$sum": 1},
			"sum":   bson.M{"$sum": "$rating"},
		}}},
	}
	cur, err := db.col(colReviews).Aggregate(ctx, pipeline)
	if err != nil {
		return model.RatingSummary{}, fmt.Errorf("mongo: summarizing ratings of faculty %s: %w", facultyID, err)
	}
	rows, err := decodeAll[struct {
		Count int `bson:"count"`
		Sum   int `bson:"sum"`
	}](ctx, cur)
	if err != nil {
		return model.RatingSummary{}, fmt.Errorf("mongo: decoding rating summary: %w", err)
	}
	if len(rows) == 0 {
		return model.RatingSummary{}, nil
	}
	return model.RatingSummary{Count: rows[0].Count, Sum: rows[0].Sum}, nil
}

func (db *DB) CountReviewsByUser(ctx context.Context) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user": bson.M{"$type": "objectId"}}}},
		{{Key: "$group", Value: bson.M{"_id": "$user", "count": bson.M{"$sum": 1}}}},
	}
	cur, err := db.col(colReviews).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("mongo: counting reviews by user: %w", err)
	}
	rows, err := decodeAll[struct {
		User  primitive.ObjectID `bson:"_id"`
		Count int64              `bson:"count"`
	}](ctx, cur)
	if err != nil {
		return nil, fmt.Errorf("mongo: decoding review counts: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.User.Hex()] = row.Count
	}
	return counts, nil
}

func (db *DB) CountReviews(ctx context.Context) (int64, error) {
	return db.count(ctx, colReviews)
}

func (db *DB) updateReview(ctx context.Context, id string, update bson.M) error {
	oid, ok := lookupID(id)
	if !ok {
		return apperror.NotFound("review", id)
	}
	res, err := db.col(colReviews).UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("mongo: updating review %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("review", id)
	}
	return nil
}

// reviewQuery translates filter. ok is false when nothing can match.
func reviewQuery(filter repository.ReviewFilter) (q bson.M, ok bool) {
	q = bson.M{}
	if filter.IDs != nil {
		oids := lookupIDs(filter.IDs)
		if len(oids) == 0 {
			return nil, false
		}
		q["_id"] = bson.M{"$in": oids}
	}
	if filter.FacultyID != "" {
		oid, valid := lookupID(filter.FacultyID)
		if !valid {
			return nil, false
		}
		q["faculty"] = oid
	}
	if filter.UserID != "" {
		oid, valid := lookupID(filter.UserID)
		if !valid {
			return nil, false
		}
		q["user"] = oid
	}
	if filter.AdminOnly {
		q["isAdmin"] = true
	}
	if filter.FlaggedOnly {
		q["flags.0"] = bson.M{"$exists": true}
	}
	return q, true
}
