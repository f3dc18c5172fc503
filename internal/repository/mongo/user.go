package mongo

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/faculty-review/internal/apperror"
	"github.com/sakif/faculty-review/internal/model"
	"github.com/sakif/faculty-review/internal/repository"
)

var _ repository.UserRepository = (*DB)(nil)

type userDoc struct {
	ID        primitive.ObjectID   `bson:"_id"`
	Name      string               `bson:"name"`
	Email     string               `bson:"email"`
	Password  string               `bson:"password"`
	Role      string               `bson:"role"`
	Favorites []primitive.ObjectID `bson:"favorites"`
	CreatedAt time.Time            `bson:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt"`
	LastLogin *time.Time           `bson:"lastLogin,omitempty"`
}

func (d *userDoc) toModel() model.User {
	return model.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.Password,
		Role:         model.Role(d.Role),
		Favorites:    hexIDs(d.Favorites),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
		LastLogin:    d.LastLogin,
	}
}

func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	favorites, err := refIDs("favorites", user.Favorites)
	if err != nil {
		return err
	}
	now := db.now()
	if user.Role == "" {
		user.Role = model.RoleUser
	}
	doc := userDoc{
		ID:        primitive.NewObjectID(),
		Name:      user.Name,
		Email:     user.Email,
		Password:  user.PasswordHash,
		Role:      string(user.Role),
		Favorites: favorites,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := db.col(colUsers).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.Conflict("an account with this email already exists")
		}
		return fmt.Errorf("mongo: inserting user %s: %w", user.Email, err)
	}

	user.ID = doc.ID.Hex()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Favorites = hexIDs(favorites)
	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	oid, ok := lookupID(id)
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return db.findUser(ctx, bson.M{"_id": oid}, id)
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.findUser(ctx, bson.M{"email": email}, email)
}

func (db *DB) findUser(ctx context.Context, filter bson.M, key string) (*model.User, error) {
	var doc userDoc
	if err := db.col(colUsers).FindOne(ctx, filter).Decode(&doc); err != nil {
		if isNoDocuments(err) {
			return nil, apperror.NotFound("user", key)
		}
		return nil, fmt.Errorf("mongo: finding user %s: %w", key, err)
	}
	u := doc.toModel()
	return &u, nil
}

func (db *DB) ListUsers(ctx context.Context, filter repository.UserFilter) ([]model.User, error) {
	q := bson.M{}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		q["$or"] = bson.A{bson.M{"name": pattern}, bson.M{"email": pattern}}
	}
	if filter.Role != "" {
		q["role"] = string(filter.Role)
	}
	if filter.IDs != nil {
		oids := lookupIDs(filter.IDs)
		if len(oids) == 0 {
			return []model.User{}, nil
		}
		q["_id"] = bson.M{"$in": oids}
	}

	cur, err := db.col(colUsers).Find(ctx, q, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, fmt.Errorf("mongo: listing users: %w", err)
	}
	docs, err := decodeAll[userDoc](ctx, cur)
	if err != nil {
		return nil, fmt.Errorf("mongo: decoding users: %w", err)
	}

	users := make([]model.User, len(docs))
	for i := range docs {
		users[i] = docs[i].toModel()
	}
	return users, nil
}

func (db *DB) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	oid, ok := lookupID(id)
	if !ok {
		return apperror.NotFound("user", id)
	}
	res, err := db.col(colUsers).UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"lastLogin": at.UTC(), "updatedAt": db.now()}})
	if err != nil {
		return fmt.Errorf("mongo: setting last login for %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// AddFavorite pushes facultyID only if it is not already present, so the
// duplicate check and the write are one atomic update.
func (db *DB) AddFavorite(ctx context.Context, userID, facultyID string) error {
	uid, ok := lookupID(userID)
	if !ok {
		return apperror.NotFound("user", userID)
	}
	fid, err := refID("facultyId", facultyID)
	if err != nil {
		return err
	}

	res, err := db.col(colUsers).UpdateOne(ctx,
		bson.M{"_id": uid, "favorites": bson.M{"$ne": fid}},
		bson.M{
			"$push": bson.M{"favorites": fid},
			"$set":  bson.M{"updatedAt": db.now()},
		})
	if err != nil {
		return fmt.Errorf("mongo: adding favorite %s for %s: %w", facultyID, userID, err)
	}
	if res.MatchedCount == 0 {
		return db.missingOr(ctx, colUsers, uid, apperror.NotFound("user", userID),
			apperror.Conflict("faculty is already in favorites"))
	}
	return nil
}

func (db *DB) RemoveFavorite(ctx context.Context, userID, facultyID string) error {
	uid, ok := lookupID(userID)
	if !ok {
		return apperror.NotFound("user", userID)
	}
	fid, ok := lookupID(facultyID)
	if !ok {
		return apperror.NotFound("favorite", facultyID)
	}

	res, err := db.col(colUsers).UpdateOne(ctx,
		bson.M{"_id": uid, "favorites": fid},
		bson.M{
			"$pull": bson.M{"favorites": fid},
			"$set":  bson.M{"updatedAt": db.now()},
		})
	if err != nil {
		return fmt.Errorf("mongo: removing favorite %s for %s: %w", facultyID, userID, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("favorite", facultyID)
	}
	return nil
}

func (db *DB) RemoveFavoriteEverywhere(ctx context.Context, facultyID string) error {
	fid, ok := lookupID(facultyID)
	if !ok {
		return nil
	}
	if _, err := db.col(colUsers).UpdateMany(ctx,
		bson.M{"favorites": fid},
		bson.M{"$pull": bson.M{"favorites": fid}}); err != nil {
		return fmt.Errorf("mongo: removing favorite %s from all users: %w", facultyID, err)
	}
	return nil
}

func (db *DB) DeleteUser(ctx context.Context, id string) error {
	return db.deleteByID(ctx, colUsers, "user", id)
}

func (db *DB) CountUsers(ctx context.Context) (int64, error) {
	return db.count(ctx, colUsers)
}

// missingOr resolves a conditional update that matched nothing: missing if
// the document does not exist, otherwise present.
func (db *DB) missingOr(ctx context.Context, name string, oid primitive.ObjectID, missing, present error) error {
	n, err := db.col(name).CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("mongo: checking %s %s: %w", name, oid.Hex(), err)
	}
	if n == 0 {
		return missing
	}
	return present
}

func (db *DB) deleteByID(ctx context.Context, name, resource, id string) error {
	oid, ok := lookupID(id)
	if !ok {
		return apperror.NotFound(resource, id)
	}
	res, err := db.col(name).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("mongo: deleting %s %s: %w", resource, id, err)
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
