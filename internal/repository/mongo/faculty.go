package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/faculty-review/internal/apperror"
	"github.com/sakif/faculty-review/internal/model"
	"github.com/sakif/faculty-review/internal/repository"
)

var _ repository.FacultyRepository = (*DB)(nil)

type facultyDoc struct {
	ID           primitive.ObjectID `bson:"_id"`
	Initial      string             `bson:"initial"`
	Department   string             `bson:"department"`
	Courses      []string           `bson:"courses"`
	AvgRating    float64            `bson:"avgRating"`
	TotalReviews int                `bson:"totalReviews"`
}

func (d *facultyDoc) toModel() model.Faculty {
	courses := d.Courses
	if courses == nil {
		courses = []string{}
	}
	return model.Faculty{
		ID:            d.ID.Hex(),
		Initial:       d.Initial,
		Department:    d.Department,
		Courses:       courses,
		AverageRating: d.AvgRating,
		TotalReviews:  d.TotalReviews,
	}
}

func (db *DB) CreateFaculty(ctx context.Context, f *model.Faculty) error {
	courses := f.Courses
	if courses == nil {
		courses = []string{}
	}
	doc := facultyDoc{
		ID:           primitive.NewObjectID(),
		Initial:      f.Initial,
		Department:   f.Department,
		Courses:      courses,
		AvgRating:    f.AverageRating,
		TotalReviews: f.TotalReviews,
	}
	if _, err := db.col(colFaculties).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.Conflict(fmt.Sprintf("faculty with initial %s already exists", f.Initial))
		}
		return fmt.Errorf("mongo: inserting faculty %s: %w", f.Initial, err)
	}
	f.ID = doc.ID.Hex()
	f.Courses = courses
	return nil
}

func (db *DB) GetFacultyByID(ctx context.Context, id string) (*model.Faculty, error) {
	oid, ok := lookupID(id)
	if !ok {
		return nil, apperror.NotFound("faculty", id)
	}
	var doc facultyDoc
	if err := db.col(colFaculties).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if isNoDocuments(err) {
			return nil, apperror.NotFound("faculty", id)
		}
		return nil, fmt.Errorf("mongo: finding faculty %s: %w", id, err)
	}
	f := doc.toModel()
	return &f, nil
}

func (db *DB) ListFaculties(ctx context.Context, ids []string) ([]model.Faculty, error) {
	q := bson.M{}
	if ids != nil {
		oids := lookupIDs(ids)
		if len(oids) == 0 {
			return []model.Faculty{}, nil
		}
		q["_id"] = bson.M{"$in": oids}
	}

	cur, err := db.col(colFaculties).Find(ctx, q,
		options.Find().SetSort(bson.D{{Key: "initial", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo: listing faculties: %w", err)
	}
	docs, err := decodeAll[facultyDoc](ctx, cur)
	if err != nil {
		return nil, fmt.Errorf("mongo: decoding faculties: %w", err)
	}

	out := make([]model.Faculty, len(docs))
	for i := range docs {
		out[i] = docs[i].toModel()
	}
	return out, nil
}

func (db *DB) UpdateFaculty(ctx context.Context, f *model.Faculty) error {
	courses := f.Courses
	if courses == nil {
		courses = []string{}
	}
	return db.updateFaculty(ctx, f.ID, bson.M{
		"initial":    f.Initial,
		"department": f.Department,
		"courses":    courses,
	}, f.Initial)
}

func (db *DB) SetAggregate(ctx context.Context, id string, averageRating float64, totalReviews int) error {
	return db.updateFaculty(ctx, id, bson.M{
		"avgRating":    averageRating,
		"totalReviews": totalReviews,
	}, "")
}

func (db *DB) updateFaculty(ctx context.Context, id string, set bson.M, initial string) error {
	oid, ok := lookupID(id)
	if !ok {
		return apperror.NotFound("faculty", id)
	}
	res, err := db.col(colFaculties).UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.Conflict(fmt.Sprintf("faculty with initial %s already exists", initial))
		}
		return fmt.Errorf("mongo: updating faculty %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("faculty", id)
	}
	return nil
}

func (db *DB) DeleteFaculty(ctx context.Context, id string) error {
	return db.deleteByID(ctx, colFaculties, "faculty", id)
}

func (db *DB) CountFaculties(ctx context.Context) (int64, error) {
	return db.count(ctx, colFaculties)
}
