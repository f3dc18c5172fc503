package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sakif/faculty-review/internal/apperror"
	"github.com/sakif/faculty-review/internal/model"
	"github.com/sakif/faculty-review/internal/repository"
)

// newTestDB connects to MONGO_TEST_URI and uses a throwaway database that is
// dropped when the test ends. Tests are skipped without the variable.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := Connect(ctx, uri, "faculty_review_test_"+xid.New().String())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.db.Drop(context.Background())
		_ = db.Close()
	})
	return db
}

func TestLookupID(t *testing.T) {
	oid := primitive.NewObjectID()

	got, ok := lookupID(oid.Hex())
	assert.True(t, ok)
	assert.Equal(t, oid, got)

	_, ok = lookupID("not-an-object-id")
	assert.False(t, ok)
}

func TestRefIDs_RejectsInvalidHex(t *testing.T) {
	_, err := refIDs("likes", []string{primitive.NewObjectID().Hex(), "bogus"})
	assert.True(t, apperror.Is(err, apperror.ErrValidation))
}

func TestReviewQuery(t *testing.T) {
	fid := primitive.NewObjectID()

	q, ok := reviewQuery(repository.ReviewFilter{FacultyID: fid.Hex(), AdminOnly: true, FlaggedOnly: true})
	require.True(t, ok)
	assert.Equal(t, fid, q["faculty"])
	assert.Equal(t, true, q["isAdmin"])
	assert.Contains(t, q, "flags.0")

	_, ok = reviewQuery(repository.ReviewFilter{IDs: []string{}})
	assert.False(t, ok, "an empty id list matches nothing")

	_, ok = reviewQuery(repository.ReviewFilter{UserID: "bogus"})
	assert.False(t, ok, "an invalid id matches nothing")
}

func TestUsersAndFavorites(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u := &model.User{Name: "Rahim", Email: "rahim@example.com", PasswordHash: "hash"}
	require.NoError(t, db.CreateUser(ctx, u))
	assert.Equal(t, model.RoleUser, u.Role)

	err := db.CreateUser(ctx, &model.User{Name: "Again", Email: "rahim@example.com", PasswordHash: "x"})
	assert.True(t, apperror.Is(err, apperror.ErrConflict))

	fid := primitive.NewObjectID().Hex()
	require.NoError(t, db.AddFavorite(ctx, u.ID, fid))
	assert.True(t, apperror.Is(db.AddFavorite(ctx, u.ID, fid), apperror.ErrConflict))
	assert.True(t, apperror.Is(db.AddFavorite(ctx, primitive.NewObjectID().Hex(), fid), apperror.ErrNotFound))

	found, err := db.GetUserByEmail(ctx, "rahim@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{fid}, found.Favorites)

	users, err := db.ListUsers(ctx, repository.UserFilter{Search: "RAH"})
	require.NoError(t, err)
	assert.Len(t, users, 1)

	require.NoError(t, db.RemoveFavoriteEverywhere(ctx, fid))
	assert.True(t, apperror.Is(db.RemoveFavorite(ctx, u.ID, fid), apperror.ErrNotFound))

	require.NoError(t, db.DeleteUser(ctx, u.ID))
	_, err = db.GetUserByID(ctx, u.ID)
	assert.True(t, apperror.Is(err, apperror.ErrNotFound))
}

func TestReviewsAggregateAndFlags(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	f := &model.Faculty{Initial: "ABC", Department: "CSE"}
	require.NoError(t, db.CreateFaculty(ctx, f))
	assert.True(t, apperror.Is(db.CreateFaculty(ctx, &model.Faculty{Initial: "ABC"}), apperror.ErrConflict))

	alice := primitive.NewObjectID().Hex()
	bob := primitive.NewObjectID().Hex()
	for _, r := range []*model.Review{
		{UserID: alice, FacultyID: f.ID, Rating: 4},
		{UserID: bob, FacultyID: f.ID, Rating: 2},
		{FacultyID: f.ID, Rating: 3, IsAdmin: true},
	} {
		require.NoError(t, db.CreateReview(ctx, r))
	}

	s, err := db.SummarizeRatings(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RatingSummary{Count: 3, Sum: 9}, s)

	counts, err := db.CountReviewsByUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{alice: 1, bob: 1}, counts)

	reviews, err := db.ListReviews(ctx, repository.ReviewFilter{FacultyID: f.ID})
	require.NoError(t, err)
	require.Len(t, reviews, 3)
	target := reviews[0].ID

	flag := model.Flag{UserID: alice, CreatedAt: time.Now()}
	require.NoError(t, db.AddFlag(ctx, target, flag))
	assert.True(t, apperror.Is(db.AddFlag(ctx, target, flag), apperror.ErrConflict))

	flagged, err := db.ListReviews(ctx, repository.ReviewFilter{FlaggedOnly: true})
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, target, flagged[0].ID)

	require.NoError(t, db.SetReactions(ctx, target, []string{bob}, []string{alice}))
	got, err := db.GetReviewByID(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, []string{bob}, got.Likes)
	assert.Equal(t, []string{alice}, got.Dislikes)

	n, err := db.DeleteReviews(ctx, repository.ReviewFilter{FacultyID: f.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestVisitorsNotificationsActivities(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertVisitor(ctx, "v1", time.Now()))
	require.NoError(t, db.UpsertVisitor(ctx, "v1", time.Now()))
	n, err := db.CountVisitors(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	admin := primitive.NewObjectID().Hex()
	note := &model.Notification{Type: model.NotificationFlag, Message: "flagged",
		ReviewID: primitive.NewObjectID().Hex(), UserID: admin}
	require.NoError(t, db.CreateNotification(ctx, note))
	inbox, err := db.ListNotificationsForUser(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, inbox, 1)
	require.NoError(t, db.DeleteNotification(ctx, note.ID))
	assert.True(t, apperror.Is(db.DeleteNotification(ctx, note.ID), apperror.ErrNotFound))

	for i := 0; i < 3; i++ {
		require.NoError(t, db.CreateActivity(ctx, &model.Activity{
			Type: model.ActivityLogin, UserID: admin, Description: "logged in"}))
	}
	recent, err := db.ListRecentActivities(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}
