package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sakif/faculty-review/internal/auth"
	"github.com/sakif/faculty-review/internal/lock"
	"github.com/sakif/faculty-review/internal/model"
	"github.com/sakif/faculty-review/internal/repository"
	"github.com/sakif/faculty-review/internal/repository/sqlite"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

const testInvitationToken = "let-me-in-as-admin"

var errInjected = errors.New("injected store failure")

// failingActivities is a store whose activity writes always fail.
type failingActivities struct {
	repository.Store
}

func (failingActivities) CreateActivity(context.Context, *model.Activity) error {
	return errInjected
}

// flakyNotifications fails every notification insert after the first
// okCount succeed.
type flakyNotifications struct {
	repository.Store
	okCount int
	calls   int
}

func (f *flakyNotifications) CreateNotification(ctx context.Context, n *model.Notification) error {
	f.calls++
	if f.calls > f.okCount {
		return errInjected
	}
	return f.Store.CreateNotification(ctx, n)
}

// failingAggregate fails SetAggregate, leaving review writes intact.
type failingAggregate struct {
	repository.Store
	fail bool
}

func (f *failingAggregate) SetAggregate(ctx context.Context, id string, avg float64, total int) error {
	if f.fail {
		return errInjected
	}
	return f.Store.SetAggregate(ctx, id, avg, total)
}

type testEnv struct {
	store         repository.Store
	auth          *AuthService
	faculties     *FacultyService
	reviews       *ReviewService
	reactions     *ReactionService
	notifications *NotificationService
	admin         *AdminService
	visitors      *VisitorService
}

func newTestStore(t *testing.T) repository.Store {
	t.Helper()
	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("sqlite.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, newTestStore(t))
}

func newTestEnvWithStore(t *testing.T, store repository.Store) *testEnv {
	t.Helper()

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	// Cost 4 is the bcrypt minimum; keeps tests fast.
	passwords := auth.NewPasswordServiceForTest(4)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	activity := NewActivityLogger(store, logger)
	locker := lock.NewLocal()
	reviews := NewReviewService(store, store, store, locker, activity, logger)

	return &testEnv{
		store:         store,
		auth:          NewAuthService(store, store, tokens, passwords, activity, testInvitationToken, logger),
		faculties:     NewFacultyService(store, store, reviews, activity, logger),
		reviews:       reviews,
		reactions:     NewReactionService(store, store, store, locker, activity, logger),
		notifications: NewNotificationService(store),
		admin:         NewAdminService(store, reviews, activity, logger),
		visitors:      NewVisitorService(store),
	}
}

func (e *testEnv) register(t *testing.T, name, email string, admin bool) *model.User {
	t.Helper()
	in := RegisterInput{Name: name, Email: email, Password: "secret123"}
	if admin {
		in.AdminInvitationToken = testInvitationToken
	}
	res, err := e.auth.Register(context.Background(), in)
	if err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	return res.User
}

func (e *testEnv) faculty(t *testing.T, initial string) *model.Faculty {
	t.Helper()
	f, err := e.faculties.Create(context.Background(), "", CreateFacultyInput{Initial: initial, Department: "CSE"})
	if err != nil {
		t.Fatalf("Create faculty %s: %v", initial, err)
	}
	return f
}

func (e *testEnv) review(t *testing.T, userID, facultyID string, rating int) *model.ReviewDetail {
	t.Helper()
	r, err := e.reviews.Create(context.Background(), userID, CreateReviewInput{FacultyID: facultyID, Rating: rating})
	if err != nil {
		t.Fatalf("Create review: %v", err)
	}
	return r
}

func (e *testEnv) aggregate(t *testing.T, facultyID string) (float64, int) {
	t.Helper()
	f, err := e.store.GetFacultyByID(context.Background(), facultyID)
	if err != nil {
		t.Fatalf("GetFacultyByID: %v", err)
	}
	return f.AverageRating, f.TotalReviews
}

func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }
