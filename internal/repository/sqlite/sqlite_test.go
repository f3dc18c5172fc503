package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/sakif/faculty-review/internal/model"
)

// newTestDB opens a fresh in-memory database per test. Every call to
// New(":memory:") gets its own database because the pool holds exactly
// one connection.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// steppingClock makes db.now return strictly increasing times so that
// "newest first" ordering is deterministic.
func steppingClock(db *DB) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	db.now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func createTestUser(t *testing.T, db *DB, name, email string, role model.Role) *model.User {
	t.Helper()
	u := &model.User{Name: name, Email: email, PasswordHash: "hash", Role: role}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

func createTestFaculty(t *testing.T, db *DB, initial string) *model.Faculty {
	t.Helper()
	f := &model.Faculty{Initial: initial, Department: "CSE", Courses: []string{"CSE110"}}
	if err := db.CreateFaculty(context.Background(), f); err != nil {
		t.Fatalf("failed to create test faculty: %v", err)
	}
	return f
}

func createTestReview(t *testing.T, db *DB, userID, facultyID string, rating int) *model.Review {
	t.Helper()
	r := &model.Review{UserID: userID, FacultyID: facultyID, Rating: rating, Text: "ok"}
	if err := db.CreateReview(context.Background(), r); err != nil {
		t.Fatalf("failed to create test review: %v", err)
	}
	return r
}

func TestNew_MigrationsAreIdempotent(t *testing.T) {
	db := newTestDB(t)
	if err := db.migrate(); err != nil {
		t.Fatalf("second migrate() error = %v", err)
	}
}

func TestPlaceholders(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, ""},
		{1, "?"},
		{3, "?, ?, ?"},
	}
	for _, tt := range tests {
		if got := placeholders(tt.n); got != tt.want {
			t.Errorf("placeholders(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
