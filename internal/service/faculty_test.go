package service

import (
	"context"
	"testing"

	"github.com/sakif/faculty-review/internal/apperror"
	"github.com/sakif/faculty-review/internal/model"
	"github.com/sakif/faculty-review/internal/repository"
)

func TestFacultyCreate_NormalizesInitial(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	f, err := env.faculties.Create(ctx, "", CreateFacultyInput{
		Initial: "  aac ", Department: " CSE ", Courses: []string{"CSE110", " ", "CSE220 "},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if f.Initial != "AAC" || f.Department != "CSE" {
		t.Errorf("Create() = %+v", f)
	}
	if len(f.Courses) != 2 || f.Courses[1] != "CSE220" {
		t.Errorf("Courses = %v, want [CSE110 CSE220]", f.Courses)
	}
	if f.AverageRating != 0 || f.TotalReviews != 0 {
		t.Errorf("new faculty aggregate = (%v, %d)", f.AverageRating, f.TotalReviews)
	}

	if _, err := env.faculties.Create(ctx, "", CreateFacultyInput{Initial: "Aac"}); !apperror.Is(err, apperror.ErrConflict) {
		t.Errorf("duplicate initial error = %v, want Conflict", err)
	}
	if _, err := env.faculties.Create(ctx, "", CreateFacultyInput{Initial: "   "}); !apperror.Is(err, apperror.ErrValidation) {
		t.Errorf("blank initial error = %v, want Validation", err)
	}
}

func TestFacultyUpdate_PartialKeepsAggregate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "Alice", "alice@example.com", false)
	f := env.faculty(t, "AAC")
	env.review(t, u.ID, f.ID, 4)

	got, err := env.faculties.Update(ctx, "", f.ID, UpdateFacultyInput{Courses: []string{"CSE470"}})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.Initial != "AAC" || got.Department != "CSE" {
		t.Errorf("identity fields changed: %+v", got)
	}
	if len(got.Courses) != 1 || got.Courses[0] != "CSE470" {
		t.Errorf("Courses = %v", got.Courses)
	}
	if got.AverageRating != 4 || got.TotalReviews != 1 {
		t.Errorf("aggregate = (%v, %d), want (4, 1)", got.AverageRating, got.TotalReviews)
	}

	if _, err := env.faculties.Update(ctx, "", "missing", UpdateFacultyInput{}); !apperror.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want NotFound", err)
	}
	if _, err := env.faculties.Update(ctx, "", f.ID, UpdateFacultyInput{Initial: strPtr(" ")}); !apperror.Is(err, apperror.ErrValidation) {
		t.Errorf("Update(blank initial) error = %v, want Validation", err)
	}
}

func TestFacultyUpdate_WithAdminReviews(t *testing.T) {
	env := newTestEnv(t)
	f := env.faculty(t, "AAC")

	got, err := env.faculties.Update(context.Background(), "", f.ID, UpdateFacultyInput{
		Department:   strPtr("EEE"),
		AdminReviews: []AdminReviewEntry{{Rating: intPtr(2)}, {Rating: intPtr(5)}},
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.Department != "EEE" || got.TotalReviews != 2 || got.AverageRating != 3.5 {
		t.Errorf("Update() = %+v", got)
	}
}

func TestFacultyDelete_Cascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.register(t, "Root", "root@example.com", true)
	u := env.register(t, "Alice", "alice@example.com", false)
	f := env.faculty(t, "AAC")
	other := env.faculty(t, "BBD")
	env.review(t, u.ID, f.ID, 4)
	env.review(t, u.ID, other.ID, 2)
	if _, err := env.auth.AddFavorite(ctx, u.ID, f.ID); err != nil {
		t.Fatal(err)
	}

	if err := env.faculties.Delete(ctx, admin.ID, f.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := env.faculties.Get(ctx, f.ID); !apperror.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want NotFound", err)
	}
	left, _ := env.store.ListReviews(ctx, repository.ReviewFilter{FacultyID: f.ID})
	if len(left) != 0 {
		t.Errorf("reviews of deleted faculty = %d, want 0", len(left))
	}
	if n, _ := env.store.CountReviews(ctx); n != 1 {
		t.Errorf("total reviews = %d, want 1", n)
	}
	me, _ := env.auth.Me(ctx, u.ID)
	if me.HasFavorite(f.ID) {
		t.Error("deleted faculty still in favorites")
	}

	acts, _ := env.store.ListRecentActivities(ctx, 1)
	if len(acts) != 1 || acts[0].Type != model.ActivityFacultyChange || acts[0].UserID != admin.ID {
		t.Errorf("latest activity = %+v, want faculty_change by admin", acts)
	}

	if err := env.faculties.Delete(ctx, admin.ID, f.ID); !apperror.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want NotFound", err)
	}
}

func TestFacultyList(t *testing.T) {
	env := newTestEnv(t)
	env.faculty(t, "ZZZ")
	env.faculty(t, "AAA")

	list, err := env.faculties.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 || list[0].Initial != "AAA" {
		t.Errorf("List() = %+v, want sorted by initial", list)
	}
}

func TestFacultyCreate_InvalidAdminReviewsWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.faculties.Create(ctx, "", CreateFacultyInput{
		Initial:      "AAC",
		AdminReviews: []AdminReviewEntry{{Rating: intPtr(4)}, {Rating: intPtr(6)}},
	})
	if !apperror.Is(err, apperror.ErrValidation) {
		t.Fatalf("Create() error = %v, want Validation", err)
	}

	list, err := env.faculties.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 0 {
		t.Errorf("faculties after rejected create = %+v, want none", list)
	}
}
