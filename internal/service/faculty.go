package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/faculty-review/internal/apperror"
	"github.com/sakif/faculty-review/internal/model"
	"github.com/sakif/faculty-review/internal/repository"
)

// FacultyService is the faculty directory. Aggregates are never taken
// from input; they are written by ReviewService.Recompute only.
type FacultyService struct {
	faculties repository.FacultyRepository
	users     repository.UserRepository
	reviews   *ReviewService
	activity  *ActivityLogger
	logger    *slog.Logger
}

func NewFacultyService(
	faculties repository.FacultyRepository,
	users repository.UserRepository,
	reviews *ReviewService,
	activity *ActivityLogger,
	logger *slog.Logger,
) *FacultyService {
	return &FacultyService{
		faculties: faculties,
		users:     users,
		reviews:   reviews,
		activity:  activity,
		logger:    logger,
	}
}

type CreateFacultyInput struct {
	Initial      string             `json:"initial" validate:"notblank,max=16"`
	Department   string             `json:"department" validate:"max=100"`
	Courses      []string           `json:"courses" validate:"max=50,dive,max=32"`
	AdminReviews []AdminReviewEntry `json:"adminReviews"`
}

// UpdateFacultyInput is partial: nil fields are left unchanged. A non-nil
// AdminReviews is reconciled even when empty.
type UpdateFacultyInput struct {
	Initial      *string            `json:"initial"`
	Department   *string            `json:"department"`
	Courses      []string           `json:"courses" validate:"max=50,dive,max=32"`
	AdminReviews []AdminReviewEntry `json:"adminReviews"`
}

func (s *FacultyService) List(ctx context.Context) ([]model.Faculty, error) {
	faculties, err := s.faculties.ListFaculties(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("service/faculty: listing: %w", err)
	}
	return faculties, nil
}

func (s *FacultyService) Get(ctx context.Context, id string) (*model.Faculty, error) {
	f, err := s.faculties.GetFacultyByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/faculty: fetching %s: %w", id, err)
	}
	return f, nil
}

// Create inserts a faculty with zero aggregates, then applies any bundled
// admin reviews.
func (s *FacultyService) Create(ctx context.Context, actorID string, in CreateFacultyInput) (*model.Faculty, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if _, _, _, err := planAdminReviews(in.AdminReviews); err != nil {
		return nil, err
	}

	f := &model.Faculty{
		Initial:    normalizeInitial(in.Initial),
		Department: strings.TrimSpace(in.Department),
		Courses:    cleanCourses(in.Courses),
	}
	if err := s.faculties.CreateFaculty(ctx, f); err != nil {
		return nil, fmt.Errorf("service/faculty: creating %s: %w", f.Initial, err)
	}

	if len(in.AdminReviews) > 0 {
		updated, err := s.reviews.ReconcileAdminReviews(ctx, f.ID, in.AdminReviews)
		if err != nil {
			return nil, err
		}
		f = updated
	}

	s.logger.Info("faculty created", slog.String("facultyID", f.ID), slog.String("initial", f.Initial))
	s.logChange(ctx, actorID, f, "Added faculty "+f.Initial)
	return f, nil
}

func (s *FacultyService) Update(ctx context.Context, actorID, id string, in UpdateFacultyInput) (*model.Faculty, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.Initial != nil && strings.TrimSpace(*in.Initial) == "" {
		return nil, apperror.ValidationFailed("initial", "initial cannot be blank")
	}
	if _, _, _, err := planAdminReviews(in.AdminReviews); err != nil {
		return nil, err
	}

	f, err := s.faculties.GetFacultyByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/faculty: fetching %s: %w", id, err)
	}
	if in.Initial != nil {
		f.Initial = normalizeInitial(*in.Initial)
	}
	if in.Department != nil {
		f.Department = strings.TrimSpace(*in.Department)
	}
	if in.Courses != nil {
		f.Courses = cleanCourses(in.Courses)
	}
	if err := s.faculties.UpdateFaculty(ctx, f); err != nil {
		return nil, fmt.Errorf("service/faculty: updating %s: %w", id, err)
	}

	if in.AdminReviews != nil {
		if f, err = s.reviews.ReconcileAdminReviews(ctx, id, in.AdminReviews); err != nil {
			return nil, err
		}
	} else if f, err = s.faculties.GetFacultyByID(ctx, id); err != nil {
		return nil, fmt.Errorf("service/faculty: reloading %s: %w", id, err)
	}

	s.logChange(ctx, actorID, f, "Updated faculty "+f.Initial)
	return f, nil
}

// Delete removes the faculty, its reviews, and every favorite pointing at it.
func (s *FacultyService) Delete(ctx context.Context, actorID, id string) error {
	f, err := s.faculties.GetFacultyByID(ctx, id)
	if err != nil {
		return fmt.Errorf("service/faculty: fetching %s: %w", id, err)
	}

	removed, err := s.reviews.DeleteForFaculty(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.RemoveFavoriteEverywhere(ctx, id); err != nil {
		return fmt.Errorf("service/faculty: clearing favorites of %s: %w", id, err)
	}
	if err := s.faculties.DeleteFaculty(ctx, id); err != nil {
		return fmt.Errorf("service/faculty: deleting %s: %w", id, err)
	}

	s.logger.Info("faculty deleted",
		slog.String("facultyID", id),
		slog.String("initial", f.Initial),
		slog.Int64("reviewsRemoved", removed),
	)
	s.logChange(ctx, actorID, &model.Faculty{ID: id}, "Deleted faculty "+f.Initial)
	return nil
}

func (s *FacultyService) logChange(ctx context.Context, actorID string, f *model.Faculty, description string) {
	s.activity.Log(ctx, model.Activity{
		Type:          model.ActivityFacultyChange,
		UserID:        actorID,
		Description:   description,
		RelatedEntity: f.ID,
		EntityModel:   model.EntityFaculty,
	})
}

func normalizeInitial(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// cleanCourses trims entries and drops blanks, keeping order.
func cleanCourses(courses []string) []string {
	out := make([]string, 0, len(courses))
	for _, c := range courses {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
