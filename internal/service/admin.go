package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/faculty-review/internal/apperror"
	"github.com/sakif/faculty-review/internal/model"
	"github.com/sakif/faculty-review/internal/repository"
)

// AdminService backs the dashboard and moderation routes. Role checks are
// done by the router; every method here assumes an admin caller.
type AdminService struct {
	store    repository.Store
	reviews  *ReviewService
	activity *ActivityLogger
	logger   *slog.Logger
}

func NewAdminService(store repository.Store, reviews *ReviewService, activity *ActivityLogger, logger *slog.Logger) *AdminService {
	return &AdminService{store: store, reviews: reviews, activity: activity, logger: logger}
}

// Metrics runs the four counts concurrently.
func (s *AdminService) Metrics(ctx context.Context) (*model.Metrics, error) {
	var m model.Metrics
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		m.UserCount, err = s.store.CountUsers(ctx)
		return err
	})
	g.Go(func() (err error) {
		m.FacultyCount, err = s.store.CountFaculties(ctx)
		return err
	})
	g.Go(func() (err error) {
		m.ReviewCount, err = s.store.CountReviews(ctx)
		return err
	})
	g.Go(func() (err error) {
		m.VisitorCount, err = s.store.CountVisitors(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("service/admin: computing metrics: %w", err)
	}
	return &m, nil
}

// ListUsers filters by a case-insensitive substring of name or email and
// attaches each user's review count.
func (s *AdminService) ListUsers(ctx context.Context, search string) ([]model.UserWithReviewCount, error) {
	users, err := s.store.ListUsers(ctx, repository.UserFilter{Search: search})
	if err != nil {
		return nil, fmt.Errorf("service/admin: listing users: %w", err)
	}
	counts, err := s.store.CountReviewsByUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/admin: counting reviews: %w", err)
	}

	out := make([]model.UserWithReviewCount, len(users))
	for i, u := range users {
		out[i] = model.UserWithReviewCount{User: u, ReviewCount: counts[u.ID]}
	}
	return out, nil
}

func (s *AdminService) UserReviews(ctx context.Context, userID string) ([]model.ReviewDetail, error) {
	return s.reviews.ListByUser(ctx, userID)
}

func (s *AdminService) FlaggedReviews(ctx context.Context) ([]model.ReviewDetail, error) {
	return s.reviews.ListFlagged(ctx)
}

func (s *AdminService) DeleteReview(ctx context.Context, reviewID string) error {
	return s.reviews.AdminDelete(ctx, reviewID)
}

// DeleteUser removes an account and every review it wrote, recomputing
// the affected faculties. Admins cannot delete themselves.
func (s *AdminService) DeleteUser(ctx context.Context, adminID, userID string) error {
	if adminID == userID {
		return apperror.ValidationFailed("id", "you cannot delete your own account")
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("service/admin: fetching user %s: %w", userID, err)
	}

	removed, err := s.reviews.DeleteForUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("service/admin: deleting user %s: %w", userID, err)
	}

	s.logger.Info("user deleted",
		slog.String("userID", userID),
		slog.String("adminID", adminID),
		slog.Int64("reviewsRemoved", removed),
	)
	s.activity.Log(ctx, model.Activity{
		Type:          model.ActivityOther,
		UserID:        adminID,
		Description:   "Deleted user " + user.Email,
		RelatedEntity: userID,
		EntityModel:   model.EntityUser,
	})
	return nil
}

// RecentActivities returns the newest entries with their actor joined.
// limit <= 0 means DefaultActivityLimit; larger than MaxActivityLimit is
// clamped.
func (s *AdminService) RecentActivities(ctx context.Context, limit int) ([]model.ActivityDetail, error) {
	switch {
	case limit <= 0:
		limit = DefaultActivityLimit
	case limit > MaxActivityLimit:
		limit = MaxActivityLimit
	}

	activities, err := s.store.ListRecentActivities(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("service/admin: listing activities: %w", err)
	}

	var userIDs []string
	for _, a := range activities {
		if a.UserID != "" && !slices.Contains(userIDs, a.UserID) {
			userIDs = append(userIDs, a.UserID)
		}
	}
	users := map[string]*model.UserSummary{}
	if len(userIDs) > 0 {
		found, err := s.store.ListUsers(ctx, repository.UserFilter{IDs: userIDs})
		if err != nil {
			return nil, fmt.Errorf("service/admin: loading activity users: %w", err)
		}
		for i := range found {
			users[found[i].ID] = found[i].Summary()
		}
	}

	out := make([]model.ActivityDetail, len(activities))
	for i, a := range activities {
		out[i] = model.ActivityDetail{
			ID:            a.ID,
			Type:          a.Type,
			User:          users[a.UserID],
			Description:   a.Description,
			RelatedEntity: a.RelatedEntity,
			EntityModel:   a.EntityModel,
			CreatedAt:     a.CreatedAt,
		}
	}
	return out, nil
}
