package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"unicode/utf8"

	"github.com/sakif/faculty-review/internal/apperror"
	"github.com/sakif/faculty-review/internal/lock"
	"github.com/sakif/faculty-review/internal/model"
	"github.com/sakif/faculty-review/internal/repository"
)

const MaxReviewTextLength = 5000

// ReviewService owns every review mutation. Each mutating method ends with
// Recompute on the affected faculty, so the stored aggregate cannot be
// forgotten by a call site.
type ReviewService struct {
	reviews   repository.ReviewRepository
	faculties repository.FacultyRepository
	users     repository.UserRepository
	locker    lock.Locker
	activity  *ActivityLogger
	logger    *slog.Logger
}

func NewReviewService(
	reviews repository.ReviewRepository,
	faculties repository.FacultyRepository,
	users repository.UserRepository,
	locker lock.Locker,
	activity *ActivityLogger,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		reviews:   reviews,
		faculties: faculties,
		users:     users,
		locker:    locker,
		activity:  activity,
		logger:    logger,
	}
}

type CreateReviewInput struct {
	FacultyID string `json:"faculty" validate:"required"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Text      string `json:"text" validate:"max=5000"`
}

// UpdateReviewInput is a partial update; nil fields are left unchanged.
type UpdateReviewInput struct {
	Rating *int    `json:"rating"`
	Text   *string `json:"text"`
}

// AdminReviewEntry is one element of a faculty's adminReviews payload:
// {rating, text} inserts, {_id, rating?, text?} updates, {_id, _delete}
// removes.
type AdminReviewEntry struct {
	ID     string  `json:"_id,omitempty"`
	Rating *int    `json:"rating,omitempty"`
	Text   *string `json:"text,omitempty"`
	Delete bool    `json:"_delete,omitempty"`
}

// Recompute rewrites averageRating and totalReviews of a faculty from its
// current review set. Recomputes for one faculty are serialized, and the
// operation is idempotent, so it is always safe to retry.
func (s *ReviewService) Recompute(ctx context.Context, facultyID string) (*model.Faculty, error) {
	unlock, err := s.locker.Lock(ctx, "faculty:"+facultyID)
	if err != nil {
		return nil, fmt.Errorf("service/review: locking faculty %s: %w", facultyID, err)
	}
	defer unlock()

	summary, err := s.reviews.SummarizeRatings(ctx, facultyID)
	if err != nil {
		return nil, fmt.Errorf("service/review: summarizing faculty %s: %w", facultyID, err)
	}
	if err := s.faculties.SetAggregate(ctx, facultyID, summary.Average(), summary.Count); err != nil {
		return nil, fmt.Errorf("service/review: storing aggregate for faculty %s: %w", facultyID, err)
	}

	f, err := s.faculties.GetFacultyByID(ctx, facultyID)
	if err != nil {
		return nil, fmt.Errorf("service/review: reloading faculty %s: %w", facultyID, err)
	}
	return f, nil
}

func (s *ReviewService) Create(ctx context.Context, userID string, in CreateReviewInput) (*model.ReviewDetail, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	faculty, err := s.faculties.GetFacultyByID(ctx, in.FacultyID)
	if err != nil {
		return nil, fmt.Errorf("service/review: checking faculty: %w", err)
	}

	review := &model.Review{
		UserID:    userID,
		FacultyID: faculty.ID,
		Rating:    in.Rating,
		Text:      in.Text,
	}
	if err := s.reviews.CreateReview(ctx, review); err != nil {
		return nil, fmt.Errorf("service/review: creating review: %w", err)
	}
	if _, err := s.Recompute(ctx, faculty.ID); err != nil {
		return nil, err
	}

	s.logger.Info("review created",
		slog.String("reviewID", review.ID),
		slog.String("facultyID", faculty.ID),
		slog.Int("rating", review.Rating),
	)
	s.activity.Log(ctx, model.Activity{
		Type:          model.ActivityReview,
		UserID:        userID,
		Description:   fmt.Sprintf("Reviewed %s (%d/5)", faculty.Initial, review.Rating),
		RelatedEntity: review.ID,
		EntityModel:   model.EntityReview,
	})

	return s.detail(ctx, review.ID)
}

// Update applies the provided fields of in. Only the author may update.
func (s *ReviewService) Update(ctx context.Context, userID, reviewID string, in UpdateReviewInput) (*model.ReviewDetail, error) {
	if in.Rating != nil {
		if err := checkRating(*in.Rating); err != nil {
			return nil, err
		}
	}
	if in.Text != nil && utf8.RuneCountInString(*in.Text) > MaxReviewTextLength {
		return nil, apperror.ValidationFailed("text",
			fmt.Sprintf("text must be %d characters or less", MaxReviewTextLength))
	}

	review, err := s.reviews.GetReviewByID(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("service/review: fetching review: %w", err)
	}
	if !review.OwnedBy(userID) {
		return nil, apperror.Forbidden("you can only edit your own reviews")
	}

	rating, text := review.Rating, review.Text
	if in.Rating != nil {
		rating = *in.Rating
	}
	if in.Text != nil {
		text = *in.Text
	}
	if err := s.reviews.UpdateReviewContent(ctx, reviewID, rating, text); err != nil {
		return nil, fmt.Errorf("service/review: updating review %s: %w", reviewID, err)
	}
	if _, err := s.Recompute(ctx, review.FacultyID); err != nil {
		return nil, err
	}
	return s.detail(ctx, reviewID)
}

// Delete is the author's delete path.
func (s *ReviewService) Delete(ctx context.Context, userID, reviewID string) error {
	review, err := s.reviews.GetReviewByID(ctx, reviewID)
	if err != nil {
		return fmt.Errorf("service/review: fetching review: %w", err)
	}
	if !review.OwnedBy(userID) {
		return apperror.Forbidden("you can only delete your own reviews")
	}
	return s.remove(ctx, review)
}

// AdminDelete removes any review regardless of author.
func (s *ReviewService) AdminDelete(ctx context.Context, reviewID string) error {
	review, err := s.reviews.GetReviewByID(ctx, reviewID)
	if err != nil {
		return fmt.Errorf("service/review: fetching review: %w", err)
	}
	return s.remove(ctx, review)
}

// remove deletes review and recomputes its faculty, which was captured
// before the delete.
func (s *ReviewService) remove(ctx context.Context, review *model.Review) error {
	facultyID := review.FacultyID
	if err := s.reviews.DeleteReview(ctx, review.ID); err != nil {
		return fmt.Errorf("service/review: deleting review %s: %w", review.ID, err)
	}
	if _, err := s.Recompute(ctx, facultyID); err != nil {
		return err
	}
	s.logger.Info("review deleted", slog.String("reviewID", review.ID), slog.String("facultyID", facultyID))
	return nil
}

// ReconcileAdminReviews applies an adminReviews payload to a faculty:
// deletions, then updates, then insertions, then a single recompute. Only
// reviews with isAdmin set and belonging to facultyID can be touched; ids
// outside that scope are ignored. Every entry is validated before the
// first write.
func (s *ReviewService) ReconcileAdminReviews(ctx context.Context, facultyID string, entries []AdminReviewEntry) (*model.Faculty, error) {
	deletes, updates, inserts, err := planAdminReviews(entries)
	if err != nil {
		return nil, err
	}

	scope := repository.ReviewFilter{FacultyID: facultyID, AdminOnly: true}

	if len(deletes) > 0 {
		filter := scope
		filter.IDs = entryIDs(deletes)
		n, err := s.reviews.DeleteReviews(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("service/review: deleting admin reviews: %w", err)
		}
		s.logger.Debug("admin reviews deleted", slog.String("facultyID", facultyID), slog.Int64("count", n))
	}

	if len(updates) > 0 {
		filter := scope
		filter.IDs = entryIDs(updates)
		existing, err := s.reviews.ListReviews(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("service/review: loading admin reviews: %w", err)
		}
		byID := make(map[string]model.Review, len(existing))
		for _, r := range existing {
			byID[r.ID] = r
		}
		for _, e := range updates {
			r, ok := byID[e.ID]
			if !ok {
				continue
			}
			rating, text := r.Rating, r.Text
			if e.Rating != nil {
				rating = *e.Rating
			}
			if e.Text != nil {
				text = *e.Text
			}
			if err := s.reviews.UpdateReviewContent(ctx, r.ID, rating, text); err != nil {
				return nil, fmt.Errorf("service/review: updating admin review %s: %w", r.ID, err)
			}
		}
	}

	for _, e := range inserts {
		r := &model.Review{FacultyID: facultyID, Rating: *e.Rating, IsAdmin: true}
		if e.Text != nil {
			r.Text = *e.Text
		}
		if err := s.reviews.CreateReview(ctx, r); err != nil {
			return nil, fmt.Errorf("service/review: creating admin review: %w", err)
		}
	}

	return s.Recompute(ctx, facultyID)
}

// DeleteForUser removes every review written by userID and recomputes each
// faculty they had reviewed. Faculties that no longer exist are skipped.
func (s *ReviewService) DeleteForUser(ctx context.Context, userID string) (int64, error) {
	reviews, err := s.reviews.ListReviews(ctx, repository.ReviewFilter{UserID: userID})
	if err != nil {
		return 0, fmt.Errorf("service/review: listing reviews of user %s: %w", userID, err)
	}
	if len(reviews) == 0 {
		return 0, nil
	}

	var facultyIDs []string
	for _, r := range reviews {
		if !slices.Contains(facultyIDs, r.FacultyID) {
			facultyIDs = append(facultyIDs, r.FacultyID)
		}
	}

	n, err := s.reviews.DeleteReviews(ctx, repository.ReviewFilter{UserID: userID})
	if err != nil {
		return 0, fmt.Errorf("service/review: deleting reviews of user %s: %w", userID, err)
	}
	for _, id := range facultyIDs {
		if _, err := s.Recompute(ctx, id); err != nil {
			if apperror.Is(err, apperror.ErrNotFound) {
				continue
			}
			return n, err
		}
	}
	return n, nil
}

// DeleteForFaculty removes every review of a faculty that is being deleted.
func (s *ReviewService) DeleteForFaculty(ctx context.Context, facultyID string) (int64, error) {
	n, err := s.reviews.DeleteReviews(ctx, repository.ReviewFilter{FacultyID: facultyID})
	if err != nil {
		return 0, fmt.Errorf("service/review: deleting reviews of faculty %s: %w", facultyID, err)
	}
	return n, nil
}

func (s *ReviewService) ListByFaculty(ctx context.Context, facultyID string) ([]model.ReviewDetail, error) {
	if _, err := s.faculties.GetFacultyByID(ctx, facultyID); err != nil {
		return nil, fmt.Errorf("service/review: checking faculty: %w", err)
	}
	return s.list(ctx, repository.ReviewFilter{FacultyID: facultyID})
}

func (s *ReviewService) ListMine(ctx context.Context, userID string) ([]model.ReviewDetail, error) {
	return s.list(ctx, repository.ReviewFilter{UserID: userID})
}

// ListByUser is the admin view of one user's reviews. NotFound for an
// unknown user.
func (s *ReviewService) ListByUser(ctx context.Context, userID string) ([]model.ReviewDetail, error) {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("service/review: checking user: %w", err)
	}
	return s.list(ctx, repository.ReviewFilter{UserID: userID})
}

func (s *ReviewService) ListFlagged(ctx context.Context) ([]model.ReviewDetail, error) {
	return s.list(ctx, repository.ReviewFilter{FlaggedOnly: true})
}

func (s *ReviewService) list(ctx context.Context, filter repository.ReviewFilter) ([]model.ReviewDetail, error) {
	reviews, err := s.reviews.ListReviews(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service/review: listing reviews: %w", err)
	}
	return s.populate(ctx, reviews)
}

func (s *ReviewService) detail(ctx context.Context, reviewID string) (*model.ReviewDetail, error) {
	review, err := s.reviews.GetReviewByID(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("service/review: reloading review: %w", err)
	}
	details, err := s.populate(ctx, []model.Review{*review})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// populate joins the author and faculty projections onto each review with
// one lookup per collection.
func (s *ReviewService) populate(ctx context.Context, reviews []model.Review) ([]model.ReviewDetail, error) {
	var userIDs, facultyIDs []string
	for _, r := range reviews {
		if r.UserID != "" && !slices.Contains(userIDs, r.UserID) {
			userIDs = append(userIDs, r.UserID)
		}
		if !slices.Contains(facultyIDs, r.FacultyID) {
			facultyIDs = append(facultyIDs, r.FacultyID)
		}
	}

	users := make(map[string]*model.UserSummary, len(userIDs))
	if len(userIDs) > 0 {
		found, err := s.users.ListUsers(ctx, repository.UserFilter{IDs: userIDs})
		if err != nil {
			return nil, fmt.Errorf("service/review: loading authors: %w", err)
		}
		for i := range found {
			sum := found[i].Summary()
			sum.Role = ""
			users[found[i].ID] = sum
		}
	}

	faculties := make(map[string]*model.FacultySummary, len(facultyIDs))
	if len(facultyIDs) > 0 {
		found, err := s.faculties.ListFaculties(ctx, facultyIDs)
		if err != nil {
			return nil, fmt.Errorf("service/review: loading faculties: %w", err)
		}
		for i := range found {
			faculties[found[i].ID] = found[i].Summary()
		}
	}

	out := make([]model.ReviewDetail, len(reviews))
	for i, r := range reviews {
		out[i] = model.NewReviewDetail(r, users[r.UserID], faculties[r.FacultyID])
	}
	return out, nil
}

// planAdminReviews validates an adminReviews payload and splits it into
// deletions, updates and insertions. Updates carrying neither rating nor
// text are dropped.
func planAdminReviews(entries []AdminReviewEntry) (deletes, updates, inserts []AdminReviewEntry, err error) {
	for i, e := range entries {
		switch {
		case e.Delete && e.ID == "":
			return nil, nil, nil, apperror.ValidationFailed(fmt.Sprintf("adminReviews[%d]._id", i),
				"_id is required to delete an admin review")
		case e.Delete:
			deletes = append(deletes, e)
		case e.ID != "":
			if e.Rating != nil {
				if err := checkRating(*e.Rating); err != nil {
					return nil, nil, nil, entryError(i, err)
				}
			}
			if e.Rating != nil || e.Text != nil {
				updates = append(updates, e)
			}
		default:
			if e.Rating == nil {
				return nil, nil, nil, apperror.ValidationFailed(fmt.Sprintf("adminReviews[%d].rating", i),
					"rating is required for a new admin review")
			}
			if err := checkRating(*e.Rating); err != nil {
				return nil, nil, nil, entryError(i, err)
			}
			inserts = append(inserts, e)
		}
	}
	return deletes, updates, inserts, nil
}

func checkRating(rating int) error {
	if rating < model.MinRating || rating > model.MaxRating {
		return apperror.ValidationFailed("rating",
			fmt.Sprintf("rating must be between %d and %d", model.MinRating, model.MaxRating))
	}
	return nil
}

// entryError re-targets a rating validation error at one payload entry.
func entryError(i int, err error) error {
	return apperror.ValidationFailed(fmt.Sprintf("adminReviews[%d].rating", i), err.Error())
}

func entryIDs(entries []AdminReviewEntry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}
