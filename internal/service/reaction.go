package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/faculty-review/internal/lock"
	"github.com/sakif/faculty-review/internal/model"
	"github.com/sakif/faculty-review/internal/repository"
)

// ReactionService handles likes, dislikes and flags. None of these touch
// the rating aggregate. Toggles on one review are serialized through
// locker, keyed by review id.
type ReactionService struct {
	reviews       repository.ReviewRepository
	users         repository.UserRepository
	notifications repository.NotificationRepository
	locker        lock.Locker
	activity      *ActivityLogger
	logger        *slog.Logger
	now           func() time.Time
}

func NewReactionService(
	reviews repository.ReviewRepository,
	users repository.UserRepository,
	notifications repository.NotificationRepository,
	locker lock.Locker,
	activity *ActivityLogger,
	logger *slog.Logger,
) *ReactionService {
	return &ReactionService{
		reviews:       reviews,
		users:         users,
		notifications: notifications,
		locker:        locker,
		activity:      activity,
		logger:        logger,
		now:           time.Now,
	}
}

// FlagResult reports how many administrators were notified.
type FlagResult struct {
	Message  string `json:"message"`
	Notified int    `json:"notified"`
}

// ToggleLike removes the caller's dislike, then flips their like.
func (s *ReactionService) ToggleLike(ctx context.Context, reviewID, userID string) (model.ReactionState, error) {
	state, liked, err := s.toggle(ctx, reviewID, userID, (*model.Review).ToggleLike)
	if err != nil {
		return model.ReactionState{}, err
	}
	if liked {
		s.activity.Log(ctx, model.Activity{
			Type:          model.ActivityLike,
			UserID:        userID,
			Description:   "Liked a review",
			RelatedEntity: reviewID,
			EntityModel:   model.EntityReview,
		})
	}
	return state, nil
}

// ToggleDislike removes the caller's like, then flips their dislike.
func (s *ReactionService) ToggleDislike(ctx context.Context, reviewID, userID string) (model.ReactionState, error) {
	state, _, err := s.toggle(ctx, reviewID, userID, (*model.Review).ToggleDislike)
	return state, err
}

// toggle reads both reaction sets, applies the change and writes them back
// while holding the review's lock, so concurrent toggles by different users
// never drop each other's reaction.
func (s *ReactionService) toggle(ctx context.Context, reviewID, userID string, apply func(*model.Review, string)) (model.ReactionState, bool, error) {
	unlock, err := s.locker.Lock(ctx, "review:"+reviewID)
	if err != nil {
		return model.ReactionState{}, false, fmt.Errorf("service/reaction: locking review %s: %w", reviewID, err)
	}
	defer unlock()

	review, err := s.reviews.GetReviewByID(ctx, reviewID)
	if err != nil {
		return model.ReactionState{}, false, fmt.Errorf("service/reaction: fetching review: %w", err)
	}

	apply(review, userID)

	if err := s.reviews.SetReactions(ctx, review.ID, review.Likes, review.Dislikes); err != nil {
		return model.ReactionState{}, false, fmt.Errorf("service/reaction: saving reactions on %s: %w", reviewID, err)
	}
	state := review.ReactionStateFor(userID)
	return state, state.Liked, nil
}

// Flag records the reporter's flag and notifies every administrator. The
// flag append is conditional in the store, so a second flag by the same
// user is Conflict and leaves the review unchanged. Notifications are
// independent inserts; a failure part-way returns the error and leaves the
// ones already written.
func (s *ReactionService) Flag(ctx context.Context, reviewID, reporterID string) (*FlagResult, error) {
	review, err := s.reviews.GetReviewByID(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("service/reaction: fetching review: %w", err)
	}

	flag := model.Flag{UserID: reporterID, CreatedAt: s.now().UTC()}
	if err := s.reviews.AddFlag(ctx, review.ID, flag); err != nil {
		return nil, fmt.Errorf("service/reaction: flagging review %s: %w", reviewID, err)
	}

	admins, err := s.users.ListUsers(ctx, repository.UserFilter{Role: model.RoleAdmin})
	if err != nil {
		return nil, fmt.Errorf("service/reaction: listing admins: %w", err)
	}

	notified := 0
	for _, admin := range admins {
		n := &model.Notification{
			Type:     model.NotificationFlag,
			Message:  "A review has been flagged for moderation",
			ReviewID: review.ID,
			UserID:   admin.ID,
		}
		if err := s.notifications.CreateNotification(ctx, n); err != nil {
			s.logger.Error("flag notification failed",
				slog.String("reviewID", review.ID),
				slog.String("adminID", admin.ID),
				slog.Int("notified", notified),
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("service/reaction: notifying admin %s: %w", admin.ID, err)
		}
		notified++
	}

	s.logger.Info("review flagged",
		slog.String("reviewID", review.ID),
		slog.String("reporterID", reporterID),
		slog.Int("notified", notified),
	)
	s.activity.Log(ctx, model.Activity{
		Type:          model.ActivityFlag,
		UserID:        reporterID,
		Description:   "Flagged a review",
		RelatedEntity: review.ID,
		EntityModel:   model.EntityReview,
	})

	return &FlagResult{Message: "Review flagged", Notified: notified}, nil
}
