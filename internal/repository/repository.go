// Package repository declares the storage interfaces, one per collection.
//
// Two implementations exist: repository/mongo (the document store used in
// production) and repository/sqlite (embedded, for local runs and tests).
// Both return apperror.NotFound for unknown ids and apperror.Conflict for
// uniqueness violations, so services never inspect driver errors.
//
// Every write touches a single document/row set for one entity. There are no
// cross-collection transactions.
package repository

import (
	"context"
	"time"

	"github.com/sakif/faculty-review/internal/model"
)

type UserFilter struct {
	// Search is a case-insensitive substring matched against name and email.
	Search string
	Role   model.Role
	IDs    []string
}

type UserRepository interface {
	// CreateUser fills ID/CreatedAt/UpdatedAt. Conflict on duplicate email.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	// GetUserByEmail expects an already lower-cased email.
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]model.User, error)
	SetLastLogin(ctx context.Context, id string, at time.Time) error
	// AddFavorite is Conflict when the faculty is already a favorite.
	AddFavorite(ctx context.Context, userID, facultyID string) error
	// RemoveFavorite is NotFound when the faculty is not a favorite.
	RemoveFavorite(ctx context.Context, userID, facultyID string) error
	// RemoveFavoriteEverywhere drops facultyID from every user's favorites.
	RemoveFavoriteEverywhere(ctx context.Context, facultyID string) error
	DeleteUser(ctx context.Context, id string) error
	CountUsers(ctx context.Context) (int64, error)
}

type FacultyRepository interface {
	// CreateFaculty fills ID. Conflict on duplicate initial.
	CreateFaculty(ctx context.Context, faculty *model.Faculty) error
	GetFacultyByID(ctx context.Context, id string) (*model.Faculty, error)
	// ListFaculties returns every faculty when ids is nil, else only those ids.
	ListFaculties(ctx context.Context, ids []string) ([]model.Faculty, error)
	// UpdateFaculty writes identity fields only (initial, department, courses).
	UpdateFaculty(ctx context.Context, faculty *model.Faculty) error
	// SetAggregate writes the derived fields. NotFound if the faculty is gone.
	SetAggregate(ctx context.Context, id string, averageRating float64, totalReviews int) error
	DeleteFaculty(ctx context.Context, id string) error
	CountFaculties(ctx context.Context) (int64, error)
}

// ReviewFilter selects reviews. Zero-valued fields do not filter.
type ReviewFilter struct {
	IDs         []string
	FacultyID   string
	UserID      string
	AdminOnly   bool
	FlaggedOnly bool
}

type ReviewRepository interface {
	// CreateReview fills ID and CreatedAt.
	CreateReview(ctx context.Context, review *model.Review) error
	GetReviewByID(ctx context.Context, id string) (*model.Review, error)
	// ListReviews returns matches newest first.
	ListReviews(ctx context.Context, filter ReviewFilter) ([]model.Review, error)
	// UpdateReviewContent writes rating and text.
	UpdateReviewContent(ctx context.Context, id string, rating int, text string) error
	// SetReactions replaces the likes and dislikes sets.
	SetReactions(ctx context.Context, id string, likes, dislikes []string) error
	// AddFlag appends flag unless flag.UserID already flagged the review,
	// in which case it returns Conflict and leaves the review unchanged.
	AddFlag(ctx context.Context, id string, flag model.Flag) error
	DeleteReview(ctx context.Context, id string) error
	// DeleteReviews removes every match and reports how many were removed.
	// An empty filter is rejected.
	DeleteReviews(ctx context.Context, filter ReviewFilter) (int64, error)
	// SummarizeRatings counts and sums ratings of every review of a faculty,
	// user-authored and admin-authored alike.
	SummarizeRatings(ctx context.Context, facultyID string) (model.RatingSummary, error)
	// CountReviewsByUser maps user id to number of reviews written.
	CountReviewsByUser(ctx context.Context) (map[string]int64, error)
	CountReviews(ctx context.Context) (int64, error)
}

type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *model.Notification) error
	GetNotificationByID(ctx context.Context, id string) (*model.Notification, error)
	// ListNotificationsForUser returns the recipient's inbox newest first.
	ListNotificationsForUser(ctx context.Context, userID string) ([]model.Notification, error)
	DeleteNotification(ctx context.Context, id string) error
}

type ActivityRepository interface {
	CreateActivity(ctx context.Context, a *model.Activity) error
	// ListRecentActivities returns at most limit entries, newest first.
	ListRecentActivities(ctx context.Context, limit int) ([]model.Activity, error)
}

type VisitorRepository interface {
	// UpsertVisitor sets lastVisit, inserting the visitor if unknown.
	UpsertVisitor(ctx context.Context, visitorID string, at time.Time) error
	CountVisitors(ctx context.Context) (int64, error)
}

// Store bundles every repository. Both backends implement it with one type.
type Store interface {
	UserRepository
	FacultyRepository
	ReviewRepository
	NotificationRepository
	ActivityRepository
	VisitorRepository
	Close() error
}
