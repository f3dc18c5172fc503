package model

import (
	"slices"
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Flag is one user's report against a review.
type Flag struct {
	UserID    string    `json:"user"`
	CreatedAt time.Time `json:"createdAt"`
}

// Review is a single rating for one faculty.
//
// UserID is empty for admin-authored reviews (IsAdmin == true). A user id
// appears in at most one of Likes/Dislikes, and at most once in Flags.
type Review struct {
	ID        string    `json:"_id"`
	UserID    string    `json:"user,omitempty"`
	FacultyID string    `json:"faculty"`
	Rating    int       `json:"rating"`
	Text      string    `json:"text"`
	IsAdmin   bool      `json:"isAdmin"`
	Likes     []string  `json:"likes"`
	Dislikes  []string  `json:"dislikes"`
	Flags     []Flag    `json:"flags"`
	CreatedAt time.Time `json:"createdAt"`
}

func (r *Review) OwnedBy(userID string) bool {
	return r.UserID != "" && r.UserID == userID
}

// ToggleLike removes userID from Dislikes and flips its membership in Likes.
func (r *Review) ToggleLike(userID string) {
	r.Dislikes = remove(r.Dislikes, userID)
	if slices.Contains(r.Likes, userID) {
		r.Likes = remove(r.Likes, userID)
		return
	}
	r.Likes = append(r.Likes, userID)
}

// ToggleDislike is the mirror of ToggleLike.
func (r *Review) ToggleDislike(userID string) {
	r.Likes = remove(r.Likes, userID)
	if slices.Contains(r.Dislikes, userID) {
		r.Dislikes = remove(r.Dislikes, userID)
		return
	}
	r.Dislikes = append(r.Dislikes, userID)
}

func (r *Review) LikedBy(userID string) bool    { return slices.Contains(r.Likes, userID) }
func (r *Review) DislikedBy(userID string) bool { return slices.Contains(r.Dislikes, userID) }

func (r *Review) FlaggedBy(userID string) bool {
	return slices.ContainsFunc(r.Flags, func(f Flag) bool { return f.UserID == userID })
}

func remove(ids []string, id string) []string {
	return slices.DeleteFunc(ids, func(s string) bool { return s == id })
}

// ReviewDetail is a Review with its author and faculty joined for display.
// User is nil for admin-authored reviews and for reviews whose author no
// longer exists.
type ReviewDetail struct {
	ID        string          `json:"_id"`
	User      *UserSummary    `json:"user"`
	Faculty   *FacultySummary `json:"faculty"`
	Rating    int             `json:"rating"`
	Text      string          `json:"text"`
	IsAdmin   bool            `json:"isAdmin"`
	Likes     []string        `json:"likes"`
	Dislikes  []string        `json:"dislikes"`
	Flags     []Flag          `json:"flags"`
	CreatedAt time.Time       `json:"createdAt"`
}

func NewReviewDetail(r Review, user *UserSummary, faculty *FacultySummary) ReviewDetail {
	return ReviewDetail{
		ID:        r.ID,
		User:      user,
		Faculty:   faculty,
		Rating:    r.Rating,
		Text:      r.Text,
		IsAdmin:   r.IsAdmin,
		Likes:     nonNil(r.Likes),
		Dislikes:  nonNil(r.Dislikes),
		Flags:     nonNilFlags(r.Flags),
		CreatedAt: r.CreatedAt,
	}
}

// ReactionState is what the like/dislike endpoints return.
type ReactionState struct {
	Likes    int  `json:"likes"`
	Dislikes int  `json:"dislikes"`
	Liked    bool `json:"liked"`
	Disliked bool `json:"disliked"`
}

func (r *Review) ReactionStateFor(userID string) ReactionState {
	return ReactionState{
		Likes:    len(r.Likes),
		Dislikes: len(r.Dislikes),
		Liked:    r.LikedBy(userID),
		Disliked: r.DislikedBy(userID),
	}
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func nonNilFlags(flags []Flag) []Flag {
	if flags == nil {
		return []Flag{}
	}
	return flags
}
