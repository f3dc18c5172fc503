// Package model defines the data structures used throughout the application.
//
// Stored entities reference each other by string id. Read paths that need
// display fields (a review's author, a review's faculty) build the *Detail
// and *Summary types below explicitly; nothing is loaded eagerly.
package model

import (
	"slices"
	"time"
)

// Role is an account's authorization level.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is a registered account.
//
// Email is stored lower-cased; uniqueness is case-insensitive because of
// that normalization, not because of a collation. PasswordHash never leaves
// the process (json:"-").
type User struct {
	ID           string     `json:"_id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	Favorites    []string   `json:"favorites"` // Faculty ids
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) HasFavorite(facultyID string) bool {
	return slices.Contains(u.Favorites, facultyID)
}

// Summary returns the public projection attached to reviews and activities.
func (u *User) Summary() *UserSummary {
	return &UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// UserSummary is the joined, display-only view of a User.
type UserSummary struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role,omitempty"`
}

// UserWithReviewCount is returned by the admin user listing.
type UserWithReviewCount struct {
	User
	ReviewCount int64 `json:"reviewCount"`
}
