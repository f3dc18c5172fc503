package model

import "time"

type ActivityType string

const (
	ActivityRegister      ActivityType = "register"
	ActivityLogin         ActivityType = "login"
	ActivityLogout        ActivityType = "logout"
	ActivityReview        ActivityType = "review"
	ActivityLike          ActivityType = "like"
	ActivityFacultyChange ActivityType = "faculty_change"
	ActivityFlag          ActivityType = "flag"
	ActivityOther         ActivityType = "other"
)

// EntityModel names the collection an Activity's RelatedEntity belongs to.
type EntityModel string

const (
	EntityFaculty      EntityModel = "Faculty"
	EntityReview       EntityModel = "Review"
	EntityUser         EntityModel = "User"
	EntityNotification EntityModel = "Notification"
)

// Activity is an append-only audit entry.
type Activity struct {
	ID            string       `json:"_id"`
	Type          ActivityType `json:"type"`
	UserID        string       `json:"user"`
	Description   string       `json:"description"`
	RelatedEntity string       `json:"relatedEntity,omitempty"`
	EntityModel   EntityModel  `json:"entityModel,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// ActivityDetail is an Activity with its actor joined.
type ActivityDetail struct {
	ID            string       `json:"_id"`
	Type          ActivityType `json:"type"`
	User          *UserSummary `json:"user"`
	Description   string       `json:"description"`
	RelatedEntity string       `json:"relatedEntity,omitempty"`
	EntityModel   EntityModel  `json:"entityModel,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
}
