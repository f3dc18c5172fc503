package model

import "time"

type NotificationType string

const NotificationFlag NotificationType = "flag"

// Notification is an inbox entry for one recipient (UserID).
type Notification struct {
	ID        string           `json:"_id"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	ReviewID  string           `json:"review"`
	UserID    string           `json:"user"`
	IsRead    bool             `json:"isRead"`
	CreatedAt time.Time        `json:"createdAt"`
}
