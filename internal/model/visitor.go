package model

import "time"

// Visitor is an anonymous browser identified by a client-generated id.
type Visitor struct {
	VisitorID string    `json:"visitorId"`
	LastVisit time.Time `json:"lastVisit"`
}

// Metrics are the admin dashboard counters.
type Metrics struct {
	UserCount    int64 `json:"userCount"`
	FacultyCount int64 `json:"facultyCount"`
	ReviewCount  int64 `json:"reviewCount"`
	VisitorCount int64 `json:"visitorCount"`
}
