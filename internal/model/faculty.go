package model

// Faculty is a reviewable instructor.
//
// AverageRating and TotalReviews are derived from the Review set and are only
// written by the aggregation recompute. They are never accepted from clients.
type Faculty struct {
	ID            string   `json:"_id"`
	Initial       string   `json:"initial"`
	Department    string   `json:"department"`
	Courses       []string `json:"courses"`
	AverageRating float64  `json:"averageRating"`
	TotalReviews  int      `json:"totalReviews"`
}

func (f *Faculty) Summary() *FacultySummary {
	return &FacultySummary{ID: f.ID, Initial: f.Initial, Department: f.Department}
}

// FacultySummary is the joined, display-only view of a Faculty.
type FacultySummary struct {
	ID         string `json:"_id"`
	Initial    string `json:"initial"`
	Department string `json:"department"`
}

// RatingSummary is the count and sum of ratings over a faculty's reviews.
type RatingSummary struct {
	Count int
	Sum   int
}

// Average returns Sum/Count, or 0 when there are no reviews.
// The value is not rounded.
func (s RatingSummary) Average() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.Sum) / float64(s.Count)
}
