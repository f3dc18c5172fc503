package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/faculty-review/internal/apperror"
	"github.com/sakif/faculty-review/internal/repository"
)

type VisitorService struct {
	visitors repository.VisitorRepository
	now      func() time.Time
}

func NewVisitorService(visitors repository.VisitorRepository) *VisitorService {
	return &VisitorService{visitors: visitors, now: time.Now}
}

// Record upserts an anonymous visit. Repeat visits only move lastVisit.
func (s *VisitorService) Record(ctx context.Context, visitorID string) error {
	visitorID = strings.TrimSpace(visitorID)
	if visitorID == "" {
		return apperror.ValidationFailed("visitorId", "Missing visitorId")
	}
	if len(visitorID) > 128 {
		return apperror.ValidationFailed("visitorId", "visitorId must be 128 characters or less")
	}
	if err := s.visitors.UpsertVisitor(ctx, visitorID, s.now().UTC()); err != nil {
		return fmt.Errorf("service/visitor: recording %s: %w", visitorID, err)
	}
	return nil
}
