package service

import (
	"context"
	"fmt"

	"github.com/sakif/faculty-review/internal/apperror"
	"github.com/sakif/faculty-review/internal/model"
	"github.com/sakif/faculty-review/internal/repository"
)

// NotificationService is the per-user inbox.
type NotificationService struct {
	notifications repository.NotificationRepository
}

func NewNotificationService(notifications repository.NotificationRepository) *NotificationService {
	return &NotificationService{notifications: notifications}
}

func (s *NotificationService) ListMine(ctx context.Context, userID string) ([]model.Notification, error) {
	list, err := s.notifications.ListNotificationsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/notification: listing for %s: %w", userID, err)
	}
	return list, nil
}

// Delete removes one of the caller's notifications. Another user's
// notification is Forbidden, not NotFound.
func (s *NotificationService) Delete(ctx context.Context, userID, id string) error {
	n, err := s.notifications.GetNotificationByID(ctx, id)
	if err != nil {
		return fmt.Errorf("service/notification: fetching %s: %w", id, err)
	}
	if n.UserID != userID {
		return apperror.Forbidden("you can only delete your own notifications")
	}
	if err := s.notifications.DeleteNotification(ctx, id); err != nil {
		return fmt.Errorf("service/notification: deleting %s: %w", id, err)
	}
	return nil
}
