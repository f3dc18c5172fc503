package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/faculty-review/internal/service"
)

type NotificationHandler struct {
	notifications *service.NotificationService
	logger        *slog.Logger
}

func NewNotificationHandler(notifications *service.NotificationService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, logger: logger}
}

// HTTP: GET /api/user/notifications/my
func (h *NotificationHandler) HandleMine(w http.ResponseWriter, r *http.Request) {
	list, err := h.notifications.ListMine(r.Context(), caller(r).UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HTTP: DELETE /api/user/notifications/{id}
func (h *NotificationHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.notifications.Delete(r.Context(), caller(r).UserID, pathID(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Notification deleted"})
}
