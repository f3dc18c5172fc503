package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/faculty-review/internal/apperror"
	"github.com/sakif/faculty-review/internal/service"
)

// AdminHandler serves /api/admin. The router mounts it behind
// auth.RequireRole(model.RoleAdmin).
type AdminHandler struct {
	admin  *service.AdminService
	logger *slog.Logger
}

func NewAdminHandler(admin *service.AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, logger: logger}
}

// HTTP: GET /api/admin/metrics
func (h *AdminHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	m, err := h.admin.Metrics(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// HTTP: GET /api/admin/users?search=
func (h *AdminHandler) HandleUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.ListUsers(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// HTTP: GET /api/admin/users/{id}/reviews
func (h *AdminHandler) HandleUserReviews(w http.ResponseWriter, r *http.Request) {
	list, err := h.admin.UserReviews(r.Context(), pathID(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HTTP: DELETE /api/admin/users/{id}
func (h *AdminHandler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.DeleteUser(r.Context(), caller(r).UserID, pathID(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "User and their reviews deleted"})
}

// HTTP: GET /api/admin/flagged-reviews
func (h *AdminHandler) HandleFlaggedReviews(w http.ResponseWriter, r *http.Request) {
	list, err := h.admin.FlaggedReviews(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HTTP: DELETE /api/admin/reviews/{id}
func (h *AdminHandler) HandleDeleteReview(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.DeleteReview(r.Context(), pathID(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Review deleted"})
}

// HTTP: GET /api/admin/activities?limit=
func (h *AdminHandler) HandleActivities(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, h.logger, apperror.ValidationFailed("limit", "limit must be a positive integer"))
			return
		}
		limit = n
	}
	list, err := h.admin.RecentActivities(r.Context(), limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
