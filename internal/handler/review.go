package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/faculty-review/internal/service"
)

// ReviewHandler serves the caller's reviews and the reaction endpoints.
type ReviewHandler struct {
	reviews   *service.ReviewService
	reactions *service.ReactionService
	logger    *slog.Logger
}

func NewReviewHandler(reviews *service.ReviewService, reactions *service.ReactionService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, reactions: reactions, logger: logger}
}

// HTTP: POST /api/user/reviews
// BODY: {"faculty", "rating", "text"?}
func (h *ReviewHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.CreateReviewInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	review, err := h.reviews.Create(r.Context(), caller(r).UserID, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

// HTTP: GET /api/user/reviews/my
func (h *ReviewHandler) HandleMine(w http.ResponseWriter, r *http.Request) {
	list, err := h.reviews.ListMine(r.Context(), caller(r).UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HTTP: PUT /api/user/reviews/{id}
func (h *ReviewHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in service.UpdateReviewInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	review, err := h.reviews.Update(r.Context(), caller(r).UserID, pathID(r, "id"), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

// HTTP: DELETE /api/user/reviews/{id}
func (h *ReviewHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.reviews.Delete(r.Context(), caller(r).UserID, pathID(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Review deleted"})
}

// HTTP: POST /api/reviews/{id}/like
func (h *ReviewHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	state, err := h.reactions.ToggleLike(r.Context(), pathID(r, "id"), caller(r).UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// HTTP: POST /api/reviews/{id}/dislike
func (h *ReviewHandler) HandleDislike(w http.ResponseWriter, r *http.Request) {
	state, err := h.reactions.ToggleDislike(r.Context(), pathID(r, "id"), caller(r).UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// HTTP: POST /api/reviews/{id}/flag
func (h *ReviewHandler) HandleFlag(w http.ResponseWriter, r *http.Request) {
	res, err := h.reactions.Flag(r.Context(), pathID(r, "id"), caller(r).UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
