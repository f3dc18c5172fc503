package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/faculty-review/internal/service"
)

// FacultyHandler serves the public faculty directory and its admin CRUD.
type FacultyHandler struct {
	faculties *service.FacultyService
	reviews   *service.ReviewService
	logger    *slog.Logger
}

func NewFacultyHandler(faculties *service.FacultyService, reviews *service.ReviewService, logger *slog.Logger) *FacultyHandler {
	return &FacultyHandler{faculties: faculties, reviews: reviews, logger: logger}
}

// HTTP: GET /api/faculties
func (h *FacultyHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.faculties.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HTTP: GET /api/faculties/{id}
func (h *FacultyHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	f, err := h.faculties.Get(r.Context(), pathID(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// HTTP: GET /api/faculties/{id}/reviews
func (h *FacultyHandler) HandleReviews(w http.ResponseWriter, r *http.Request) {
	list, err := h.reviews.ListByFaculty(r.Context(), pathID(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleCreate adds a faculty. averageRating and totalReviews in the body
// are ignored; unknown fields are dropped by the decoder.
//
// HTTP: POST /api/faculties (admin)
func (h *FacultyHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.CreateFacultyInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	f, err := h.faculties.Create(r.Context(), caller(r).UserID, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// HandleUpdate applies a partial update and an optional adminReviews
// reconcile. Each adminReviews entry is one of
//
//	{"rating", "text"}           insert
//	{"_id", "rating"?, "text"?}  update
//	{"_id", "_delete": true}     delete
//
// HTTP: PUT /api/faculties/{id} (admin)
func (h *FacultyHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in service.UpdateFacultyInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	f, err := h.faculties.Update(r.Context(), caller(r).UserID, pathID(r, "id"), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// HTTP: DELETE /api/faculties/{id} (admin)
func (h *FacultyHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.faculties.Delete(r.Context(), caller(r).UserID, pathID(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Faculty deleted"})
}
