package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/faculty-review/internal/service"
)

type VisitorHandler struct {
	visitors *service.VisitorService
	logger   *slog.Logger
}

func NewVisitorHandler(visitors *service.VisitorService, logger *slog.Logger) *VisitorHandler {
	return &VisitorHandler{visitors: visitors, logger: logger}
}

type visitRequest struct {
	VisitorID string `json:"visitorId"`
}

// HandleRecord upserts an anonymous visit. No authentication.
//
// HTTP: POST /api/visitor
// BODY: {"visitorId"}
func (h *VisitorHandler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	var in visitRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.visitors.Record(r.Context(), in.VisitorID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Visitor logged"})
}
