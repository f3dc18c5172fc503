package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/faculty-review/internal/model"
	"github.com/sakif/faculty-review/internal/service"
)

// AuthHandler serves registration, login and the caller's own account.
//
// Tokens are returned in the body and sent back by the client as
// "Authorization: Bearer <token>". There is no cookie session.
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

func NewAuthHandler(auth *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// AuthResponse is the account fields flattened next to the token.
type AuthResponse struct {
	*model.User
	Token string `json:"token"`
}

type FavoritesResponse struct {
	Favorites []string `json:"favorites"`
}

// HandleRegister creates an account.
//
// HTTP: POST /api/auth/register
// BODY: {"name", "email", "password", "adminInvitationToken"?}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	res, err := h.auth.Register(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, AuthResponse{User: res.User, Token: res.Token})
}

// HandleLogin exchanges credentials for a token.
//
// HTTP: POST /api/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	res, err := h.auth.Login(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{User: res.User, Token: res.Token})
}

// HandleMe returns the authenticated account.
//
// HTTP: GET /api/auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Me(r.Context(), caller(r).UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HTTP: GET /api/auth/favorites
func (h *AuthHandler) HandleFavorites(w http.ResponseWriter, r *http.Request) {
	favs, err := h.auth.Favorites(r.Context(), caller(r).UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, favs)
}

// HTTP: POST /api/auth/favorites/{facultyId}
func (h *AuthHandler) HandleAddFavorite(w http.ResponseWriter, r *http.Request) {
	ids, err := h.auth.AddFavorite(r.Context(), caller(r).UserID, pathID(r, "facultyId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, FavoritesResponse{Favorites: ids})
}

// HTTP: DELETE /api/auth/favorites/{facultyId}
func (h *AuthHandler) HandleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	ids, err := h.auth.RemoveFavorite(r.Context(), caller(r).UserID, pathID(r, "facultyId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, FavoritesResponse{Favorites: ids})
}
