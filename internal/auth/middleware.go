package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/faculty-review/internal/apperror"
	"github.com/sakif/faculty-review/internal/model"
)

// contextKey keeps our context values private to this package.
type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated caller as loaded from the store.
type Identity struct {
	UserID string
	Name   string
	Email  string
	Role   model.Role
}

func (i Identity) IsAdmin() bool { return i.Role == model.RoleAdmin }

// UserLookup is the slice of the user repository the middleware needs.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// RequireAuth reads "Authorization: Bearer <jwt>", validates it and loads
// the account. Missing, invalid or expired tokens and tokens for accounts
// that no longer exist all get 401.
func RequireAuth(tokens *TokenService, users UserLookup, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				unauthorized(w, "authentication required")
				return
			}
			c, err := tokens.Validate(raw)
			if err != nil {
				unauthorized(w, "invalid or expired token")
				return
			}

			u, err := users.GetUserByID(r.Context(), c.UserID)
			if err != nil {
				if !apperror.Is(err, apperror.ErrNotFound) {
					logger.Error("loading authenticated user",
						slog.String("userID", c.UserID),
						slog.String("error", err.Error()),
					)
				}
				unauthorized(w, "account no longer exists")
				return
			}

			id := Identity{UserID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole must run after RequireAuth. Callers without role get 403.
func RequireRole(role model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				unauthorized(w, "authentication required")
				return
			}
			if id.Role != role {
				writeAuthError(w, http.StatusForbidden, "forbidden", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the caller set by RequireAuth.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != ""
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, message string) {
	writeAuthError(w, http.StatusUnauthorized, "unauthorized", message)
}

func writeAuthError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// kind and message are fixed strings without quotes.
	_, _ = w.Write([]byte(`{"error":"` + kind + `","message":"` + message + `"}`))
}
