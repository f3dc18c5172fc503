package auth

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/faculty-review/internal/apperror"
	"github.com/sakif/faculty-review/internal/model"
)

type fakeUsers map[string]*model.User

func (f fakeUsers) GetUserByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return u, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// echoIdentity writes the caller's user id and role.
var echoIdentity = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())
	_, _ = io.WriteString(w, id.UserID+":"+string(id.Role))
})

func TestRequireAuth(t *testing.T) {
	ts := newTestTokenService(t)
	users := fakeUsers{
		"u1": {ID: "u1", Name: "Alice", Role: model.RoleUser},
	}
	valid, _ := ts.Generate("u1", model.RoleUser)
	// The role claim says admin, but the stored account wins.
	stale, _ := ts.Generate("u1", model.RoleAdmin)
	ghost, _ := ts.Generate("deleted", model.RoleUser)
	expired, _ := ts.GenerateWithDuration("u1", model.RoleUser, -time.Minute)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"valid", "Bearer " + valid, http.StatusOK, "u1:user"},
		{"lowercase scheme", "bearer " + valid, http.StatusOK, "u1:user"},
		{"stored role wins", "Bearer " + stale, http.StatusOK, "u1:user"},
		{"no header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, ""},
		{"empty token", "Bearer ", http.StatusUnauthorized, ""},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, ""},
		{"deleted account", "Bearer " + ghost, http.StatusUnauthorized, ""},
	}

	h := RequireAuth(ts, users, discardLogger())(echoIdentity)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			} else {
				assert.Contains(t, rec.Body.String(), `"error":"unauthorized"`)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(model.RoleAdmin)(echoIdentity)

	run := func(ctx context.Context) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := run(WithIdentity(context.Background(), Identity{UserID: "a1", Role: model.RoleAdmin}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a1:admin", rec.Body.String())

	rec = run(WithIdentity(context.Background(), Identity{UserID: "u1", Role: model.RoleUser}))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = run(context.Background())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type brokenUsers struct{}

func (brokenUsers) GetUserByID(context.Context, string) (*model.User, error) {
	return nil, errors.New("connection reset")
}

func TestRequireAuth_StoreFailureIsLoggedWithUserID(t *testing.T) {
	ts := newTestTokenService(t)
	token, _ := ts.Generate("u1", model.RoleUser)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	RequireAuth(ts, brokenUsers{}, logger)(echoIdentity).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, buf.String(), "userID=u1")
	assert.Contains(t, buf.String(), `error="connection reset"`)
}
