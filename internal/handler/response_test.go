package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/faculty-review/internal/apperror"
)

func TestWriteError_StatusMapping(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name   string
		err    error
		status int
		kind   string
		field  string
	}{
		{"validation", apperror.ValidationFailed("rating", "rating must be between 1 and 5"), 400, "validation_error", "rating"},
		{"unauthorized", apperror.Unauthorized("invalid email or password"), 401, "unauthorized", ""},
		{"forbidden", apperror.Forbidden("you can only edit your own reviews"), 403, "forbidden", ""},
		{"not found", apperror.NotFound("faculty", "x"), 404, "not_found", ""},
		{"conflict", apperror.Conflict("you have already flagged this review"), 409, "conflict", ""},
		{"wrapped", fmt.Errorf("service/review: %w", apperror.NotFound("review", "y")), 404, "not_found", ""},
		{"unknown", errors.New("connection reset by peer"), 500, "internal_error", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, logger, tt.err)

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.Equal(t, tt.kind, body.Error)
			assert.Equal(t, tt.field, body.Field)
			if tt.status == 500 {
				assert.NotContains(t, body.Message, "connection reset")
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"name":"AAC"}`, false},
		{"unknown fields ignored", `{"name":"AAC","averageRating":5}`, false},
		{"empty", ``, true},
		{"malformed", `{"name":`, true},
		{"two objects", `{"name":"a"} {"name":"b"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := decodeJSON(httptest.NewRecorder(), req, &p)
			if tt.wantErr {
				assert.True(t, apperror.Is(err, apperror.ErrValidation), "error = %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "AAC", p.Name)
		})
	}
}

func TestDecodeJSON_TooLarge(t *testing.T) {
	body := `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var p struct {
		Name string `json:"name"`
	}
	err := decodeJSON(httptest.NewRecorder(), req, &p)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "request body too large", appErr.Message)
}
