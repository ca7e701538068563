package httperr

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/fin-processor/backend/internal/logging"
)

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		details    bool
		wantStatus int
		wantBody   string
	}{
		{
			name:       "api error",
			err:        NewValidationError("No file selected"),
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"code":"VALIDATION_ERROR","error":"No file selected"}`,
		},
		{
			name:       "wrapped api error",
			err:        fmt.Errorf("upload: %w", NewNotFoundError("sheet", "cash_flow")),
			wantStatus: http.StatusNotFound,
			wantBody:   `{"code":"NOT_FOUND","error":"sheet not found: cash_flow"}`,
		},
		{
			name:       "echo http error",
			err:        echo.NewHTTPError(http.StatusRequestEntityTooLarge, "Request Entity Too Large"),
			wantStatus: http.StatusRequestEntityTooLarge,
			wantBody:   `{"code":"HTTP_ERROR","error":"Request Entity Too Large"}`,
		},
		{
			name:       "unknown error hides details",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"code":"UNKNOWN_ERROR","error":"An unexpected error occurred"}`,
		},
		{
			name:       "unknown error with details",
			err:        errors.New("boom"),
			details:    true,
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"code":"UNKNOWN_ERROR","error":"An unexpected error occurred","details":"boom"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			NewErrorHandler(logging.Discard(), tt.details)(tt.err, c)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	err := NewBadRequestError("bad", errors.New("cause"))
	assert.Equal(t, "BAD_REQUEST: bad", err.Error())
	assert.Equal(t, "cause", err.Details)
}
