// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fin-processor/backend/internal/processor"
)

// DefaultHealthMessage is reported by GET /api/health.
const DefaultHealthMessage = "Processing service is running"

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	message string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string) HealthHandler {
	msg := DefaultHealthMessage
	if version != "" {
		msg += " (" + version + ")"
	}
	return &HealthHandlerImpl{message: msg}
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, processor.HealthResponse{
		Status:  "healthy",
		Message: h.message,
	})
}
