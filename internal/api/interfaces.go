// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"github.com/labstack/echo/v4"
)

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// UploadHandler handles workbook upload and extraction
type UploadHandler interface {
	HandleUpload(c echo.Context) error
}

// SheetsHandler publishes the sheet catalog
type SheetsHandler interface {
	HandleSheets(c echo.Context) error
}
