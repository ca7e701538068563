package processor

import (
	"fmt"
	"strings"

	"github.com/fin-processor/backend/internal/models"
)

// Format is the response encoding requested from the service.
type Format string

const (
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

const (
	MIMEApplicationJSON    = "application/json"
	MIMEApplicationMsgpack = "application/msgpack"
)

// ParseFormat accepts "json" or "msgpack" (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON, "":
		return FormatJSON, nil
	case FormatMsgpack:
		return FormatMsgpack, nil
	}
	return "", fmt.Errorf("unknown response format %q", s)
}

// MediaType returns the MIME type for the format.
func (f Format) MediaType() string {
	if f == FormatMsgpack {
		return MIMEApplicationMsgpack
	}
	return MIMEApplicationJSON
}

// IsMsgpackMediaType reports whether a Content-Type or Accept value names msgpack.
func IsMsgpackMediaType(v string) bool {
	v = strings.ToLower(v)
	return strings.Contains(v, "msgpack")
}

// UploadResponse is the body of POST /api/upload.
type UploadResponse struct {
	Message         string            `json:"message,omitempty" msgpack:"message,omitempty"`
	Data            *models.ResultSet `json:"data,omitempty" msgpack:"data,omitempty"`
	ProcessedSheets []string          `json:"processed_sheets,omitempty" msgpack:"processed_sheets,omitempty"`
	Error           string            `json:"error,omitempty" msgpack:"error,omitempty"`
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// SheetInfo describes one sheet the service knows how to extract.
type SheetInfo struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Display string `json:"display"`
	Accent  string `json:"accent,omitempty"`
	Source  string `json:"source,omitempty"`
}

// SheetsResponse is the body of GET /api/sheets.
type SheetsResponse struct {
	Sheets []SheetInfo `json:"sheets"`
}

// UploadResult is a successfully decoded upload.
type UploadResult struct {
	Message         string
	ProcessedSheets []string
	Data            *models.ResultSet
}
