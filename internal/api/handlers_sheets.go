// handlers_sheets.go - Sheet catalog handler
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fin-processor/backend/internal/catalog"
	"github.com/fin-processor/backend/internal/processor"
)

// SheetsHandlerImpl implements the SheetsHandler interface
type SheetsHandlerImpl struct {
	catalog *catalog.Catalog
}

// NewSheetsHandler creates a catalog handler; a nil catalog uses the default.
func NewSheetsHandler(cat *catalog.Catalog) SheetsHandler {
	if cat == nil {
		cat = catalog.Default()
	}
	return &SheetsHandlerImpl{catalog: cat}
}

// HandleSheets lists the sheets the service extracts, in extraction order
func (h *SheetsHandlerImpl) HandleSheets(c echo.Context) error {
	entries := h.catalog.Entries()
	resp := processor.SheetsResponse{Sheets: make([]processor.SheetInfo, 0, len(entries))}
	for _, d := range entries {
		resp.Sheets = append(resp.Sheets, processor.SheetInfo{
			Key:     d.Key,
			Name:    d.DisplayName(),
			Display: d.LocalizedTitle,
			Accent:  string(d.Accent),
			Source:  d.Source,
		})
	}
	return c.JSON(http.StatusOK, resp)
}
