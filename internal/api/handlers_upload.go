// handlers_upload.go - Workbook upload handler
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/fin-processor/backend/internal/logging"
	"github.com/fin-processor/backend/internal/parser"
	"github.com/fin-processor/backend/internal/processor"
	"github.com/fin-processor/backend/internal/storage"
	"github.com/fin-processor/backend/internal/upload"
)

// Messages returned in the "error" field of a failed upload.
const (
	MsgNoFileProvided  = "No file provided"
	MsgNoFileSelected  = "No file selected"
	MsgInvalidFileType = "Invalid file type. Please upload .xlsx or .xls files"
	MsgNoValidSheets   = "No valid sheets found in the Excel file"
	MsgLegacyWorkbook  = "Legacy .xls workbooks are not supported. Please save the file as .xlsx"
	MsgStoreFailed     = "Could not store the uploaded file"
)

// UploadHandlerImpl implements the UploadHandler interface
type UploadHandlerImpl struct {
	store    storage.Store
	registry *parser.Registry
	opts     parser.Options
	allowed  []string
	log      *logrus.Entry
}

// NewUploadHandler creates a new upload handler instance
func NewUploadHandler(store storage.Store, registry *parser.Registry, opts parser.Options, allowed []string) UploadHandler {
	if registry == nil {
		registry = parser.GetGlobalRegistry()
	}
	return &UploadHandlerImpl{
		store:    store,
		registry: registry,
		opts:     opts,
		allowed:  allowed,
		log:      logging.NewLogger("api"),
	}
}

// HandleUpload stores the workbook, extracts the configured sheets and
// removes the stored copy.
func (h *UploadHandlerImpl) HandleUpload(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return uploadFailure(c, http.StatusBadRequest, MsgNoFileProvided)
	}
	if strings.TrimSpace(file.Filename) == "" {
		return uploadFailure(c, http.StatusBadRequest, MsgNoFileSelected)
	}
	if !upload.IsAllowedExtension(file.Filename, h.allowed) {
		return uploadFailure(c, http.StatusBadRequest, MsgInvalidFileType)
	}

	src, err := file.Open()
	if err != nil {
		return uploadFailure(c, http.StatusBadRequest, MsgNoFileProvided)
	}
	defer src.Close()

	info, err := h.store.Save(file.Filename, src)
	if err != nil {
		h.log.WithError(err).Error("failed to store upload")
		return uploadFailure(c, http.StatusInternalServerError, MsgStoreFailed)
	}
	defer func() {
		if err := h.store.Delete(info.ID); err != nil {
			h.log.WithError(err).WithField("id", info.ID).Warn("could not delete stored upload")
		}
	}()

	log := h.log.WithFields(logrus.Fields{"file": info.Name, "size": info.Size})

	path, err := h.store.GetFilePath(info.ID)
	if err != nil {
		return uploadFailure(c, http.StatusInternalServerError, MsgStoreFailed)
	}

	p, err := h.registry.FindParser(path)
	if err != nil {
		if errors.Is(err, parser.ErrLegacyFormat) {
			return uploadFailure(c, http.StatusUnprocessableEntity, MsgLegacyWorkbook)
		}
		log.WithError(err).Warn("unrecognised workbook")
		return uploadFailure(c, http.StatusBadRequest, MsgNoValidSheets)
	}

	res, err := p.Parse(c.Request().Context(), path, h.opts)
	if err != nil {
		log.WithError(err).Warn("extraction failed")
		return uploadFailure(c, http.StatusBadRequest, MsgNoValidSheets)
	}

	log.WithField("sheets", res.Processed).Info("workbook processed")

	return respond(c, http.StatusOK, processor.UploadResponse{
		Message:         fmt.Sprintf("Successfully processed %d sheets", len(res.Processed)),
		ProcessedSheets: res.Processed,
		Data:            res.Data,
	})
}

func uploadFailure(c echo.Context, status int, msg string) error {
	return respond(c, status, processor.UploadResponse{Error: msg})
}
