// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/fin-processor/backend/internal/catalog"
	"github.com/fin-processor/backend/internal/httperr"
	"github.com/fin-processor/backend/internal/parser"
	"github.com/fin-processor/backend/internal/storage"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store             storage.Store
	Registry          *parser.Registry
	Catalog           *catalog.Catalog
	Options           parser.Options
	AllowedExtensions []string
	Version           string
}

// Handlers holds all handler instances
type Handlers struct {
	Health HealthHandler
	Upload UploadHandler
	Sheets SheetsHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	cat := deps.Catalog
	if cat == nil {
		cat = catalog.Default()
	}
	opts := deps.Options
	if len(opts.Sheets) == 0 {
		opts.Sheets = parser.OptionsFromCatalog(cat).Sheets
	}
	return &Handlers{
		Health: NewHealthHandler(deps.Version),
		Upload: NewUploadHandler(deps.Store, deps.Registry, opts, deps.AllowedExtensions),
		Sheets: NewSheetsHandler(cat),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")
	apiGroup.GET("/health", handlers.Health.HandleHealth)
	apiGroup.GET("/sheets", handlers.Sheets.HandleSheets)
	apiGroup.POST("/upload", handlers.Upload.HandleUpload)
}

// MiddlewareConfig selects the optional middleware.
type MiddlewareConfig struct {
	BodyLimit      string
	EnableCORS     bool
	AllowOrigins   []string
	RequestLogging bool
	ShowDetails    bool
	Log            *logrus.Entry
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, cfg MiddlewareConfig) {
	e.HTTPErrorHandler = httperr.NewErrorHandler(cfg.Log, cfg.ShowDetails)

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !cfg.RequestLogging {
				return true
			}
			return strings.HasSuffix(c.Request().URL.Path, "/health")
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	if cfg.EnableCORS {
		origins := cfg.AllowOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
}
