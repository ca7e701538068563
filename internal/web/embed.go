// Package web serves the browser viewer: embedded page templates and static
// assets, per-browser upload sessions and a websocket status push.
package web

import (
	"embed"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/fin-processor/backend/internal/models"
)

//go:embed templates/*.html static/*
var assets embed.FS

// GetFileSystem returns the embedded static assets with the static folder as root.
func GetFileSystem() (fs.FS, error) {
	return fs.Sub(assets, "static")
}

// RegisterStaticRoutes serves the embedded assets under /static/.
func RegisterStaticRoutes(e *echo.Echo) error {
	staticFS, err := GetFileSystem()
	if err != nil {
		return err
	}

	fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
	e.GET("/static/*", echo.WrapHandler(fileServer))
	return nil
}

// TemplateRenderer implements echo.Renderer over the embedded templates.
type TemplateRenderer struct {
	templates *template.Template
}

var funcs = template.FuncMap{
	"healthClass": func(h models.ServiceHealth) string {
		return "health-" + string(h)
	},
	"upper": strings.ToUpper,
}

// NewTemplateRenderer parses the embedded page templates.
func NewTemplateRenderer() (*TemplateRenderer, error) {
	t, err := template.New("").Funcs(funcs).ParseFS(assets, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &TemplateRenderer{templates: t}, nil
}

// Render executes the named template.
func (r *TemplateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}
