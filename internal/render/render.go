// Package render projects sheet data into a bounded, formatted grid ready
// for display.
package render

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/fin-processor/backend/internal/models"
)

const (
	// DefaultMaxRows is the number of data rows shown before truncating.
	DefaultMaxRows = 100
	// DefaultPlaceholder replaces null cells.
	DefaultPlaceholder = "-"
	// EmptyMessage is shown instead of a grid when there is nothing to show.
	EmptyMessage = "No data available for the selected sheet"
)

// Integers above this magnitude lose precision in int64 conversion.
const maxExactInt = 1 << 53

// DisplayGrid is the rendered form of one sheet.
type DisplayGrid struct {
	Empty        bool
	EmptyMessage string
	Header       []string
	Rows         [][]string
	TotalRows    int
	Truncated    bool
	Shape        models.Shape
}

// Notice returns the truncation notice, or "" when every row is shown.
func (g DisplayGrid) Notice() string {
	if !g.Truncated {
		return ""
	}
	return fmt.Sprintf("Showing first %d of %d rows", len(g.Rows), g.TotalRows)
}

// ShapeLabel returns the "Shape: R rows × C columns" readout.
func (g DisplayGrid) ShapeLabel() string {
	return fmt.Sprintf("Shape: %d rows × %d columns", g.Shape.Rows, g.Shape.Cols)
}

// Renderer formats sheets for one locale. It holds no mutable state and is
// safe for concurrent use.
type Renderer struct {
	tag         language.Tag
	maxRows     int
	placeholder string
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLocale sets the locale used for number grouping.
func WithLocale(tag language.Tag) Option {
	return func(r *Renderer) { r.tag = tag }
}

// WithMaxRows sets the row limit. Non-positive values are ignored.
func WithMaxRows(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.maxRows = n
		}
	}
}

// WithPlaceholder sets the text used for null cells.
func WithPlaceholder(s string) Option {
	return func(r *Renderer) { r.placeholder = s }
}

// NewRenderer creates a renderer with English grouping, 100 rows and "-" for nulls.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		tag:         language.English,
		maxRows:     DefaultMaxRows,
		placeholder: DefaultPlaceholder,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ParseLocale parses a BCP 47 tag, falling back to English.
func ParseLocale(s string) language.Tag {
	tag, err := language.Parse(strings.TrimSpace(s))
	if err != nil {
		return language.English
	}
	return tag
}

var defaultRenderer = NewRenderer()

// Render renders sheet with the default renderer.
func Render(sheet *models.SheetData) DisplayGrid {
	return defaultRenderer.Render(sheet)
}

// MaxRows returns the configured row limit.
func (r *Renderer) MaxRows() int { return r.maxRows }

// Render projects sheet into a DisplayGrid. A nil sheet or a sheet with no
// rows yields an explicit empty state.
func (r *Renderer) Render(sheet *models.SheetData) DisplayGrid {
	if sheet == nil {
		return DisplayGrid{Empty: true, EmptyMessage: EmptyMessage}
	}
	if len(sheet.Rows) == 0 {
		return DisplayGrid{Empty: true, EmptyMessage: EmptyMessage, Shape: sheet.Shape}
	}

	p := message.NewPrinter(r.tag)

	header := make([]string, len(sheet.Columns))
	copy(header, sheet.Columns)

	n := len(sheet.Rows)
	if n > r.maxRows {
		n = r.maxRows
	}

	rows := make([][]string, n)
	for i := 0; i < n; i++ {
		src := sheet.Rows[i]
		row := make([]string, len(src))
		for j, c := range src {
			row[j] = r.formatCell(p, c)
		}
		rows[i] = row
	}

	return DisplayGrid{
		Header:    header,
		Rows:      rows,
		TotalRows: len(sheet.Rows),
		Truncated: len(sheet.Rows) > r.maxRows,
		Shape:     sheet.Shape,
	}
}

// FormatCell formats a single cell the way Render does.
func (r *Renderer) FormatCell(c models.Cell) string {
	return r.formatCell(message.NewPrinter(r.tag), c)
}

func (r *Renderer) formatCell(p *message.Printer, c models.Cell) string {
	switch c.Kind {
	case models.CellNumber:
		return formatNumber(p, c.Number)
	case models.CellString:
		return c.Text
	default:
		return r.placeholder
	}
}

func formatNumber(p *message.Printer, v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "∞"
	case math.IsInf(v, -1):
		return "-∞"
	}

	if v == math.Trunc(v) {
		if math.Abs(v) < maxExactInt {
			return p.Sprintf("%d", int64(v))
		}
		return p.Sprint(number.Decimal(v, number.MaxFractionDigits(0)))
	}

	// keep every significant fraction digit
	return p.Sprint(number.Decimal(v, number.MaxFractionDigits(fractionDigits(v))))
}

func fractionDigits(v float64) int {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	i := strings.IndexByte(s, '.')
	if i < 0 {
		return 0
	}
	return len(s) - i - 1
}
