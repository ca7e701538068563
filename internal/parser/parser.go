package parser

import (
	"context"
	"errors"
	"math"
	"strconv"

	"github.com/fin-processor/backend/internal/catalog"
	"github.com/fin-processor/backend/internal/models"
)

var (
	// ErrNoValidSheets is returned when none of the requested sheets could be read.
	ErrNoValidSheets = errors.New("no valid sheets found in the workbook")
	// ErrLegacyFormat is returned for binary .xls (OLE2) workbooks.
	ErrLegacyFormat = errors.New("legacy binary .xls workbooks are not supported")
	// ErrUnsupportedFormat is returned when no parser recognises the file.
	ErrUnsupportedFormat = errors.New("unsupported workbook format")
)

// DefaultHeaderRow is the 1-based row holding the column headers.
const DefaultHeaderRow = 6

// DefaultIndexLabel names the first (row label) column.
const DefaultIndexLabel = "Chỉ tiêu"

// SheetSpec maps a result key to the workbook sheet it is read from.
type SheetSpec struct {
	Key    string
	Source string
}

// Options controls extraction.
type Options struct {
	Sheets     []SheetSpec
	HeaderRow  int
	IndexLabel string
}

// DefaultOptions reads every sheet in the embedded catalog.
func DefaultOptions() Options {
	return OptionsFromCatalog(catalog.Default())
}

// OptionsFromCatalog reads every catalog entry that names a source sheet.
func OptionsFromCatalog(cat *catalog.Catalog) Options {
	var specs []SheetSpec
	for _, d := range cat.Entries() {
		if d.Source == "" {
			continue
		}
		specs = append(specs, SheetSpec{Key: d.Key, Source: d.Source})
	}
	return Options{
		Sheets:     specs,
		HeaderRow:  DefaultHeaderRow,
		IndexLabel: DefaultIndexLabel,
	}
}

func (o Options) withDefaults() Options {
	if o.HeaderRow <= 0 {
		o.HeaderRow = DefaultHeaderRow
	}
	if o.IndexLabel == "" {
		o.IndexLabel = DefaultIndexLabel
	}
	return o
}

// Result is the outcome of parsing one workbook.
type Result struct {
	Data      *models.ResultSet
	Processed []string // source sheet names, in extraction order
	Skipped   []string
}

// Parser defines the interface for workbook parsers.
type Parser interface {
	// Name returns the unique name of the parser.
	Name() string
	// CanParse returns true if this parser can handle the given file.
	CanParse(filePath string) (bool, error)
	// Parse extracts the requested sheets.
	Parse(ctx context.Context, filePath string, opts Options) (*Result, error)
}

// parseCell converts a raw cell string: empty is null, numeric text is a
// number, anything else is kept as text.
func parseCell(raw string) models.Cell {
	if raw == "" {
		return models.NullCell()
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return models.NumberCell(f)
	}
	return models.StringCell(raw)
}
