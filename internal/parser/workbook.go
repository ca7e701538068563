package parser

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/fin-processor/backend/internal/logging"
	"github.com/fin-processor/backend/internal/models"
)

// WorkbookParser extracts financial tables from Office Open XML workbooks.
type WorkbookParser struct {
	log *logrus.Entry
}

// NewWorkbookParser creates the .xlsx parser.
func NewWorkbookParser() *WorkbookParser {
	return &WorkbookParser{log: logging.NewLogger("parser")}
}

func (p *WorkbookParser) Name() string { return "xlsx" }

// CanParse checks for the zip container signature.
func (p *WorkbookParser) CanParse(filePath string) (bool, error) {
	return hasMagic(filePath, zipMagic)
}

// Parse reads every sheet in opts.Sheets. Missing or unreadable sheets are
// skipped; ErrNoValidSheets is returned when nothing could be read.
func (p *WorkbookParser) Parse(ctx context.Context, filePath string, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	available := f.GetSheetList()
	res := &Result{Data: models.NewResultSet()}

	for _, spec := range opts.Sheets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		log := p.log.WithFields(logrus.Fields{"sheet": spec.Source, "key": spec.Key})

		name, ok := resolveSheet(available, spec.Source)
		if !ok {
			log.Warn("sheet not found in workbook")
			res.Skipped = append(res.Skipped, spec.Source)
			continue
		}

		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			log.WithError(err).Warn("could not read sheet")
			res.Skipped = append(res.Skipped, spec.Source)
			continue
		}

		sheet, err := extractSheet(rows, opts)
		if err != nil {
			log.WithError(err).Warn("could not extract sheet")
			res.Skipped = append(res.Skipped, spec.Source)
			continue
		}

		res.Data.Add(spec.Key, sheet)
		res.Processed = append(res.Processed, spec.Source)
		log.WithField("shape", fmt.Sprintf("%dx%d", sheet.Shape.Rows, sheet.Shape.Cols)).Debug("sheet extracted")
	}

	if res.Data.Len() == 0 {
		return nil, ErrNoValidSheets
	}
	return res, nil
}

// resolveSheet matches exactly first, then ignoring case and surrounding space.
func resolveSheet(available []string, want string) (string, bool) {
	for _, name := range available {
		if name == want {
			return name, true
		}
	}
	for _, name := range available {
		if strings.EqualFold(strings.TrimSpace(name), strings.TrimSpace(want)) {
			return name, true
		}
	}
	return "", false
}

// extractSheet turns raw rows into a table. The header row supplies column
// names and the first column holds row labels. Rows with no data values are
// dropped, then columns with no remaining values.
func extractSheet(rows [][]string, opts Options) (*models.SheetData, error) {
	hdr := opts.HeaderRow - 1
	if len(rows) <= hdr {
		return nil, fmt.Errorf("sheet has %d rows, header expected on row %d", len(rows), opts.HeaderRow)
	}

	header := rows[hdr]
	body := rows[hdr+1:]

	width := len(header)
	for _, r := range body {
		if len(r) > width {
			width = len(r)
		}
	}
	if width == 0 {
		width = 1
	}

	var kept [][]models.Cell
	for _, raw := range body {
		row := make([]models.Cell, width)
		hasData := false
		for j := 0; j < width; j++ {
			if j < len(raw) {
				row[j] = parseCell(raw[j])
			}
			if j > 0 && !row[j].IsNull() {
				hasData = true
			}
		}
		if hasData {
			kept = append(kept, row)
		}
	}

	// the label column always stays
	keepCol := make([]bool, width)
	keepCol[0] = true
	for _, row := range kept {
		for j := 1; j < width; j++ {
			if !row[j].IsNull() {
				keepCol[j] = true
			}
		}
	}

	names := columnNames(header, width, opts.IndexLabel)

	var columns []string
	for j := 0; j < width; j++ {
		if keepCol[j] {
			columns = append(columns, names[j])
		}
	}

	out := make([][]models.Cell, len(kept))
	for i, row := range kept {
		cells := make([]models.Cell, 0, len(columns))
		for j := 0; j < width; j++ {
			if keepCol[j] {
				cells = append(cells, row[j])
			}
		}
		out[i] = cells
	}

	return models.NewSheetData(columns, out)
}

// columnNames labels blank headers "Unnamed: N" and suffixes repeats with ".1", ".2", ...
func columnNames(header []string, width int, indexLabel string) []string {
	names := make([]string, width)
	seen := make(map[string]int, width)
	names[0] = indexLabel
	seen[indexLabel] = 1

	for j := 1; j < width; j++ {
		name := ""
		if j < len(header) {
			name = header[j]
		}
		if strings.TrimSpace(name) == "" {
			name = "Unnamed: " + strconv.Itoa(j)
		}

		base := name
		for n := seen[base]; n > 0; n = seen[base] {
			name = base + "." + strconv.Itoa(n)
			seen[base]++
			if seen[name] == 0 {
				break
			}
		}
		seen[name]++
		names[j] = name
	}
	return names
}
