package testutil

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// StatementHeaderRow is the row BuildWorkbook writes headers to.
const StatementHeaderRow = 6

// SheetFixture describes one worksheet of a statement workbook.
type SheetFixture struct {
	Name   string
	Header []any
	Rows   [][]any
}

// BuildWorkbook lays out each fixture the way exported statements look:
// a title block on top, headers on row 6, data below.
func BuildWorkbook(t testing.TB, sheets ...SheetFixture) *excelize.File {
	t.Helper()

	f := excelize.NewFile()
	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.Name); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			t.Fatalf("new sheet %s: %v", s.Name, err)
		}

		setCell(t, f, s.Name, 1, 1, "Company: Test Holdings")
		setCell(t, f, s.Name, 1, 2, "Unit: VND")
		setRow(t, f, s.Name, StatementHeaderRow, s.Header)
		for r, row := range s.Rows {
			setRow(t, f, s.Name, StatementHeaderRow+1+r, row)
		}
	}
	return f
}

// WriteWorkbook saves the fixtures into dir and returns the file path.
func WriteWorkbook(t testing.TB, dir, name string, sheets ...SheetFixture) string {
	t.Helper()

	f := BuildWorkbook(t, sheets...)
	defer f.Close()

	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

// WorkbookBytes returns the encoded workbook.
func WorkbookBytes(t testing.TB, sheets ...SheetFixture) []byte {
	t.Helper()

	f := BuildWorkbook(t, sheets...)
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("encode workbook: %v", err)
	}
	return bytes.Clone(buf.Bytes())
}

// BalanceSheetFixture is a small CDKT sheet with one blank row and one blank column.
func BalanceSheetFixture() SheetFixture {
	return SheetFixture{
		Name:   "CDKT",
		Header: []any{"", "2023", "", "2024"},
		Rows: [][]any{
			{"Tài sản ngắn hạn", 1234567, nil, 2345678.5},
			{"", nil, nil, nil},
			{"Tiền", 100, nil, nil},
			{"Ghi chú", "n/a", nil, -42},
		},
	}
}

func setRow(t testing.TB, f *excelize.File, sheet string, row int, values []any) {
	t.Helper()
	for c, v := range values {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		setCell(t, f, sheet, c+1, row, v)
	}
}

func setCell(t testing.TB, f *excelize.File, sheet string, col, row int, v any) {
	t.Helper()
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		t.Fatalf("cell name: %v", err)
	}
	if err := f.SetCellValue(sheet, cell, v); err != nil {
		t.Fatalf("set %s!%s: %v", sheet, cell, err)
	}
}
