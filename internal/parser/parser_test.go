package parser

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fin-processor/backend/internal/models"
	"github.com/fin-processor/backend/internal/testutil"
)

func TestParseCell(t *testing.T) {
	tests := []struct {
		raw  string
		want models.Cell
	}{
		{"", models.NullCell()},
		{"42", models.NumberCell(42)},
		{"-1234.5", models.NumberCell(-1234.5)},
		{"1e3", models.NumberCell(1000)},
		{"Tiền", models.StringCell("Tiền")},
		{"NaN", models.StringCell("NaN")},
		{"inf", models.StringCell("inf")},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, parseCell(tt.raw))
		})
	}
}

func TestColumnNames(t *testing.T) {
	names := columnNames([]string{"ignored", "2023", "", "2023", "2023", "2023.1"}, 7, "Chỉ tiêu")
	assert.Equal(t, []string{"Chỉ tiêu", "2023", "Unnamed: 2", "2023.1", "2023.2", "2023.1.1", "Unnamed: 6"}, names)
}

func TestExtractSheet(t *testing.T) {
	rows := [][]string{
		{"title"}, {}, {}, {}, {},
		{"", "2023", "", "2024"},
		{"Revenue", "100", "", "200"},
		{"", "", "", ""},
		{"Notes"},
		{"Cost", "-50.5"},
	}

	sheet, err := extractSheet(rows, Options{HeaderRow: 6, IndexLabel: "Item"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Item", "2023", "2024"}, sheet.Columns)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, []models.Cell{models.StringCell("Revenue"), models.NumberCell(100), models.NumberCell(200)}, sheet.Rows[0])
	assert.Equal(t, []models.Cell{models.StringCell("Cost"), models.NumberCell(-50.5), models.NullCell()}, sheet.Rows[1])
	assert.Equal(t, models.Shape{Rows: 2, Cols: 3}, sheet.Shape)
}

func TestExtractSheet_TooShort(t *testing.T) {
	_, err := extractSheet([][]string{{"a"}, {"b"}}, Options{HeaderRow: 6, IndexLabel: "Item"})
	assert.Error(t, err)
}

func TestExtractSheet_HeaderOnly(t *testing.T) {
	rows := [][]string{{}, {}, {}, {}, {}, {"", "2023"}}
	sheet, err := extractSheet(rows, Options{HeaderRow: 6, IndexLabel: "Item"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Item"}, sheet.Columns)
	assert.Empty(t, sheet.Rows)
}

func TestWorkbookParser_Parse(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteWorkbook(t, dir, "report.xlsx",
		testutil.BalanceSheetFixture(),
		testutil.SheetFixture{
			Name:   "kqkd",
			Header: []any{"", "Q1"},
			Rows:   [][]any{{"Doanh thu", 500}},
		},
	)

	p := NewWorkbookParser()
	ok, err := p.CanParse(path)
	require.NoError(t, err)
	require.True(t, ok)

	res, err := p.Parse(context.Background(), path, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"balance_sheet", "income_statement"}, res.Data.Keys())
	assert.Equal(t, []string{"CDKT", "KQKD"}, res.Processed)
	assert.Equal(t, []string{"CSTC"}, res.Skipped)

	bs, ok := res.Data.Sheet("balance_sheet")
	require.True(t, ok)
	assert.Equal(t, []string{DefaultIndexLabel, "2023", "2024"}, bs.Columns)
	assert.Equal(t, models.Shape{Rows: 3, Cols: 3}, bs.Shape)
	assert.Equal(t, models.NumberCell(1234567), bs.Rows[0][1])
	assert.Equal(t, models.NumberCell(2345678.5), bs.Rows[0][2])
	assert.Equal(t, models.StringCell("n/a"), bs.Rows[2][1])
	assert.True(t, bs.Rows[1][2].IsNull())

	is, ok := res.Data.Sheet("income_statement")
	require.True(t, ok)
	assert.Equal(t, []string{DefaultIndexLabel, "Q1"}, is.Columns)
}

func TestWorkbookParser_NoValidSheets(t *testing.T) {
	path := testutil.WriteWorkbook(t, t.TempDir(), "other.xlsx", testutil.SheetFixture{
		Name:   "Summary",
		Header: []any{"", "x"},
		Rows:   [][]any{{"a", 1}},
	})

	_, err := NewWorkbookParser().Parse(context.Background(), path, DefaultOptions())
	assert.ErrorIs(t, err, ErrNoValidSheets)
}

func TestWorkbookParser_CancelledContext(t *testing.T) {
	path := testutil.WriteWorkbook(t, t.TempDir(), "report.xlsx", testutil.BalanceSheetFixture())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewWorkbookParser().Parse(ctx, path, DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegistry_FindParser(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry()

	xlsx := testutil.WriteWorkbook(t, dir, "ok.xlsx", testutil.BalanceSheetFixture())
	p, err := reg.FindParser(xlsx)
	require.NoError(t, err)
	assert.Equal(t, "xlsx", p.Name())

	legacy := filepath.Join(dir, "old.xls")
	require.NoError(t, os.WriteFile(legacy, append(append([]byte{}, ole2Magic...), make([]byte, 64)...), 0o644))
	_, err = reg.FindParser(legacy)
	assert.ErrorIs(t, err, ErrLegacyFormat)

	junk := filepath.Join(dir, "junk.xlsx")
	require.NoError(t, os.WriteFile(junk, []byte("not a workbook"), 0o644))
	_, err = reg.FindParser(junk)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = reg.GetParserByName("XLSX")
	assert.NoError(t, err)
	_, err = reg.GetParserByName("csv")
	assert.Error(t, err)
}
