package render

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/fin-processor/backend/internal/models"
)

func makeSheet(t *testing.T, rows int) *models.SheetData {
	t.Helper()
	data := make([][]models.Cell, rows)
	for i := range data {
		data[i] = []models.Cell{
			models.StringCell(fmt.Sprintf("item %d", i)),
			models.NumberCell(float64(i * 1000)),
		}
	}
	s, err := models.NewSheetData([]string{"Chỉ tiêu", "2024"}, data)
	require.NoError(t, err)
	return s
}

func TestRender_Truncates(t *testing.T) {
	g := Render(makeSheet(t, 250))

	assert.False(t, g.Empty)
	assert.Len(t, g.Rows, 100)
	assert.Equal(t, 250, g.TotalRows)
	assert.True(t, g.Truncated)
	assert.Equal(t, "Showing first 100 of 250 rows", g.Notice())
	assert.Equal(t, "item 0", g.Rows[0][0])
	assert.Equal(t, "item 99", g.Rows[99][0])
}

func TestRender_NoTruncation(t *testing.T) {
	g := Render(makeSheet(t, 100))

	assert.Len(t, g.Rows, 100)
	assert.Equal(t, 100, g.TotalRows)
	assert.False(t, g.Truncated)
	assert.Empty(t, g.Notice())
}

func TestRender_HeaderUnmodified(t *testing.T) {
	s, err := models.NewSheetData([]string{"Chỉ tiêu", " 2024 ", "Unnamed: 3"},
		[][]models.Cell{{models.NullCell(), models.NullCell(), models.NullCell()}})
	require.NoError(t, err)

	g := Render(s)
	assert.Equal(t, []string{"Chỉ tiêu", " 2024 ", "Unnamed: 3"}, g.Header)
}

func TestRender_CellFormatting(t *testing.T) {
	s, err := models.NewSheetData([]string{"a", "b", "c", "d", "e"}, [][]models.Cell{{
		models.NumberCell(1234567),
		models.NullCell(),
		models.StringCell("Tổng cộng"),
		models.NumberCell(1234.5),
		models.NumberCell(-9876543.21),
	}})
	require.NoError(t, err)

	g := Render(s)
	require.Len(t, g.Rows, 1)
	assert.Equal(t, []string{"1,234,567", "-", "Tổng cộng", "1,234.5", "-9,876,543.21"}, g.Rows[0])
}

func TestRender_Idempotent(t *testing.T) {
	s := makeSheet(t, 150)
	r := NewRenderer()

	assert.Equal(t, r.Render(s), r.Render(s))
}

func TestRender_EmptyStates(t *testing.T) {
	g := Render(nil)
	assert.True(t, g.Empty)
	assert.Equal(t, EmptyMessage, g.EmptyMessage)
	assert.Nil(t, g.Rows)

	s, err := models.NewSheetData([]string{"a", "b"}, nil)
	require.NoError(t, err)
	g = Render(s)
	assert.True(t, g.Empty)
	assert.Equal(t, "No data available for the selected sheet", g.EmptyMessage)
	assert.Equal(t, "Shape: 0 rows × 2 columns", g.ShapeLabel())
}

func TestRender_ShapeLabel(t *testing.T) {
	g := Render(makeSheet(t, 3))
	assert.Equal(t, "Shape: 3 rows × 2 columns", g.ShapeLabel())
}

func TestRenderer_Options(t *testing.T) {
	r := NewRenderer(WithMaxRows(10), WithPlaceholder("n/a"), WithLocale(language.German))

	s := makeSheet(t, 20)
	s.Rows[0][1] = models.NullCell()
	s.Rows[1][1] = models.NumberCell(1234567)

	g := r.Render(s)
	assert.Len(t, g.Rows, 10)
	assert.Equal(t, "Showing first 10 of 20 rows", g.Notice())
	assert.Equal(t, "n/a", g.Rows[0][1])
	assert.Equal(t, "1.234.567", g.Rows[1][1])
}

func TestRenderer_IgnoresNonPositiveMaxRows(t *testing.T) {
	r := NewRenderer(WithMaxRows(0))
	assert.Equal(t, DefaultMaxRows, r.MaxRows())
}

func TestFormatCell_SmallValues(t *testing.T) {
	r := NewRenderer()
	assert.Equal(t, "0", r.FormatCell(models.NumberCell(0)))
	assert.Equal(t, "0.001", r.FormatCell(models.NumberCell(0.001)))
}

func TestParseLocale(t *testing.T) {
	assert.Equal(t, language.English, ParseLocale("not a locale!"))
	assert.Equal(t, language.MustParse("vi"), ParseLocale("vi"))
}
