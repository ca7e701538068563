package results

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fin-processor/backend/internal/catalog"
	"github.com/fin-processor/backend/internal/models"
)

func decodeSet(t *testing.T, payload string) *models.ResultSet {
	t.Helper()
	var rs models.ResultSet
	require.NoError(t, json.Unmarshal([]byte(payload), &rs))
	return &rs
}

const twoSheets = `{
	"balance_sheet": {"columns":["Chỉ tiêu"],"data":[["S1"]],"shape":[1,1]},
	"financial_ratios": {"columns":["Chỉ tiêu"],"data":[["S2"]],"shape":[1,1]}
}`

func TestModel_InstallSelectsFirstKey(t *testing.T) {
	var m Model
	set := decodeSet(t, twoSheets)
	m.Install(set)

	sheet, ok := m.ActiveSheet()
	require.True(t, ok)
	assert.Equal(t, models.StringCell("S1"), sheet.Rows[0][0])
	assert.Equal(t, "balance_sheet", m.ActiveKey())
	assert.ElementsMatch(t, []string{"balance_sheet", "financial_ratios"}, m.AvailableKeys())
	assert.True(t, m.HasResults())
}

func TestModel_InstallFollowsServiceOrder(t *testing.T) {
	var m Model
	m.Install(decodeSet(t, `{"financial_ratios":{"columns":[],"data":[]},"balance_sheet":{"columns":[],"data":[]}}`))

	assert.Equal(t, "financial_ratios", m.ActiveKey())
	assert.Equal(t, []string{"financial_ratios", "balance_sheet"}, m.AvailableKeys())
}

func TestModel_SelectInvalidKey(t *testing.T) {
	var m Model
	m.Install(decodeSet(t, twoSheets))

	err := m.SelectSheet("income_statement")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidSheetKey))

	var keyErr *InvalidSheetKeyError
	require.ErrorAs(t, err, &keyErr)
	assert.Equal(t, "income_statement", keyErr.Key)
	assert.Equal(t, "balance_sheet", m.ActiveKey())
}

func TestModel_SelectValidKey(t *testing.T) {
	var m Model
	m.Install(decodeSet(t, twoSheets))

	require.NoError(t, m.SelectSheet("financial_ratios"))
	sheet, ok := m.ActiveSheet()
	require.True(t, ok)
	assert.Equal(t, models.StringCell("S2"), sheet.Rows[0][0])
}

func TestModel_InstallReplaces(t *testing.T) {
	var m Model
	m.Install(decodeSet(t, twoSheets))
	require.NoError(t, m.SelectSheet("financial_ratios"))

	m.Install(decodeSet(t, `{"income_statement":{"columns":[],"data":[]}}`))
	assert.Equal(t, []string{"income_statement"}, m.AvailableKeys())
	assert.Equal(t, "income_statement", m.ActiveKey())
}

func TestModel_EmptyResultSet(t *testing.T) {
	var m Model
	m.Install(models.NewResultSet())

	assert.True(t, m.HasResults())
	assert.Equal(t, "", m.ActiveKey())
	_, ok := m.ActiveSheet()
	assert.False(t, ok)
	assert.ErrorIs(t, m.SelectSheet("balance_sheet"), ErrInvalidSheetKey)
}

func TestModel_Clear(t *testing.T) {
	var m Model
	m.Install(decodeSet(t, twoSheets))
	m.Clear()

	assert.False(t, m.HasResults())
	assert.Empty(t, m.AvailableKeys())
	_, ok := m.ActiveSheet()
	assert.False(t, ok)
}

func TestModel_Tabs(t *testing.T) {
	var m Model
	m.Install(decodeSet(t, `{"balance_sheet":{"columns":[],"data":[]},"custom":{"columns":[],"data":[]}}`))

	tabs := m.Tabs(catalog.Default())
	require.Len(t, tabs, 2)
	assert.True(t, tabs[0].Selected)
	assert.Equal(t, "Cân đối kế toán", tabs[0].Decoration.LocalizedTitle)
	assert.False(t, tabs[1].Selected)
	assert.Equal(t, catalog.AccentNeutral, tabs[1].Decoration.Accent)
	assert.Equal(t, "custom", tabs[1].Decoration.Title)
}
