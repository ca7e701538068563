package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestCell_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Cell
	}{
		{"null", `null`, NullCell()},
		{"string", `"Tiền mặt"`, StringCell("Tiền mặt")},
		{"integer", `1234567`, NumberCell(1234567)},
		{"fraction", `-0.25`, NumberCell(-0.25)},
		{"exponent", `1e3`, NumberCell(1000)},
		{"bool", `true`, StringCell("true")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Cell
			require.NoError(t, json.Unmarshal([]byte(tt.in), &c))
			assert.Equal(t, tt.want, c)
		})
	}
}

func TestCell_UnmarshalJSONRejectsNested(t *testing.T) {
	var c Cell
	err := json.Unmarshal([]byte(`{"a":1}`), &c)
	assert.ErrorIs(t, err, ErrMalformedCell)

	err = json.Unmarshal([]byte(`[1]`), &c)
	assert.ErrorIs(t, err, ErrMalformedCell)
}

func TestCell_MarshalJSONNonFinite(t *testing.T) {
	out, err := json.Marshal([]Cell{NumberCell(math.NaN()), NumberCell(math.Inf(1)), NumberCell(2)})
	require.NoError(t, err)
	assert.JSONEq(t, `[null,null,2]`, string(out))
}

func TestCell_Msgpack(t *testing.T) {
	in := []Cell{NullCell(), StringCell("x"), NumberCell(42), NumberCell(-1.5)}
	b, err := msgpack.Marshal(in)
	require.NoError(t, err)

	var out []Cell
	require.NoError(t, msgpack.Unmarshal(b, &out))
	assert.Equal(t, in, out)
}

func TestCell_MsgpackIntegers(t *testing.T) {
	b, err := msgpack.Marshal([]interface{}{int8(-3), uint16(500), int64(1 << 40)})
	require.NoError(t, err)

	var out []Cell
	require.NoError(t, msgpack.Unmarshal(b, &out))
	assert.Equal(t, []Cell{NumberCell(-3), NumberCell(500), NumberCell(1 << 40)}, out)
}

func TestSheetData_UnmarshalJSON(t *testing.T) {
	payload := `{
		"columns": ["Chỉ tiêu", 2023, "2024"],
		"data": [["Tài sản", 100, null], ["Nợ", 50.5, 60]],
		"shape": [2, 3]
	}`

	var s SheetData
	require.NoError(t, json.Unmarshal([]byte(payload), &s))

	assert.Equal(t, []string{"Chỉ tiêu", "2023", "2024"}, s.Columns)
	assert.Equal(t, Shape{Rows: 2, Cols: 3}, s.Shape)
	assert.Equal(t, NullCell(), s.Rows[0][2])
	assert.Equal(t, NumberCell(50.5), s.Rows[1][1])
}

func TestSheetData_ShapeRecomputed(t *testing.T) {
	payload := `{"columns":["a","b"],"data":[[1,2]],"shape":[99,99]}`

	var s SheetData
	require.NoError(t, json.Unmarshal([]byte(payload), &s))
	assert.Equal(t, Shape{Rows: 1, Cols: 2}, s.Shape)
}

func TestSheetData_RaggedRowsRejected(t *testing.T) {
	payload := `{"columns":["a","b"],"data":[[1,2],[3]]}`

	var s SheetData
	err := json.Unmarshal([]byte(payload), &s)
	assert.ErrorIs(t, err, ErrMalformedSheet)
}

func TestSheetData_MarshalJSON(t *testing.T) {
	s, err := NewSheetData([]string{"Chỉ tiêu", "2024"}, [][]Cell{{StringCell("Tiền"), NumberCell(10)}})
	require.NoError(t, err)

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"columns":["Chỉ tiêu","2024"],"data":[["Tiền",10]],"shape":[1,2]}`, string(out))
}

func TestSheetData_Msgpack(t *testing.T) {
	s, err := NewSheetData([]string{"k", "v"}, [][]Cell{{StringCell("a"), NumberCell(1)}, {StringCell("b"), NullCell()}})
	require.NoError(t, err)

	b, err := msgpack.Marshal(s)
	require.NoError(t, err)

	var out SheetData
	require.NoError(t, msgpack.Unmarshal(b, &out))
	assert.Equal(t, *s, out)
}

func TestNewSheetData_Ragged(t *testing.T) {
	_, err := NewSheetData([]string{"a"}, [][]Cell{{NullCell(), NullCell()}})
	assert.ErrorIs(t, err, ErrMalformedSheet)
}

func TestFileSelection_SizeLabel(t *testing.T) {
	f := FileSelection{SizeBytes: 1572864}
	assert.Equal(t, "1.50 MB", f.SizeLabel())
}
