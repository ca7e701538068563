package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	// ErrMalformedCell indicates a cell value that is not a string, number or null.
	ErrMalformedCell = errors.New("malformed cell")
	// ErrMalformedSheet indicates sheet data whose rows disagree with its columns.
	ErrMalformedSheet = errors.New("malformed sheet")
)

// CellKind discriminates the value held by a Cell.
type CellKind uint8

const (
	CellNull CellKind = iota
	CellString
	CellNumber
)

// Cell is a single table value: a string, a number, or null.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
}

// NullCell returns an empty cell.
func NullCell() Cell { return Cell{Kind: CellNull} }

// StringCell returns a text cell.
func StringCell(s string) Cell { return Cell{Kind: CellString, Text: s} }

// NumberCell returns a numeric cell.
func NumberCell(f float64) Cell { return Cell{Kind: CellNumber, Number: f} }

// IsNull reports whether the cell holds no value.
func (c Cell) IsNull() bool { return c.Kind == CellNull }

// String returns the literal form of the cell without any locale formatting.
func (c Cell) String() string {
	switch c.Kind {
	case CellString:
		return c.Text
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	default:
		return ""
	}
}

// MarshalJSON encodes the cell as a JSON string, number or null.
func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case CellString:
		return json.Marshal(c.Text)
	case CellNumber:
		// JSON has no NaN or infinities
		if math.IsNaN(c.Number) || math.IsInf(c.Number, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(c.Number)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a JSON scalar. Booleans keep their literal text.
func (c *Cell) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ErrMalformedCell
	}

	switch data[0] {
	case 'n':
		*c = NullCell()
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = StringCell(s)
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*c = StringCell(strconv.FormatBool(b))
		return nil
	case '{', '[':
		return fmt.Errorf("%w: nested value %s", ErrMalformedCell, truncate(data, 32))
	}

	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedCell, err)
	}
	*c = NumberCell(f)
	return nil
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (c Cell) EncodeMsgpack(enc *msgpack.Encoder) error {
	switch c.Kind {
	case CellString:
		return enc.EncodeString(c.Text)
	case CellNumber:
		return enc.EncodeFloat64(c.Number)
	default:
		return enc.EncodeNil()
	}
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (c *Cell) DecodeMsgpack(dec *msgpack.Decoder) error {
	v, err := dec.DecodeInterfaceLoose()
	if err != nil {
		return err
	}

	switch t := v.(type) {
	case nil:
		*c = NullCell()
	case string:
		*c = StringCell(t)
	case []byte:
		*c = StringCell(string(t))
	case bool:
		*c = StringCell(strconv.FormatBool(t))
	case int64:
		*c = NumberCell(float64(t))
	case uint64:
		*c = NumberCell(float64(t))
	case float64:
		*c = NumberCell(t)
	default:
		return fmt.Errorf("%w: unexpected %T", ErrMalformedCell, v)
	}
	return nil
}

// Shape is the (rows, columns) size of a sheet, encoded as a two-element array.
type Shape struct {
	Rows int
	Cols int
}

// MarshalJSON encodes the shape as [rows, cols].
func (s Shape) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{s.Rows, s.Cols})
}

// UnmarshalJSON decodes [rows, cols].
func (s *Shape) UnmarshalJSON(data []byte) error {
	var dims []int
	if err := json.Unmarshal(data, &dims); err != nil {
		return err
	}
	if dims == nil {
		*s = Shape{}
		return nil
	}
	if len(dims) != 2 {
		return fmt.Errorf("%w: shape has %d dimensions", ErrMalformedSheet, len(dims))
	}
	*s = Shape{Rows: dims[0], Cols: dims[1]}
	return nil
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (s Shape) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(2); err != nil {
		return err
	}
	if err := enc.EncodeInt(int64(s.Rows)); err != nil {
		return err
	}
	return enc.EncodeInt(int64(s.Cols))
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (s *Shape) DecodeMsgpack(dec *msgpack.Decoder) error {
	var dims []int
	if err := dec.Decode(&dims); err != nil {
		return err
	}
	if dims == nil {
		*s = Shape{}
		return nil
	}
	if len(dims) != 2 {
		return fmt.Errorf("%w: shape has %d dimensions", ErrMalformedSheet, len(dims))
	}
	*s = Shape{Rows: dims[0], Cols: dims[1]}
	return nil
}

// SheetData is one financial table: ordered columns, ordered rows and the
// table's shape. Every row has exactly len(Columns) cells.
type SheetData struct {
	Columns []string
	Rows    [][]Cell
	Shape   Shape
}

// sheetWire is the payload form of a sheet. Column headers may arrive as
// numbers, so they are decoded as cells and stringified.
type sheetWire struct {
	Columns []Cell   `json:"columns" msgpack:"columns"`
	Rows    [][]Cell `json:"data" msgpack:"data"`
	Shape   *Shape   `json:"shape,omitempty" msgpack:"shape,omitempty"`
}

// NewSheetData builds a sheet and derives its shape.
func NewSheetData(columns []string, rows [][]Cell) (*SheetData, error) {
	s := &SheetData{Columns: columns, Rows: rows}
	if err := s.normalize(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks that the shape and every row agree with the columns.
func (s *SheetData) Validate() error {
	if s.Shape.Rows != len(s.Rows) || s.Shape.Cols != len(s.Columns) {
		return fmt.Errorf("%w: shape %dx%d does not match %d rows of %d columns",
			ErrMalformedSheet, s.Shape.Rows, s.Shape.Cols, len(s.Rows), len(s.Columns))
	}
	for i, row := range s.Rows {
		if len(row) != len(s.Columns) {
			return fmt.Errorf("%w: row %d has %d cells, want %d", ErrMalformedSheet, i, len(row), len(s.Columns))
		}
	}
	return nil
}

func (s *SheetData) normalize() error {
	s.Shape = Shape{Rows: len(s.Rows), Cols: len(s.Columns)}
	return s.Validate()
}

func (s SheetData) wire() sheetWire {
	cols := make([]Cell, len(s.Columns))
	for i, name := range s.Columns {
		cols[i] = StringCell(name)
	}
	shape := s.Shape
	return sheetWire{Columns: cols, Rows: s.Rows, Shape: &shape}
}

func (s *SheetData) fromWire(w sheetWire) error {
	cols := make([]string, len(w.Columns))
	for i, c := range w.Columns {
		cols[i] = c.String()
	}
	s.Columns = cols
	s.Rows = w.Rows
	return s.normalize()
}

// MarshalJSON encodes the sheet as {columns, data, shape}.
func (s SheetData) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.wire())
}

// UnmarshalJSON decodes {columns, data, shape}; the shape is recomputed from the data.
func (s *SheetData) UnmarshalJSON(data []byte) error {
	var w sheetWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	return s.fromWire(w)
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (s SheetData) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(s.wire())
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (s *SheetData) DecodeMsgpack(dec *msgpack.Decoder) error {
	var w sheetWire
	if err := dec.Decode(&w); err != nil {
		return err
	}
	return s.fromWire(w)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
