package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// ResultSet maps sheet keys to sheet data and remembers the order in which
// keys were produced by the processing service. Once published to a session
// a ResultSet is treated as immutable.
type ResultSet struct {
	keys   []string
	sheets map[string]*SheetData
}

// NewResultSet returns an empty result set.
func NewResultSet() *ResultSet {
	return &ResultSet{sheets: make(map[string]*SheetData)}
}

// Add stores a sheet under key. A repeated key keeps its original position.
func (r *ResultSet) Add(key string, sheet *SheetData) {
	if r.sheets == nil {
		r.sheets = make(map[string]*SheetData)
	}
	if _, ok := r.sheets[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.sheets[key] = sheet
}

// Keys returns the sheet keys in service order.
func (r *ResultSet) Keys() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Sheet returns the sheet stored under key.
func (r *ResultSet) Sheet(key string) (*SheetData, bool) {
	if r == nil {
		return nil, false
	}
	s, ok := r.sheets[key]
	return s, ok
}

// Has reports whether key is present.
func (r *ResultSet) Has(key string) bool {
	_, ok := r.Sheet(key)
	return ok
}

// Len returns the number of sheets.
func (r *ResultSet) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// First returns the first key in service order, or "" for an empty set.
func (r *ResultSet) First() string {
	if r.Len() == 0 {
		return ""
	}
	return r.keys[0]
}

// MarshalJSON writes the sheets as an object with keys in service order.
func (r *ResultSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')

		v, err := json.Marshal(r.sheets[key])
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", key, err)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of sheets, preserving key order.
func (r *ResultSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	set := NewResultSet()
	if tok == nil {
		*r = *set
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("%w: expected object of sheets, got %v", ErrMalformedSheet, tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("%w: unexpected key %v", ErrMalformedSheet, tok)
		}

		var sheet SheetData
		if err := dec.Decode(&sheet); err != nil {
			return fmt.Errorf("sheet %q: %w", key, err)
		}
		set.Add(key, &sheet)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*r = *set
	return nil
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (r *ResultSet) EncodeMsgpack(enc *msgpack.Encoder) error {
	keys := r.Keys()
	if err := enc.EncodeMapLen(len(keys)); err != nil {
		return err
	}
	for _, key := range keys {
		if err := enc.EncodeString(key); err != nil {
			return err
		}
		if err := enc.Encode(r.sheets[key]); err != nil {
			return fmt.Errorf("sheet %q: %w", key, err)
		}
	}
	return nil
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (r *ResultSet) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return err
	}

	set := NewResultSet()
	for i := 0; i < n; i++ {
		key, err := dec.DecodeString()
		if err != nil {
			return err
		}
		var sheet SheetData
		if err := dec.Decode(&sheet); err != nil {
			return fmt.Errorf("sheet %q: %w", key, err)
		}
		set.Add(key, &sheet)
	}

	*r = *set
	return nil
}
