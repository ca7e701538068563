// Package results holds the multi-sheet result of an upload and the active
// sheet selection.
package results

import (
	"errors"
	"fmt"

	"github.com/fin-processor/backend/internal/catalog"
	"github.com/fin-processor/backend/internal/models"
)

// ErrInvalidSheetKey is returned when selecting a key absent from the results.
var ErrInvalidSheetKey = errors.New("invalid sheet key")

// InvalidSheetKeyError reports the rejected key.
type InvalidSheetKeyError struct {
	Key string
}

func (e *InvalidSheetKeyError) Error() string {
	return fmt.Sprintf("sheet %q is not available", e.Key)
}

func (e *InvalidSheetKeyError) Unwrap() error { return ErrInvalidSheetKey }

// Model holds a ResultSet and the selected key. Whenever the set is
// non-empty the selected key is one of its keys.
//
// Model is not safe for concurrent use; the owning session serializes access.
type Model struct {
	set      *models.ResultSet
	selected string
}

// Install replaces the current results and selects the first key in
// service order, or nothing when set is empty.
func (m *Model) Install(set *models.ResultSet) {
	m.set = set
	m.selected = set.First()
}

// Clear drops the results and the selection.
func (m *Model) Clear() {
	m.set = nil
	m.selected = ""
}

// SelectSheet makes key the active sheet. An unknown key leaves the
// selection unchanged.
func (m *Model) SelectSheet(key string) error {
	if !m.set.Has(key) {
		return &InvalidSheetKeyError{Key: key}
	}
	m.selected = key
	return nil
}

// ActiveSheet returns the selected sheet.
func (m *Model) ActiveSheet() (*models.SheetData, bool) {
	if m.selected == "" {
		return nil, false
	}
	return m.set.Sheet(m.selected)
}

// ActiveKey returns the selected key, or "" when nothing is selected.
func (m *Model) ActiveKey() string { return m.selected }

// AvailableKeys returns the selectable keys in service order.
func (m *Model) AvailableKeys() []string { return m.set.Keys() }

// HasResults reports whether a result set is installed.
func (m *Model) HasResults() bool { return m.set != nil }

// Results returns the installed set.
func (m *Model) Results() *models.ResultSet { return m.set }

// Tabs returns the decorated sheet buttons for the current results.
func (m *Model) Tabs(cat *catalog.Catalog) []Tab {
	return TabsFor(m.AvailableKeys(), m.selected, cat)
}

// Tab is one selectable sheet with its display metadata.
type Tab struct {
	Key        string
	Decoration catalog.Decoration
	Selected   bool
}

// TabsFor decorates keys using cat and marks active as selected.
func TabsFor(keys []string, active string, cat *catalog.Catalog) []Tab {
	tabs := make([]Tab, 0, len(keys))
	for _, k := range keys {
		tabs = append(tabs, Tab{
			Key:        k,
			Decoration: cat.Lookup(k),
			Selected:   k == active,
		})
	}
	return tabs
}
