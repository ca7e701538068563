// Package catalog holds the static display metadata for known sheet keys.
package catalog

import (
	_ "embed"
	"fmt"
	"io"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Accent identifies the colour used to decorate a sheet.
type Accent string

const (
	AccentBlue    Accent = "blue"
	AccentGreen   Accent = "green"
	AccentPurple  Accent = "purple"
	AccentNeutral Accent = "neutral"
)

// Color returns the hex colour for the accent.
func (a Accent) Color() string {
	switch a {
	case AccentBlue:
		return "#3B82F6"
	case AccentGreen:
		return "#10B981"
	case AccentPurple:
		return "#8B5CF6"
	default:
		return "#6B7280"
	}
}

// Decoration is the display metadata for one sheet key.
type Decoration struct {
	Key            string `yaml:"key" json:"key"`
	Title          string `yaml:"title" json:"name"`
	LocalizedTitle string `yaml:"localized_title" json:"display"`
	Accent         Accent `yaml:"accent" json:"accent"`
	Source         string `yaml:"source" json:"source,omitempty"`
}

// DisplayName returns the title followed by the source sheet, e.g.
// "Balance Sheet (CDKT)".
func (d Decoration) DisplayName() string {
	if d.Source == "" {
		return d.Title
	}
	return fmt.Sprintf("%s (%s)", d.Title, d.Source)
}

// Catalog is a read-only mapping from sheet key to decoration.
type Catalog struct {
	entries []Decoration
	byKey   map[string]int
}

type document struct {
	Sheets []Decoration `yaml:"sheets"`
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
)

// Default returns the embedded catalog.
func Default() *Catalog {
	defaultOnce.Do(func() {
		cat, err := parse(defaultCatalog)
		if err != nil {
			panic(fmt.Sprintf("catalog: embedded document is invalid: %v", err))
		}
		defaultCat = cat
	})
	return defaultCat
}

// Load reads a catalog document from r.
func Load(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return parse(data)
}

func parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	cat := &Catalog{byKey: make(map[string]int, len(doc.Sheets))}
	for _, d := range doc.Sheets {
		if d.Key == "" {
			return nil, fmt.Errorf("catalog entry %q has no key", d.Title)
		}
		if _, dup := cat.byKey[d.Key]; dup {
			return nil, fmt.Errorf("duplicate catalog key %q", d.Key)
		}
		if d.Accent == "" {
			d.Accent = AccentNeutral
		}
		cat.byKey[d.Key] = len(cat.entries)
		cat.entries = append(cat.entries, d)
	}
	return cat, nil
}

// Lookup returns the decoration for key. Unknown keys get a neutral default.
func (c *Catalog) Lookup(key string) Decoration {
	if c != nil {
		if i, ok := c.byKey[key]; ok {
			return c.entries[i]
		}
	}
	return Decoration{Key: key, Title: key, LocalizedTitle: "Data", Accent: AccentNeutral}
}

// Known reports whether key has an explicit entry.
func (c *Catalog) Known(key string) bool {
	if c == nil {
		return false
	}
	_, ok := c.byKey[key]
	return ok
}

// Entries returns the catalog entries in document order.
func (c *Catalog) Entries() []Decoration {
	if c == nil {
		return nil
	}
	out := make([]Decoration, len(c.entries))
	copy(out, c.entries)
	return out
}
