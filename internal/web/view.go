package web

import (
	"github.com/fin-processor/backend/internal/catalog"
	"github.com/fin-processor/backend/internal/health"
	"github.com/fin-processor/backend/internal/render"
	"github.com/fin-processor/backend/internal/upload"
)

// StateView is everything the page shows for one session. It is rendered by
// the HTML template and returned as JSON from /api/state.
type StateView struct {
	upload.Snapshot

	Service    health.Status `json:"service"`
	ServiceURL string        `json:"serviceUrl"`
	CanSubmit  bool          `json:"canSubmit"`
	SizeLabel  string        `json:"sizeLabel,omitempty"`
	Tabs       []TabView     `json:"tabs"`
	Grid       *GridView     `json:"grid,omitempty"`
}

// TabView is one sheet button.
type TabView struct {
	Key            string `json:"key"`
	Name           string `json:"name"`
	LocalizedTitle string `json:"localizedTitle"`
	Color          string `json:"color"`
	Selected       bool   `json:"selected"`
}

// GridView is the rendered active sheet.
type GridView struct {
	Title          string     `json:"title"`
	LocalizedTitle string     `json:"localizedTitle"`
	Color          string     `json:"color"`
	Empty          bool       `json:"empty"`
	EmptyMessage   string     `json:"emptyMessage,omitempty"`
	Header         []string   `json:"header,omitempty"`
	Rows           [][]string `json:"rows,omitempty"`
	Notice         string     `json:"notice,omitempty"`
	Shape          string     `json:"shape,omitempty"`
}

func buildView(snap upload.Snapshot, status health.Status, serviceURL string, r *render.Renderer, cat *catalog.Catalog) StateView {
	v := StateView{
		Snapshot:   snap,
		Service:    status,
		ServiceURL: serviceURL,
		CanSubmit:  snap.CanSubmit(),
	}
	if snap.Selection != nil {
		v.SizeLabel = snap.Selection.SizeLabel()
	}

	for _, t := range snap.Tabs(cat) {
		v.Tabs = append(v.Tabs, TabView{
			Key:            t.Key,
			Name:           t.Decoration.DisplayName(),
			LocalizedTitle: t.Decoration.LocalizedTitle,
			Color:          t.Decoration.Accent.Color(),
			Selected:       t.Selected,
		})
	}

	if len(snap.Keys) == 0 {
		return v
	}

	d := cat.Lookup(snap.ActiveKey)
	grid := r.Render(snap.ActiveSheet)
	gv := &GridView{
		Title:          d.DisplayName(),
		LocalizedTitle: d.LocalizedTitle,
		Color:          d.Accent.Color(),
		Empty:          grid.Empty,
		EmptyMessage:   grid.EmptyMessage,
		Header:         grid.Header,
		Rows:           grid.Rows,
		Notice:         grid.Notice(),
	}
	if snap.ActiveSheet != nil {
		gv.Shape = grid.ShapeLabel()
	}
	v.Grid = gv
	return v
}
