package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"

	"github.com/fin-processor/backend/internal/catalog"
	"github.com/fin-processor/backend/internal/render"
)

var (
	borderColor = lipgloss.Color("#4B5563")
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
)

func newStyledTable(accent lipgloss.Color) *ltable.Table {
	header := lipgloss.NewStyle().Bold(true).Foreground(accent).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	number := cell.Align(lipgloss.Right)

	return ltable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(borderColor)).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == ltable.HeaderRow:
				return header
			case col == 0:
				return cell
			default:
				return number
			}
		})
}

// printGrid writes one decorated sheet: title, table, notices.
func printGrid(w io.Writer, d catalog.Decoration, grid render.DisplayGrid) {
	accent := lipgloss.Color(d.Accent.Color())
	title := lipgloss.NewStyle().Bold(true).Foreground(accent).Render(d.DisplayName())
	fmt.Fprintf(w, "%s  %s\n", title, mutedStyle.Render(d.LocalizedTitle))

	if grid.Empty {
		fmt.Fprintln(w, mutedStyle.Render(grid.EmptyMessage))
		return
	}
	fmt.Fprintln(w, mutedStyle.Render(grid.ShapeLabel()))

	t := newStyledTable(accent).Headers(grid.Header...).Rows(grid.Rows...)
	fmt.Fprintln(w, t.String())

	if notice := grid.Notice(); notice != "" {
		fmt.Fprintln(w, mutedStyle.Render(notice))
	}
}
