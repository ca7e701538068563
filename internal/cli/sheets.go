package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/fin-processor/backend/internal/catalog"
)

// NewSheetsCmd lists the sheets the service extracts.
func NewSheetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sheets",
		Short: "List the sheets the processing service extracts",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := GetOptions(cmd)
			client, err := newClient(opts)
			if err != nil {
				return err
			}

			sheets, err := client.Sheets(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.JSONOutput {
				return writeJSON(out, sheets)
			}

			t := newStyledTable(lipgloss.Color(catalog.AccentBlue.Color())).
				Headers("KEY", "NAME", "TITLE", "SOURCE")
			for _, s := range sheets {
				t.Row(s.Key, s.Name, s.Display, s.Source)
			}
			fmt.Fprintln(out, t.String())
			return nil
		},
	}
}
