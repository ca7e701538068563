package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fin-processor/backend/internal/catalog"
	"github.com/fin-processor/backend/internal/models"
	"github.com/fin-processor/backend/internal/render"
	"github.com/fin-processor/backend/internal/upload"
)

type uploadOptions struct {
	sheet   string
	all     bool
	locale  string
	maxRows int
}

// NewUploadCmd uploads one workbook and prints the extracted sheets.
func NewUploadCmd() *cobra.Command {
	var o uploadOptions

	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload a workbook and print the extracted tables",
		Long: `Upload an .xlsx or .xls workbook to the processing service.

By default the first sheet returned by the service is printed; use --sheet to
pick another one or --all to print every sheet.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(cmd, args[0], o)
		},
	}

	cmd.Flags().StringVarP(&o.sheet, "sheet", "s", "", "Sheet key to display (e.g. income_statement)")
	cmd.Flags().BoolVarP(&o.all, "all", "a", false, "Display every returned sheet")
	cmd.Flags().StringVar(&o.locale, "locale", "en", "Locale used for number grouping")
	cmd.Flags().IntVar(&o.maxRows, "max-rows", render.DefaultMaxRows, "Maximum rows printed per sheet")

	return cmd
}

func runUpload(cmd *cobra.Command, path string, o uploadOptions) error {
	opts := GetOptions(cmd)
	out := cmd.OutOrStdout()

	client, err := newClient(opts)
	if err != nil {
		return err
	}

	cand, err := upload.FileCandidate(path)
	if err != nil {
		return fmt.Errorf("cannot open %s: %w", path, err)
	}

	sess := upload.NewSession("", client)
	sel, err := sess.SelectFile(cand)
	if err != nil {
		return err
	}
	if !opts.JSONOutput {
		fmt.Fprintf(out, "Selected %s %s\n", sel.Name, mutedStyle.Render("("+sel.SizeLabel()+")"))
		fmt.Fprintln(out, mutedStyle.Render("Processing..."))
	}

	set, err := sess.Submit(cmd.Context())
	if err != nil {
		if !opts.JSONOutput {
			fmt.Fprintln(out, errorStyle.Render(sess.Snapshot().Message.Text))
		}
		return err
	}

	if o.sheet != "" {
		if err := sess.SelectSheet(o.sheet); err != nil {
			return fmt.Errorf("%w (available: %v)", err, set.Keys())
		}
	}
	snap := sess.Snapshot()

	if opts.JSONOutput {
		return writeJSON(out, struct {
			Message string            `json:"message,omitempty"`
			Active  string            `json:"active"`
			Data    *models.ResultSet `json:"data"`
		}{snap.Message.Text, snap.ActiveKey, set})
	}

	if snap.Message.Text != "" {
		fmt.Fprintln(out, okStyle.Render(snap.Message.Text))
	}

	cat := catalog.Default()
	printTabs(out, snap, cat)

	renderer := render.NewRenderer(
		render.WithLocale(render.ParseLocale(o.locale)),
		render.WithMaxRows(o.maxRows),
	)

	keys := []string{snap.ActiveKey}
	if o.all {
		keys = snap.Keys
	}
	for _, key := range keys {
		sheet, _ := set.Sheet(key)
		fmt.Fprintln(out)
		printGrid(out, cat.Lookup(key), renderer.Render(sheet))
	}
	return nil
}

func printTabs(w io.Writer, snap upload.Snapshot, cat *catalog.Catalog) {
	for _, tab := range snap.Tabs(cat) {
		marker := " "
		if tab.Selected {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %-18s %s\n", marker, tab.Key, mutedStyle.Render(tab.Decoration.DisplayName()))
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
