// Package cli implements the finview terminal client.
package cli

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fin-processor/backend/internal/logging"
	"github.com/fin-processor/backend/internal/processor"
)

const defaultServiceURL = "http://127.0.0.1:5000"

// CommandOptions holds the flags shared by every command.
type CommandOptions struct {
	ServiceURL string
	Format     string
	Timeout    time.Duration
	Verbose    bool
	JSONOutput bool
}

// NewRootCmd builds the finview command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "finview",
		Short: "Upload financial statement workbooks and view the extracted tables",
		Long: `finview sends an .xlsx/.xls workbook to the processing service and prints
the extracted balance sheet, income statement and financial ratios.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := "warn"
			if opts := GetOptions(cmd); opts.Verbose {
				level = "debug"
			}
			logging.Setup(level, "text")
		},
	}

	service := os.Getenv("PROCESSOR_URL")
	if service == "" {
		service = defaultServiceURL
	}

	cmd.PersistentFlags().String("service", service, "Processing service base URL")
	cmd.PersistentFlags().String("format", string(processor.FormatJSON), "Response format requested from the service (json|msgpack)")
	cmd.PersistentFlags().Duration("timeout", processor.DefaultTimeout, "Request timeout")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")

	cmd.AddCommand(NewUploadCmd())
	cmd.AddCommand(NewHealthCmd())
	cmd.AddCommand(NewSheetsCmd())

	return cmd
}

// GetOptions extracts common options from a command
func GetOptions(cmd *cobra.Command) CommandOptions {
	service, _ := cmd.Flags().GetString("service")
	format, _ := cmd.Flags().GetString("format")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	return CommandOptions{
		ServiceURL: service,
		Format:     format,
		Timeout:    timeout,
		Verbose:    verbose,
		JSONOutput: jsonOutput,
	}
}

func newClient(opts CommandOptions) (*processor.Client, error) {
	format, err := processor.ParseFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	return processor.NewClient(opts.ServiceURL,
		processor.WithFormat(format),
		processor.WithTimeout(opts.Timeout),
	), nil
}
