package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fin-processor/backend/internal/health"
	"github.com/fin-processor/backend/internal/models"
)

// NewHealthCmd probes the processing service once, or keeps watching it.
func NewHealthCmd() *cobra.Command {
	var (
		watch    bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check whether the processing service is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := GetOptions(cmd)
			client, err := newClient(opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if !watch {
				status := models.ServiceHealthOnline
				probeErr := client.Health(cmd.Context())
				if probeErr != nil {
					status = models.ServiceHealthOffline
				}
				if opts.JSONOutput {
					if err := writeJSON(out, map[string]string{"service": client.BaseURL(), "health": string(status)}); err != nil {
						return err
					}
				} else {
					fmt.Fprintf(out, "%s %s\n", client.BaseURL(), styleHealth(status))
				}
				if probeErr != nil {
					return fmt.Errorf("service offline: %w", probeErr)
				}
				return nil
			}

			m := health.NewMonitor(client, health.WithInterval(interval))
			changes, unsubscribe := m.Subscribe()
			defer unsubscribe()

			m.Start(cmd.Context())
			defer m.Stop()

			fmt.Fprintf(out, "%s %s\n", client.BaseURL(), styleHealth(m.CurrentHealth()))
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case h := <-changes:
					fmt.Fprintf(out, "%s %s\n", mutedStyle.Render(time.Now().Format(time.TimeOnly)), styleHealth(h))
				}
			}
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep probing and print every change")
	cmd.Flags().DurationVar(&interval, "interval", health.DefaultInterval, "Probe interval when watching")

	return cmd
}

func styleHealth(h models.ServiceHealth) string {
	switch h {
	case models.ServiceHealthOnline:
		return okStyle.Render(h.Label())
	case models.ServiceHealthOffline:
		return errorStyle.Render(h.Label())
	default:
		return mutedStyle.Render(h.Label())
	}
}
