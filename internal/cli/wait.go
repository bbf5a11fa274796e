package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

func newWaitCommand(opts *rootOptions) *cobra.Command {
	var (
		maxWait  time.Duration
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Block until the model is loaded",
		Long: `Poll GET /health until the server reports model_loaded=true.

Exits with an error if the model fails to load or --max-wait elapses.

Examples:
  embedctl wait
  embedctl wait --max-wait 10m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.output(cmd)

			ctx, cancel := context.WithTimeout(cmd.Context(), maxWait)
			defer cancel()

			start := time.Now()
			health, err := opts.client().WaitReady(ctx, interval)
			if err != nil {
				return classifyError(opts.url, err)
			}

			if opts.jsonOutput {
				return out.JSON(health)
			}
			out.Success("model %s ready on %s after %s", health.Model, health.Device, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().DurationVar(&maxWait, "max-wait", 5*time.Minute, "give up after this long")
	cmd.Flags().DurationVar(&interval, "interval", 500*time.Millisecond, "polling interval")
	return cmd
}
