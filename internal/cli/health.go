package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

func newHealthCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show server readiness",
		Long: `Query GET /health and print whether the model is loaded.

Examples:
  embedctl health
  embedctl health --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.output(cmd)

			health, err := opts.client().Health(cmd.Context())
			if err != nil {
				return classifyError(opts.url, err)
			}

			if opts.jsonOutput {
				return out.JSON(health)
			}

			rows := [][]string{
				{"status", health.Status},
				{"model_loaded", strconv.FormatBool(health.ModelLoaded)},
				{"device", health.Device},
			}
			if health.Model != "" {
				rows = append(rows, []string{"model", health.Model})
			}
			if health.Dimensions > 0 {
				rows = append(rows, []string{"dimensions", strconv.Itoa(health.Dimensions)})
			}
			if health.Error != "" {
				rows = append(rows, []string{"error", health.Error})
			}
			out.Table([]string{"FIELD", "VALUE"}, rows)
			return nil
		},
	}
}
