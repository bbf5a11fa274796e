package cli

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/embedd-dev/embedd/internal/config"
)

func newConfigCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the server configuration",
		Long: `Show the configuration embedd would run with, or write a default
configuration file.

Examples:
  embedctl config show
  embedctl config show --file /etc/embedd/embedd.yaml --json
  embedctl config init ./embedd.yaml`,
	}

	cmd.AddCommand(newConfigShowCommand(opts), newConfigInitCommand(opts))
	return cmd
}

func newConfigShowCommand(opts *rootOptions) *cobra.Command {
	var (
		file    string
		envFile string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		Long: `Resolve the configuration from defaults, the .env file, the config file
and EMBEDD_* environment variables exactly as embedd does, and print it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.output(cmd)

			if err := config.LoadDotEnv(envFile); err != nil {
				return WrapError(err, "Failed to load environment file", "")
			}

			loader := config.NewLoader(file)
			cfg, err := loader.Load()
			if err != nil {
				return WrapError(err, "Failed to load configuration", "Fix the reported fields in the config file or environment")
			}

			if opts.jsonOutput {
				return out.JSON(cfg)
			}

			if used := loader.ConfigFileUsed(); used != "" {
				out.Info("# %s", used)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "config file (default: ./embedd.yaml or /etc/embedd/embedd.yaml)")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	return cmd
}

func newConfigInitCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init [PATH]",
		Short: "Write a default configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.output(cmd)

			path := config.ConfigFileName + "." + config.ConfigFileExt
			if len(args) == 1 {
				path = args[0]
			}

			if _, err := config.Init(path); err != nil {
				return WrapError(err, "Failed to write configuration", "Remove the existing file or choose another path")
			}
			out.Success("wrote default configuration to %s", path)
			return nil
		},
	}
}
