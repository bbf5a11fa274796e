// Package cli implements embedctl, the command line client for embedd.
package cli

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/embedd-dev/embedd/internal/client"
)

var (
	Version     = "0.1.0"
	BuildCommit = "unknown"
	BuildDate   = "unknown"
)

// URLEnv overrides the default server URL.
const URLEnv = "EMBEDD_URL"

// rootOptions holds the persistent flags shared by every command
type rootOptions struct {
	url        string
	jsonOutput bool
	timeout    time.Duration
}

func (o *rootOptions) client() *client.Client {
	return client.New(client.Config{
		BaseURL: o.url,
		Timeout: o.timeout,
	})
}

func (o *rootOptions) output(cmd *cobra.Command) *OutputFormatter {
	return NewOutputFormatterWithWriters(cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// NewRootCommand builds the embedctl command tree
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "embedctl",
		Short: "embedctl - client for the embedd text embedding service",
		Long: `embedctl talks to a running embedd server.

It checks readiness, waits for the model to load, embeds documents and
queries, and manages the server configuration file.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultURL := client.DefaultBaseURL
	if v := os.Getenv(URLEnv); v != "" {
		defaultURL = v
	}

	root.PersistentFlags().StringVar(&opts.url, "url", defaultURL, "embedd server URL (env "+URLEnv+")")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Output in JSON format")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 60*time.Second, "HTTP request timeout")

	root.AddCommand(
		newHealthCommand(opts),
		newEmbedCommand(opts),
		newWaitCommand(opts),
		newConfigCommand(opts),
		newStopCommand(opts),
		newVersionCommand(opts),
	)
	return root
}

// Execute runs embedctl with os.Args
func Execute() error {
	return NewRootCommand().Execute()
}
