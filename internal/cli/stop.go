package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/embedd-dev/embedd/internal/daemon"
)

func newStopCommand(opts *rootOptions) *cobra.Command {
	var (
		pidFile string
		grace   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop a local embedd server",
		Long: `Stop the embedd process named in its PID file (server.pid_file).

The server gets SIGTERM and --grace to shut down before it is killed.

Examples:
  embedctl stop --pid-file /run/embedd.pid`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.output(cmd)

			pid, err := daemon.ReadPIDFile(pidFile)
			if err != nil {
				return WrapError(err, "Cannot determine the server process", "Check --pid-file matches server.pid_file")
			}
			if !daemon.IsProcessRunning(pid) {
				out.Warn("embedd (PID %d) is not running", pid)
				return nil
			}

			if err := daemon.TerminateProcess(pid, grace); err != nil {
				return WrapError(err, "Failed to stop embedd", "")
			}
			out.Success("stopped embedd (PID %d)", pid)
			return nil
		},
	}

	cmd.Flags().StringVar(&pidFile, "pid-file", "embedd.pid", "PID file written by the server")
	cmd.Flags().DurationVar(&grace, "grace", 15*time.Second, "time to wait for a graceful shutdown")
	return cmd
}
