package cli

import (
	"runtime"

	"github.com/spf13/cobra"
)

// VersionInfo contains build information for the version command
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// CurrentVersion returns the build information of this binary
func CurrentVersion() VersionInfo {
	return VersionInfo{
		Version:   Version,
		Commit:    BuildCommit,
		Date:      BuildDate,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

func newVersionCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Display the version, build commit, build date, Go version, and platform information.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.output(cmd)
			info := CurrentVersion()

			if opts.jsonOutput {
				return out.JSON(info)
			}
			out.Info("embedd %s", info.Version)
			out.Info("  Commit:     %s", info.Commit)
			out.Info("  Built:      %s", info.Date)
			out.Info("  Go version: %s", info.GoVersion)
			out.Info("  OS/Arch:    %s/%s", info.OS, info.Arch)
			return nil
		},
	}
}
