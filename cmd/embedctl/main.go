package main

import (
	"fmt"
	"os"

	"github.com/embedd-dev/embedd/internal/cli"
)

// Set at build time via ldflags
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.BuildCommit = commit
	cli.BuildDate = date

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
