// Command apiserver runs the community intelligence service.  Without
// arguments it starts the HTTP server; any subcommand of the CLI is accepted.
package main

import (
	"os"

	"github.com/turtacn/community-intelligence/internal/config"
	"github.com/turtacn/community-intelligence/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	config.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

func main() {
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
