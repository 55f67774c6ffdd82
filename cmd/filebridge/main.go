package main

import (
	"github.com/berrythewa/filebridge/internal/cli"
)

var (
	version   = "dev"
	buildTime = "unknown"
	commit    = "none"
)

func main() {
	// Set version information
	cli.Version = version
	cli.BuildTime = buildTime
	cli.Commit = commit

	// Execute the root command
	cli.Execute()
}
