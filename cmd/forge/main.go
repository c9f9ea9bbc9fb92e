package main

import (
	"fmt"
	"os"

	"github.com/syntor/forge/internal/cli"
)

// Set by the linker: -X main.version=... -X main.commit=... -X main.buildTime=...
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildTime = buildTime

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
