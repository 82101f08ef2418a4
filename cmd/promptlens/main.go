package main

import (
	"fmt"
	"os"

	"github.com/promptlens/promptlens/internal/cmd"
	"github.com/promptlens/promptlens/internal/server/handlers"
)

// Version information set via ldflags during build
// Example: go build -ldflags="-X main.version=1.0.0 -X main.commit=abc123 -X main.buildDate=2026-08-30"
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	// Set version info for commands to access
	cmd.SetVersionInfo(version, commit, buildDate)

	// Set version info for HTTP handlers
	handlers.SetVersionInfo(version, commit, buildDate)

	if err := cmd.Execute(); err != nil {
		// Individual commands may have already logged specific errors
		fmt.Fprintf(os.Stderr, "promptlens: %v\n", err)
		os.Exit(1)
	}
}
