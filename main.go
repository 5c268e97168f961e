// Package main is the entry point for the triage CLI application.
package main

import (
	"fmt"
	"os"

	"github.com/danielolaszy/triage/cmd"
	"github.com/danielolaszy/triage/internal/logging"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// main executes the root command and exits non-zero on failure.
func main() {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	logging.Debug("starting triage cli", "version", version, "log_level", logLevel)

	if err := cmd.Execute(); err != nil {
		logging.Error("command execution failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
