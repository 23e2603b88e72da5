// Package main is the entry point for the covalynce CLI.
package main

import (
	"fmt"
	"os"

	"github.com/danielolaszy/covalynce/cmd"
	"github.com/danielolaszy/covalynce/internal/logging"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	logging.Debug("starting covalynce", "version", version)

	if err := cmd.Execute(); err != nil {
		logging.Error("command execution failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
