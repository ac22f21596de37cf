// Package main is the entry point for tokpost.
package main

import (
	"os"

	"tokpost-go/infrastructure/logging"
)

func main() {
	// Initialize logging (dev: console only, prod: rotating file)
	logger, closeLog, err := logging.Setup(nil)
	if err != nil {
		// Fallback to stderr if logging setup fails
		os.Stderr.WriteString("Failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer closeLog()

	if err := newRootCmd().Execute(); err != nil {
		logger.Error("command failed", "error", err)
		closeLog()
		os.Exit(1)
	}
}
