// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License, Version 2.0.
// Copyright 2026 kshark authors.

// Command kshark-cli is the reference CLI collaborator described
// informationally in §6: it drives the engine to open/append trace files,
// manage plugins, and save/restore sessions, printing a one-line summary or
// a diagnostic to stderr.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"kshark/cmd/kshark-cli/internal/app"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "kshark-cli: logger init:", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if err := app.NewRootCommand(logger).Execute(); err != nil {
		logger.Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}
