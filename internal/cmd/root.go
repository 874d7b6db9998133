// Package cmd provides the forge CLI's subcommands.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags; "dev" is the fallback for
// local builds.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:     "forge",
	Short:   "forge - local supervisor for a fleet of AI coding workers",
	Version: Version,
	Long: `forge supervises a fleet of long-running AI coding worker processes.
Workers claim tasks from a shared queue, execute them, and report progress
through the file system under ~/.forge; forge watches that tree, tracks
health and memory, recovers crashed workers, and raises alerts.`,
}

// Execute runs the root command and returns a process exit code. The
// self-update startup protocol runs first: a marker left by a previous run
// triggers rollback, and a staged binary handed off via env vars is
// installed before any command dispatches.
func Execute() int {
	if err := runStartupProtocol(os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "forge: startup: %v\n", err)
		return 1
	}
	clearStartupMarker()

	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func init() {
	cobra.EnablePrefixMatching = true
}

// forgeHome returns the FORGE_HOME override if set, else ~/.forge.
func forgeHome() (string, error) {
	if h := os.Getenv("FORGE_HOME"); h != "" {
		return h, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".forge"), nil
}
