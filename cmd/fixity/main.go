// Package main implements the fixity CLI, which checks a completed
// migration by comparing every resource in a live LDP repository against
// its serialized copy in a filesystem archive.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fixity/internal/logging"
)

var (
	// Global flags
	verbose  bool
	logLevel string
	logDir   string

	// Logger
	logger *zap.Logger

	// exitCode separates "ran clean" (0) from "ran with findings" (1).
	// Errors returned by commands exit 2 from main.
	exitCode int
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "fixity",
	Short: "fixity - acceptance checks for LDP repository migrations",
	Long: `fixity verifies that a bulk transfer between a Linked Data Platform
repository and a filesystem archive was lossless.

It walks both sides, pairs resources by identifier, and compares binaries
by SHA-1 checksum and RDF sources by graph equivalence. Every resource
gets exactly one verdict: match, mismatch, error, or missing.

Exit codes:
  0  every paired resource matched
  1  at least one mismatch, error, or missing resource
  2  the run could not start or was interrupted`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var path string
		var err error
		logger, path, err = logging.New(logging.Options{
			Level:   logLevel,
			Verbose: verbose,
			Dir:     logDir,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if path != "" {
			logger.Debug("Logging to file", zap.String("path", path))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Console log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Directory for per-run JSON log files")

	// Add commands to root
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	os.Exit(exitCode)
}
