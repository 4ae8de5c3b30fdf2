// Package cmd defines and implements the CLI commands for the lexcrawl
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lexcrawl",
		Short: "A bounded-concurrency crawler for state law archives.",
		Long: `lexcrawl walks a legislature's code browser breadth-first,
extracts every law section it finds, and persists each one exactly once.
Concurrency is bounded by a fixed pool of headless browser sessions.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./lexcrawl.yaml)")

	cmd.AddCommand(newCrawlCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
