package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "rulectl",
	Short: "Operate the landlord document rule engine",
	Long: `Rulectl manages the declarative legal rule engine behind landlord
document generation.

It provides:
  - Rule document validation (lint) for CI and pre-deployment checks
  - One-off evaluation of a facts file against a rule-set
  - Audit log export for compliance reviews
  - Rollout phase inspection and audited transitions`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
