// Package cmd defines the CLI commands for the offersnap executable.
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
		Use:   "offersnap",
		Short: "Daily listing harvester for classified-ad sites.",
		Long: `offersnap crawls a configured list of classified-ad sites, collects the
offers posted in the last day, and stores one dated snapshot document per
site. Sites are crawled two at a time; each site walks its listing pages
until it hits an entry older than the recency window.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./offersnap.yaml)")

	cmd.AddCommand(newHarvestCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
