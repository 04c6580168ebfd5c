// dockyard - external issue tracker aggregation CLI
//
// dockyard connects to external trackers (Jira, Teamwork), normalizes their
// issues into a common shape, and reconciles them into local storage.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/steffonell/dockyard/internal/telemetry"
)

// Version is set via ldflags at build time.
var (
	Version = "dev"
	Build   = "unknown"
)

var (
	configPath  string
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "dockyard",
	Short: "dockyard - external issue tracker aggregator",
	Long: `Sync issues from external trackers (Jira, Teamwork) into one place.

Tracker credentials come from the config file or DOCKYARD_<TRACKER>_*
environment variables; see 'dockyard check' to verify connectivity.`,
	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("dockyard version %s (%s)\n", Version, Build)
			return
		}
		_ = cmd.Help()
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := telemetry.Init(cmd.Context(), "dockyard", Version); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: telemetry init failed: %v\n", err)
		}
		if err := loadConfig(configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		telemetry.Shutdown(ctx)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ./dockyard.yaml, then $HOME/.config/dockyard/dockyard.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose output")
	rootCmd.Flags().BoolP("version", "V", false, "Print version information")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dockyard version %s (%s)\n", Version, Build)
	},
}

func verbosef(format string, args ...interface{}) {
	if verboseFlag {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
