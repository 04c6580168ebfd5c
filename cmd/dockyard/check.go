package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var checkTracker string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify tracker credentials and connectivity",
	Long: `Authenticate against each configured tracker and run a connection
probe. Exits non-zero if any tracker fails.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		failed := 0

		for _, name := range trackerNames(checkTracker) {
			svc, err := openTracker(name)
			if err != nil {
				fmt.Printf("✗ %s: %v\n", name, err)
				failed++
				continue
			}

			ok, err := svc.Authenticate(ctx)
			switch {
			case err != nil:
				fmt.Printf("✗ %s: %v\n", name, err)
				failed++
			case !ok:
				fmt.Printf("✗ %s: credentials rejected, re-authorization required\n", name)
				failed++
			default:
				fmt.Printf("✓ %s: connected\n", svc.DisplayName())
			}
			_ = svc.Close()
		}

		if failed > 0 {
			os.Exit(1)
		}
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkTracker, "tracker", "", "Comma-separated tracker names (default: all configured)")
	rootCmd.AddCommand(checkCmd)
}
