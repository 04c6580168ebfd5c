package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/steffonell/dockyard/internal/tracker"
	"github.com/steffonell/dockyard/internal/types"
)

var (
	issuesTracker string
	issuesProject string
	issuesStatus  []string
	issuesSince   string
	issuesLimit   int
	issuesJSON    bool
)

var issuesCmd = &cobra.Command{
	Use:   "issues",
	Short: "List issues from the configured trackers",
	Long: `Fetch and display issues, normalized to the shared shape. Status
filters use the shared vocabulary (open, in_progress, done, closed,
cancelled); each tracker translates them to its native statuses.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		since, err := parseSince(issuesSince)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		opts := tracker.FetchOptions{
			UpdatedSince: since,
			Limit:        issuesLimit,
		}
		for _, s := range issuesStatus {
			status := types.Status(s)
			if !status.IsValid() {
				fmt.Fprintf(os.Stderr, "Error: invalid status %q (valid: %v)\n", s, types.AllStatuses)
				os.Exit(1)
			}
			opts.Statuses = append(opts.Statuses, status)
		}

		failed := 0
		for _, name := range trackerNames(issuesTracker) {
			svc, err := openTracker(name)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s: %v\n", name, err)
				failed++
				continue
			}

			issues, err := svc.GetIssues(ctx, issuesProject, opts)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s: %v\n", name, err)
				failed++
				_ = svc.Close()
				continue
			}

			if issuesJSON {
				out := map[string]interface{}{"tracker": name, "issues": issues}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				_ = enc.Encode(out)
			} else {
				fmt.Printf("%s (%d issues)\n", svc.DisplayName(), len(issues))
				for _, is := range issues {
					assignee := "-"
					if is.Assignee != nil && is.Assignee.Name != "" {
						assignee = is.Assignee.Name
					}
					fmt.Printf("  %-12s %-12s %-20s %s\n", is.Key, is.Status, assignee, is.Title)
				}
			}
			_ = svc.Close()
		}

		if failed > 0 {
			os.Exit(1)
		}
	},
}

func init() {
	issuesCmd.Flags().StringVar(&issuesTracker, "tracker", "", "Comma-separated tracker names (default: all configured)")
	issuesCmd.Flags().StringVar(&issuesProject, "project", "", "Project key to scope the listing")
	issuesCmd.Flags().StringSliceVar(&issuesStatus, "status", nil, "Status filter (shared vocabulary, repeatable)")
	issuesCmd.Flags().StringVar(&issuesSince, "since", "", "Only issues updated since (RFC3339 or YYYY-MM-DD)")
	issuesCmd.Flags().IntVar(&issuesLimit, "limit", 0, "Maximum issues per tracker (0 = no cap)")
	issuesCmd.Flags().BoolVar(&issuesJSON, "json", false, "Output JSON")
	rootCmd.AddCommand(issuesCmd)
}
