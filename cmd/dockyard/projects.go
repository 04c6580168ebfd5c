package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	projectsTracker string
	projectsJSON    bool
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List projects from the configured trackers",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		failed := 0

		for _, name := range trackerNames(projectsTracker) {
			svc, err := openTracker(name)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s: %v\n", name, err)
				failed++
				continue
			}

			projects, err := svc.GetProjects(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s: %v\n", name, err)
				failed++
				_ = svc.Close()
				continue
			}

			if projectsJSON {
				out := map[string]interface{}{"tracker": name, "projects": projects}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				_ = enc.Encode(out)
			} else {
				fmt.Printf("%s (%d projects)\n", svc.DisplayName(), len(projects))
				for _, p := range projects {
					fmt.Printf("  %-12s %s\n", p.Key, p.Name)
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
	projectsCmd.Flags().StringVar(&projectsTracker, "tracker", "", "Comma-separated tracker names (default: all configured)")
	projectsCmd.Flags().BoolVar(&projectsJSON, "json", false, "Output JSON")
	rootCmd.AddCommand(projectsCmd)
}
