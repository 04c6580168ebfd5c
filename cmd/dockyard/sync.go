package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/steffonell/dockyard/internal/reconcile"
	"github.com/steffonell/dockyard/internal/tracker"
	"github.com/steffonell/dockyard/internal/types"
)

var (
	syncTracker string
	syncProject string
	syncSince   string
	syncDB      string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch issues from trackers and reconcile them into storage",
	Long: `Fetch issues updated since the last sync from each tracker and upsert
them into local storage, keyed on (tracker, external key). Trackers run
concurrently; per-issue failures are reported without aborting the batch.

With --db a MySQL DSN is used (must include parseTime=true); otherwise
records land in an in-memory store, useful for dry runs.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		since, err := parseSince(syncSince)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if syncSince == "" {
			if last := cfg.GetTime("sync.last_sync"); !last.IsZero() {
				since = &last
			}
		}

		store, closeStore, err := openStore(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer closeStore()

		names := trackerNames(syncTracker)
		results := make(map[string]*syncOutcome, len(names))
		var mu sync.Mutex

		g, gctx := errgroup.WithContext(ctx)
		for _, name := range names {
			name := name
			g.Go(func() error {
				outcome := syncOne(gctx, name, syncProject, since, store)
				mu.Lock()
				results[name] = outcome
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait() // per-tracker failures are carried in the outcomes

		failed := 0
		for _, name := range names {
			outcome := results[name]
			if outcome.err != nil {
				fmt.Printf("✗ %s: %v\n", name, outcome.err)
				failed++
				continue
			}
			r := outcome.result
			fmt.Printf("✓ %s: %d fetched, %d created, %d updated", name, r.Processed, r.Created, r.Updated)
			if len(r.Errors) > 0 {
				fmt.Printf(", %d failed", len(r.Errors))
				failed++
			}
			fmt.Println()
			for _, e := range r.Errors {
				fmt.Printf("    %s\n", e)
			}
		}

		if failed == 0 {
			persistLastSync(time.Now())
		}
		if failed > 0 {
			os.Exit(1)
		}
	},
}

type syncOutcome struct {
	result *types.SyncResult
	err    error
}

// syncOne fetches one tracker's updated issues and reconciles them.
func syncOne(ctx context.Context, name, project string, since *time.Time, store reconcile.IssueStore) *syncOutcome {
	svc, err := openTracker(name)
	if err != nil {
		return &syncOutcome{err: err}
	}
	defer func() { _ = svc.Close() }()

	opts := tracker.FetchOptions{UpdatedSince: since, Limit: tracker.SyncPageSize}
	issues, err := svc.GetIssues(ctx, project, opts)
	if err != nil {
		return &syncOutcome{err: err}
	}
	verbosef("%s: fetched %d issues", name, len(issues))

	rec := reconcile.NewReconciler(store)
	rec.OnWarning = func(msg string) { verbosef("%s: %s", name, msg) }
	return &syncOutcome{result: rec.Reconcile(ctx, name, issues)}
}

// openStore selects the persistence backend for this run.
func openStore(ctx context.Context) (reconcile.IssueStore, func(), error) {
	dsn := syncDB
	if dsn == "" {
		dsn = cfg.GetString("storage.mysql_dsn")
	}
	if dsn == "" {
		verbosef("no database configured, using in-memory store")
		return reconcile.NewMemoryStore(), func() {}, nil
	}
	store, err := reconcile.OpenMySQL(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open mysql store: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}

// persistLastSync stamps the sync watermark into the config file.
func persistLastSync(t time.Time) {
	if cfg == nil || cfg.ConfigFileUsed() == "" {
		return
	}
	cfg.Set("sync.last_sync", t.Format(time.RFC3339))
	if err := cfg.WriteConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not persist sync watermark: %v\n", err)
	}
}

func init() {
	syncCmd.Flags().StringVar(&syncTracker, "tracker", "", "Comma-separated tracker names (default: all configured)")
	syncCmd.Flags().StringVar(&syncProject, "project", "", "Project key to scope the sync")
	syncCmd.Flags().StringVar(&syncSince, "since", "", "Sync issues updated since (RFC3339 or YYYY-MM-DD; default: last sync)")
	syncCmd.Flags().StringVar(&syncDB, "db", "", "MySQL DSN for persistent storage (default: in-memory)")
	rootCmd.AddCommand(syncCmd)
}
