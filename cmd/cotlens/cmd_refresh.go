package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/sawpanic/cotlens/internal/application"
	"github.com/sawpanic/cotlens/internal/config"
	"github.com/sawpanic/cotlens/internal/feed"
	"github.com/sawpanic/cotlens/internal/persistence/postgres"
)

func newRefreshCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Run one COT refresh cycle and exit",
		Long:  "Fetches the current CFTC report, analyzes all tracked assets, and persists the results. Intended for cron.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefresh(force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Run even when no recorded failure is due for retry")
	return cmd
}

func runRefresh(force bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Database.DSN == "" {
		return fmt.Errorf("database DSN is required (set DATABASE_URL or database.dsn)")
	}

	db, err := sqlx.Connect("postgres", cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	snapshots := postgres.NewSnapshotRepo(db, cfg.Database.QueryTimeout.Std())
	state := postgres.NewStateRepo(db, cfg.Database.QueryTimeout.Std())

	refresher := application.NewRefresher(
		feed.NewClient(cfg.Feed.BaseURL, cfg.Feed.Timeout.Std()),
		snapshots, state,
		buildGenerator(cfg.Annotator),
		application.RefresherOptions{
			Workers:         cfg.Refresh.Workers,
			HistoryWeeks:    cfg.Refresh.HistoryWeeks,
			MaxRetries:      cfg.Refresh.MaxRetries,
			RetryDelay:      cfg.Refresh.RetryDelay.Std(),
			AnnotateTimeout: cfg.Annotator.Timeout.Std(),
		},
	)

	ctx := context.Background()

	// Without --force, only run when a recorded failure is due or no failure
	// state exists at all (regular weekly run).
	if !force {
		stored, err := state.Get(ctx, "cot")
		if err != nil {
			return err
		}
		if stored.LastFailureAt != nil {
			due, err := refresher.ShouldRetry(ctx, time.Now())
			if err != nil {
				return err
			}
			if !due {
				fmt.Println("Previous failure not yet due for retry; use --force to override")
				return nil
			}
		}
	}

	result, err := refresher.Run(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
