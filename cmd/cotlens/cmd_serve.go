package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/cotlens/internal/annotate"
	"github.com/sawpanic/cotlens/internal/application"
	"github.com/sawpanic/cotlens/internal/cache"
	"github.com/sawpanic/cotlens/internal/config"
	"github.com/sawpanic/cotlens/internal/domain/seasonality"
	"github.com/sawpanic/cotlens/internal/feed"
	httpapi "github.com/sawpanic/cotlens/internal/interfaces/http"
	"github.com/sawpanic/cotlens/internal/persistence/postgres"
)

func newServeCmd() *cobra.Command {
	var refreshOnStart bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long:  "Serves bias, seasonality and asset endpoints, and keeps COT data fresh in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(refreshOnStart)
		},
	}

	cmd.Flags().BoolVar(&refreshOnStart, "refresh-on-start", false, "Run one refresh cycle before serving")
	return cmd
}

func runServe(refreshOnStart bool) error {
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

	responseCache := cache.NewFromAddr(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer responseCache.Close()
	if err := responseCache.Health(context.Background()); err != nil {
		log.Warn().Err(err).Msg("Cache unavailable, responses will not be cached")
	}

	model, err := loadSeasonalityModel(cfg.SeasonalityPath)
	if err != nil {
		return err
	}

	snapshots := postgres.NewSnapshotRepo(db, cfg.Database.QueryTimeout.Std())
	state := postgres.NewStateRepo(db, cfg.Database.QueryTimeout.Std())

	biasService := application.NewBiasService(
		snapshots, model, responseCache,
		cfg.Redis.TTL.Std(), cfg.Refresh.StaleAfter.Std(),
	)

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

	handlers := httpapi.NewHandlers(biasService, refresher, cfg.Scoring, db, responseCache, version)
	server := httpapi.NewServer(httpapi.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
		IdleTimeout:  cfg.Server.IdleTimeout.Std(),
	}, handlers)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if refreshOnStart {
		if _, err := refresher.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Initial refresh failed, serving stored data")
		}
	}

	go retryLoop(ctx, refresher)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// retryLoop re-runs the refresh cycle when a recorded failure becomes due.
func retryLoop(ctx context.Context, refresher *application.Refresher) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			due, err := refresher.ShouldRetry(ctx, time.Now())
			if err != nil {
				log.Error().Err(err).Msg("Retry check failed")
				continue
			}
			if !due {
				continue
			}
			log.Info().Msg("Retrying failed refresh cycle")
			if _, err := refresher.Run(ctx); err != nil {
				log.Error().Err(err).Msg("Refresh retry failed")
			}
		}
	}
}

func loadSeasonalityModel(path string) (*seasonality.Model, error) {
	if path == "" {
		return seasonality.NewModel(), nil
	}
	return seasonality.LoadModel(path)
}

// buildGenerator returns the hosted annotator when enabled and an API key is
// present; otherwise nil, which leaves only the deterministic fallback.
func buildGenerator(cfg config.AnnotatorConfig) annotate.Generator {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if !cfg.Enabled || apiKey == "" {
		return nil
	}

	openaiCfg := annotate.DefaultOpenAIConfig()
	if cfg.Model != "" {
		openaiCfg.Model = cfg.Model
	}
	if cfg.Timeout.Std() > 0 {
		openaiCfg.Timeout = cfg.Timeout.Std()
	}
	if cfg.RequestsPerMinute > 0 {
		openaiCfg.RequestsPerMinute = cfg.RequestsPerMinute
	}
	return annotate.NewOpenAIGenerator(apiKey, openaiCfg)
}
