package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/cotlens/internal/annotate"
	"github.com/sawpanic/cotlens/internal/assets"
	"github.com/sawpanic/cotlens/internal/domain/cot"
	"github.com/sawpanic/cotlens/internal/feed"
	"github.com/sawpanic/cotlens/internal/metrics"
	"github.com/sawpanic/cotlens/internal/persistence"
)

// stateKey identifies the refresh job in the state store.
const stateKey = "cot"

// Feed fetches the raw yearly report body.
type Feed interface {
	FetchYear(ctx context.Context, year int) (string, error)
}

// RefresherOptions tunes the refresh orchestration.
type RefresherOptions struct {
	Workers         int
	HistoryWeeks    int
	MaxRetries      int
	RetryDelay      time.Duration
	AnnotateTimeout time.Duration
}

// Refresher runs one refresh cycle: fetch the current report, analyze every
// registered asset, annotate best-effort, and persist the results.
type Refresher struct {
	feed      Feed
	snapshots persistence.SnapshotRepo
	state     persistence.StateRepo
	generator annotate.Generator // optional, best-effort
	fallback  annotate.Generator
	assets    []assets.Asset
	opts      RefresherOptions
}

// NewRefresher builds a refresher. generator may be nil; fallback notes are
// always available.
func NewRefresher(feedClient Feed, snapshots persistence.SnapshotRepo, state persistence.StateRepo, generator annotate.Generator, opts RefresherOptions) *Refresher {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.HistoryWeeks < 2 {
		opts.HistoryWeeks = 26
	}
	if opts.AnnotateTimeout <= 0 {
		opts.AnnotateTimeout = 20 * time.Second
	}
	return &Refresher{
		feed:      feedClient,
		snapshots: snapshots,
		state:     state,
		generator: generator,
		fallback:  annotate.NewFallbackGenerator(),
		assets:    assets.All(),
		opts:      opts,
	}
}

// RunResult summarizes one refresh cycle.
type RunResult struct {
	JobID     string            `json:"job_id"`
	Refreshed []string          `json:"refreshed"`
	Skipped   []string          `json:"skipped"`
	Failed    map[string]string `json:"failed"`
}

// ShouldRetry reports whether a previously recorded failure is due for a
// retry: the delay has passed and the retry budget is not exhausted.
func (r *Refresher) ShouldRetry(ctx context.Context, now time.Time) (bool, error) {
	state, err := r.state.Get(ctx, stateKey)
	if err != nil {
		return false, err
	}
	if state.LastFailureAt == nil {
		return false, nil
	}
	if state.RetryCount >= r.opts.MaxRetries {
		return false, nil
	}
	return now.Sub(*state.LastFailureAt) >= r.opts.RetryDelay, nil
}

// Run executes one refresh cycle. A feed failure records retry state and
// returns the error; per-asset failures are collected without aborting the
// cycle.
func (r *Refresher) Run(ctx context.Context) (*RunResult, error) {
	jobID := uuid.NewString()
	year := time.Now().UTC().Year()

	logger := log.With().Str("job_id", jobID).Int("year", year).Logger()
	logger.Info().Int("assets", len(r.assets)).Msg("Starting COT refresh cycle")

	start := time.Now()
	raw, err := r.feed.FetchYear(ctx, year)
	metrics.FeedFetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		logger.Error().Err(err).Msg("Report fetch failed")
		metrics.RefreshRuns.WithLabelValues("error").Inc()
		if stateErr := r.state.RecordFailure(ctx, stateKey, err.Error()); stateErr != nil {
			logger.Error().Err(stateErr).Msg("Failed to record refresh failure")
		}
		return nil, err
	}

	result := &RunResult{
		JobID:  jobID,
		Failed: map[string]string{},
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, r.opts.Workers)

	for _, asset := range r.assets {
		wg.Add(1)
		sem <- struct{}{}
		go func(asset assets.Asset) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome, err := r.refreshAsset(ctx, raw, asset)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				result.Failed[asset.ID] = err.Error()
				metrics.AssetRefreshes.WithLabelValues(asset.ID, "error").Inc()
			case outcome:
				result.Refreshed = append(result.Refreshed, asset.ID)
				metrics.AssetRefreshes.WithLabelValues(asset.ID, "refreshed").Inc()
			default:
				result.Skipped = append(result.Skipped, asset.ID)
				metrics.AssetRefreshes.WithLabelValues(asset.ID, "skipped").Inc()
			}
		}(asset)
	}
	wg.Wait()

	if stateErr := r.state.Clear(ctx, stateKey); stateErr != nil {
		logger.Error().Err(stateErr).Msg("Failed to clear refresh state")
	}
	metrics.RefreshRuns.WithLabelValues("ok").Inc()

	logger.Info().
		Int("refreshed", len(result.Refreshed)).
		Int("skipped", len(result.Skipped)).
		Int("failed", len(result.Failed)).
		Msg("COT refresh cycle complete")

	return result, nil
}

// refreshAsset analyzes one asset from the raw report. Returns true when a
// new snapshot was persisted, false when already up to date.
func (r *Refresher) refreshAsset(ctx context.Context, raw string, asset assets.Asset) (bool, error) {
	records, err := feed.ParseMarket(raw, asset.CotCode)
	if err != nil {
		return false, err
	}
	if len(records) > r.opts.HistoryWeeks {
		records = records[len(records)-r.opts.HistoryWeeks:]
	}
	if len(records) < 2 {
		return false, cot.ErrInsufficientHistory
	}

	latest := records[len(records)-1]

	stored, err := r.snapshots.Latest(ctx, asset.ID)
	if err != nil && !errors.Is(err, persistence.ErrNotFound) {
		return false, err
	}
	if stored != nil && !latest.ReportDate.After(stored.ReportDate) {
		return false, nil
	}

	analysis, err := cot.Analyze(records)
	if err != nil {
		return false, err
	}
	analysis.Notes = r.annotateBestEffort(ctx, asset, records, analysis)

	snapshot := persistence.CotSnapshot{
		AssetID:    asset.ID,
		ReportDate: latest.ReportDate,
		Raw:        latest,
		Derived:    *analysis,
	}
	if err := r.snapshots.Upsert(ctx, snapshot); err != nil {
		return false, err
	}

	log.Info().Str("asset", asset.ID).
		Time("report_date", latest.ReportDate).
		Float64("score", analysis.Score).
		Str("bias", string(analysis.Bias)).
		Msg("Persisted COT snapshot")

	return true, nil
}

// annotateBestEffort asks the configured generator for notes and falls back
// to deterministic templates on any failure. Never returns an error: a
// missing annotation must not block persistence of the numeric result.
func (r *Refresher) annotateBestEffort(ctx context.Context, asset assets.Asset, records []cot.WeeklyRecord, analysis *cot.Analysis) []string {
	req := annotate.Request{
		AssetName: asset.Name,
		Current:   records[len(records)-1],
		Previous:  records[len(records)-2],
		Analysis:  analysis,
	}

	if r.generator != nil {
		ctx, cancel := context.WithTimeout(ctx, r.opts.AnnotateTimeout)
		defer cancel()

		notes, err := r.generator.GenerateNotes(ctx, req)
		if err == nil {
			return notes
		}
		metrics.AnnotationFallbacks.Inc()
		log.Warn().Str("asset", asset.ID).Err(err).Msg("Annotation failed, using fallback notes")
	}

	notes, _ := r.fallback.GenerateNotes(ctx, req)
	return notes
}
