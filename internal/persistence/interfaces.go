// Package persistence defines the storage interfaces for COT snapshots and
// refresh bookkeeping.
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/sawpanic/cotlens/internal/domain/cot"
)

// ErrNotFound is returned when no row matches the query.
var ErrNotFound = errors.New("persistence: not found")

// CotSnapshot is one persisted analysis, keyed by (asset_id, report_date).
// Raw holds the reporting week as supplied; Derived holds the computed
// analysis including notes.
type CotSnapshot struct {
	AssetID    string           `json:"asset_id" db:"asset_id"`
	ReportDate time.Time        `json:"report_date" db:"report_date"`
	Raw        cot.WeeklyRecord `json:"raw"`
	Derived    cot.Analysis     `json:"derived"`
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at" db:"updated_at"`
}

// Stale reports whether the snapshot's report date is older than maxAge.
func (s *CotSnapshot) Stale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(s.ReportDate) > maxAge
}

// SnapshotRepo stores per-asset weekly analyses.
type SnapshotRepo interface {
	// Upsert inserts or replaces the snapshot for (asset_id, report_date).
	Upsert(ctx context.Context, snapshot CotSnapshot) error

	// Latest returns the most recent snapshot for the asset, or ErrNotFound.
	Latest(ctx context.Context, assetID string) (*CotSnapshot, error)

	// History returns up to limit snapshots for the asset, newest first.
	History(ctx context.Context, assetID string, limit int) ([]CotSnapshot, error)
}

// RefreshState is the persisted retry bookkeeping for a scheduled job,
// passed through an explicit store rather than held in process memory.
type RefreshState struct {
	Key           string     `db:"key"`
	LastFailureAt *time.Time `db:"last_failure_at"`
	FailureReason string     `db:"failure_reason"`
	RetryCount    int        `db:"retry_count"`
}

// StateRepo stores refresh retry state by job key.
type StateRepo interface {
	// Get returns the state for the key; a missing row yields a zero state.
	Get(ctx context.Context, key string) (*RefreshState, error)

	// RecordFailure increments the retry counter and stamps the failure.
	RecordFailure(ctx context.Context, key, reason string) error

	// Clear resets the state after a successful run.
	Clear(ctx context.Context, key string) error
}
