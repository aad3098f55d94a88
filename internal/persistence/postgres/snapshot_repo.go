// Package postgres implements the persistence interfaces on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/cotlens/internal/persistence"
)

type snapshotRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewSnapshotRepo creates a PostgreSQL snapshot repository.
func NewSnapshotRepo(db *sqlx.DB, timeout time.Duration) persistence.SnapshotRepo {
	return &snapshotRepo{db: db, timeout: timeout}
}

type snapshotRow struct {
	AssetID    string          `db:"asset_id"`
	ReportDate time.Time       `db:"report_date"`
	Raw        json.RawMessage `db:"raw_data"`
	Derived    json.RawMessage `db:"derived_data"`
	CreatedAt  time.Time       `db:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at"`
}

func (row snapshotRow) toSnapshot() (persistence.CotSnapshot, error) {
	snapshot := persistence.CotSnapshot{
		AssetID:    row.AssetID,
		ReportDate: row.ReportDate,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
	if err := json.Unmarshal(row.Raw, &snapshot.Raw); err != nil {
		return snapshot, fmt.Errorf("failed to unmarshal raw data: %w", err)
	}
	if err := json.Unmarshal(row.Derived, &snapshot.Derived); err != nil {
		return snapshot, fmt.Errorf("failed to unmarshal derived data: %w", err)
	}
	return snapshot, nil
}

func (r *snapshotRepo) Upsert(ctx context.Context, snapshot persistence.CotSnapshot) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rawJSON, err := json.Marshal(snapshot.Raw)
	if err != nil {
		return fmt.Errorf("failed to marshal raw data: %w", err)
	}
	derivedJSON, err := json.Marshal(snapshot.Derived)
	if err != nil {
		return fmt.Errorf("failed to marshal derived data: %w", err)
	}

	query := `
		INSERT INTO cot_snapshots (asset_id, report_date, raw_data, derived_data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (asset_id, report_date) DO UPDATE SET
			raw_data = EXCLUDED.raw_data,
			derived_data = EXCLUDED.derived_data,
			updated_at = now()`

	if _, err := r.db.ExecContext(ctx, query, snapshot.AssetID, snapshot.ReportDate, rawJSON, derivedJSON); err != nil {
		return fmt.Errorf("failed to upsert cot snapshot: %w", err)
	}
	return nil
}

func (r *snapshotRepo) Latest(ctx context.Context, assetID string) (*persistence.CotSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT asset_id, report_date, raw_data, derived_data, created_at, updated_at
		FROM cot_snapshots
		WHERE asset_id = $1
		ORDER BY report_date DESC
		LIMIT 1`

	var row snapshotRow
	if err := r.db.GetContext(ctx, &row, query, assetID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query latest snapshot: %w", err)
	}

	snapshot, err := row.toSnapshot()
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *snapshotRepo) History(ctx context.Context, assetID string, limit int) ([]persistence.CotSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT asset_id, report_date, raw_data, derived_data, created_at, updated_at
		FROM cot_snapshots
		WHERE asset_id = $1
		ORDER BY report_date DESC
		LIMIT $2`

	var rows []snapshotRow
	if err := r.db.SelectContext(ctx, &rows, query, assetID, limit); err != nil {
		return nil, fmt.Errorf("failed to query snapshot history: %w", err)
	}

	snapshots := make([]persistence.CotSnapshot, 0, len(rows))
	for _, row := range rows {
		snapshot, err := row.toSnapshot()
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}
