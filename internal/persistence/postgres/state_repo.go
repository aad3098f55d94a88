package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/cotlens/internal/persistence"
)

type stateRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewStateRepo creates a PostgreSQL refresh-state repository.
func NewStateRepo(db *sqlx.DB, timeout time.Duration) persistence.StateRepo {
	return &stateRepo{db: db, timeout: timeout}
}

func (r *stateRepo) Get(ctx context.Context, key string) (*persistence.RefreshState, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT key, last_failure_at, failure_reason, retry_count
		FROM refresh_state
		WHERE key = $1`

	var state persistence.RefreshState
	if err := r.db.GetContext(ctx, &state, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &persistence.RefreshState{Key: key}, nil
		}
		return nil, fmt.Errorf("failed to query refresh state: %w", err)
	}
	return &state, nil
}

func (r *stateRepo) RecordFailure(ctx context.Context, key, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO refresh_state (key, last_failure_at, failure_reason, retry_count)
		VALUES ($1, now(), $2, 1)
		ON CONFLICT (key) DO UPDATE SET
			last_failure_at = now(),
			failure_reason = EXCLUDED.failure_reason,
			retry_count = refresh_state.retry_count + 1`

	if _, err := r.db.ExecContext(ctx, query, key, reason); err != nil {
		return fmt.Errorf("failed to record refresh failure: %w", err)
	}
	return nil
}

func (r *stateRepo) Clear(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO refresh_state (key, last_failure_at, failure_reason, retry_count)
		VALUES ($1, NULL, '', 0)
		ON CONFLICT (key) DO UPDATE SET
			last_failure_at = NULL,
			failure_reason = '',
			retry_count = 0`

	if _, err := r.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to clear refresh state: %w", err)
	}
	return nil
}
