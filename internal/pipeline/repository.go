package pipeline

import (
	"context"
	"time"

	"github.com/andresuchdata/ddmrp-planner/internal/repository/postgres"
	"github.com/jmoiron/sqlx"
)

// RunRecord is one refresh cycle as kept in refresh_runs.
type RunRecord struct {
	ID           int64         `json:"id" db:"id"`
	Seq          int64         `json:"seq" db:"seq"`
	AsOf         *time.Time    `json:"as_of" db:"as_of"`
	Status       RefreshStatus `json:"status" db:"status"`
	Items        int           `json:"items" db:"items"`
	Faults       int           `json:"faults" db:"faults"`
	StartedAt    time.Time     `json:"started_at" db:"started_at"`
	CompletedAt  *time.Time    `json:"completed_at" db:"completed_at"`
	ErrorMessage string        `json:"error_message" db:"error_message"`
}

// RunLog records refresh cycles.
type RunLog interface {
	CreateRun(ctx context.Context, run *RunRecord) error
}

// RunHistory is a RunLog that can also list past cycles.
type RunHistory interface {
	RunLog
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
}

// Repository handles database operations for refresh tracking
type Repository struct {
	db *postgres.DB
}

// NewRepository creates a new refresh run repository
func NewRepository(db *postgres.DB) *Repository {
	return &Repository{db: db}
}

// CreateRun inserts a finished refresh run
func (r *Repository) CreateRun(ctx context.Context, run *RunRecord) error {
	query := `
		INSERT INTO refresh_runs (
			seq, as_of, status, items, faults,
			started_at, completed_at, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		return tx.QueryRowContext(
			ctx, query,
			run.Seq, run.AsOf, run.Status, run.Items, run.Faults,
			run.StartedAt, run.CompletedAt, run.ErrorMessage,
		).Scan(&run.ID)
	})
}

// ListRuns returns the most recent runs first
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, seq, as_of, status, items, faults,
		       started_at, completed_at, error_message
		FROM refresh_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	var runs []RunRecord
	err := r.db.Limit(ctx, func() error {
		return r.db.SelectContext(ctx, &runs, query, limit)
	})
	return runs, err
}

var _ RunHistory = (*Repository)(nil)
