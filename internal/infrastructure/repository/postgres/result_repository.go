package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/content-filter/internal/core/domain"
	"github.com/kirillkom/content-filter/internal/infrastructure/resilience"
)

const schemaLockKey int64 = 2026101901

// ResultRepository persists filter outcomes in the filter_results table so
// that results survive restarts of the api process.
type ResultRepository struct {
	db   *sql.DB
	exec *resilience.Executor
}

// NewResultRepository wraps db. A nil executor runs statements directly.
func NewResultRepository(db *sql.DB, exec *resilience.Executor) *ResultRepository {
	return &ResultRepository{db: db, exec: exec}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ResultRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent api startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockKey); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS filter_results (
	upload_id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	data TEXT NOT NULL DEFAULT '',
	threshold DOUBLE PRECISION NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_filter_results_status ON filter_results(status);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// MarkPending inserts a pending row unless one already exists, so a completed
// result is never downgraded.
func (r *ResultRepository) MarkPending(ctx context.Context, documentID string) error {
	err := r.run(ctx, "results.mark_pending", func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, `
INSERT INTO filter_results (upload_id, status, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (upload_id) DO NOTHING
`, documentID, string(domain.StatusPending), time.Now().UTC())
		return err
	})
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "mark result pending", err)
	}
	return nil
}

func (r *ResultRepository) Store(ctx context.Context, result domain.FilterResult) error {
	filteredAt := result.FilteredAt
	if filteredAt.IsZero() {
		filteredAt = time.Now().UTC()
	}
	err := r.run(ctx, "results.store", func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, `
INSERT INTO filter_results (upload_id, status, data, threshold, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (upload_id) DO UPDATE
SET status = EXCLUDED.status, data = EXCLUDED.data, threshold = EXCLUDED.threshold, updated_at = EXCLUDED.updated_at
`, result.DocumentID, string(domain.StatusCompleted), result.Text, result.Threshold, filteredAt)
		return err
	})
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "store result", err)
	}
	return nil
}

func (r *ResultRepository) Get(ctx context.Context, documentID string) (domain.Result, error) {
	var (
		status    string
		data      string
		threshold float64
	)
	err := r.run(ctx, "results.get", func(ctx context.Context) error {
		return r.db.QueryRowContext(ctx, `
SELECT status, data, threshold
FROM filter_results
WHERE upload_id = $1
`, documentID).Scan(&status, &data, &threshold)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFoundResult(), nil
		}
		return domain.Result{}, domain.WrapError(domain.ErrTemporary, "get result", fmt.Errorf("scan result: %w", err))
	}

	switch domain.ProcessingStatus(status) {
	case domain.StatusCompleted:
		return domain.CompletedResult(data, threshold), nil
	case domain.StatusPending:
		return domain.PendingResult(), nil
	default:
		return domain.Result{}, fmt.Errorf("unknown result status %q for %s", status, documentID)
	}
}

func (r *ResultRepository) run(ctx context.Context, operation string, fn func(context.Context) error) error {
	if r.exec == nil {
		return fn(ctx)
	}
	return r.exec.Execute(ctx, operation, fn, classifySQLError)
}

func classifySQLError(err error) resilience.ErrorClassification {
	if errors.Is(err, sql.ErrNoRows) {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, sql.ErrConnDone) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.Transient(err)
}
