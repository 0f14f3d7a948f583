package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/content-filter/internal/core/domain"
	"github.com/kirillkom/content-filter/internal/infrastructure/resilience"
)

func newRepoWithMock(t *testing.T) (*ResultRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return NewResultRepository(db, nil), mock, func() { _ = db.Close() }
}

func TestGetReturnsNotFoundForMissingRow(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT status, data, threshold").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	res, err := repo.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if res.Status != domain.StatusNotFound {
		t.Fatalf("expected not_found, got %q", res.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetMapsStoredStatuses(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT status, data, threshold").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "data", "threshold"}).
			AddRow("completed", "clean text", 0.8))
	mock.ExpectQuery("SELECT status, data, threshold").
		WithArgs("doc-2").
		WillReturnRows(sqlmock.NewRows([]string{"status", "data", "threshold"}).
			AddRow("pending", "", 0.0))

	res, err := repo.Get(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("Get(doc-1) error = %v", err)
	}
	if res.Status != domain.StatusCompleted || res.Data != "clean text" || res.Threshold != 0.8 {
		t.Fatalf("unexpected completed result: %+v", res)
	}

	res, err = repo.Get(context.Background(), "doc-2")
	if err != nil {
		t.Fatalf("Get(doc-2) error = %v", err)
	}
	if res.Status != domain.StatusPending || res.Data != "" {
		t.Fatalf("unexpected pending result: %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetWrapsDriverErrorsAsTemporary(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT status, data, threshold").
		WithArgs("doc-1").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.Get(context.Background(), "doc-1")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
}

func TestMarkPendingDoesNotOverwriteExistingRow(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("ON CONFLICT \\(upload_id\\) DO NOTHING").
		WithArgs("doc-1", string(domain.StatusPending), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkPending(context.Background(), "doc-1"); err != nil {
		t.Fatalf("MarkPending() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStoreUpsertsCompletedResult(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	at := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO filter_results").
		WithArgs("doc-1", string(domain.StatusCompleted), "clean", 0.8, at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Store(context.Background(), domain.FilterResult{
		DocumentID: "doc-1",
		Text:       "clean",
		Threshold:  0.8,
		FilteredAt: at,
	})
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStoreRetriesThroughExecutor(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewResultRepository(db, resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     1,
	}))

	mock.ExpectExec("INSERT INTO filter_results").
		WillReturnError(sql.ErrConnDone)
	mock.ExpectExec("INSERT INTO filter_results").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Store(context.Background(), domain.FilterResult{DocumentID: "doc-1", Text: "x", Threshold: 0.8}); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEnsureSchemaRunsUnderAdvisoryLock(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs(schemaLockKey).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS filter_results").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
