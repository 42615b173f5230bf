package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoCreateStoresFilesAsJSON(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	run := Run{
		ID:          "job-1",
		SessionID:   "session-1",
		Files:       []string{"a.wav", "b.wav"},
		ModelOption: "AzureOpenAI",
		Status:      StatusProcessing,
		StartedAt:   time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO job_runs").
		WithArgs(run.ID, run.SessionID, `["a.wav","b.wav"]`, run.ModelOption, StatusProcessing, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), run); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoCompleteOnlyClosesProcessing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	msg := "status 502"
	completed := time.Date(2026, time.January, 1, 0, 0, 5, 0, time.UTC)

	mock.ExpectExec(`UPDATE job_runs\s+SET status = \$2, error_message = \$3, completed_at = \$4, updated_at = NOW\(\)\s+WHERE id = \$1 AND status = 'processing'`).
		WithArgs("job-1", StatusFailed, msg, completed).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Complete(context.Background(), "job-1", StatusFailed, &msg, completed); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoListBySession(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	started := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	completed := started.Add(3 * time.Second)

	rows := sqlmock.NewRows([]string{"id", "session_id", "files", "model_option", "status", "error_message", "started_at", "completed_at"}).
		AddRow("job-2", "session-1", []byte(`["b.wav"]`), "AzureOpenAI", StatusProcessing, nil, started.Add(time.Minute), nil).
		AddRow("job-1", "session-1", []byte(`["a.wav"]`), "AzureOpenAI", StatusFailed, "boom", started, completed)
	mock.ExpectQuery("SELECT id, session_id, files").
		WithArgs("session-1", defaultListLimit).
		WillReturnRows(rows)

	runs, err := repo.ListBySession(context.Background(), "session-1", 0)
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "job-2" || runs[0].CompletedAt != nil || runs[0].ErrorMessage != nil {
		t.Fatalf("unexpected first run: %+v", runs[0])
	}
	if runs[1].Files[0] != "a.wav" || runs[1].ErrorMessage == nil || *runs[1].ErrorMessage != "boom" {
		t.Fatalf("unexpected second run: %+v", runs[1])
	}
	if runs[1].CompletedAt == nil || !runs[1].CompletedAt.Equal(completed) {
		t.Fatalf("unexpected completedAt: %v", runs[1].CompletedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
