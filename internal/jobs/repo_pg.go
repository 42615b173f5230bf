package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, run Run) error {
	const query = `
INSERT INTO job_runs (id, session_id, files, model_option, status, started_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	files, err := json.Marshal(nonNil(run.Files))
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		run.ID,
		run.SessionID,
		string(files),
		run.ModelOption,
		run.Status,
		run.StartedAt,
	)
	return err
}

func (r *PGRepo) Complete(ctx context.Context, id, status string, errorMessage *string, completedAt time.Time) error {
	const query = `
UPDATE job_runs
SET status = $2, error_message = $3, completed_at = $4, updated_at = NOW()
WHERE id = $1 AND status = 'processing'`
	var msg sql.NullString
	if errorMessage != nil {
		msg = sql.NullString{String: *errorMessage, Valid: true}
	}
	_, err := r.DB.ExecContext(ctx, query, id, status, msg, completedAt)
	return err
}

func (r *PGRepo) ListBySession(ctx context.Context, sessionID string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	const query = `
SELECT id, session_id, files, model_option, status, error_message, started_at, completed_at
FROM job_runs
WHERE session_id = $1
ORDER BY started_at DESC
LIMIT $2`
	rows, err := r.DB.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			run         Run
			files       []byte
			errMsg      sql.NullString
			completedAt sql.NullTime
		)
		if err := rows.Scan(&run.ID, &run.SessionID, &files, &run.ModelOption, &run.Status, &errMsg, &run.StartedAt, &completedAt); err != nil {
			return nil, err
		}
		if len(files) > 0 {
			if err := json.Unmarshal(files, &run.Files); err != nil {
				return nil, err
			}
		}
		if errMsg.Valid {
			msg := errMsg.String
			run.ErrorMessage = &msg
		}
		if completedAt.Valid {
			t := completedAt.Time
			run.CompletedAt = &t
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func nonNil(files []string) []string {
	if files == nil {
		return []string{}
	}
	return files
}
