package jobs

import (
	"context"
	"time"
)

// Repo defines persistence operations for job runs.
type Repo interface {
	Create(ctx context.Context, run Run) error
	// Complete closes a processing run. Closing an already closed run is a no-op.
	Complete(ctx context.Context, id, status string, errorMessage *string, completedAt time.Time) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]Run, error)
}

const defaultListLimit = 20
