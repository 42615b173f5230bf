package jobs

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores runs in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu        sync.RWMutex
	byID      map[string]*Run
	bySession map[string][]string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:      make(map[string]*Run),
		bySession: make(map[string][]string),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, run Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := run
	stored.Files = append([]string(nil), run.Files...)
	r.byID[run.ID] = &stored
	r.bySession[run.SessionID] = append(r.bySession[run.SessionID], run.ID)
	return nil
}

func (r *MemoryRepo) Complete(ctx context.Context, id, status string, errorMessage *string, completedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	if run.Status != StatusProcessing {
		return nil
	}
	run.Status = status
	if errorMessage != nil {
		msg := *errorMessage
		run.ErrorMessage = &msg
	}
	done := completedAt
	run.CompletedAt = &done
	return nil
}

// ListBySession returns the session's runs, newest first.
func (r *MemoryRepo) ListBySession(ctx context.Context, sessionID string, limit int) ([]Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.bySession[sessionID]
	runs := make([]Run, 0, len(ids))
	for _, id := range ids {
		run := *r.byID[id]
		run.Files = append([]string(nil), run.Files...)
		runs = append(runs, run)
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
