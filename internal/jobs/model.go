package jobs

import (
	"errors"
	"time"
)

// Run statuses. A run starts processing and is closed exactly once.
const (
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusEmpty      = "empty"
	StatusFailed     = "failed"
	// StatusSuperseded marks a run whose result was discarded because the
	// dashboard was reset or evicted first.
	StatusSuperseded = "superseded"
)

var ErrNotFound = errors.New("job run not found")

// Run records one analysis job submitted from a dashboard session.
type Run struct {
	ID           string     `json:"id"`
	SessionID    string     `json:"sessionId"`
	Files        []string   `json:"files"`
	ModelOption  string     `json:"modelOption"`
	Status       string     `json:"status"`
	ErrorMessage *string    `json:"errorMessage,omitempty"`
	StartedAt    time.Time  `json:"startedAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// Terminal reports whether status closes a run.
func Terminal(status string) bool {
	switch status {
	case StatusReady, StatusEmpty, StatusFailed, StatusSuperseded:
		return true
	}
	return false
}
