package sessions

import (
	"context"
	"sync"
	"testing"
	"time"

	"callinsights-backend/internal/dashboard"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestGetOrCreateReturnsSameSession(t *testing.T) {
	reg := NewRegistry(Options{})
	defer reg.Close()

	a := reg.GetOrCreate("s1")
	b := reg.GetOrCreate("s1")
	c := reg.GetOrCreate("s2")
	if a != b {
		t.Fatalf("expected same session for same id")
	}
	if a == c || a.Dashboard == c.Dashboard {
		t.Fatalf("expected independent sessions per id")
	}
	if reg.Len() != 2 {
		t.Fatalf("expected 2 sessions, got %d", reg.Len())
	}
	if _, ok := reg.Get("missing"); ok {
		t.Fatalf("Get should not create sessions")
	}
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	clock := &manualClock{now: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)}
	var evicted []string
	var abandonedJob *dashboard.Job
	reg := NewRegistry(Options{
		IdleTTL: 10 * time.Minute,
		Now:     clock.Now,
		OnEvict: func(s *Session, abandoned *dashboard.Job) {
			evicted = append(evicted, s.ID)
			abandonedJob = abandoned
		},
	})
	defer reg.Close()

	stale := reg.GetOrCreate("stale")
	job, err := stale.Dashboard.Start([]string{"a.wav"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	clock.Advance(6 * time.Minute)
	reg.GetOrCreate("fresh")
	clock.Advance(6 * time.Minute)

	if n := reg.Sweep(); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}
	if len(evicted) != 1 || evicted[0] != "stale" {
		t.Fatalf("unexpected evictions: %v", evicted)
	}
	if abandonedJob == nil || abandonedJob.ID != job.ID {
		t.Fatalf("expected abandoned job %s, got %+v", job.ID, abandonedJob)
	}
	if stale.Dashboard.Phase() != dashboard.PhaseIdle || stale.Dashboard.ProgressRunning() {
		t.Fatalf("expected evicted dashboard reset with no ticker")
	}
	if _, err := stale.Dashboard.Succeed(job.Generation, &dashboard.AnalysisResult{CallSummary: "late"}); err != dashboard.ErrStaleJob {
		t.Fatalf("expected late result to be stale, got %v", err)
	}
	if _, ok := reg.Get("fresh"); !ok {
		t.Fatalf("fresh session should survive")
	}
}

func TestSweepWithoutTTLKeepsEverything(t *testing.T) {
	reg := NewRegistry(Options{})
	defer reg.Close()
	reg.GetOrCreate("s1")
	if n := reg.Sweep(); n != 0 {
		t.Fatalf("expected no evictions, got %d", n)
	}
}

func TestSweepRunsHookEveryTime(t *testing.T) {
	for _, ttl := range []time.Duration{0, time.Minute} {
		sweeps := 0
		reg := NewRegistry(Options{IdleTTL: ttl, OnSweep: func() { sweeps++ }})
		reg.GetOrCreate("s1")
		reg.Sweep()
		reg.Sweep()
		if sweeps != 2 {
			t.Fatalf("ttl %v: expected hook to run twice, got %d", ttl, sweeps)
		}
		reg.Close()
	}
}

func TestCloseEvictsAll(t *testing.T) {
	count := 0
	reg := NewRegistry(Options{OnEvict: func(*Session, *dashboard.Job) { count++ }})
	reg.GetOrCreate("a")
	reg.GetOrCreate("b")
	reg.Close()
	if count != 2 || reg.Len() != 0 {
		t.Fatalf("expected both sessions evicted, count=%d len=%d", count, reg.Len())
	}
}

func TestRunStopsWithContext(t *testing.T) {
	reg := NewRegistry(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reg.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
