package sessions

import (
	"context"
	"sync"
	"time"

	"callinsights-backend/internal/access"
	"callinsights-backend/internal/dashboard"
	"callinsights-backend/internal/shared/telemetry"
)

// Session is one browser's dashboard: its job lifecycle and layout, the drag
// gesture in progress, and the access verdict memoized for it.
type Session struct {
	ID        string
	Dashboard *dashboard.Controller
	Drag      *dashboard.DragController
	Access    *access.Memo

	lastSeen time.Time
}

type Options struct {
	Dashboard          dashboard.Options
	ActivationDistance float64
	Resolver           *access.Resolver
	IdleTTL            time.Duration
	Now                func() time.Time
	// OnEvict runs after a session is dropped, with the job it abandoned, if any.
	OnEvict func(s *Session, abandoned *dashboard.Job)
	// OnSweep runs at the end of every sweep so per-session state kept
	// elsewhere (rate-limit buckets) ages out on the same schedule.
	OnSweep func()
}

// Registry holds live sessions keyed by the session cookie.
type Registry struct {
	opts Options

	mu    sync.Mutex
	items map[string]*Session
}

func NewRegistry(opts Options) *Registry {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Resolver == nil {
		opts.Resolver = &access.Resolver{}
	}
	return &Registry{opts: opts, items: make(map[string]*Session)}
}

// GetOrCreate returns the session for id, creating it on first sight, and marks
// it as seen.
func (r *Registry) GetOrCreate(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.opts.Now()
	if s, ok := r.items[id]; ok {
		s.lastSeen = now
		return s
	}
	ctrl := dashboard.NewController(r.opts.Dashboard)
	s := &Session{
		ID:        id,
		Dashboard: ctrl,
		Drag:      dashboard.NewDragController(ctrl, r.opts.ActivationDistance),
		Access:    access.NewMemo(r.opts.Resolver),
		lastSeen:  now,
	}
	r.items[id] = s
	return s
}

// Get returns an existing session without creating one.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Sweep closes and drops sessions idle longer than the TTL. It returns how many
// were evicted.
func (r *Registry) Sweep() int {
	if r.opts.OnSweep != nil {
		defer r.opts.OnSweep()
	}
	if r.opts.IdleTTL <= 0 {
		return 0
	}
	cutoff := r.opts.Now().Add(-r.opts.IdleTTL)

	r.mu.Lock()
	var expired []*Session
	for id, s := range r.items {
		if s.lastSeen.Before(cutoff) {
			expired = append(expired, s)
			delete(r.items, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		r.evict(s)
	}
	if len(expired) > 0 {
		telemetry.Info("sessions.swept", map[string]any{"evicted": len(expired)})
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Sweep()
		}
	}
}

// Close evicts every session.
func (r *Registry) Close() {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.items))
	for id, s := range r.items {
		all = append(all, s)
		delete(r.items, id)
	}
	r.mu.Unlock()

	for _, s := range all {
		r.evict(s)
	}
}

func (r *Registry) evict(s *Session) {
	s.Drag.Cancel()
	abandoned := s.Dashboard.Close()
	if r.opts.OnEvict != nil {
		r.opts.OnEvict(s, abandoned)
	}
}
