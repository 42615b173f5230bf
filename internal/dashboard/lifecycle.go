package dashboard

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseProcessing Phase = "processing"
	PhaseReady      Phase = "ready"
	PhaseEmpty      Phase = "empty"
	PhaseError      Phase = "error"
)

// Job identifies one remote analysis invocation. Generation is the guard token
// results must present to be applied.
type Job struct {
	ID         string    `json:"id"`
	Generation uint64    `json:"generation"`
	Files      []string  `json:"files"`
	StartedAt  time.Time `json:"startedAt"`
}

// Snapshot is a consistent read of the controller for rendering.
type Snapshot struct {
	Phase    Phase
	Progress float64
	Job      *Job
	Error    string
	Result   *AnalysisResult
	// Sections is the projection (order ∩ visible); populated only when Ready.
	Sections []Section
}

type Options struct {
	Clock        Clock
	TickInterval time.Duration
	Now          func() time.Time
	NewID        func() string
}

// Controller coordinates a dashboard session's job lifecycle, layout, and
// progress. All methods are safe for concurrent use.
type Controller struct {
	mu         sync.Mutex
	phase      Phase
	generation uint64
	job        *Job
	result     *AnalysisResult
	err        error
	layout     *Layout
	progress   *ProgressSimulator
	now        func() time.Time
	newID      func() string
}

func NewController(opts Options) *Controller {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Controller{
		phase:    PhaseIdle,
		layout:   NewLayout(),
		progress: NewProgressSimulator(opts.Clock, opts.TickInterval),
		now:      opts.Now,
		newID:    opts.NewID,
	}
}

// Start enters Processing for a new job over files. Blank names are ignored; an
// empty selection or a job already in flight leaves the state untouched.
func (c *Controller) Start(files []string) (Job, error) {
	selection := make([]string, 0, len(files))
	for _, f := range files {
		if trimmed := strings.TrimSpace(f); trimmed != "" {
			selection = append(selection, trimmed)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(selection) == 0 {
		return Job{}, ErrEmptySelection
	}
	if c.phase == PhaseProcessing {
		return Job{}, ErrJobInProgress
	}

	c.generation++
	job := Job{
		ID:         c.newID(),
		Generation: c.generation,
		Files:      selection,
		StartedAt:  c.now().UTC(),
	}
	c.job = &job
	// The previous result belongs to the previous job. Only the layout order
	// survives, so the next rebuild can keep the user's arrangement.
	c.result = nil
	c.err = nil
	c.phase = PhaseProcessing
	c.progress.Start()
	return job, nil
}

// Succeed applies a result for the job with the given generation, moving to Ready
// or Empty and rebuilding the layout. Results for superseded jobs return ErrStaleJob.
func (c *Controller) Succeed(generation uint64, result *AnalysisResult) (Phase, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.current(generation) {
		return c.phase, ErrStaleJob
	}

	c.progress.Stop()
	c.result = result
	c.layout.Rebuild(BuildSections(result))
	if IsReady(result) {
		c.phase = PhaseReady
	} else {
		c.phase = PhaseEmpty
	}
	return c.phase, nil
}

// Fail moves the current job to Error. The layout is left as it was.
func (c *Controller) Fail(generation uint64, cause error) (Phase, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.current(generation) {
		return c.phase, ErrStaleJob
	}

	c.progress.Stop()
	c.err = cause
	c.phase = PhaseError
	return c.phase, nil
}

// Reset returns to Idle from any phase and invalidates any in-flight job. The
// abandoned job, if one was processing, is returned.
func (c *Controller) Reset() *Job {
	c.mu.Lock()
	defer c.mu.Unlock()

	var abandoned *Job
	if c.phase == PhaseProcessing && c.job != nil {
		j := *c.job
		abandoned = &j
	}
	c.generation++
	c.progress.Stop()
	c.phase = PhaseIdle
	c.job = nil
	c.result = nil
	c.err = nil
	c.layout.Reset()
	return abandoned
}

// Close releases the progress ticker. The controller behaves as reset afterwards.
func (c *Controller) Close() *Job {
	return c.Reset()
}

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Progress is zero outside Processing.
func (c *Controller) Progress() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseProcessing {
		return 0
	}
	return c.progress.Value()
}

func (c *Controller) ProgressRunning() bool {
	return c.progress.Running()
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{Phase: c.phase, Result: c.result}
	if c.job != nil {
		j := *c.job
		j.Files = append([]string(nil), c.job.Files...)
		snap.Job = &j
	}
	if c.err != nil {
		snap.Error = c.err.Error()
	}
	if c.phase == PhaseProcessing {
		snap.Progress = c.progress.Value()
	}
	if c.phase == PhaseReady {
		snap.Sections = c.layout.VisibleSections()
	}
	return snap
}

func (c *Controller) Reorder(id SectionID, before *SectionID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layout.Reorder(id, before)
}

func (c *Controller) Hide(id SectionID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layout.Hide(id)
}

func (c *Controller) Project() []SectionID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layout.Project()
}

// Order returns every section id in order, hidden ones included.
func (c *Controller) Order() []SectionID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layout.Order()
}

func (c *Controller) IsVisible(id SectionID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layout.IsVisible(id)
}

func (c *Controller) Next(id SectionID) (SectionID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layout.Next(id)
}

func (c *Controller) current(generation uint64) bool {
	return c.phase == PhaseProcessing && generation == c.generation
}

var _ DropSurface = (*Controller)(nil)
