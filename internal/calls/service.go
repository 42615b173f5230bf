package calls

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"callinsights-backend/internal/dashboard"
	"callinsights-backend/internal/jobs"
	"callinsights-backend/internal/sessions"
	"callinsights-backend/internal/shared/config"
	"callinsights-backend/internal/shared/metrics"
	"callinsights-backend/internal/shared/telemetry"
)

// Submitter runs a remote analysis job.
type Submitter interface {
	SubmitJob(ctx context.Context, files []string, modelOption string) (*dashboard.AnalysisResult, error)
}

// Service drives dashboard jobs for sessions: it starts a job, waits on the
// remote service in the background and applies the outcome if the job is still
// current.
type Service struct {
	Sessions      *sessions.Registry
	Remote        Submitter
	Runs          jobs.Repo
	ModelOption   string
	SubmitTimeout time.Duration
	Now           func() time.Time

	wg sync.WaitGroup
}

var ErrRemoteUnavailable = errors.New("analysis service not configured")

// StartJob moves the session's dashboard into Processing and submits the job.
// It returns as soon as the job is accepted.
func (s *Service) StartJob(ctx context.Context, sessionID string, files []string, modelOption string) (dashboard.Job, error) {
	if s.Remote == nil {
		return dashboard.Job{}, ErrRemoteUnavailable
	}
	sess := s.Sessions.GetOrCreate(sessionID)
	prev := sess.Dashboard.Phase()
	job, err := sess.Dashboard.Start(files)
	if err != nil {
		return dashboard.Job{}, err
	}

	model := strings.TrimSpace(modelOption)
	if model == "" {
		model = s.ModelOption
	}
	if model == "" {
		model = config.DefaultModelOption
	}

	metrics.IncJobStarted()
	telemetry.Info("job.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"session_id":        sessionID,
		"job_id":            job.ID,
		"generation":        job.Generation,
		"files":             len(job.Files),
		"model_option":      model,
		"status":            dashboard.PhaseProcessing,
		"status_transition": fmt.Sprintf("%s->%s", prev, dashboard.PhaseProcessing),
	})
	if s.Runs != nil {
		if err := s.Runs.Create(ctx, jobs.Run{
			ID:          job.ID,
			SessionID:   sessionID,
			Files:       job.Files,
			ModelOption: model,
			Status:      jobs.StatusProcessing,
			StartedAt:   job.StartedAt,
		}); err != nil {
			telemetry.Warn("job.history_failed", map[string]any{"job_id": job.ID, "error": err.Error()})
		}
	}

	s.wg.Add(1)
	go s.completeAsync(backgroundWithRequestID(ctx), sess, job, model)
	return job, nil
}

func (s *Service) completeAsync(ctx context.Context, sess *sessions.Session, job dashboard.Job, model string) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.fail(ctx, sess, job, fmt.Errorf("panic: %v", r))
		}
	}()

	if s.SubmitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.SubmitTimeout)
		defer cancel()
	}

	result, err := s.Remote.SubmitJob(ctx, job.Files, model)
	if err != nil {
		s.fail(ctx, sess, job, err)
		return
	}

	phase, err := sess.Dashboard.Succeed(job.Generation, result)
	if errors.Is(err, dashboard.ErrStaleJob) {
		s.stale(ctx, sess, job, "result")
		return
	}
	status := jobs.StatusReady
	if phase == dashboard.PhaseReady {
		metrics.IncJobReady()
	} else {
		status = jobs.StatusEmpty
		metrics.IncJobEmpty()
	}
	s.finish(ctx, sess, job, phase, status, nil)
}

func (s *Service) fail(ctx context.Context, sess *sessions.Session, job dashboard.Job, cause error) {
	phase, err := sess.Dashboard.Fail(job.Generation, cause)
	if errors.Is(err, dashboard.ErrStaleJob) {
		s.stale(ctx, sess, job, "error")
		return
	}
	metrics.IncJobFailed()
	msg := cause.Error()
	s.finish(ctx, sess, job, phase, jobs.StatusFailed, &msg)
}

func (s *Service) stale(ctx context.Context, sess *sessions.Session, job dashboard.Job, kind string) {
	metrics.IncJobStaleResult()
	telemetry.Info("job.stale_result", map[string]any{
		"request_id": requestIDFromContext(ctx),
		"session_id": sess.ID,
		"job_id":     job.ID,
		"generation": job.Generation,
		"outcome":    kind,
	})
}

func (s *Service) finish(ctx context.Context, sess *sessions.Session, job dashboard.Job, phase dashboard.Phase, status string, errMsg *string) {
	completedAt := s.now()
	metrics.ObserveJobDurationMs(float64(completedAt.Sub(job.StartedAt).Microseconds()) / 1000.0)

	fields := map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"session_id":        sess.ID,
		"job_id":            job.ID,
		"generation":        job.Generation,
		"status":            phase,
		"status_transition": fmt.Sprintf("%s->%s", dashboard.PhaseProcessing, phase),
	}
	if errMsg != nil {
		fields["error"] = *errMsg
		telemetry.Warn("job.status", fields)
	} else {
		telemetry.Info("job.status", fields)
	}
	s.closeRun(job.ID, status, errMsg, completedAt)
}

// Reset returns the session's dashboard to Idle. A job still in flight is
// recorded as superseded and its eventual outcome is discarded.
func (s *Service) Reset(ctx context.Context, sessionID string) {
	sess, ok := s.Sessions.Get(sessionID)
	if !ok {
		return
	}
	sess.Drag.Cancel()
	if abandoned := sess.Dashboard.Reset(); abandoned != nil {
		s.supersede(ctx, sess.ID, abandoned)
	}
}

// Abandon records a job dropped by session eviction. It matches the registry's
// eviction hook.
func (s *Service) Abandon(sess *sessions.Session, abandoned *dashboard.Job) {
	if abandoned == nil {
		return
	}
	s.supersede(context.Background(), sess.ID, abandoned)
}

func (s *Service) supersede(ctx context.Context, sessionID string, job *dashboard.Job) {
	telemetry.Info("job.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"session_id":        sessionID,
		"job_id":            job.ID,
		"generation":        job.Generation,
		"status":            jobs.StatusSuperseded,
		"status_transition": fmt.Sprintf("%s->%s", dashboard.PhaseProcessing, dashboard.PhaseIdle),
	})
	s.closeRun(job.ID, jobs.StatusSuperseded, nil, s.now())
}

func (s *Service) closeRun(id, status string, errMsg *string, completedAt time.Time) {
	if s.Runs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Runs.Complete(ctx, id, status, errMsg, completedAt); err != nil {
		telemetry.Warn("job.history_failed", map[string]any{"job_id": id, "error": err.Error()})
	}
}

// History lists the session's recent runs, newest first.
func (s *Service) History(ctx context.Context, sessionID string, limit int) ([]jobs.Run, error) {
	if s.Runs == nil {
		return []jobs.Run{}, nil
	}
	return s.Runs.ListBySession(ctx, sessionID, limit)
}

// Wait blocks until in-flight submissions finish or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
