package calls

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"callinsights-backend/internal/access"
	"callinsights-backend/internal/dashboard"
	"callinsights-backend/internal/jobs"
	"callinsights-backend/internal/sessions"
)

type outcome struct {
	result *dashboard.AnalysisResult
	err    error
}

// fakeRemote blocks each submission until an outcome is pushed.
type fakeRemote struct {
	mu       sync.Mutex
	files    [][]string
	models   []string
	outcomes chan outcome
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{outcomes: make(chan outcome, 8)}
}

func (f *fakeRemote) SubmitJob(ctx context.Context, files []string, modelOption string) (*dashboard.AnalysisResult, error) {
	f.mu.Lock()
	f.files = append(f.files, append([]string(nil), files...))
	f.models = append(f.models, modelOption)
	f.mu.Unlock()
	select {
	case o := <-f.outcomes:
		return o.result, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeRemote) push(result *dashboard.AnalysisResult, err error) {
	f.outcomes <- outcome{result: result, err: err}
}

func (f *fakeRemote) lastModel() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.models) == 0 {
		return ""
	}
	return f.models[len(f.models)-1]
}

type fakeRoles map[string]string

func (f fakeRoles) LookupRole(ctx context.Context, email, token string) (string, error) {
	return f[email], nil
}

func newTestService(t *testing.T, remote Submitter, roles access.RoleLookup) *Service {
	t.Helper()
	svc := &Service{
		Remote:      remote,
		Runs:        jobs.NewMemoryRepo(),
		ModelOption: "AzureOpenAI",
	}
	svc.Sessions = sessions.NewRegistry(sessions.Options{
		Resolver: &access.Resolver{Roles: roles},
		Dashboard: dashboard.Options{
			TickInterval: time.Hour,
		},
		OnEvict: svc.Abandon,
	})
	t.Cleanup(func() {
		svc.Sessions.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = svc.Wait(ctx)
	})
	return svc
}

func waitIdle(t *testing.T, svc *Service) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := svc.Wait(ctx); err != nil {
		t.Fatalf("background jobs did not finish: %v", err)
	}
}

func floatPtr(v float64) *float64 { return &v }

func readyResult() *dashboard.AnalysisResult {
	return &dashboard.AnalysisResult{
		CustomerName:    "Dana",
		AgentName:       "Ravi",
		CallSummary:     "Customer asked for a refund.",
		SentimentScore:  floatPtr(0.35),
		SpeakerInsights: map[string]string{"agent": "Calm and clear."},
		AgentRating:     floatPtr(4.5),
	}
}

// streamRecorder adds CloseNotify so gin's Stream can run against a recorder.
type streamRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func newStreamRecorder() *streamRecorder {
	return &streamRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}
}

func (r *streamRecorder) CloseNotify() <-chan bool { return r.closed }
