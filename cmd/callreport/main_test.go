package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"callinsights-backend/internal/dashboard"
)

type fakeSubmitter struct {
	result *dashboard.AnalysisResult
	err    error
	model  string
}

func (f *fakeSubmitter) SubmitJob(ctx context.Context, files []string, modelOption string) (*dashboard.AnalysisResult, error) {
	f.model = modelOption
	return f.result, f.err
}

func TestRunReadyPrintsProjection(t *testing.T) {
	score := 0.4
	remote := &fakeSubmitter{result: &dashboard.AnalysisResult{
		CustomerName:   "Dana",
		CallSummary:    "Billing question resolved.",
		SentimentScore: &score,
	}}

	rep, err := run(context.Background(), remote, []string{"a.wav"}, "AzureOpenAI", []dashboard.SectionID{dashboard.SectionCallSummary})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Phase != dashboard.PhaseReady {
		t.Fatalf("expected ready, got %s", rep.Phase)
	}
	if remote.model != "AzureOpenAI" {
		t.Fatalf("expected model to be forwarded, got %q", remote.model)
	}
	got := rep.Visible
	want := []dashboard.SectionID{dashboard.SectionCallInfo, dashboard.SectionSentimentScoreChart}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("unexpected sections %v", got)
	}

	var buf bytes.Buffer
	printReport(&buf, rep)
	if out := buf.String(); !strings.Contains(out, "phase: ready") || !strings.Contains(out, "2. sentiment-score-chart") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestRunFailureReportsError(t *testing.T) {
	rep, err := run(context.Background(), &fakeSubmitter{err: errors.New("remote down")}, []string{"a.wav"}, "", nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Phase != dashboard.PhaseError || rep.Error != "remote down" {
		t.Fatalf("unexpected report %+v", rep)
	}
	if len(rep.Sections) != 0 {
		t.Fatalf("expected no sections, got %v", rep.Sections)
	}
}

func TestRunRejectsBlankSelection(t *testing.T) {
	if _, err := run(context.Background(), &fakeSubmitter{}, []string{" "}, "", nil); !errors.Is(err, dashboard.ErrEmptySelection) {
		t.Fatalf("expected ErrEmptySelection, got %v", err)
	}
}

func TestSplitIDs(t *testing.T) {
	got := splitIDs(" call-info, ,action-items ")
	if len(got) != 2 || got[0] != dashboard.SectionCallInfo || got[1] != dashboard.SectionActionItems {
		t.Fatalf("unexpected ids %v", got)
	}
}
