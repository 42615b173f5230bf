package main

// Submit call recordings to the analysis service and print the dashboard:
//   go run ./cmd/callreport -model AzureOpenAI call1.wav call2.wav

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"callinsights-backend/internal/callapi"
	"callinsights-backend/internal/dashboard"
	"callinsights-backend/internal/shared/config"
)

type submitter interface {
	SubmitJob(ctx context.Context, files []string, modelOption string) (*dashboard.AnalysisResult, error)
}

type report struct {
	Phase    dashboard.Phase       `json:"phase"`
	JobID    string                `json:"jobId,omitempty"`
	Files    []string              `json:"files"`
	Error    string                `json:"error,omitempty"`
	Visible  []dashboard.SectionID `json:"visible"`
	Sections []dashboard.Section   `json:"sections"`
}

func main() {
	cfg := config.Load()

	baseURL := flag.String("base-url", cfg.AnalysisBaseURL, "Analysis service base URL")
	model := flag.String("model", cfg.ModelOption, "Model option sent with the job")
	timeout := flag.Duration("timeout", cfg.AnalysisTimeout, "Remote job timeout")
	hide := flag.String("hide", "", "Comma-separated section ids to hide before printing")
	outPath := flag.String("out", "", "Path to write the report as JSON (optional)")
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		exitErr("at least one audio file name is required")
	}

	client, err := callapi.NewClient(*baseURL, *timeout)
	if err != nil {
		exitErr(err.Error())
	}

	rep, err := run(context.Background(), client, files, *model, splitIDs(*hide))
	if err != nil {
		exitErr(err.Error())
	}
	printReport(os.Stdout, rep)

	if strings.TrimSpace(*outPath) != "" {
		raw, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			exitErr(fmt.Sprintf("encode report: %v", err))
		}
		if err := os.WriteFile(*outPath, raw, 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
	}
	if rep.Phase == dashboard.PhaseError {
		os.Exit(2)
	}
}

// run drives one job through a dashboard controller the same way a browser
// session does, then applies any requested hides.
func run(ctx context.Context, remote submitter, files []string, model string, hide []dashboard.SectionID) (report, error) {
	ctrl := dashboard.NewController(dashboard.Options{TickInterval: time.Second})
	defer ctrl.Close()

	job, err := ctrl.Start(files)
	if err != nil {
		return report{}, err
	}
	result, err := remote.SubmitJob(ctx, job.Files, model)
	if err != nil {
		_, _ = ctrl.Fail(job.Generation, err)
	} else {
		_, _ = ctrl.Succeed(job.Generation, result)
	}
	for _, id := range hide {
		if err := ctrl.Hide(id); err != nil {
			return report{}, fmt.Errorf("hide %s: %w", id, err)
		}
	}

	snap := ctrl.Snapshot()
	rep := report{Phase: snap.Phase, JobID: job.ID, Files: job.Files, Error: snap.Error, Sections: snap.Sections}
	if rep.Sections == nil {
		rep.Sections = []dashboard.Section{}
	}
	rep.Visible = dashboard.SectionIDs(rep.Sections)
	return rep, nil
}

func printReport(w io.Writer, rep report) {
	_, _ = fmt.Fprintf(w, "phase: %s\n", rep.Phase)
	if rep.Error != "" {
		_, _ = fmt.Fprintf(w, "error: %s\n", rep.Error)
	}
	for i, id := range rep.Visible {
		_, _ = fmt.Fprintf(w, "%d. %s\n", i+1, id)
	}
}

func splitIDs(raw string) []dashboard.SectionID {
	var ids []dashboard.SectionID
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			ids = append(ids, dashboard.SectionID(trimmed))
		}
	}
	return ids
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
