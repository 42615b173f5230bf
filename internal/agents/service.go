package agents

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"callinsights-backend/internal/callapi"
)

// datetime-local values arrive with or without seconds.
var inputLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// StatisticsSource lists per-agent statistics. It never fails; an unreachable
// source yields an empty list.
type StatisticsSource interface {
	FetchAgentStatistics(ctx context.Context, start, end *time.Time) []callapi.AgentStats
}

// Row is one agent's statistics with derived fields.
type Row struct {
	callapi.AgentStats
	AnomalyRate float64 `json:"anomalyRate"`
}

type Query struct {
	Start    *time.Time
	End      *time.Time
	AgentIDs []int
}

type Service struct {
	Source StatisticsSource
}

// ParseTime reads a datetime-local value. Empty input yields nil.
func ParseTime(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range inputLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidTime, raw)
}

// FormatForAPI normalises a datetime-local value to the statistics endpoint format.
func FormatForAPI(raw string) (string, error) {
	t, err := ParseTime(raw)
	if err != nil || t == nil {
		return "", err
	}
	return t.Format(callapi.StatisticsTimeLayout), nil
}

// ParseRange validates a start/end pair: both or neither.
func ParseRange(start, end string) (*time.Time, *time.Time, error) {
	s, err := ParseTime(start)
	if err != nil {
		return nil, nil, err
	}
	e, err := ParseTime(end)
	if err != nil {
		return nil, nil, err
	}
	if (s == nil) != (e == nil) {
		return nil, nil, ErrPartialRange
	}
	if s != nil && s.After(*e) {
		return nil, nil, ErrInvertedRange
	}
	return s, e, nil
}

// ParseAgentIDs reads repeated or comma-separated agent ids.
func ParseAgentIDs(values []string) ([]int, error) {
	var ids []int
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid agent id %q", part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Statistics fetches agent rows for q, keeping only the selected agents when
// any are given.
func (s *Service) Statistics(ctx context.Context, q Query) []Row {
	if s.Source == nil {
		return []Row{}
	}
	stats := s.Source.FetchAgentStatistics(ctx, q.Start, q.End)

	var keep map[int]bool
	if len(q.AgentIDs) > 0 {
		keep = make(map[int]bool, len(q.AgentIDs))
		for _, id := range q.AgentIDs {
			keep[id] = true
		}
	}

	rows := make([]Row, 0, len(stats))
	for _, st := range stats {
		if keep != nil && !keep[st.AgentID] {
			continue
		}
		if st.DetectedAudioFiles == nil {
			st.DetectedAudioFiles = []string{}
		}
		rows = append(rows, Row{AgentStats: st, AnomalyRate: AnomalyRate(st)})
	}
	return rows
}

// AnomalyRate is anomalies per call, zero when the agent took no calls.
func AnomalyRate(st callapi.AgentStats) float64 {
	if st.TotalCalls <= 0 {
		return 0
	}
	return float64(st.TotalAnomalies) / float64(st.TotalCalls)
}
