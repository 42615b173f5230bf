package callapi

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"callinsights-backend/internal/shared/telemetry"
)

// StatisticsTimeLayout is the datetime format the statistics endpoint expects.
const StatisticsTimeLayout = "2006-01-02 15:04:05"

type AgentStats struct {
	AgentID            int      `json:"agent_id"`
	AgentName          string   `json:"agent_name"`
	TotalCalls         int      `json:"total_calls"`
	AvgAgentRating     float64  `json:"avg_agent_rating"`
	AvgSentimentRating float64  `json:"avg_sentiment_rating"`
	AvgDurationSeconds float64  `json:"avg_duration_seconds"`
	TotalAnomalies     int      `json:"total_anomalies"`
	DetectedAudioFiles []string `json:"detected_audiofiles"`
}

// FetchAgentStatistics lists per-agent statistics, optionally bounded by a time
// window. Any failure is logged and yields an empty list.
func (c *Client) FetchAgentStatistics(ctx context.Context, start, end *time.Time) []AgentStats {
	path := "/agent_statistics"
	if start != nil && end != nil {
		q := url.Values{}
		q.Set("start_datetime", start.Format(StatisticsTimeLayout))
		q.Set("end_datetime", end.Format(StatisticsTimeLayout))
		path += "?" + q.Encode()
	}

	var stats []AgentStats
	if err := c.doJSON(ctx, nil, http.MethodGet, path, nil, &stats); err != nil {
		telemetry.Warn("agents.fetch_failed", map[string]any{"error": err.Error()})
		return []AgentStats{}
	}
	if stats == nil {
		stats = []AgentStats{}
	}
	return stats
}
