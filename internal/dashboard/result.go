package dashboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// SentimentChunk is one time-bucketed sentiment sample.
type SentimentChunk struct {
	Timestamp ChunkTime `json:"timestamp,omitempty"`
	Index     *int      `json:"index,omitempty"`
	Score     float64   `json:"score"`
	Label     string    `json:"label,omitempty"`
}

// ChunkTime is a sample's position as the service reports it: either a clock
// string such as "00:12" or a numeric offset in seconds, kept as its text.
type ChunkTime string

func (t *ChunkTime) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		*t = ""
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*t = ChunkTime(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return fmt.Errorf("sentiment chunk timestamp: %w", err)
	}
	*t = ChunkTime(n.String())
	return nil
}

// AnalysisResult is the output of one remote analysis job. Every field is optional;
// presence of one field implies nothing about the others.
type AnalysisResult struct {
	CustomerName    string            `json:"Customer_name,omitempty"`
	AgentName       string            `json:"Agent_name,omitempty"`
	Sentiment       string            `json:"sentiment,omitempty"`
	SentimentScore  *float64          `json:"sentiment_score,omitempty"`
	CallSummary     string            `json:"call_summary,omitempty"`
	SpeakerInsights map[string]string `json:"speaker_insights,omitempty"`
	AgentRating     *float64          `json:"Agent_rating,omitempty"`
	SentimentChunks []SentimentChunk  `json:"sentiment_chunks,omitempty"`
	ActionItems     []string          `json:"action_items,omitempty"`
	EmailSent       []json.RawMessage `json:"email_sent,omitempty"`
}

// IsReady reports whether a completed job produced anything worth displaying.
// A nil result is never ready.
func IsReady(r *AnalysisResult) bool {
	if r == nil {
		return false
	}
	return len(r.SentimentChunks) > 0 ||
		r.CallSummary != "" ||
		r.CustomerName != "" ||
		r.SentimentScore != nil
}

func (r *AnalysisResult) hasSpeakerInsights() bool {
	if r.AgentRating != nil {
		return true
	}
	for _, text := range r.SpeakerInsights {
		if strings.TrimSpace(text) != "" {
			return true
		}
	}
	return false
}

// Action items and email markers count as present when the field was sent at all,
// even as an empty list.
func (r *AnalysisResult) hasActionItems() bool {
	return r.ActionItems != nil || r.EmailSent != nil
}

// SentimentLabel names the band a sentiment score falls into. An explicit label
// from the remote service wins.
func SentimentLabel(r *AnalysisResult) string {
	if r == nil {
		return ""
	}
	if label := strings.TrimSpace(r.Sentiment); label != "" {
		return label
	}
	if r.SentimentScore == nil {
		return ""
	}
	switch score := *r.SentimentScore; {
	case score > 0.1:
		return "Positive"
	case score < -0.1:
		return "Negative"
	default:
		return "Neutral"
	}
}
