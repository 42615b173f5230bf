package dashboard

import "encoding/json"

// SectionID identifies a section kind. Ids are fixed per kind so drag targets
// stay stable across rebuilds.
type SectionID string

const (
	SectionCallInfo            SectionID = "call-info"
	SectionCallSummary         SectionID = "call-summary"
	SectionSpeakerInsights     SectionID = "speaker-insights"
	SectionSentimentChart      SectionID = "sentiment-chart"
	SectionSentimentScoreChart SectionID = "sentiment-score-chart"
	SectionActionItems         SectionID = "action-items"
)

// Section is one displayable block of the dashboard.
type Section struct {
	ID      SectionID `json:"id"`
	Payload any       `json:"payload"`
	Visible bool      `json:"visible"`
}

type CallInfo struct {
	CustomerName   string   `json:"customerName"`
	AgentName      string   `json:"agentName"`
	SentimentLabel string   `json:"sentimentLabel,omitempty"`
	SentimentScore *float64 `json:"sentimentScore,omitempty"`
	// Gauge is the score mapped onto 0..100 for the dial.
	Gauge float64 `json:"gauge"`
}

type CallSummary struct {
	Text string `json:"text"`
}

type SpeakerInsights struct {
	Insights    map[string]string `json:"insights"`
	AgentRating *float64          `json:"agentRating,omitempty"`
}

type SentimentChart struct {
	Points []SentimentChunk `json:"points"`
}

type SentimentScoreChart struct {
	Score float64 `json:"score"`
}

type ActionItems struct {
	Items     []string          `json:"items"`
	EmailSent []json.RawMessage `json:"emailSent"`
}

// BuildSections derives the ordered section list for a result. Sections appear in
// a fixed precedence, each only when its guard holds. A result that is not ready
// yields no sections.
func BuildSections(r *AnalysisResult) []Section {
	if !IsReady(r) {
		return nil
	}

	sections := []Section{newSection(SectionCallInfo, CallInfo{
		CustomerName:   r.CustomerName,
		AgentName:      r.AgentName,
		SentimentLabel: SentimentLabel(r),
		SentimentScore: r.SentimentScore,
		Gauge:          gauge(r.SentimentScore),
	})}

	if r.CallSummary != "" {
		sections = append(sections, newSection(SectionCallSummary, CallSummary{Text: r.CallSummary}))
	}
	if r.hasSpeakerInsights() {
		insights := make(map[string]string, len(r.SpeakerInsights))
		for actor, text := range r.SpeakerInsights {
			insights[actor] = text
		}
		sections = append(sections, newSection(SectionSpeakerInsights, SpeakerInsights{
			Insights:    insights,
			AgentRating: r.AgentRating,
		}))
	}
	if len(r.SentimentChunks) > 0 {
		points := append([]SentimentChunk(nil), r.SentimentChunks...)
		sections = append(sections, newSection(SectionSentimentChart, SentimentChart{Points: points}))
	}
	if r.SentimentScore != nil {
		sections = append(sections, newSection(SectionSentimentScoreChart, SentimentScoreChart{Score: *r.SentimentScore}))
	}
	if r.hasActionItems() {
		items := r.ActionItems
		if items == nil {
			items = []string{}
		}
		emails := r.EmailSent
		if emails == nil {
			emails = []json.RawMessage{}
		}
		sections = append(sections, newSection(SectionActionItems, ActionItems{Items: items, EmailSent: emails}))
	}
	return sections
}

// SectionIDs returns the ids of sections in order.
func SectionIDs(sections []Section) []SectionID {
	ids := make([]SectionID, 0, len(sections))
	for _, s := range sections {
		ids = append(ids, s.ID)
	}
	return ids
}

func newSection(id SectionID, payload any) Section {
	return Section{ID: id, Payload: payload, Visible: true}
}

func gauge(score *float64) float64 {
	if score == nil {
		return 0
	}
	v := *score
	if v > 1 {
		v = 1
	}
	if v < -1 {
		v = -1
	}
	return (v + 1) * 50
}
