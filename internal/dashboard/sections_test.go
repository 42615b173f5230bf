package dashboard

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestBuildSectionsOrderAndGuards(t *testing.T) {
	tests := []struct {
		name   string
		result *AnalysisResult
		want   []SectionID
	}{
		{
			name:   "not ready",
			result: &AnalysisResult{AgentName: "Sam"},
			want:   []SectionID{},
		},
		{
			name:   "score and summary",
			result: &AnalysisResult{SentimentScore: floatPtr(0.8), CallSummary: "refund issued"},
			want:   []SectionID{SectionCallInfo, SectionCallSummary, SectionSentimentScoreChart},
		},
		{
			name: "everything",
			result: &AnalysisResult{
				CustomerName:    "Ada",
				SentimentScore:  floatPtr(-0.2),
				CallSummary:     "escalation",
				SpeakerInsights: map[string]string{"Agent": "patient"},
				SentimentChunks: []SentimentChunk{{Score: 0.1}, {Score: -0.3}},
				ActionItems:     []string{"send invoice"},
			},
			want: []SectionID{
				SectionCallInfo,
				SectionCallSummary,
				SectionSpeakerInsights,
				SectionSentimentChart,
				SectionSentimentScoreChart,
				SectionActionItems,
			},
		},
		{
			name:   "rating without insight text",
			result: &AnalysisResult{CustomerName: "Ada", SpeakerInsights: map[string]string{"Agent": " "}, AgentRating: floatPtr(0)},
			want:   []SectionID{SectionCallInfo, SectionSpeakerInsights},
		},
		{
			name:   "blank insights only",
			result: &AnalysisResult{CustomerName: "Ada", SpeakerInsights: map[string]string{"Agent": ""}},
			want:   []SectionID{SectionCallInfo},
		},
		{
			name:   "email markers only",
			result: &AnalysisResult{CustomerName: "Ada", EmailSent: []json.RawMessage{json.RawMessage(`true`)}},
			want:   []SectionID{SectionCallInfo, SectionActionItems},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := SectionIDs(BuildSections(tt.result))
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("sections = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildSectionsIsIdempotent(t *testing.T) {
	r := &AnalysisResult{
		CustomerName:    "Ada",
		SentimentScore:  floatPtr(0.5),
		SentimentChunks: []SentimentChunk{{Score: 0.5}},
	}
	first := BuildSections(r)
	second := BuildSections(r)
	if !reflect.DeepEqual(SectionIDs(first), SectionIDs(second)) {
		t.Fatalf("expected identical ids, got %v and %v", SectionIDs(first), SectionIDs(second))
	}
	for _, s := range first {
		if !s.Visible {
			t.Fatalf("section %s should start visible", s.ID)
		}
	}
}

func TestBuildSectionsCallInfoPayload(t *testing.T) {
	r := &AnalysisResult{CustomerName: "Ada", AgentName: "Sam", SentimentScore: floatPtr(0)}
	sections := BuildSections(r)
	info, ok := sections[0].Payload.(CallInfo)
	if !ok {
		t.Fatalf("expected CallInfo payload, got %T", sections[0].Payload)
	}
	if info.Gauge != 50 {
		t.Fatalf("expected gauge 50 for neutral score, got %v", info.Gauge)
	}
	if info.SentimentLabel != "Neutral" {
		t.Fatalf("unexpected label %q", info.SentimentLabel)
	}
}
