package calls

import (
	"callinsights-backend/internal/access"
	"callinsights-backend/internal/dashboard"
)

// DashboardView is what the dashboard endpoint renders for a session.
type DashboardView struct {
	Phase    dashboard.Phase       `json:"phase"`
	Progress float64               `json:"progress"`
	JobID    string                `json:"jobId,omitempty"`
	Files    []string              `json:"files"`
	Error    string                `json:"error,omitempty"`
	Sections []SectionView         `json:"sections"`
	Order    []dashboard.SectionID `json:"order"`
	Drag     DragView              `json:"drag"`
}

type SectionView struct {
	ID      dashboard.SectionID `json:"id"`
	Kind    string              `json:"kind"`
	Payload any                 `json:"payload"`
}

type DragView struct {
	State  dashboard.DragState `json:"state"`
	Active dashboard.SectionID `json:"active,omitempty"`
}

// BuildView renders a snapshot for a viewer holding role.
func BuildView(snap dashboard.Snapshot, order []dashboard.SectionID, dragState dashboard.DragState, dragActive dashboard.SectionID, role string) DashboardView {
	v := DashboardView{
		Phase:    snap.Phase,
		Progress: snap.Progress,
		Error:    snap.Error,
		Files:    []string{},
		Sections: make([]SectionView, 0, len(snap.Sections)),
		Order:    order,
		Drag:     DragView{State: dragState, Active: dragActive},
	}
	if v.Order == nil {
		v.Order = []dashboard.SectionID{}
	}
	if snap.Job != nil {
		v.JobID = snap.Job.ID
		v.Files = snap.Job.Files
	}
	for _, s := range snap.Sections {
		v.Sections = append(v.Sections, SectionView{
			ID:      s.ID,
			Kind:    string(s.ID),
			Payload: gatePayload(s.Payload, role),
		})
	}
	return v
}

// gatePayload strips fields the role may not see.
func gatePayload(payload any, role string) any {
	insights, ok := payload.(dashboard.SpeakerInsights)
	if !ok || access.Can(role, access.FeatureAgentRating) {
		return payload
	}
	insights.AgentRating = nil
	return insights
}
