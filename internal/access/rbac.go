package access

import "strings"

type Feature string

const (
	// FeatureAgentRating shows the agent's rating inside speaker insights.
	FeatureAgentRating Feature = "agent-rating"
)

const (
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleSupervisor = "supervisor"
)

// Can reports whether role may see feature. Empty and unknown roles get the
// least-privileged view.
func Can(role string, feature Feature) bool {
	switch Normalize(role) {
	case RoleAdmin:
		return true
	case RoleManager, RoleSupervisor:
		return feature == FeatureAgentRating
	default:
		return false
	}
}

func Normalize(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
