package domain

// AgentRole distinguishes assignable staff from managers eligible for
// escalation reassignment.
type AgentRole string

const (
	RoleAgent   AgentRole = "agent"
	RoleManager AgentRole = "manager"
	RoleAdmin   AgentRole = "admin"
)

// TeamMembership links an agent to a team.
type TeamMembership struct {
	TeamID string `json:"team_id"`
	IsLead bool   `json:"is_lead"`
}

// Agent is an assignable human worker.
type Agent struct {
	ID          string           `json:"id"`
	TenantID    string           `json:"tenant_id"`
	Name        string           `json:"name"`
	Role        AgentRole        `json:"role"`
	Skills      []string         `json:"skills"`
	Teams       []TeamMembership `json:"teams"`
	CurrentLoad int              `json:"current_load"`
	Capacity    int              `json:"capacity"`
	Active      bool             `json:"active"`
}

// HasSkill reports whether the agent carries the given skill tag.
func (a *Agent) HasSkill(tag string) bool {
	for _, s := range a.Skills {
		if s == tag {
			return true
		}
	}
	return false
}

// MemberOf reports whether the agent belongs to the team.
func (a *Agent) MemberOf(teamID string) bool {
	for _, m := range a.Teams {
		if m.TeamID == teamID {
			return true
		}
	}
	return false
}

// LeadOf reports whether the agent is the lead of the team.
func (a *Agent) LeadOf(teamID string) bool {
	for _, m := range a.Teams {
		if m.TeamID == teamID && m.IsLead {
			return true
		}
	}
	return false
}

// IsTeamLead reports whether the agent leads any team.
func (a *Agent) IsTeamLead() bool {
	for _, m := range a.Teams {
		if m.IsLead {
			return true
		}
	}
	return false
}

// LoadRatio returns currentLoad/capacity; an agent with no capacity is
// treated as fully loaded.
func (a *Agent) LoadRatio() float64 {
	if a.Capacity <= 0 {
		return 1
	}
	return float64(a.CurrentLoad) / float64(a.Capacity)
}

// Team is a group of agents sharing skills.
type Team struct {
	ID       string   `json:"id"`
	TenantID string   `json:"tenant_id"`
	Name     string   `json:"name"`
	Skills   []string `json:"skills"`
	Members  []string `json:"members"`
}

// HasSkill reports whether the team carries the given skill tag.
func (t *Team) HasSkill(tag string) bool {
	for _, s := range t.Skills {
		if s == tag {
			return true
		}
	}
	return false
}

// HasAnySkill reports whether the team carries any of the given tags.
func (t *Team) HasAnySkill(tags []string) bool {
	for _, tag := range tags {
		if t.HasSkill(tag) {
			return true
		}
	}
	return false
}
