package domain

// RoutingDecision is the output of one routing invocation: a report the
// caller applies to the ticket record. It is created fresh per call and
// never mutated afterward.
type RoutingDecision struct {
	TicketID string `json:"ticket_id,omitempty"`

	AssignToUser string         `json:"assign_to_user,omitempty"`
	AssignToTeam string         `json:"assign_to_team,omitempty"`
	SetPriority  TicketPriority `json:"set_priority,omitempty"`
	AddTags      []string       `json:"add_tags,omitempty"`

	// Reason is a human-readable trace of how the decision was reached.
	Reason string `json:"reason"`

	// Confidence estimates decision quality, in [0, 1].
	Confidence float64 `json:"confidence"`
}

// Assigned reports whether the decision assigns anything at all.
func (d *RoutingDecision) Assigned() bool {
	return d.AssignToUser != "" || d.AssignToTeam != ""
}

// HasTag reports whether AddTags contains the tag.
func (d *RoutingDecision) HasTag(tag string) bool {
	for _, t := range d.AddTags {
		if t == tag {
			return true
		}
	}
	return false
}
