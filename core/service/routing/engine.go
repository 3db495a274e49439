// Package routing implements the deterministic ticket routing engine:
// a pure function of (ticket, agents, teams, rules) producing an
// assignment decision. No I/O, no clock, no randomness.
package routing

import (
	"fmt"
	"sort"
	"strings"

	"triage_server/core/domain"
)

// EscalatedTag marks tickets forced to urgent by the escalation stage.
const EscalatedTag = "escalated"

// ruleConfidence is the confidence recorded when a routing rule
// matches. It acts as a floor under the stage-6 heuristic.
const ruleConfidence = 0.9

// Engine computes routing decisions. It holds no state and is safe to
// call concurrently.
type Engine struct{}

// NewEngine creates a routing engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Route runs the multi-stage routing algorithm. Identical inputs
// always produce identical decisions; tie-breaks follow input list
// order throughout.
func (e *Engine) Route(ticket *domain.Ticket, agents []*domain.Agent, teams []*domain.Team, rules []*domain.RoutingRule) *domain.RoutingDecision {
	decision := &domain.RoutingDecision{TicketID: ticket.ID}
	var trace []string

	// Stage 1: rule matching, highest priority first.
	ruleMatched := e.applyRules(ticket, rules, decision, &trace)

	// Stage 2: category → team fallback.
	if decision.AssignToTeam == "" && ticket.Category != "" {
		e.assignTeamByCategory(ticket.Category, teams, decision, &trace)
	}

	// Stage 3: best agent inside the assigned team.
	if decision.AssignToTeam != "" && decision.AssignToUser == "" {
		e.assignBestAgent(ticket.Category, decision.AssignToTeam, agents, decision, &trace)
	}

	// Stage 4: escalation override.
	if needsEscalation(ticket) {
		e.escalate(agents, decision, &trace)
	}

	// Stage 5: load-balancing fallback.
	if decision.AssignToTeam == "" && decision.AssignToUser == "" {
		e.assignLeastBusy(agents, decision, &trace)
	}

	// Stage 6: confidence. A rule-derived confidence acts as a floor
	// under the heuristic score.
	confidence := e.scoreConfidence(ticket, decision)
	if ruleMatched && confidence < ruleConfidence {
		confidence = ruleConfidence
	}
	decision.Confidence = confidence

	if len(trace) == 0 {
		trace = append(trace, "no assignment possible: empty agent and team pools")
	}
	decision.Reason = strings.Join(trace, "; ")

	return decision
}

// =============================================================================
// Stage 1: Rule Matching
// =============================================================================

// applyRules evaluates active rules sorted by descending priority
// (stable, so equal priorities keep list order) and applies the first
// match. Reports whether any rule matched.
func (e *Engine) applyRules(ticket *domain.Ticket, rules []*domain.RoutingRule, decision *domain.RoutingDecision, trace *[]string) bool {
	if len(rules) == 0 {
		return false
	}

	ordered := make([]*domain.RoutingRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	for _, rule := range ordered {
		if !rule.Active || !rule.Matches(ticket) {
			continue
		}

		if rule.Actions.AssignTeam != "" {
			decision.AssignToTeam = rule.Actions.AssignTeam
		}
		if rule.Actions.AssignUser != "" {
			decision.AssignToUser = rule.Actions.AssignUser
		}
		if rule.Actions.SetPriority != "" {
			decision.SetPriority = rule.Actions.SetPriority
		}
		if len(rule.Actions.AddTags) > 0 {
			decision.AddTags = appendUnique(decision.AddTags, rule.Actions.AddTags...)
		}

		*trace = append(*trace, fmt.Sprintf("matched rule %q", rule.Name))
		return true
	}
	return false
}

// =============================================================================
// Stage 2: Category → Team Fallback
// =============================================================================

// categoryTeamTags maps a ticket category to the skill tags a candidate
// team may carry. Slices keep a fixed order so the trace is stable.
var categoryTeamTags = map[domain.TicketCategory][]string{
	domain.CategoryBilling:        {"billing", "payments", "finance"},
	domain.CategoryTechnical:      {"technical", "engineering", "qa"},
	domain.CategoryBug:            {"technical", "engineering", "qa"},
	domain.CategoryFeatureRequest: {"product", "feedback"},
	domain.CategoryAccount:        {"account", "customer_success"},
}

var defaultTeamTags = []string{"support"}

func (e *Engine) assignTeamByCategory(category domain.TicketCategory, teams []*domain.Team, decision *domain.RoutingDecision, trace *[]string) {
	if len(teams) == 0 {
		return
	}

	tags, ok := categoryTeamTags[category]
	if !ok {
		tags = defaultTeamTags
	}

	for _, team := range teams {
		if team.HasAnySkill(tags) {
			decision.AssignToTeam = team.ID
			*trace = append(*trace, fmt.Sprintf("category %s matched team %s", category, team.ID))
			return
		}
	}

	decision.AssignToTeam = teams[0].ID
	*trace = append(*trace, fmt.Sprintf("no skill match for category %s, defaulted to team %s", category, teams[0].ID))
}

// =============================================================================
// Stage 3: Best Agent Scoring
// =============================================================================

// categoryAgentSkills is the narrower table used for agent skill
// bonuses.
var categoryAgentSkills = map[domain.TicketCategory][]string{
	domain.CategoryBilling:        {"billing"},
	domain.CategoryTechnical:      {"technical", "engineering"},
	domain.CategoryBug:            {"technical", "qa"},
	domain.CategoryFeatureRequest: {"product"},
	domain.CategoryAccount:        {"account"},
	domain.CategoryGeneral:        {"support"},
}

// agentScore computes the stage-3 score: +10 per category-relevant
// skill, +20 scaled by availability, +5 for the team lead.
func agentScore(agent *domain.Agent, category domain.TicketCategory, teamID string) float64 {
	score := 0.0
	for _, skill := range categoryAgentSkills[category] {
		if agent.HasSkill(skill) {
			score += 10
		}
	}
	score += 20 * (1 - agent.LoadRatio())
	if agent.LeadOf(teamID) {
		score += 5
	}
	return score
}

func (e *Engine) assignBestAgent(category domain.TicketCategory, teamID string, agents []*domain.Agent, decision *domain.RoutingDecision, trace *[]string) {
	var best *domain.Agent
	bestScore := 0.0

	for _, agent := range agents {
		if !agent.Active || !agent.MemberOf(teamID) {
			continue
		}
		// Strict greater-than keeps the first encountered on ties.
		if score := agentScore(agent, category, teamID); best == nil || score > bestScore {
			best = agent
			bestScore = score
		}
	}

	if best != nil {
		decision.AssignToUser = best.ID
		*trace = append(*trace, fmt.Sprintf("best agent %s (score %.1f)", best.ID, bestScore))
	}
}

// =============================================================================
// Stage 4: Escalation Override
// =============================================================================

// escalationKeywords is the fixed risk lexicon checked against the
// ticket text, case-insensitive.
var escalationKeywords = []string{
	"cancel", "refund", "lawsuit", "lawyer", "legal", "manager",
	"supervisor", "escalate", "complaint", "terrible", "awful",
	"unacceptable", "fraud",
}

// needsEscalation reports whether any escalation trigger holds.
func needsEscalation(t *domain.Ticket) bool {
	if t.Priority == domain.PriorityUrgent {
		return true
	}
	if t.Sentiment == domain.SentimentVeryNegative {
		return true
	}
	if t.SentimentScore < -0.5 {
		return true
	}
	text := strings.ToLower(t.Subject + " " + t.Body)
	for _, kw := range escalationKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// escalate forces urgent priority, tags the ticket, and reassigns to a
// senior agent: a lead of the chosen team first (any lead if no team is
// chosen), then any manager. The least busy candidate wins; this
// overrides any stage-3 pick.
func (e *Engine) escalate(agents []*domain.Agent, decision *domain.RoutingDecision, trace *[]string) {
	decision.SetPriority = domain.PriorityUrgent
	decision.AddTags = appendUnique(decision.AddTags, EscalatedTag)

	var candidates []*domain.Agent
	for _, agent := range agents {
		if !agent.Active {
			continue
		}
		if decision.AssignToTeam != "" {
			if agent.LeadOf(decision.AssignToTeam) {
				candidates = append(candidates, agent)
			}
		} else if agent.IsTeamLead() {
			candidates = append(candidates, agent)
		}
	}
	if len(candidates) == 0 {
		for _, agent := range agents {
			if agent.Active && agent.Role == domain.RoleManager {
				candidates = append(candidates, agent)
			}
		}
	}

	if senior := leastBusy(candidates); senior != nil {
		decision.AssignToUser = senior.ID
		*trace = append(*trace, fmt.Sprintf("escalated to senior agent %s", senior.ID))
	} else {
		*trace = append(*trace, "escalated, no senior agent available")
	}
}

// =============================================================================
// Stage 5: Load-Balancing Fallback
// =============================================================================

func (e *Engine) assignLeastBusy(agents []*domain.Agent, decision *domain.RoutingDecision, trace *[]string) {
	active := make([]*domain.Agent, 0, len(agents))
	for _, agent := range agents {
		if agent.Active {
			active = append(active, agent)
		}
	}
	if agent := leastBusy(active); agent != nil {
		decision.AssignToUser = agent.ID
		*trace = append(*trace, "load balancing")
	}
}

// leastBusy picks the agent with the lowest load ratio; list order
// breaks ties.
func leastBusy(agents []*domain.Agent) *domain.Agent {
	var best *domain.Agent
	bestRatio := 0.0
	for _, agent := range agents {
		if ratio := agent.LoadRatio(); best == nil || ratio < bestRatio {
			best = agent
			bestRatio = ratio
		}
	}
	return best
}

// =============================================================================
// Stage 6: Confidence Scoring
// =============================================================================

func (e *Engine) scoreConfidence(ticket *domain.Ticket, decision *domain.RoutingDecision) float64 {
	confidence := 0.5
	if decision.AssignToTeam != "" && decision.AssignToUser != "" {
		confidence += 0.3
	}
	if ticket.AIProcessed {
		confidence += 0.1
	}
	if ticket.AIConfidence > 0.8 {
		confidence += 0.1
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

func appendUnique(tags []string, add ...string) []string {
	for _, tag := range add {
		exists := false
		for _, t := range tags {
			if t == tag {
				exists = true
				break
			}
		}
		if !exists {
			tags = append(tags, tag)
		}
	}
	return tags
}
