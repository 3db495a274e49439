package out

import (
	"context"

	"triage_server/core/domain"
)

// TicketStore is the write boundary for ticket state. Both updates are
// fire-and-confirm: callers do not assume transactional coupling
// between the classification projection and the routing application.
// Re-applying the same update must produce the same stored state.
type TicketStore interface {
	GetTicket(ctx context.Context, tenantID, ticketID string) (*domain.Ticket, error)

	// UpdateClassification persists the result as an audit record and
	// projects category/priority/sentiment/confidence onto the live
	// ticket row.
	UpdateClassification(ctx context.Context, tenantID, ticketID string, result *domain.ClassificationResult) error

	// UpdateRouting applies a routing decision to the ticket row,
	// last-write-wins at the field level.
	UpdateRouting(ctx context.Context, tenantID, ticketID string, decision *domain.RoutingDecision) error
}

// Directory is the read-only view of assignable agents and teams,
// scoped to a tenant.
type Directory interface {
	ListActiveAgents(ctx context.Context, tenantID string) ([]*domain.Agent, error)
	ListTeams(ctx context.Context, tenantID string) ([]*domain.Team, error)
}

// RuleStore is the read-only listing of active routing rules for a
// tenant, sorted by priority descending.
type RuleStore interface {
	ListActiveRules(ctx context.Context, tenantID string) ([]*domain.RoutingRule, error)
}
