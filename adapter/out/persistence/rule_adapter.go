package persistence

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"triage_server/core/domain"
	"triage_server/pkg/logger"
)

// RuleAdapter implements out.RuleStore. Stored condition maps are
// parsed into the matcher AST at load time; rules that fail to parse
// are skipped with a warning rather than poisoning every evaluation.
type RuleAdapter struct {
	db *sqlx.DB
}

// NewRuleAdapter creates a RuleAdapter.
func NewRuleAdapter(db *sqlx.DB) *RuleAdapter {
	return &RuleAdapter{db: db}
}

type ruleRow struct {
	ID          string         `db:"id"`
	TenantID    string         `db:"tenant_id"`
	Name        string         `db:"name"`
	Priority    int            `db:"priority"`
	Conditions  []byte         `db:"conditions"`
	AssignTeam  string         `db:"assign_team"`
	AssignUser  string         `db:"assign_user"`
	SetPriority string         `db:"set_priority"`
	AddTags     pq.StringArray `db:"add_tags"`
	Active      bool           `db:"active"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

// ListActiveRules returns the tenant's active routing rules sorted by
// priority descending, creation order breaking ties.
func (a *RuleAdapter) ListActiveRules(ctx context.Context, tenantID string) ([]*domain.RoutingRule, error) {
	const op = "rules.list_active"

	var rows []ruleRow
	query := `
		SELECT id, tenant_id, name, priority, conditions,
		       COALESCE(assign_team, '') AS assign_team,
		       COALESCE(assign_user, '') AS assign_user,
		       COALESCE(set_priority, '') AS set_priority,
		       add_tags, active, created_at, updated_at
		FROM routing_rules
		WHERE tenant_id = $1 AND active = TRUE
		ORDER BY priority DESC, created_at ASC`
	if err := a.db.SelectContext(ctx, &rows, query, tenantID); err != nil {
		return nil, wrapDBError(op, err)
	}

	rules := make([]*domain.RoutingRule, 0, len(rows))
	for _, r := range rows {
		var raw map[string]any
		if err := json.Unmarshal(r.Conditions, &raw); err != nil {
			logger.WithError(err).WithField("rule", r.Name).Warn("skipping rule with unreadable conditions")
			continue
		}
		conds, err := domain.ParseConditions(raw)
		if err != nil {
			logger.WithError(err).WithField("rule", r.Name).Warn("skipping rule with invalid conditions")
			continue
		}

		rules = append(rules, &domain.RoutingRule{
			ID:         r.ID,
			TenantID:   r.TenantID,
			Name:       r.Name,
			Priority:   r.Priority,
			Conditions: conds,
			Actions: domain.RuleActions{
				AssignTeam:  r.AssignTeam,
				AssignUser:  r.AssignUser,
				SetPriority: domain.TicketPriority(r.SetPriority),
				AddTags:     []string(r.AddTags),
			},
			Active:    r.Active,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		})
	}
	return rules, nil
}
