package persistence

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"triage_server/core/domain"
)

// DirectoryAdapter implements out.Directory: read-only agent and team
// listings scoped to a tenant.
type DirectoryAdapter struct {
	db *sqlx.DB
}

// NewDirectoryAdapter creates a DirectoryAdapter.
func NewDirectoryAdapter(db *sqlx.DB) *DirectoryAdapter {
	return &DirectoryAdapter{db: db}
}

type agentRow struct {
	ID          string         `db:"id"`
	TenantID    string         `db:"tenant_id"`
	Name        string         `db:"name"`
	Role        string         `db:"role"`
	Skills      pq.StringArray `db:"skills"`
	CurrentLoad int            `db:"current_load"`
	Capacity    int            `db:"capacity"`
	Active      bool           `db:"active"`
}

type membershipRow struct {
	AgentID string `db:"agent_id"`
	TeamID  string `db:"team_id"`
	IsLead  bool   `db:"is_lead"`
}

// ListActiveAgents returns the tenant's active agents with skills,
// memberships, load and capacity, ordered by id for deterministic
// routing tie-breaks.
func (a *DirectoryAdapter) ListActiveAgents(ctx context.Context, tenantID string) ([]*domain.Agent, error) {
	const op = "directory.list_agents"

	var rows []agentRow
	query := `
		SELECT id, tenant_id, name, role, skills, current_load, capacity, active
		FROM agents
		WHERE tenant_id = $1 AND active = TRUE
		ORDER BY id`
	if err := a.db.SelectContext(ctx, &rows, query, tenantID); err != nil {
		return nil, wrapDBError(op, err)
	}

	var memberships []membershipRow
	memberQuery := `
		SELECT tm.agent_id, tm.team_id, tm.is_lead
		FROM team_members tm
		JOIN agents ag ON ag.id = tm.agent_id
		WHERE ag.tenant_id = $1
		ORDER BY tm.team_id`
	if err := a.db.SelectContext(ctx, &memberships, memberQuery, tenantID); err != nil {
		return nil, wrapDBError(op, err)
	}

	byAgent := make(map[string][]domain.TeamMembership)
	for _, m := range memberships {
		byAgent[m.AgentID] = append(byAgent[m.AgentID], domain.TeamMembership{
			TeamID: m.TeamID,
			IsLead: m.IsLead,
		})
	}

	agents := make([]*domain.Agent, 0, len(rows))
	for _, r := range rows {
		agents = append(agents, &domain.Agent{
			ID:          r.ID,
			TenantID:    r.TenantID,
			Name:        r.Name,
			Role:        domain.AgentRole(r.Role),
			Skills:      []string(r.Skills),
			Teams:       byAgent[r.ID],
			CurrentLoad: r.CurrentLoad,
			Capacity:    r.Capacity,
			Active:      r.Active,
		})
	}
	return agents, nil
}

type teamRow struct {
	ID       string         `db:"id"`
	TenantID string         `db:"tenant_id"`
	Name     string         `db:"name"`
	Skills   pq.StringArray `db:"skills"`
}

// ListTeams returns the tenant's teams with skills and membership,
// ordered by id.
func (a *DirectoryAdapter) ListTeams(ctx context.Context, tenantID string) ([]*domain.Team, error) {
	const op = "directory.list_teams"

	var rows []teamRow
	query := `
		SELECT id, tenant_id, name, skills
		FROM teams
		WHERE tenant_id = $1
		ORDER BY id`
	if err := a.db.SelectContext(ctx, &rows, query, tenantID); err != nil {
		return nil, wrapDBError(op, err)
	}

	var memberships []membershipRow
	memberQuery := `
		SELECT tm.agent_id, tm.team_id, tm.is_lead
		FROM team_members tm
		JOIN teams t ON t.id = tm.team_id
		WHERE t.tenant_id = $1
		ORDER BY tm.agent_id`
	if err := a.db.SelectContext(ctx, &memberships, memberQuery, tenantID); err != nil {
		return nil, wrapDBError(op, err)
	}

	byTeam := make(map[string][]string)
	for _, m := range memberships {
		byTeam[m.TeamID] = append(byTeam[m.TeamID], m.AgentID)
	}

	teams := make([]*domain.Team, 0, len(rows))
	for _, r := range rows {
		teams = append(teams, &domain.Team{
			ID:       r.ID,
			TenantID: r.TenantID,
			Name:     r.Name,
			Skills:   []string(r.Skills),
			Members:  byTeam[r.ID],
		})
	}
	return teams, nil
}
