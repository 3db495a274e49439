package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"triage_server/core/domain"
)

// TicketAdapter implements out.TicketStore over Postgres.
type TicketAdapter struct {
	db *sqlx.DB
}

// NewTicketAdapter creates a TicketAdapter.
func NewTicketAdapter(db *sqlx.DB) *TicketAdapter {
	return &TicketAdapter{db: db}
}

type ticketRow struct {
	ID              string         `db:"id"`
	TenantID        string         `db:"tenant_id"`
	Subject         string         `db:"subject"`
	Body            string         `db:"body"`
	Status          string         `db:"status"`
	Category        sql.NullString `db:"category"`
	Priority        string         `db:"priority"`
	Sentiment       sql.NullString `db:"sentiment"`
	SentimentScore  float64        `db:"sentiment_score"`
	AIProcessed     bool           `db:"ai_processed"`
	AIConfidence    float64        `db:"ai_confidence"`
	AssignedAgentID sql.NullString `db:"assigned_agent_id"`
	AssignedTeamID  sql.NullString `db:"assigned_team_id"`
	Tags            pq.StringArray `db:"tags"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func (r *ticketRow) toEntity() *domain.Ticket {
	t := &domain.Ticket{
		ID:             r.ID,
		TenantID:       r.TenantID,
		Subject:        r.Subject,
		Body:           r.Body,
		Status:         domain.TicketStatus(r.Status),
		Priority:       domain.TicketPriority(r.Priority),
		SentimentScore: r.SentimentScore,
		AIProcessed:    r.AIProcessed,
		AIConfidence:   r.AIConfidence,
		Tags:           []string(r.Tags),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.Category.Valid {
		t.Category = domain.TicketCategory(r.Category.String)
	}
	if r.Sentiment.Valid {
		t.Sentiment = domain.SentimentLabel(r.Sentiment.String)
	}
	if r.AssignedAgentID.Valid {
		t.AssignedAgentID = r.AssignedAgentID.String
	}
	if r.AssignedTeamID.Valid {
		t.AssignedTeamID = r.AssignedTeamID.String
	}
	return t
}

// GetTicket loads one ticket scoped to a tenant. A missing ticket
// returns (nil, nil).
func (a *TicketAdapter) GetTicket(ctx context.Context, tenantID, ticketID string) (*domain.Ticket, error) {
	const op = "tickets.get"

	var row ticketRow
	query := `SELECT * FROM tickets WHERE tenant_id = $1 AND id = $2`
	if err := a.db.GetContext(ctx, &row, query, tenantID, ticketID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, wrapDBError(op, err)
	}
	return row.toEntity(), nil
}

// UpdateClassification persists the result as an audit record and
// projects the signals onto the live ticket row. The audit upsert is
// keyed by ticket id, so re-applying the same classification rewrites
// the same row instead of duplicating it.
func (a *TicketAdapter) UpdateClassification(ctx context.Context, tenantID, ticketID string, result *domain.ClassificationResult) error {
	const op = "tickets.update_classification"

	audit := `
		INSERT INTO ticket_classifications (
			id, tenant_id, ticket_id, category, priority,
			sentiment_label, sentiment_score,
			confidence_category, confidence_priority, confidence_sentiment,
			overall_confidence, reasoning, model_version, processing_time_ms,
			processed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (ticket_id) DO UPDATE SET
			category = EXCLUDED.category,
			priority = EXCLUDED.priority,
			sentiment_label = EXCLUDED.sentiment_label,
			sentiment_score = EXCLUDED.sentiment_score,
			confidence_category = EXCLUDED.confidence_category,
			confidence_priority = EXCLUDED.confidence_priority,
			confidence_sentiment = EXCLUDED.confidence_sentiment,
			overall_confidence = EXCLUDED.overall_confidence,
			reasoning = EXCLUDED.reasoning,
			model_version = EXCLUDED.model_version,
			processing_time_ms = EXCLUDED.processing_time_ms,
			processed_at = EXCLUDED.processed_at`

	if _, err := a.db.ExecContext(ctx, audit,
		uuid.New().String(), tenantID, ticketID,
		string(result.Category), string(result.Priority),
		string(result.Sentiment.Label), result.Sentiment.Score,
		result.Confidence.Category, result.Confidence.Priority, result.Confidence.Sentiment,
		result.OverallConfidence, result.Reasoning, result.ModelVersion, result.ProcessingTimeMs,
		result.ProcessedAt,
	); err != nil {
		return wrapDBError(op, err)
	}

	projection := `
		UPDATE tickets SET
			category = $3,
			priority = $4,
			sentiment = $5,
			sentiment_score = $6,
			ai_processed = TRUE,
			ai_confidence = $7,
			updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2`

	if _, err := a.db.ExecContext(ctx, projection,
		tenantID, ticketID,
		string(result.Category), string(result.Priority),
		string(result.Sentiment.Label), result.Sentiment.Score,
		result.OverallConfidence,
	); err != nil {
		return wrapDBError(op, err)
	}
	return nil
}

// UpdateRouting applies a decision to the ticket row, last-write-wins
// per field. Unset decision fields leave the column untouched. Tags
// append in decision order, skipping ones the ticket already carries;
// both sides of the concat are coalesced because Postgres array concat
// is NULL-strict and would otherwise wipe the column.
func (a *TicketAdapter) UpdateRouting(ctx context.Context, tenantID, ticketID string, decision *domain.RoutingDecision) error {
	const op = "tickets.update_routing"

	query := `
		UPDATE tickets SET
			assigned_agent_id = COALESCE(NULLIF($3, ''), assigned_agent_id),
			assigned_team_id = COALESCE(NULLIF($4, ''), assigned_team_id),
			priority = COALESCE(NULLIF($5, ''), priority),
			tags = COALESCE(tags, '{}') || ARRAY(
				SELECT t FROM unnest(COALESCE($6::text[], '{}')) WITH ORDINALITY AS u(t, ord)
				WHERE t <> ALL(COALESCE(tags, '{}'))
				ORDER BY ord
			),
			updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2`

	if _, err := a.db.ExecContext(ctx, query,
		tenantID, ticketID,
		decision.AssignToUser, decision.AssignToTeam,
		string(decision.SetPriority), tagsParam(decision.AddTags),
	); err != nil {
		return wrapDBError(op, err)
	}
	return nil
}

// tagsParam always binds a present array. pq.Array of a nil slice
// binds SQL NULL, which the tags expression must never receive.
func tagsParam(tags []string) pq.StringArray {
	if tags == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(tags)
}
