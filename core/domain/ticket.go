package domain

import (
	"time"
)

// TicketStatus represents the lifecycle state of a support ticket.
type TicketStatus string

const (
	StatusOpen       TicketStatus = "open"
	StatusInProgress TicketStatus = "in_progress"
	StatusPending    TicketStatus = "pending"
	StatusResolved   TicketStatus = "resolved"
	StatusClosed     TicketStatus = "closed"
)

// TicketCategory is the AI-assigned ticket category.
type TicketCategory string

const (
	CategoryBilling        TicketCategory = "billing"
	CategoryTechnical      TicketCategory = "technical"
	CategoryFeatureRequest TicketCategory = "feature_request"
	CategoryBug            TicketCategory = "bug"
	CategoryAccount        TicketCategory = "account"
	CategoryGeneral        TicketCategory = "general"
)

// DefaultCategory is assigned when the upstream value is missing or unknown.
const DefaultCategory = CategoryGeneral

// ParseCategory maps an arbitrary string onto the fixed category domain.
// Unrecognized input maps to DefaultCategory, never an error.
func ParseCategory(s string) TicketCategory {
	switch TicketCategory(s) {
	case CategoryBilling, CategoryTechnical, CategoryFeatureRequest,
		CategoryBug, CategoryAccount, CategoryGeneral:
		return TicketCategory(s)
	default:
		return DefaultCategory
	}
}

// TicketPriority is the urgency level of a ticket.
type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityMedium TicketPriority = "medium"
	PriorityHigh   TicketPriority = "high"
	PriorityUrgent TicketPriority = "urgent"
)

// DefaultPriority is assigned when the upstream value is missing or unknown.
const DefaultPriority = PriorityMedium

// ParsePriority maps an arbitrary string onto the fixed priority domain.
func ParsePriority(s string) TicketPriority {
	switch TicketPriority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return TicketPriority(s)
	default:
		return DefaultPriority
	}
}

// SentimentLabel is the AI-assigned sentiment of the ticket text.
type SentimentLabel string

const (
	SentimentPositive     SentimentLabel = "positive"
	SentimentNeutral      SentimentLabel = "neutral"
	SentimentNegative     SentimentLabel = "negative"
	SentimentVeryNegative SentimentLabel = "very_negative"
)

// DefaultSentiment is assigned when the upstream value is missing or unknown.
const DefaultSentiment = SentimentNeutral

// ParseSentiment maps an arbitrary string onto the fixed sentiment domain.
func ParseSentiment(s string) SentimentLabel {
	switch SentimentLabel(s) {
	case SentimentPositive, SentimentNeutral, SentimentNegative, SentimentVeryNegative:
		return SentimentLabel(s)
	default:
		return DefaultSentiment
	}
}

// Ticket is a customer support request with mutable classification and
// assignment signals. Classification projects onto Category, Priority,
// Sentiment and AIConfidence; routing projects onto AssignedAgentID,
// AssignedTeamID and Tags.
type Ticket struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`

	Subject string `json:"subject"`
	Body    string `json:"body"`

	Status   TicketStatus   `json:"status"`
	Category TicketCategory `json:"category,omitempty"`
	Priority TicketPriority `json:"priority"`

	Sentiment      SentimentLabel `json:"sentiment,omitempty"`
	SentimentScore float64        `json:"sentiment_score"`

	AIProcessed  bool    `json:"ai_processed"`
	AIConfidence float64 `json:"ai_confidence"`

	AssignedAgentID string   `json:"assigned_agent_id,omitempty"`
	AssignedTeamID  string   `json:"assigned_team_id,omitempty"`
	Tags            []string `json:"tags,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Field exposes the ticket fields addressable from routing rule
// conditions. The second return reports whether the field exists;
// conditions on unknown fields never match.
func (t *Ticket) Field(name string) (any, bool) {
	switch name {
	case "category":
		return string(t.Category), true
	case "priority":
		return string(t.Priority), true
	case "sentiment":
		return string(t.Sentiment), true
	case "sentiment_score":
		return t.SentimentScore, true
	case "ai_confidence":
		return t.AIConfidence, true
	case "status":
		return string(t.Status), true
	case "subject":
		return t.Subject, true
	case "body":
		return t.Body, true
	case "tenant_id":
		return t.TenantID, true
	default:
		return nil, false
	}
}
