package worker

import (
	"time"

	"github.com/goccy/go-json"
)

// Message is the decoded job envelope handed to processors.
type Message struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

// ParsePayload decodes the loosely typed payload map into a concrete
// payload struct.
func ParsePayload[T any](msg *Message) (*T, error) {
	var payload T
	data, err := json.Marshal(msg.Payload)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// ClassifyPayload drives one asynchronous classification.
type ClassifyPayload struct {
	TicketID string `json:"ticketId"`
	TenantID string `json:"tenantId"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	Attempt  int    `json:"attempt"`
}

// RoutePayload drives one routing pass over an existing ticket.
type RoutePayload struct {
	TicketID string `json:"ticketId"`
	TenantID string `json:"tenantId"`
	Attempt  int    `json:"attempt"`
}
