package messaging

import (
	"context"
	"time"

	"github.com/google/uuid"

	"triage_server/core/port/out"
)

// Envelope is the wire format of one queued job.
type Envelope struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

// Job types carried on the triage streams.
const (
	JobClassify = "ticket.classify"
	JobRoute    = "ticket.route"
)

// Producer publishes triage jobs. Implements out.JobProducer.
type Producer struct {
	stream *RedisStream
}

// NewProducer creates a producer over a RedisStream.
func NewProducer(stream *RedisStream) *Producer {
	return &Producer{stream: stream}
}

// PublishClassify enqueues a classification job on the primary stream.
func (p *Producer) PublishClassify(ctx context.Context, job *out.ClassifyJob) error {
	_, err := p.stream.Publish(ctx, StreamClassify, classifyEnvelope(job))
	return err
}

// PublishClassifyRetry re-enqueues a transiently failed classification
// job onto the retry stream.
func (p *Producer) PublishClassifyRetry(ctx context.Context, job *out.ClassifyJob) error {
	_, err := p.stream.Publish(ctx, StreamRetry, classifyEnvelope(job))
	return err
}

// PublishRoute enqueues a follow-up routing job.
func (p *Producer) PublishRoute(ctx context.Context, job *out.RouteJob) error {
	env := &Envelope{
		ID:   uuid.New().String(),
		Type: JobRoute,
		Payload: map[string]any{
			"ticketId": job.TicketID,
			"tenantId": job.TenantID,
			"attempt":  job.Attempt,
		},
		CreatedAt: time.Now(),
	}
	_, err := p.stream.Publish(ctx, StreamRoute, env)
	return err
}

func classifyEnvelope(job *out.ClassifyJob) *Envelope {
	return &Envelope{
		ID:   uuid.New().String(),
		Type: JobClassify,
		Payload: map[string]any{
			"ticketId": job.TicketID,
			"tenantId": job.TenantID,
			"subject":  job.Subject,
			"body":     job.Body,
			"attempt":  job.Attempt,
		},
		CreatedAt: time.Now(),
	}
}
