package out

import "context"

// ClassifyJob is the queue payload driving asynchronous classification.
// It is an immutable value enqueued once per classification request and
// delivered at least once; consumers must tolerate reprocessing.
type ClassifyJob struct {
	TicketID string `json:"ticketId"`
	TenantID string `json:"tenantId"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`

	// Attempt counts transient-failure re-enqueues of this job. Fresh
	// jobs start at zero.
	Attempt int `json:"attempt,omitempty"`
}

// RouteJob is the follow-up payload referencing an already-classified
// ticket.
type RouteJob struct {
	TicketID string `json:"ticketId"`
	TenantID string `json:"tenantId"`
	Attempt  int    `json:"attempt,omitempty"`
}

// JobProducer publishes triage jobs onto the durable queues.
type JobProducer interface {
	PublishClassify(ctx context.Context, job *ClassifyJob) error

	// PublishClassifyRetry re-enqueues a transiently failed job onto
	// the retry queue.
	PublishClassifyRetry(ctx context.Context, job *ClassifyJob) error

	PublishRoute(ctx context.Context, job *RouteJob) error
}
