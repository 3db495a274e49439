package worker

import (
	"context"
	"fmt"
	"time"

	"triage_server/core/port/out"
	"triage_server/core/service/routing"
	"triage_server/pkg/logger"
	"triage_server/pkg/svcerr"
)

// TriageProcessor handles classification and routing jobs. Per-job
// failures never escape it: transient classification errors re-enqueue
// the original job on the retry queue, everything else is logged as a
// terminal drop with the ticket id. Re-running a job is safe because
// both store updates are idempotent projections.
type TriageProcessor struct {
	classifier out.Classifier
	tickets    out.TicketStore
	directory  out.Directory
	rules      out.RuleStore
	engine     *routing.Engine
	producer   out.JobProducer

	// autoRoute enqueues a follow-up routing job after each
	// successful classification.
	autoRoute bool
}

// NewTriageProcessor creates the triage processor.
func NewTriageProcessor(
	classifier out.Classifier,
	tickets out.TicketStore,
	directory out.Directory,
	rules out.RuleStore,
	engine *routing.Engine,
	producer out.JobProducer,
	autoRoute bool,
) *TriageProcessor {
	return &TriageProcessor{
		classifier: classifier,
		tickets:    tickets,
		directory:  directory,
		rules:      rules,
		engine:     engine,
		producer:   producer,
		autoRoute:  autoRoute,
	}
}

// ProcessClassify runs one classification job: classify, persist audit
// row plus live-ticket projection, then optionally enqueue routing.
// A transiently failed classification leaves the ticket untouched and
// re-enqueues the job; a permanent failure leaves the ticket untouched
// and is surfaced through logging for process-level health.
func (p *TriageProcessor) ProcessClassify(ctx context.Context, msg *Message) error {
	payload, err := ParsePayload[ClassifyPayload](msg)
	if err != nil {
		logger.WithError(err).Error("dropping classify job with invalid payload")
		return nil
	}

	log := logger.WithFields(map[string]any{
		"job":       msg.Type,
		"ticket_id": payload.TicketID,
		"tenant_id": payload.TenantID,
	})

	start := time.Now()
	result, err := p.classifier.Classify(ctx, payload.Subject, payload.Body)
	if err != nil {
		return p.handleClassifyFailure(ctx, payload, err, log)
	}
	result.TicketID = payload.TicketID

	if err := p.tickets.UpdateClassification(ctx, payload.TenantID, payload.TicketID, result); err != nil {
		if svcerr.IsRetryable(err) {
			return p.handleClassifyFailure(ctx, payload, err, log)
		}
		log.WithError(err).Error("terminal failure persisting classification, job dropped")
		return nil
	}

	log.WithDuration(time.Since(start)).WithFields(map[string]any{
		"category":   string(result.Category),
		"priority":   string(result.Priority),
		"confidence": result.OverallConfidence,
	}).Info("ticket classified")

	if p.autoRoute {
		routeJob := &out.RouteJob{TicketID: payload.TicketID, TenantID: payload.TenantID}
		if err := p.producer.PublishRoute(ctx, routeJob); err != nil {
			// The classification is already persisted; a failed
			// follow-up enqueue is logged, not retried wholesale.
			log.WithError(err).Error("failed to enqueue routing job")
		}
	}

	return nil
}

// maxTransientRetries bounds transient-failure re-enqueues per job: a
// job that fails transiently on its retry delivery is dropped, not
// cycled through the retry queue forever.
const maxTransientRetries = 1

// handleClassifyFailure applies the retry taxonomy: retryable kinds go
// back onto the retry queue once, everything else is a logged terminal
// drop. The ticket keeps its pre-classification state either way.
func (p *TriageProcessor) handleClassifyFailure(ctx context.Context, payload *ClassifyPayload, cause error, log *logger.Logger) error {
	if svcerr.IsRetryable(cause) {
		if payload.Attempt >= maxTransientRetries {
			log.WithError(cause).WithField("attempt", payload.Attempt).
				Error("transient failure after retry, job dropped")
			return nil
		}
		job := &out.ClassifyJob{
			TicketID: payload.TicketID,
			TenantID: payload.TenantID,
			Subject:  payload.Subject,
			Body:     payload.Body,
			Attempt:  payload.Attempt + 1,
		}
		if err := p.producer.PublishClassifyRetry(ctx, job); err != nil {
			// Leave the original delivery unacked so the queue
			// redelivers it.
			log.WithError(err).Error("failed to move job to retry queue")
			return fmt.Errorf("retry enqueue failed: %w", err)
		}
		log.WithError(cause).Warn("transient classification failure, job moved to retry queue")
		return nil
	}

	if svcerr.IsPermanent(cause) {
		log.WithError(cause).Error("permanent classification failure, job dropped; check service credentials")
		return nil
	}

	log.WithError(cause).Error("terminal classification failure, job dropped")
	return nil
}

// ProcessRoute runs one routing job: load organizational state, compute
// the decision with the pure engine, and apply it to the ticket.
func (p *TriageProcessor) ProcessRoute(ctx context.Context, msg *Message) error {
	payload, err := ParsePayload[RoutePayload](msg)
	if err != nil {
		logger.WithError(err).Error("dropping route job with invalid payload")
		return nil
	}

	log := logger.WithFields(map[string]any{
		"job":       msg.Type,
		"ticket_id": payload.TicketID,
		"tenant_id": payload.TenantID,
	})

	ticket, err := p.tickets.GetTicket(ctx, payload.TenantID, payload.TicketID)
	if err != nil {
		return p.handleRouteFailure(ctx, payload, err, log)
	}
	if ticket == nil {
		log.Warn("route job for unknown ticket, dropped")
		return nil
	}

	agents, err := p.directory.ListActiveAgents(ctx, payload.TenantID)
	if err != nil {
		return p.handleRouteFailure(ctx, payload, err, log)
	}
	teams, err := p.directory.ListTeams(ctx, payload.TenantID)
	if err != nil {
		return p.handleRouteFailure(ctx, payload, err, log)
	}
	rules, err := p.rules.ListActiveRules(ctx, payload.TenantID)
	if err != nil {
		return p.handleRouteFailure(ctx, payload, err, log)
	}

	decision := p.engine.Route(ticket, agents, teams, rules)

	// An empty pool is not an error: the decision reports the gap and
	// the log line is the operational alert.
	if !decision.Assigned() {
		log.WithField("reason", decision.Reason).Warn("routing produced no assignment")
	}

	if err := p.tickets.UpdateRouting(ctx, payload.TenantID, payload.TicketID, decision); err != nil {
		return p.handleRouteFailure(ctx, payload, err, log)
	}

	log.WithFields(map[string]any{
		"assign_team": decision.AssignToTeam,
		"assign_user": decision.AssignToUser,
		"confidence":  decision.Confidence,
		"reason":      decision.Reason,
	}).Info("ticket routed")

	return nil
}

func (p *TriageProcessor) handleRouteFailure(ctx context.Context, payload *RoutePayload, cause error, log *logger.Logger) error {
	if svcerr.IsRetryable(cause) {
		if payload.Attempt >= maxTransientRetries {
			log.WithError(cause).WithField("attempt", payload.Attempt).
				Error("transient failure after retry, job dropped")
			return nil
		}
		job := &out.RouteJob{TicketID: payload.TicketID, TenantID: payload.TenantID, Attempt: payload.Attempt + 1}
		if err := p.producer.PublishRoute(ctx, job); err != nil {
			log.WithError(err).Error("failed to re-enqueue routing job")
			return fmt.Errorf("route re-enqueue failed: %w", err)
		}
		log.WithError(cause).Warn("transient routing failure, job re-enqueued")
		return nil
	}
	log.WithError(cause).Error("terminal routing failure, job dropped")
	return nil
}
