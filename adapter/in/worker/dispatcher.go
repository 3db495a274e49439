package worker

import (
	"context"

	"github.com/goccy/go-json"

	"triage_server/adapter/out/messaging"
	"triage_server/pkg/logger"
)

// Handler routes decoded jobs to their processors. It implements
// messaging.JobHandler and absorbs all per-job failures: processing
// errors are classified and handled inside the processors, so a
// non-nil return here means only that the envelope itself was
// undecodable.
type Handler struct {
	triage *TriageProcessor
}

// NewHandler creates the dispatch handler.
func NewHandler(triage *TriageProcessor) *Handler {
	return &Handler{triage: triage}
}

// Handle decodes one queued envelope and dispatches by job type.
func (h *Handler) Handle(ctx context.Context, stream string, data []byte) error {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		// Undecodable envelopes are terminal; log and ack so they do
		// not wedge the stream.
		logger.WithError(err).WithField("stream", stream).Error("dropping undecodable job envelope")
		return nil
	}

	logger.WithFields(map[string]any{"job": msg.Type, "stream": stream}).Debug("processing job")

	switch msg.Type {
	case messaging.JobClassify:
		return h.triage.ProcessClassify(ctx, &msg)
	case messaging.JobRoute:
		return h.triage.ProcessRoute(ctx, &msg)
	default:
		logger.Warn("Unknown job type: %s", msg.Type)
		return nil
	}
}
