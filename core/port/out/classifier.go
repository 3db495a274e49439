package out

import (
	"context"

	"triage_server/core/domain"
)

// Classifier is the capability interface over the external
// text-classification service. Classify ALWAYS returns a usable
// (possibly zero-confidence) result: malformed upstream payloads are
// absorbed into the defensive fallback. The error is non-nil only for
// service failures (transient or permanent, distinguished by svcerr
// kind) so the caller can decide whether to retry; even then the
// returned result is valid.
type Classifier interface {
	Classify(ctx context.Context, subject, body string) (*domain.ClassificationResult, error)

	// ClassifyBatch processes tickets strictly one at a time. The
	// sequential contract is a rate-limit safety trade-off; callers
	// must not assume intra-batch concurrency.
	ClassifyBatch(ctx context.Context, inputs []ClassifyInput) []*domain.ClassificationResult
}

// ClassifyInput is one unit of batch classification work.
type ClassifyInput struct {
	TicketID string
	Subject  string
	Body     string
}

// CompletionClient is the raw remote capability the classifier is built
// on: prompt in, structured JSON out. Only the classify service may
// depend on the concrete wire format behind it.
type CompletionClient interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Model() string
}
