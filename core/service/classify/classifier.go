package classify

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"

	"triage_server/core/domain"
	"triage_server/core/port/out"
	"triage_server/pkg/logger"
	"triage_server/pkg/svcerr"
)

const maxBodyLen = 2000

// systemPrompt instructs the model to emit exactly the response schema
// the parser expects.
const systemPrompt = `You are a support ticket classification AI. Analyze the ticket and respond with JSON only.

Categories (pick ONE): billing, technical, feature_request, bug, account, general
Priority (pick ONE): low, medium, high, urgent
Sentiment label (pick ONE): positive, neutral, negative, very_negative
Sentiment score: -1.0 (hostile) to 1.0 (delighted)
Confidence values: 0.0 to 1.0 per signal

Respond with this exact JSON format:
{
  "category": "category_name",
  "priority": "priority_name",
  "sentiment": {"label": "label_name", "score": -1.0 to 1.0},
  "confidence": {"category": 0.0-1.0, "priority": 0.0-1.0, "sentiment": 0.0-1.0},
  "reasoning": "brief 1-2 sentence explanation"
}`

// response is the upstream wire format. Nothing in it is trusted:
// every field is validated or clamped before leaving this package.
type response struct {
	Category  string `json:"category"`
	Priority  string `json:"priority"`
	Sentiment struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	} `json:"sentiment"`
	Confidence struct {
		Category  float64 `json:"category"`
		Priority  float64 `json:"priority"`
		Sentiment float64 `json:"sentiment"`
	} `json:"confidence"`
	Reasoning string `json:"reasoning"`
}

// Classifier normalizes untrusted classification-service output into
// bounded, validated results. It implements out.Classifier and never
// returns an error: callers always get a usable result.
type Classifier struct {
	client out.CompletionClient
}

// NewClassifier creates a classifier over a completion client.
func NewClassifier(client out.CompletionClient) *Classifier {
	return &Classifier{client: client}
}

// Classify runs one classification. The result is always usable:
// malformed payloads collapse into the defensive fallback without an
// error, and on success every enum is checked against its domain and
// every number clamped into range, even when the transport behaved
// correctly. The error is non-nil only for service failures whose
// svcerr kind tells the caller whether a retry can help; the fallback
// result accompanies it.
func (c *Classifier) Classify(ctx context.Context, subject, body string) (*domain.ClassificationResult, error) {
	start := time.Now()

	raw, err := c.client.CompleteJSON(ctx, systemPrompt, buildUserPrompt(subject, body))
	if err != nil {
		if svcerr.KindOf(err) == svcerr.KindMalformed {
			// Not retryable; absorb into the fallback result.
			logger.WithError(err).Warn("malformed classification response, using fallback")
			return domain.FallbackClassification(c.client.Model(), time.Since(start)), nil
		}
		logger.WithError(err).Warn("classification call failed")
		return domain.FallbackClassification(c.client.Model(), time.Since(start)), err
	}

	var resp response
	cleaned := stripFence(raw)
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		logger.WithError(svcerr.Malformed("classify.parse", err)).Warn("unparseable classification payload, using fallback")
		return domain.FallbackClassification(c.client.Model(), time.Since(start)), nil
	}

	return c.normalize(&resp, time.Since(start)), nil
}

// normalize converts a parsed upstream response into a validated
// result. Invalid labels map to defaults while the (clamped) confidence
// numbers are kept: a bad label on a successful call is upstream drift,
// not an outage.
func (c *Classifier) normalize(resp *response, elapsed time.Duration) *domain.ClassificationResult {
	confidence := domain.ConfidenceBreakdown{
		Category:  domain.ClampUnit(resp.Confidence.Category),
		Priority:  domain.ClampUnit(resp.Confidence.Priority),
		Sentiment: domain.ClampUnit(resp.Confidence.Sentiment),
	}

	return &domain.ClassificationResult{
		Category: domain.ParseCategory(resp.Category),
		Priority: domain.ParsePriority(resp.Priority),
		Sentiment: domain.SentimentResult{
			Label: domain.ParseSentiment(resp.Sentiment.Label),
			Score: domain.ClampSigned(resp.Sentiment.Score),
		},
		Confidence:        confidence,
		OverallConfidence: confidence.Mean(),
		Reasoning:         resp.Reasoning,
		ModelVersion:      c.client.Model(),
		ProcessingTimeMs:  elapsed.Milliseconds(),
		ProcessedAt:       time.Now().UTC(),
	}
}

// ClassifyBatch processes inputs strictly one at a time. Sequential
// processing keeps the upstream rate-limit pressure bounded; callers
// that parallelize must add their own concurrency cap. Per-item service
// failures are absorbed into fallback results here since batch callers
// have no per-item retry channel.
func (c *Classifier) ClassifyBatch(ctx context.Context, inputs []out.ClassifyInput) []*domain.ClassificationResult {
	results := make([]*domain.ClassificationResult, 0, len(inputs))
	for _, in := range inputs {
		result, err := c.Classify(ctx, in.Subject, in.Body)
		if err != nil {
			logger.WithError(err).WithField("ticket_id", in.TicketID).Warn("batch item failed, keeping fallback")
		}
		result.TicketID = in.TicketID
		results = append(results, result)
	}
	return results
}

func buildUserPrompt(subject, body string) string {
	return fmt.Sprintf("Subject: %s\n\nBody:\n%s", subject, truncate(body, maxBodyLen))
}

// truncate cuts s to at most maxLen bytes, backing up to a rune
// boundary so the prompt never carries a split multi-byte character.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// stripFence removes a markdown code fence some models wrap around JSON.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
