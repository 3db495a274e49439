package domain

import "time"

// SentimentResult carries the sentiment label and a score in [-1, 1].
type SentimentResult struct {
	Label SentimentLabel `json:"label"`
	Score float64        `json:"score"`
}

// ConfidenceBreakdown holds per-signal confidence values in [0, 1].
type ConfidenceBreakdown struct {
	Category  float64 `json:"category"`
	Priority  float64 `json:"priority"`
	Sentiment float64 `json:"sentiment"`
}

// Mean returns the arithmetic mean of the three confidences.
func (c ConfidenceBreakdown) Mean() float64 {
	return (c.Category + c.Priority + c.Sentiment) / 3
}

// ClassificationResult is the bounded, validated output of one
// classification run. It is immutable once returned: every enum field
// holds a value from its fixed domain and every numeric field is
// clamped to its valid range before the result leaves the classifier.
type ClassificationResult struct {
	TicketID string `json:"ticket_id,omitempty"`

	Category   TicketCategory      `json:"category"`
	Priority   TicketPriority      `json:"priority"`
	Sentiment  SentimentResult     `json:"sentiment"`
	Confidence ConfidenceBreakdown `json:"confidence"`

	// OverallConfidence is the mean of the three confidence values.
	OverallConfidence float64 `json:"overall_confidence"`

	Reasoning        string `json:"reasoning,omitempty"`
	ModelVersion     string `json:"model_version"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`

	ProcessedAt time.Time `json:"processed_at"`
}

// FallbackClassification returns the maximally defensive result used
// when the classification service fails outright: defaults everywhere,
// zero confidence, elapsed wall time up to the failure point.
func FallbackClassification(modelVersion string, elapsed time.Duration) *ClassificationResult {
	return &ClassificationResult{
		Category:         DefaultCategory,
		Priority:         DefaultPriority,
		Sentiment:        SentimentResult{Label: DefaultSentiment, Score: 0},
		ModelVersion:     modelVersion,
		ProcessingTimeMs: elapsed.Milliseconds(),
		ProcessedAt:      time.Now().UTC(),
	}
}

// ClampUnit clamps v into [0, 1].
func ClampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClampSigned clamps v into [-1, 1].
func ClampSigned(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
