package classify

import (
	"context"
	"errors"
	"testing"
	"unicode/utf8"

	"triage_server/core/domain"
	"triage_server/core/port/out"
	"triage_server/pkg/svcerr"
)

// fakeCompletionClient returns canned payloads or errors per call.
type fakeCompletionClient struct {
	payloads []string
	errs     []error
	calls    int
}

func (f *fakeCompletionClient) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	i := f.calls
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var payload string
	if i < len(f.payloads) {
		payload = f.payloads[i]
	}
	return payload, err
}

func (f *fakeCompletionClient) Model() string { return "test-model" }

const validPayload = `{
	"category": "billing",
	"priority": "high",
	"sentiment": {"label": "negative", "score": -0.4},
	"confidence": {"category": 0.9, "priority": 0.8, "sentiment": 0.7},
	"reasoning": "invoice dispute"
}`

// TestClassifySuccess tests the happy path end to end.
func TestClassifySuccess(t *testing.T) {
	classifier := NewClassifier(&fakeCompletionClient{payloads: []string{validPayload}})

	result, err := classifier.Classify(context.Background(), "Invoice problem", "I was double charged")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Category != domain.CategoryBilling {
		t.Errorf("expected billing, got %q", result.Category)
	}
	if result.Priority != domain.PriorityHigh {
		t.Errorf("expected high, got %q", result.Priority)
	}
	if result.Sentiment.Label != domain.SentimentNegative || result.Sentiment.Score != -0.4 {
		t.Errorf("unexpected sentiment %+v", result.Sentiment)
	}
	want := (0.9 + 0.8 + 0.7) / 3
	if result.OverallConfidence != want {
		t.Errorf("expected overall confidence %.4f, got %.4f", want, result.OverallConfidence)
	}
	if result.ModelVersion != "test-model" {
		t.Errorf("expected model version test-model, got %q", result.ModelVersion)
	}
	if result.Reasoning != "invoice dispute" {
		t.Errorf("unexpected reasoning %q", result.Reasoning)
	}
}

// TestClassifyNormalization tests that untrusted values are forced
// into their domains: bad labels default, out-of-range numbers clamp.
func TestClassifyNormalization(t *testing.T) {
	tests := []struct {
		name          string
		payload       string
		wantCategory  domain.TicketCategory
		wantPriority  domain.TicketPriority
		wantSentiment domain.SentimentLabel
		wantScore     float64
		wantOverall   float64
	}{
		{
			name: "unknown labels map to defaults, confidences kept",
			payload: `{
				"category": "spam",
				"priority": "critical",
				"sentiment": {"label": "furious", "score": 0.2},
				"confidence": {"category": 0.9, "priority": 0.9, "sentiment": 0.9}
			}`,
			wantCategory:  domain.CategoryGeneral,
			wantPriority:  domain.PriorityMedium,
			wantSentiment: domain.SentimentNeutral,
			wantScore:     0.2,
			wantOverall:   0.9,
		},
		{
			name: "out-of-range numbers are clamped",
			payload: `{
				"category": "bug",
				"priority": "low",
				"sentiment": {"label": "negative", "score": -3.5},
				"confidence": {"category": 1.7, "priority": -0.2, "sentiment": 0.5}
			}`,
			wantCategory:  domain.CategoryBug,
			wantPriority:  domain.PriorityLow,
			wantSentiment: domain.SentimentNegative,
			wantScore:     -1.0,
			wantOverall:   (1.0 + 0.0 + 0.5) / 3,
		},
		{
			name:          "missing fields collapse to defaults with zero confidence",
			payload:       `{}`,
			wantCategory:  domain.CategoryGeneral,
			wantPriority:  domain.PriorityMedium,
			wantSentiment: domain.SentimentNeutral,
			wantScore:     0,
			wantOverall:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classifier := NewClassifier(&fakeCompletionClient{payloads: []string{tt.payload}})

			result, err := classifier.Classify(context.Background(), "subject", "body")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if result.Category != tt.wantCategory {
				t.Errorf("category = %q, want %q", result.Category, tt.wantCategory)
			}
			if result.Priority != tt.wantPriority {
				t.Errorf("priority = %q, want %q", result.Priority, tt.wantPriority)
			}
			if result.Sentiment.Label != tt.wantSentiment {
				t.Errorf("sentiment = %q, want %q", result.Sentiment.Label, tt.wantSentiment)
			}
			if result.Sentiment.Score != tt.wantScore {
				t.Errorf("score = %v, want %v", result.Sentiment.Score, tt.wantScore)
			}
			if result.OverallConfidence != tt.wantOverall {
				t.Errorf("overall = %v, want %v", result.OverallConfidence, tt.wantOverall)
			}
		})
	}
}

// TestClassifyFencedPayload tests markdown fence stripping.
func TestClassifyFencedPayload(t *testing.T) {
	fenced := "```json\n" + validPayload + "\n```"
	classifier := NewClassifier(&fakeCompletionClient{payloads: []string{fenced}})

	result, err := classifier.Classify(context.Background(), "s", "b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Category != domain.CategoryBilling {
		t.Errorf("expected billing after fence strip, got %q", result.Category)
	}
}

// TestClassifyMalformedPayloadAbsorbed tests that unparseable output
// yields the fallback result with no error: retrying cannot help.
func TestClassifyMalformedPayloadAbsorbed(t *testing.T) {
	payloads := []string{
		"I am sorry, I cannot classify this ticket.",
		`{"category": "billing"`,
		"",
	}

	for _, payload := range payloads {
		classifier := NewClassifier(&fakeCompletionClient{payloads: []string{payload}})

		result, err := classifier.Classify(context.Background(), "s", "b")
		if err != nil {
			t.Errorf("payload %q: expected absorbed failure, got error %v", payload, err)
		}
		if result.Category != domain.CategoryGeneral || result.OverallConfidence != 0 {
			t.Errorf("payload %q: expected fallback result, got %+v", payload, result)
		}
	}
}

// TestClassifyServiceFailure tests that transport failures surface the
// typed error alongside a usable fallback result.
func TestClassifyServiceFailure(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind svcerr.Kind
	}{
		{"timeout", svcerr.Timeout("classify", errors.New("deadline")), svcerr.KindTimeout},
		{"rate limited", svcerr.RateLimited("classify", errors.New("429")), svcerr.KindRateLimited},
		{"auth failure", svcerr.Permanent("classify", errors.New("401")), svcerr.KindPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classifier := NewClassifier(&fakeCompletionClient{errs: []error{tt.err}})

			result, err := classifier.Classify(context.Background(), "s", "b")
			if err == nil {
				t.Fatal("expected error")
			}
			if got := svcerr.KindOf(err); got != tt.wantKind {
				t.Errorf("kind = %q, want %q", got, tt.wantKind)
			}
			if result == nil || result.Category != domain.CategoryGeneral {
				t.Errorf("expected fallback result alongside error, got %+v", result)
			}
		})
	}
}

// TestClassifyMalformedServiceError tests that a malformed-kind error
// from the client is absorbed like a bad payload.
func TestClassifyMalformedServiceError(t *testing.T) {
	classifier := NewClassifier(&fakeCompletionClient{
		errs: []error{svcerr.Malformed("classify", errors.New("bad wire"))},
	})

	result, err := classifier.Classify(context.Background(), "s", "b")
	if err != nil {
		t.Fatalf("expected absorbed malformed error, got %v", err)
	}
	if result.Category != domain.CategoryGeneral {
		t.Errorf("expected fallback, got %+v", result)
	}
}

// TestClassifyBatch tests sequential processing with per-item failure
// absorption.
func TestClassifyBatch(t *testing.T) {
	client := &fakeCompletionClient{
		payloads: []string{validPayload, "", validPayload},
		errs:     []error{nil, svcerr.Timeout("classify", errors.New("deadline")), nil},
	}
	classifier := NewClassifier(client)

	inputs := []out.ClassifyInput{
		{TicketID: "t-1", Subject: "a", Body: "x"},
		{TicketID: "t-2", Subject: "b", Body: "y"},
		{TicketID: "t-3", Subject: "c", Body: "z"},
	}

	results := classifier.ClassifyBatch(context.Background(), inputs)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if client.calls != 3 {
		t.Errorf("expected 3 sequential calls, got %d", client.calls)
	}
	for i, r := range results {
		if r.TicketID != inputs[i].TicketID {
			t.Errorf("result %d: ticket id %q, want %q", i, r.TicketID, inputs[i].TicketID)
		}
	}
	if results[0].Category != domain.CategoryBilling {
		t.Errorf("first result should classify, got %q", results[0].Category)
	}
	if results[1].Category != domain.CategoryGeneral || results[1].OverallConfidence != 0 {
		t.Errorf("failed item should carry fallback, got %+v", results[1])
	}
	if results[2].Category != domain.CategoryBilling {
		t.Errorf("failure must not poison later items, got %q", results[2].Category)
	}
}

// TestTruncate tests the body length cap fed into the prompt.
func TestTruncate(t *testing.T) {
	long := make([]byte, maxBodyLen+500)
	for i := range long {
		long[i] = 'a'
	}

	got := truncate(string(long), maxBodyLen)
	if len(got) != maxBodyLen+3 {
		t.Errorf("expected %d chars, got %d", maxBodyLen+3, len(got))
	}
	if got[:maxBodyLen] != string(long[:maxBodyLen]) {
		t.Error("truncation altered the prefix")
	}

	short := "short body"
	if truncate(short, maxBodyLen) != short {
		t.Error("short body should pass through unchanged")
	}
}

// TestTruncateRuneBoundary tests that the cap never splits a
// multi-byte character.
func TestTruncateRuneBoundary(t *testing.T) {
	// "é" is 2 bytes; a cap of 5 lands mid-rune.
	s := "ééééé"
	got := truncate(s, 5)
	if !utf8.ValidString(got) {
		t.Fatalf("truncation produced invalid UTF-8: %q", got)
	}
	if got != "éé"+"..." {
		t.Errorf("expected cut at rune boundary, got %q", got)
	}

	// A cap on a boundary keeps all whole runes before it.
	if got := truncate(s, 4); got != "éé"+"..." {
		t.Errorf("expected %q, got %q", "éé...", got)
	}
}
