package classify

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"triage_server/pkg/svcerr"
)

// TestNewClientConfig tests that the generation knobs reach the client
// and that zero values fall back to defaults.
func TestNewClientConfig(t *testing.T) {
	c := NewClient(ClientConfig{APIKey: "k"})
	if c.model != DefaultModel {
		t.Errorf("expected default model %q, got %q", DefaultModel, c.model)
	}
	if c.maxTokens != defaultMaxTokens {
		t.Errorf("expected default max tokens %d, got %d", defaultMaxTokens, c.maxTokens)
	}
	if c.timeout != defaultTimeout {
		t.Errorf("expected default timeout %v, got %v", defaultTimeout, c.timeout)
	}

	c = NewClient(ClientConfig{
		APIKey:      "k",
		Model:       "gpt-4o",
		MaxTokens:   128,
		Temperature: 0.2,
		Timeout:     5 * time.Second,
	})
	if c.model != "gpt-4o" {
		t.Errorf("expected model %q, got %q", "gpt-4o", c.model)
	}
	if c.maxTokens != 128 {
		t.Errorf("expected max tokens 128, got %d", c.maxTokens)
	}
	if c.temperature != float32(0.2) {
		t.Errorf("expected temperature 0.2, got %v", c.temperature)
	}
	if c.timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", c.timeout)
	}
}

type timeoutNetErr struct{}

func (timeoutNetErr) Error() string   { return "i/o timeout" }
func (timeoutNetErr) Timeout() bool   { return true }
func (timeoutNetErr) Temporary() bool { return true }

// TestClassifyErrorMapping tests the transport → taxonomy mapping.
func TestClassifyErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind svcerr.Kind
	}{
		{
			name:     "open breaker maps to connection refused",
			err:      gobreaker.ErrOpenState,
			wantKind: svcerr.KindConnRefused,
		},
		{
			name:     "half-open overflow maps to connection refused",
			err:      gobreaker.ErrTooManyRequests,
			wantKind: svcerr.KindConnRefused,
		},
		{
			name:     "context deadline maps to timeout",
			err:      context.DeadlineExceeded,
			wantKind: svcerr.KindTimeout,
		},
		{
			name:     "econnrefused maps to connection refused",
			err:      syscall.ECONNREFUSED,
			wantKind: svcerr.KindConnRefused,
		},
		{
			name:     "econnreset maps to connection reset",
			err:      syscall.ECONNRESET,
			wantKind: svcerr.KindConnReset,
		},
		{
			name:     "net timeout maps to timeout",
			err:      timeoutNetErr{},
			wantKind: svcerr.KindTimeout,
		},
		{
			name:     "429 maps to rate limited",
			err:      &openai.APIError{HTTPStatusCode: 429},
			wantKind: svcerr.KindRateLimited,
		},
		{
			name:     "401 maps to permanent",
			err:      &openai.APIError{HTTPStatusCode: 401},
			wantKind: svcerr.KindPermanent,
		},
		{
			name:     "403 maps to permanent",
			err:      &openai.APIError{HTTPStatusCode: 403},
			wantKind: svcerr.KindPermanent,
		},
		{
			name:     "500 maps to connection reset",
			err:      &openai.APIError{HTTPStatusCode: 503},
			wantKind: svcerr.KindConnReset,
		},
		{
			name:     "4xx api error maps to malformed",
			err:      &openai.APIError{HTTPStatusCode: 400},
			wantKind: svcerr.KindMalformed,
		},
		{
			name:     "request error without auth status maps to connection reset",
			err:      &openai.RequestError{HTTPStatusCode: 502, Err: errors.New("bad gateway")},
			wantKind: svcerr.KindConnReset,
		},
		{
			name:     "request error 401 maps to permanent",
			err:      &openai.RequestError{HTTPStatusCode: 401, Err: errors.New("unauthorized")},
			wantKind: svcerr.KindPermanent,
		},
		{
			name:     "already classified errors pass through",
			err:      svcerr.Malformed("classify.complete", errors.New("empty choice list")),
			wantKind: svcerr.KindMalformed,
		},
		{
			name:     "unknown errors map to internal",
			err:      errors.New("something else"),
			wantKind: svcerr.KindInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyError("classify.complete", tt.err)
			if kind := svcerr.KindOf(got); kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", kind, tt.wantKind)
			}
		})
	}
}
