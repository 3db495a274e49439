// Package classify implements the ticket classification client: a
// bounded, validated wrapper over the external text-classification
// service. It is the only package allowed to know the service's wire
// format.
package classify

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"triage_server/pkg/logger"
	"triage_server/pkg/svcerr"
)

const (
	DefaultModel     = "gpt-4o-mini"
	defaultMaxTokens = 512
	defaultTimeout   = 30 * time.Second
)

// Client wraps the OpenAI chat completion API behind a circuit breaker
// and maps every failure into the closed svcerr taxonomy.
type Client struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
	cb          *gobreaker.CircuitBreaker
}

// ClientConfig holds completion client configuration.
type ClientConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	// Timeout bounds each completion call; transport-level timeouts
	// alone would let a slow upstream hold the sequential consumer.
	Timeout time.Duration
}

// NewClient creates a completion client from config.
func NewClient(cfg ClientConfig) *Client {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	cbSettings := gobreaker.Settings{
		Name:        "classification-api",
		MaxRequests: 3,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("[CircuitBreaker] %s: state changed from %s to %s", name, from.String(), to.String())
		},
	}

	return &Client{
		client:      openai.NewClient(cfg.APIKey),
		model:       model,
		maxTokens:   maxTokens,
		temperature: float32(cfg.Temperature),
		timeout:     timeout,
		cb:          gobreaker.NewCircuitBreaker(cbSettings),
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// BreakerState returns the circuit breaker state for health reporting.
func (c *Client) BreakerState() string {
	return c.cb.State().String()
}

// CompleteJSON sends a system+user prompt and returns the raw JSON
// response body. Errors always carry an svcerr kind.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	const op = "classify.complete"

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.cb.Execute(func() (any, error) {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.model,
			MaxTokens:   c.maxTokens,
			Temperature: c.temperature,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: userPrompt},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return nil, svcerr.Malformed(op, errors.New("empty choice list"))
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		return "", classifyError(op, err)
	}

	return result.(string), nil
}

// classifyError maps transport errors onto the svcerr taxonomy.
// Retryability is decided here, once, from error types and status
// codes, never from message text downstream.
func classifyError(op string, err error) error {
	var se *svcerr.Error
	if errors.As(err, &se) {
		return se
	}

	// An open breaker means the upstream has been failing; treat as a
	// refused connection so the job lands on the retry queue.
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return svcerr.ConnRefused(op, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return svcerr.Timeout(op, err)
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return svcerr.ConnRefused(op, err)
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, io.ErrUnexpectedEOF) {
		return svcerr.ConnReset(op, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return svcerr.Timeout(op, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429:
			return svcerr.RateLimited(op, err)
		case apiErr.HTTPStatusCode == 401 || apiErr.HTTPStatusCode == 403:
			return svcerr.Permanent(op, err)
		case apiErr.HTTPStatusCode >= 500:
			return svcerr.ConnReset(op, err)
		default:
			return svcerr.Malformed(op, err)
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == 401 || reqErr.HTTPStatusCode == 403 {
			return svcerr.Permanent(op, err)
		}
		return svcerr.ConnReset(op, err)
	}

	return svcerr.Wrap(svcerr.KindInternal, op, "completion failed", err)
}
