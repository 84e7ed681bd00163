// Package assist talks to the chat model that explains quiz questions to
// the child and generates new questions for an NPC.
package assist

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	openaigo "github.com/sashabaranov/go-openai"
)

var (
	// ErrServiceUnavailable is returned when no chat model is configured.
	ErrServiceUnavailable = errors.New("assist: service unavailable")
	// ErrGenerationFailed wraps failures from the chat model.
	ErrGenerationFailed = errors.New("assist: generation failed")
)

var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tinytalkers_ai_requests_total",
			Help: "Total number of requests to the chat model.",
		},
		[]string{"model", "operation", "status"},
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tinytalkers_ai_request_duration_seconds",
			Help:    "Histogram of chat model request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model", "operation"},
	)
)

// Completer is the part of the go-openai client used here.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openaigo.ChatCompletionRequest) (openaigo.ChatCompletionResponse, error)
}

// ClientConfig configures an OpenAI-compatible client.
type ClientConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// NewClient builds a go-openai client. It returns nil when no key is set so
// callers can degrade to offline mode.
func NewClient(cfg ClientConfig) *openaigo.Client {
	if cfg.APIKey == "" {
		return nil
	}
	oc := openaigo.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return openaigo.NewClientWithConfig(oc)
}

// complete sends one chat request and returns the first choice's text.
func complete(ctx context.Context, c Completer, op string, req openaigo.ChatCompletionRequest) (string, error) {
	start := time.Now()
	resp, err := c.CreateChatCompletion(ctx, req)
	aiRequestDuration.WithLabelValues(req.Model, op).Observe(time.Since(start).Seconds())
	if err != nil {
		aiRequestsTotal.WithLabelValues(req.Model, op, "error").Inc()
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		aiRequestsTotal.WithLabelValues(req.Model, op, "error_empty_response").Inc()
		return "", fmt.Errorf("%w: empty response", ErrGenerationFailed)
	}
	aiRequestsTotal.WithLabelValues(req.Model, op, "success").Inc()
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
