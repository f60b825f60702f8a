package llm

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gravy-ai/restaurant-assistant/pkg/logger"
	"github.com/gravy-ai/restaurant-assistant/pkg/metrics"
)

// Generator turns a prompt into text. Failures never propagate: an error,
// a timeout or a missing client all yield "".
type Generator struct {
	client    Client
	model     string
	maxTokens int
	timeout   time.Duration
	logger    *logger.Logger
}

// NewGenerator wraps client. A nil client produces an always-empty generator.
func NewGenerator(client Client, model string, timeout time.Duration, log *logger.Logger) *Generator {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Generator{
		client:    client,
		model:     model,
		maxTokens: 512,
		timeout:   timeout,
		logger:    logger.OrNop(log).Named("llm"),
	}
}

// Generate implements the text generation capability.
func (g *Generator) Generate(ctx context.Context, prompt string) string {
	if g == nil || g.client == nil {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.Complete(ctx, &CompletionRequest{
		Model:     g.model,
		Messages:  []ChatMessage{{Role: "user", Content: prompt}},
		MaxTokens: g.maxTokens,
	})
	elapsed := time.Since(start).Seconds()

	if err != nil {
		metrics.RecordLLM(g.client.Name(), "error", elapsed, 0, 0)
		g.logger.Warn("text generation failed",
			zap.String("provider", g.client.Name()),
			zap.Error(err),
		)
		return ""
	}

	metrics.RecordLLM(g.client.Name(), "ok", elapsed, resp.TokensIn, resp.TokensOut)
	return strings.TrimSpace(resp.Content)
}
