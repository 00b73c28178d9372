package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/anatolykoptev/go-kit/llm"

	"tidyoux/ytsum/internal/apperr"
)

// Compatible summarizes through any OpenAI-compatible endpoint, Gemini by
// default.
type Compatible struct {
	complete func(ctx context.Context, system, prompt string) (string, error)
	model    string
	maxChars int
	Logger   *slog.Logger
}

// NewCompatible creates a summarizer for baseURL.
func NewCompatible(baseURL, apiKey, model string, maxChars int) *Compatible {
	client := llm.NewClient(baseURL, apiKey, model,
		llm.WithMaxTokens(2048),
		llm.WithTemperature(0.3),
		llm.WithHTTPClient(&http.Client{Timeout: 120 * time.Second}),
	)
	return &Compatible{
		complete: func(ctx context.Context, system, prompt string) (string, error) {
			return client.Complete(ctx, system, prompt)
		},
		model:    model,
		maxChars: maxChars,
	}
}

func (c *Compatible) Summarize(ctx context.Context, transcript string, meta Meta) (string, error) {
	logger := logger(c.Logger).With("step", "summary", "provider", "compatible", "model", c.model)
	logger.Info("Sending summary request")
	start := time.Now()

	raw, err := c.complete(ctx, systemPrompt, userPrompt(transcript, meta, c.maxChars))
	if err != nil {
		logger.Error("LLM call failed", "duration", time.Since(start), "error", err)
		return "", fmt.Errorf("%w: llm request failed: %v", apperr.ErrService, err)
	}
	logger.Info("Received summary", "duration", time.Since(start))
	return finish("llm", raw)
}
