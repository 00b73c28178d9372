package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"

	"tidyoux/ytsum/internal/apperr"
)

// OpenAI summarizes with the chat completions API.
type OpenAI struct {
	client   *openai.Client
	model    string
	maxChars int
	Logger   *slog.Logger
}

// NewOpenAI creates a summarizer for the official endpoint.
func NewOpenAI(apiKey, model string, maxChars int) *OpenAI {
	return NewOpenAIWithConfig(openai.DefaultConfig(apiKey), model, maxChars)
}

// NewOpenAIWithConfig allows a custom base URL or HTTP client.
func NewOpenAIWithConfig(cfg openai.ClientConfig, model string, maxChars int) *OpenAI {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model, maxChars: maxChars}
}

func (o *OpenAI) Summarize(ctx context.Context, transcript string, meta Meta) (string, error) {
	logger := logger(o.Logger).With("step", "summary", "provider", "openai", "model", o.model)
	logger.Info("Sending summary request")
	startTime := time.Now()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(transcript, meta, o.maxChars)},
		},
		Temperature: 0.3,
	})
	duration := time.Since(startTime)
	if err != nil {
		logger.Error("OpenAI API call failed", "duration", duration, "error", err)
		return "", fmt.Errorf("%w: openai request failed: %v", apperr.ErrService, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai returned no choices", apperr.ErrService)
	}

	logger.Info("Received summary", "duration", duration, "totalTokens", resp.Usage.TotalTokens)
	return finish("openai", resp.Choices[0].Message.Content)
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
