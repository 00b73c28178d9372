// Package summarize asks a language model for a bullet-point summary of a
// transcript.
package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anatolykoptev/go-kit/strutil"

	"tidyoux/ytsum/internal/apperr"
	"tidyoux/ytsum/internal/config"
)

// Meta is the video context included in the prompt.
type Meta struct {
	Title  string
	Author string
}

// Summarizer produces a summary for a transcript.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string, meta Meta) (string, error)
}

const systemPrompt = `You summarize YouTube videos from their transcripts.
Write a concise summary as a markdown bullet list of 5 to 10 points.
Each bullet is one complete sentence covering a key idea, claim or takeaway, in the order they appear.
Do not add an introduction or a conclusion. Output only the bullet list.`

// New returns the summarizer selected by cfg.SummaryProvider.
func New(cfg *config.Config, logger *slog.Logger) (Summarizer, error) {
	switch strings.ToLower(cfg.SummaryProvider) {
	case "", config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", apperr.ErrMissingConfig)
		}
		s := NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.MaxTranscriptChars)
		s.Logger = logger
		return s, nil
	case config.ProviderCompatible:
		if cfg.LLMAPIKey == "" {
			return nil, fmt.Errorf("%w: LLM_API_KEY is not set", apperr.ErrMissingConfig)
		}
		s := NewCompatible(cfg.LLMAPIBase, cfg.LLMAPIKey, cfg.LLMModel, cfg.MaxTranscriptChars)
		s.Logger = logger
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown SUMMARY_PROVIDER %q", apperr.ErrMissingConfig, cfg.SummaryProvider)
	}
}

func userPrompt(transcript string, meta Meta, maxChars int) string {
	if maxChars > 0 {
		transcript = strutil.TruncateAtWord(transcript, maxChars)
	}

	var b strings.Builder
	if meta.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", meta.Title)
	}
	if meta.Author != "" {
		fmt.Fprintf(&b, "Channel: %s\n", meta.Author)
	}
	b.WriteString("\nTranscript:\n")
	b.WriteString(transcript)
	return b.String()
}

// stripFences removes markdown code fences around model output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```markdown")
	s = strings.TrimPrefix(s, "```md")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func finish(provider, raw string) (string, error) {
	summary := stripFences(raw)
	if summary == "" {
		return "", fmt.Errorf("%w: %s returned an empty summary", apperr.ErrService, provider)
	}
	return summary, nil
}
