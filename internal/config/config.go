// Package config loads ytsum settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/joho/godotenv"
)

// Summary providers.
const (
	ProviderOpenAI     = "openai"
	ProviderCompatible = "compatible"
)

// Config holds all runtime settings. CLI flags override individual fields
// after Load.
type Config struct {
	OpenAIAPIKey string
	OpenAIModel  string

	SummaryProvider string
	LLMAPIKey       string
	LLMAPIBase      string
	LLMModel        string

	DeepgramAPIKey string
	DeepgramModel  string
	DeepgramURL    string
	Language       string

	WorkDir            string
	OutputDir          string
	DownloadTimeout    time.Duration
	StaleAfter         time.Duration
	MaxTranscriptChars int
	LogLevel           string
}

// Load reads .env files (missing files are ignored) and then the process
// environment.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	return &Config{
		OpenAIAPIKey:       env.Str("OPENAI_API_KEY", ""),
		OpenAIModel:        env.Str("OPENAI_MODEL", "gpt-4o-mini"),
		SummaryProvider:    env.Str("SUMMARY_PROVIDER", ProviderOpenAI),
		LLMAPIKey:          env.Str("LLM_API_KEY", ""),
		LLMAPIBase:         env.Str("LLM_API_BASE", "https://generativelanguage.googleapis.com/v1beta/openai"),
		LLMModel:           env.Str("LLM_MODEL", "gemini-2.5-flash"),
		DeepgramAPIKey:     env.Str("DEEPGRAM_API_KEY", ""),
		DeepgramModel:      env.Str("DEEPGRAM_MODEL", "nova-2"),
		DeepgramURL:        env.Str("DEEPGRAM_URL", "https://api.deepgram.com/v1/listen"),
		Language:           env.Str("TRANSCRIPT_LANGUAGE", "en"),
		WorkDir:            env.Str("WORK_DIR", "./temp"),
		OutputDir:          env.Str("OUTPUT_DIR", "./output"),
		DownloadTimeout:    env.Duration("DOWNLOAD_TIMEOUT", 5*time.Minute),
		StaleAfter:         env.Duration("STALE_AFTER", 24*time.Hour),
		MaxTranscriptChars: env.Int("MAX_TRANSCRIPT_CHARS", 100000),
		LogLevel:           env.Str("LOG_LEVEL", "INFO"),
	}, nil
}
