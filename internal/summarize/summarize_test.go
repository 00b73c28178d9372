package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidyoux/ytsum/internal/apperr"
	"tidyoux/ytsum/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		want    any
		wantErr error
	}{
		{"openai default", config.Config{OpenAIAPIKey: "k"}, &OpenAI{}, nil},
		{"openai explicit", config.Config{SummaryProvider: "OpenAI", OpenAIAPIKey: "k"}, &OpenAI{}, nil},
		{"openai missing key", config.Config{SummaryProvider: "openai"}, nil, apperr.ErrMissingConfig},
		{"compatible", config.Config{SummaryProvider: "compatible", LLMAPIKey: "k", LLMAPIBase: "http://localhost"}, &Compatible{}, nil},
		{"compatible missing key", config.Config{SummaryProvider: "compatible", OpenAIAPIKey: "k"}, nil, apperr.ErrMissingConfig},
		{"unknown provider", config.Config{SummaryProvider: "bard", OpenAIAPIKey: "k"}, nil, apperr.ErrMissingConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(&tt.cfg, nil)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, got)
		})
	}
}

func TestUserPrompt(t *testing.T) {
	p := userPrompt("one two three four five six", Meta{Title: "Talk", Author: "Chan"}, 0)
	assert.Equal(t, "Title: Talk\nChannel: Chan\n\nTranscript:\none two three four five six", p)

	p = userPrompt("alpha beta gamma delta epsilon zeta eta theta", Meta{}, 20)
	assert.True(t, strings.HasPrefix(p, "\nTranscript:\nalpha beta"))
	assert.True(t, strings.HasSuffix(p, "..."))
	assert.NotContains(t, p, "theta")
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"- a\n- b", "- a\n- b"},
		{"```\n- a\n```", "- a"},
		{"```markdown\n- a\n- b\n```\n", "- a\n- b"},
		{"  ```md\n- a\n```  ", "- a"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripFences(tt.in))
	}
}

func TestOpenAISummarize(t *testing.T) {
	var req openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "```\n- point one\n- point two\n```"},
			}},
		})
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	s := NewOpenAIWithConfig(cfg, "", 0)

	got, err := s.Summarize(context.Background(), "the transcript", Meta{Title: "T", Author: "A"})
	require.NoError(t, err)
	assert.Equal(t, "- point one\n- point two", got)

	assert.Equal(t, openai.GPT4oMini, req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Equal(t, systemPrompt, req.Messages[0].Content)
	assert.Contains(t, req.Messages[1].Content, "Title: T")
	assert.Contains(t, req.Messages[1].Content, "the transcript")
}

func TestOpenAISummarizeErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		content string
	}{
		{"server error", http.StatusInternalServerError, ""},
		{"empty answer", http.StatusOK, "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				if tt.status != http.StatusOK {
					w.WriteHeader(tt.status)
					_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
					return
				}
				_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
					Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: tt.content}}},
				})
			}))
			defer srv.Close()

			cfg := openai.DefaultConfig("k")
			cfg.BaseURL = srv.URL + "/v1"
			_, err := NewOpenAIWithConfig(cfg, "gpt-4o-mini", 0).Summarize(context.Background(), "x", Meta{})
			assert.ErrorIs(t, err, apperr.ErrService)
		})
	}
}

func TestCompatibleSummarize(t *testing.T) {
	var gotSystem, gotPrompt string
	c := &Compatible{
		complete: func(_ context.Context, system, prompt string) (string, error) {
			gotSystem, gotPrompt = system, prompt
			return "```markdown\n- gist\n```", nil
		},
		model: "gemini-2.5-flash",
	}

	got, err := c.Summarize(context.Background(), "words", Meta{Author: "A"})
	require.NoError(t, err)
	assert.Equal(t, "- gist", got)
	assert.Equal(t, systemPrompt, gotSystem)
	assert.Equal(t, "Channel: A\n\nTranscript:\nwords", gotPrompt)

	c.complete = func(context.Context, string, string) (string, error) {
		return "", errors.New("quota exceeded")
	}
	_, err = c.Summarize(context.Background(), "words", Meta{})
	assert.ErrorIs(t, err, apperr.ErrService)
}
