// Package speech sends audio to a speech-to-text service and extracts the
// transcript, its confidence and the diarized speaker labels.
package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tidyoux/ytsum/internal/apperr"
)

const defaultURL = "https://api.deepgram.com/v1/listen"

// Transcript is what the service recognized in one audio file.
type Transcript struct {
	Text       string
	Confidence float64
	Speakers   []string
}

// Deepgram calls the Deepgram pre-recorded audio endpoint.
type Deepgram struct {
	APIKey     string
	Model      string
	Language   string
	URL        string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type listenResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
		Utterances []utterance `json:"utterances"`
	} `json:"results"`
}

type utterance struct {
	Speaker    json.RawMessage `json:"speaker"`
	Transcript string          `json:"transcript"`
}

// label renders the speaker tag the way it would print: a missing field is
// "undefined" and an explicit null is "null".
func (u utterance) label() string {
	raw := strings.TrimSpace(string(u.Speaker))
	switch raw {
	case "":
		return "undefined"
	case "null":
		return "null"
	}
	var s string
	if err := json.Unmarshal(u.Speaker, &s); err == nil {
		return s
	}
	return raw
}

// Transcribe uploads audio and requests punctuation, paragraphs, utterances,
// diarization and filler words.
func (d *Deepgram) Transcribe(ctx context.Context, audio io.Reader, contentType string) (*Transcript, error) {
	if d.APIKey == "" {
		return nil, fmt.Errorf("%w: DEEPGRAM_API_KEY is not set", apperr.ErrMissingConfig)
	}

	endpoint, err := d.endpoint()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, audio)
	if err != nil {
		return nil, err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Token "+d.APIKey)

	logger := d.logger().With("step", "speech", "model", d.model())
	logger.Info("Submitting audio for transcription")
	start := time.Now()

	resp, err := d.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: speech-to-text request: %v", apperr.ErrService, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read speech-to-text response: %v", apperr.ErrService, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: speech-to-text returned %d: %s", apperr.ErrService, resp.StatusCode, snippet(body))
	}

	var parsed listenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode speech-to-text response: %v", apperr.ErrService, err)
	}
	if len(parsed.Results.Channels) == 0 || len(parsed.Results.Channels[0].Alternatives) == 0 {
		return nil, fmt.Errorf("%w: speech-to-text response has no alternatives", apperr.ErrService)
	}

	alt := parsed.Results.Channels[0].Alternatives[0]
	labels := make([]string, 0, len(parsed.Results.Utterances))
	for _, u := range parsed.Results.Utterances {
		labels = append(labels, u.label())
	}

	t := &Transcript{
		Text:       strings.TrimSpace(alt.Transcript),
		Confidence: alt.Confidence,
		Speakers:   DistinctSpeakers(labels),
	}
	logger.Info("Transcription finished",
		"duration", time.Since(start),
		"chars", len(t.Text),
		"confidence", t.Confidence,
		"speakers", len(t.Speakers))
	return t, nil
}

func (d *Deepgram) endpoint() (string, error) {
	base := d.URL
	if base == "" {
		base = defaultURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: invalid DEEPGRAM_URL %q: %v", apperr.ErrMissingConfig, base, err)
	}

	q := u.Query()
	q.Set("model", d.model())
	if d.Language != "" {
		q.Set("language", d.Language)
	}
	for _, flag := range []string{"punctuate", "paragraphs", "utterances", "diarize", "filler_words"} {
		q.Set(flag, strconv.FormatBool(true))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (d *Deepgram) model() string {
	if d.Model == "" {
		return "nova-2"
	}
	return d.Model
}

func (d *Deepgram) client() *http.Client {
	if d.HTTPClient == nil {
		return http.DefaultClient
	}
	return d.HTTPClient
}

func (d *Deepgram) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
