// Package acquire obtains a transcript for a video. Captions are tried first;
// when they are unavailable the audio is downloaded and sent to a
// speech-to-text service.
package acquire

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"tidyoux/ytsum/internal/apperr"
	"tidyoux/ytsum/internal/speech"
	"tidyoux/ytsum/internal/youtube"
)

// Method names the way a transcript was obtained.
type Method string

const (
	MethodCaptions Method = "captions"
	MethodSpeech   Method = "speech-to-text"
)

// Result is the outcome of one acquisition. When no method succeeded Text is
// empty, Method is unset and Err holds the last failure.
type Result struct {
	Text       string
	Method     Method
	Confidence *float64
	Speakers   []string
	Metadata   *youtube.Metadata
	Err        error
}

// Found reports whether a transcript was obtained.
func (r *Result) Found() bool {
	return r != nil && r.Text != ""
}

// CaptionSource fetches cleaned caption text.
type CaptionSource interface {
	Fetch(ctx context.Context, ref youtube.Ref) (string, error)
}

// MetadataSource looks up title, author and duration.
type MetadataSource interface {
	Metadata(ctx context.Context, videoURL string) (*youtube.Metadata, error)
}

// VideoSource looks up a video with its formats and opens an audio stream.
type VideoSource interface {
	Video(ctx context.Context, videoURL string) (*youtube.Video, error)
	OpenStream(ctx context.Context, v *youtube.Video, f youtube.Format) (io.ReadCloser, int64, error)
}

// Transcriber turns audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, contentType string) (*speech.Transcript, error)
}

// Strategy is one way of obtaining a transcript.
type Strategy interface {
	Name() Method
	Try(ctx context.Context, ref youtube.Ref) (*Result, error)
}

// Pipeline evaluates strategies in order until one yields a transcript.
type Pipeline struct {
	Strategies []Strategy
	Logger     *slog.Logger
}

// NewPipeline creates a pipeline over strategies, tried in the given order.
func NewPipeline(logger *slog.Logger, strategies ...Strategy) *Pipeline {
	return &Pipeline{Strategies: strategies, Logger: logger}
}

// Acquire returns the first non-empty transcript.
//
// Invalid input and missing configuration abort immediately with a nil
// Result. Any other strategy failure moves on to the next strategy. When all
// of them fail, Acquire returns a Result without a transcript together with
// the last cause, so the caller decides how to report it.
func (p *Pipeline) Acquire(ctx context.Context, ref youtube.Ref) (*Result, error) {
	logger := p.logger().With("videoID", ref.ID)
	if ref.ID == "" {
		return nil, fmt.Errorf("%w: no video ID for %q", apperr.ErrUnrecognizedVideo, ref.URL)
	}
	if len(p.Strategies) == 0 {
		return nil, fmt.Errorf("%w: no transcript methods configured", apperr.ErrMissingConfig)
	}

	var lastErr error
	for i, s := range p.Strategies {
		res, err := s.Try(ctx, ref)
		if err == nil && res.Found() {
			logger.Info("Transcript obtained", "method", s.Name(), "chars", len(res.Text))
			return res, nil
		}
		if err == nil {
			err = fmt.Errorf("%s produced an empty transcript", s.Name())
		}
		if apperr.IsFatal(err) {
			return nil, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		lastErr = err
		if i+1 < len(p.Strategies) {
			logger.Warn("Transcript method unavailable, falling back",
				"method", s.Name(), "next", p.Strategies[i+1].Name(), "error", err)
		}
	}

	logger.Error("All transcript methods exhausted", "error", lastErr)
	return &Result{Err: lastErr}, lastErr
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}
