package acquire

import (
	"context"
	"log/slog"

	"tidyoux/ytsum/internal/youtube"
)

// CaptionStrategy uses the video's subtitle track. Metadata is optional: a
// lookup failure only leaves Result.Metadata nil.
type CaptionStrategy struct {
	Captions CaptionSource
	Metadata MetadataSource
	Logger   *slog.Logger
}

func (s *CaptionStrategy) Name() Method { return MethodCaptions }

func (s *CaptionStrategy) Try(ctx context.Context, ref youtube.Ref) (*Result, error) {
	text, err := s.Captions.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}

	res := &Result{Text: text, Method: MethodCaptions}
	if s.Metadata == nil {
		return res, nil
	}
	meta, err := s.Metadata.Metadata(ctx, ref.URL)
	if err != nil {
		logger(s.Logger).Warn("Could not fetch video metadata", "videoID", ref.ID, "error", err)
		return res, nil
	}
	res.Metadata = meta
	return res, nil
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
