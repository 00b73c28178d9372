package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"tidyoux/ytsum/internal/apperr"
	"tidyoux/ytsum/internal/proc"
	"tidyoux/ytsum/internal/youtube"
)

// DefaultDownloadTimeout bounds the audio download when Timeout is unset.
const DefaultDownloadTimeout = 5 * time.Minute

// copierGrace is how long a timed-out download waits for the copy goroutine
// to notice its closed stream before the partial file is removed anyway.
var copierGrace = 5 * time.Second

// SpeechStrategy downloads the best audio-only stream to WorkDir and sends it
// to a Transcriber. The audio file is removed before Try returns.
type SpeechStrategy struct {
	APIKey      string
	Videos      VideoSource
	Transcriber Transcriber
	WorkDir     string
	Timeout     time.Duration
	// Progress receives a download progress bar when non-nil.
	Progress io.Writer
	Logger   *slog.Logger
}

func (s *SpeechStrategy) Name() Method { return MethodSpeech }

// AudioPath is the temporary file used for videoID and format f.
func (s *SpeechStrategy) AudioPath(videoID string, f youtube.Format) string {
	return filepath.Join(s.WorkDir, fmt.Sprintf("%s.audio.%s", videoID, f.Ext()))
}

func (s *SpeechStrategy) Try(ctx context.Context, ref youtube.Ref) (*Result, error) {
	if s.APIKey == "" {
		return nil, fmt.Errorf("%w: DEEPGRAM_API_KEY is required when captions are unavailable", apperr.ErrMissingConfig)
	}
	log := logger(s.Logger).With("step", "audio", "videoID", ref.ID)

	v, err := s.Videos.Video(ctx, ref.URL)
	if err != nil {
		return nil, err
	}
	format, err := youtube.ChooseAudio(v.Formats)
	if err != nil {
		return nil, err
	}

	if err := proc.EnsureDir(log, s.WorkDir); err != nil {
		return nil, err
	}
	path := s.AudioPath(ref.ID, format)
	defer proc.RemoveQuietly(log, path)

	log.Info("Downloading audio",
		"itag", format.Itag,
		"mimeType", format.MimeType,
		"bitrate", format.Bitrate,
		"channels", format.AudioChannels,
		"contentLength", format.ContentLength)
	if err := s.download(ctx, log, v, format, path); err != nil {
		return nil, err
	}

	audio, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open downloaded audio: %w", err)
	}
	defer audio.Close()

	t, err := s.Transcriber.Transcribe(ctx, audio, contentType(format.MimeType))
	if err != nil {
		return nil, err
	}

	confidence := t.Confidence
	meta := v.Metadata
	return &Result{
		Text:       t.Text,
		Method:     MethodSpeech,
		Confidence: &confidence,
		Speakers:   t.Speakers,
		Metadata:   &meta,
	}, nil
}

// download copies the stream to path within the timeout. On timeout both
// ends are closed and the partial file is removed.
func (s *SpeechStrategy) download(ctx context.Context, log *slog.Logger, v *youtube.Video, f youtube.Format, path string) error {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultDownloadTimeout
	}
	dlCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stream, size, err := s.Videos.OpenStream(dlCtx, v, f)
	if err != nil {
		if errors.Is(dlCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: opening audio stream exceeded %s", apperr.ErrDownloadTimeout, timeout)
		}
		return err
	}

	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		stream.Close()
		return fmt.Errorf("create audio file: %w", err)
	}

	var dst io.Writer = out
	var bar *progressbar.ProgressBar
	if s.Progress != nil {
		bar = progressbar.NewOptions64(expectedSize(size, f),
			progressbar.OptionSetWriter(s.Progress),
			progressbar.OptionSetDescription("Downloading audio"),
			progressbar.OptionSetWidth(50),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetRenderBlankState(true),
		)
		dst = io.MultiWriter(out, bar)
	}

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(dst, stream)
		done <- err
	}()

	select {
	case err := <-done:
		stream.Close()
		closeErr := out.Close()
		if bar != nil {
			_ = bar.Clear()
		}
		if err != nil {
			if errors.Is(dlCtx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: audio download exceeded %s", apperr.ErrDownloadTimeout, timeout)
			}
			return fmt.Errorf("%w: download audio: %v", apperr.ErrService, err)
		}
		if closeErr != nil {
			return fmt.Errorf("write audio file: %w", closeErr)
		}
		log.Info("Audio downloaded", "path", path, "duration", time.Since(start))
		return nil

	case <-dlCtx.Done():
		stream.Close()
		out.Close()
		select {
		case <-done:
		case <-time.After(copierGrace):
			log.Warn("Audio stream ignored cancellation, abandoning copy", "grace", copierGrace)
		}
		proc.RemoveQuietly(log, path)
		if errors.Is(dlCtx.Err(), context.DeadlineExceeded) {
			log.Error("Audio download timed out", "timeout", timeout)
			return fmt.Errorf("%w: audio download exceeded %s", apperr.ErrDownloadTimeout, timeout)
		}
		return dlCtx.Err()
	}
}

// expectedSize is the progress bar total: the stream's reported length,
// else the format's advertised length, else -1 for an open-ended bar.
func expectedSize(streamSize int64, f youtube.Format) int64 {
	switch {
	case streamSize > 0:
		return streamSize
	case f.ContentLength > 0:
		return f.ContentLength
	}
	return -1
}

func contentType(mimeType string) string {
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.TrimSpace(mimeType)
}
