// Package captions downloads a video's subtitle track with yt-dlp and turns
// it into plain transcript text.
package captions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"tidyoux/ytsum/internal/apperr"
	"tidyoux/ytsum/internal/proc"
	"tidyoux/ytsum/internal/youtube"
)

const (
	ytDlpExecutable = "yt-dlp"
	subtitleFormat  = "vtt"
)

// ErrNoCaptions means the tool ran but produced no usable caption text.
var ErrNoCaptions = errors.New("no captions available")

// Fetcher runs the subtitle downloader into WorkDir and cleans the result.
type Fetcher struct {
	Runner   proc.Runner
	WorkDir  string
	Language string
	Logger   *slog.Logger
}

// SubtitlePath returns where the downloader writes the track for videoID.
func (f *Fetcher) SubtitlePath(videoID string) string {
	return filepath.Join(f.WorkDir, fmt.Sprintf("%s.%s.%s", videoID, f.lang(), subtitleFormat))
}

// Fetch downloads and cleans the caption track for ref. Every file the
// downloader leaves for this video and language is removed before Fetch
// returns.
func (f *Fetcher) Fetch(ctx context.Context, ref youtube.Ref) (string, error) {
	logger := f.logger().With("step", "captions", "videoID", ref.ID)
	logger.Info("Starting subtitle download")

	if err := proc.EnsureDir(logger, f.WorkDir); err != nil {
		return "", err
	}
	defer f.cleanup(logger, ref.ID)

	args := []string{
		"--skip-download",
		"--write-sub",
		"--write-auto-sub",
		"--sub-lang", f.lang(),
		"--sub-format", subtitleFormat,
		"--no-playlist",
		"--no-warnings",
		"-o", filepath.Join(f.WorkDir, ref.ID),
		ref.URL,
	}
	if _, err := f.Runner.Run(ctx, ytDlpExecutable, args...); err != nil {
		if errors.Is(err, apperr.ErrToolUnavailable) {
			return "", err
		}
		// yt-dlp exits non-zero on some warnings after writing the track,
		// so a failed run only matters if no file was produced.
		logger.Warn("Subtitle downloader reported an error", "error", err)
	}

	path, err := f.locate(ref.ID)
	if err != nil {
		return "", err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read subtitle file %s: %w", path, err)
	}

	text := Clean(string(raw))
	if text == "" {
		return "", fmt.Errorf("%w: subtitle file %s has no caption text", ErrNoCaptions, filepath.Base(path))
	}

	logger.Info("Captions extracted", "path", path, "chars", len(text))
	return text, nil
}

// locate finds the subtitle file. The expected name is tried first; yt-dlp
// sometimes writes a regional variant such as en-US instead.
func (f *Fetcher) locate(videoID string) (string, error) {
	expected := f.SubtitlePath(videoID)
	if _, err := os.Stat(expected); err == nil {
		return expected, nil
	}

	pattern := filepath.Join(f.WorkDir, fmt.Sprintf("%s.%s*.%s", videoID, f.lang(), subtitleFormat))
	files, err := filepath.Glob(pattern)
	if err != nil || len(files) == 0 {
		return "", fmt.Errorf("%w: expected subtitle file %s was not created", ErrNoCaptions, filepath.Base(expected))
	}
	return files[0], nil
}

func (f *Fetcher) cleanup(logger *slog.Logger, videoID string) {
	files, err := filepath.Glob(filepath.Join(f.WorkDir, fmt.Sprintf("%s.%s*", videoID, f.lang())))
	if err != nil {
		logger.Warn("Failed to list subtitle files for cleanup", "error", err)
		return
	}
	for _, file := range files {
		proc.RemoveQuietly(logger, file)
	}
}

func (f *Fetcher) lang() string {
	if f.Language == "" {
		return "en"
	}
	return f.Language
}

func (f *Fetcher) logger() *slog.Logger {
	if f.Logger == nil {
		return slog.Default()
	}
	return f.Logger
}
