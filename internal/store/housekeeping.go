package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DirStats summarizes one output directory.
type DirStats struct {
	Name   string
	Files  int
	Bytes  int64
	Newest time.Time
}

// Stats reports the transcripts and summaries directories under outputDir.
// A directory that does not exist yet has zero stats.
func Stats(outputDir string) ([]DirStats, error) {
	var out []DirStats
	for _, name := range []string{TranscriptsDir, SummariesDir} {
		st := DirStats{Name: name}
		entries, err := os.ReadDir(filepath.Join(outputDir, name))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			st.Files++
			st.Bytes += info.Size()
			if info.ModTime().After(st.Newest) {
				st.Newest = info.ModTime()
			}
		}
		out = append(out, st)
	}
	return out, nil
}

// Work files are named after the 11-character video ID: "{id}.audio.{ext}"
// for downloaded audio and "{id}.{lang}[-region].vtt" for subtitle tracks,
// plus the ".part"/".ytdl" partials the subtitle downloader leaves.
var workFileRe = regexp.MustCompile(
	`^[A-Za-z0-9_-]{11}\.(audio\.[A-Za-z0-9]+|[A-Za-z]{2,3}(-[A-Za-z0-9]+)*\.vtt(\.part|\.ytdl)?)$`)

// IsWorkFile reports whether name looks like a temporary caption or audio
// file written by the acquisition steps.
func IsWorkFile(name string) bool {
	return workFileRe.MatchString(name)
}

// SweepStale removes work files directly inside workDir that are older than
// maxAge. These are left behind only by runs that were killed before their
// own cleanup ran. Other files and subdirectories are never touched, and the
// sweep is refused when workDir is or contains outputDir.
func SweepStale(logger *slog.Logger, workDir, outputDir string, maxAge time.Duration) (int, error) {
	if contains, err := containsDir(workDir, outputDir); err != nil {
		return 0, err
	} else if contains {
		return 0, fmt.Errorf("refusing to sweep work directory %s: it contains the output directory %s", workDir, outputDir)
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	now := time.Now()
	var (
		deletedCount int
		deletedSize  int64
	)
	for _, e := range entries {
		if !e.Type().IsRegular() || !IsWorkFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil || now.Sub(info.ModTime()) <= maxAge {
			continue
		}
		path := filepath.Join(workDir, e.Name())
		if err := os.Remove(path); err != nil {
			logger.Warn("Failed to remove stale file", "path", path, "error", err)
			continue
		}
		deletedCount++
		deletedSize += info.Size()
	}
	if deletedCount > 0 {
		logger.Info("Removed stale work files", "count", deletedCount, "bytes", deletedSize)
	}
	return deletedCount, nil
}

// containsDir reports whether child is parent or lies below it.
func containsDir(parent, child string) (bool, error) {
	if child == "" {
		return false, nil
	}
	p, err := filepath.Abs(parent)
	if err != nil {
		return false, err
	}
	c, err := filepath.Abs(child)
	if err != nil {
		return false, err
	}
	rel, err := filepath.Rel(p, c)
	if err != nil {
		return false, nil
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))), nil
}
