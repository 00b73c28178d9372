// Package store persists transcripts and summaries as markdown files with
// YAML front matter, keeps a SQLite history of runs and tidies the work
// directory.
package store

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const (
	TranscriptsDir = "transcripts"
	SummariesDir   = "summaries"
)

// Record describes one generated transcript and, optionally, its summary.
type Record struct {
	RunID           string    `yaml:"run_id"`
	VideoID         string    `yaml:"video_id,omitempty"`
	URL             string    `yaml:"url,omitempty"`
	Title           string    `yaml:"title,omitempty"`
	Author          string    `yaml:"author,omitempty"`
	DurationSeconds int       `yaml:"duration_seconds,omitempty"`
	Method          string    `yaml:"method"`
	Confidence      *float64  `yaml:"confidence,omitempty"`
	Speakers        []string  `yaml:"speakers,omitempty,flow"`
	WordCount       int       `yaml:"word_count"`
	CreatedAt       time.Time `yaml:"created_at"`

	TranscriptPath string `yaml:"-"`
	SummaryPath    string `yaml:"-"`
}

// NewRecord starts a record with a fresh run ID.
func NewRecord() *Record {
	return &Record{RunID: uuid.NewString(), CreatedAt: time.Now()}
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// fileName is "{date}_{video ID}_{run}.md", or "{date}_manual_{run}.md"
// for manual entries. The run suffix keeps repeated runs on the same video
// and day from overwriting each other.
func (r *Record) fileName() string {
	key := "manual"
	if r.VideoID != "" {
		key = unsafeChars.ReplaceAllString(r.VideoID, "_")
	}
	run := r.RunID
	if len(run) > 8 {
		run = run[:8]
	}
	return fmt.Sprintf("%s_%s_%s.md", r.CreatedAt.Format("2006-01-02"), key, run)
}

// Local writes output files under OutputDir.
type Local struct {
	OutputDir string
	Logger    *slog.Logger
}

// NewLocal creates a local store rooted at outputDir.
func NewLocal(outputDir string, logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.Default()
	}
	return &Local{OutputDir: outputDir, Logger: logger}
}

// SaveTranscript writes {OutputDir}/transcripts/{date}_{key}_{run}.md and sets
// rec.TranscriptPath.
func (l *Local) SaveTranscript(rec *Record, text string) (string, error) {
	if rec.WordCount == 0 {
		rec.WordCount = WordCount(text)
	}
	path, err := l.write(TranscriptsDir, rec, strings.TrimSpace(text)+"\n")
	if err != nil {
		return "", err
	}
	rec.TranscriptPath = path
	return path, nil
}

// SaveSummary writes {OutputDir}/summaries/{date}_{key}_{run}.md and sets
// rec.SummaryPath.
func (l *Local) SaveSummary(rec *Record, summary string) (string, error) {
	var body strings.Builder
	title := rec.Title
	if title == "" {
		title = "Untitled video"
	}
	fmt.Fprintf(&body, "# %s\n\n", title)
	if rec.Author != "" {
		fmt.Fprintf(&body, "_%s_\n\n", rec.Author)
	}
	body.WriteString(strings.TrimSpace(summary))
	body.WriteString("\n")

	path, err := l.write(SummariesDir, rec, body.String())
	if err != nil {
		return "", err
	}
	rec.SummaryPath = path
	return path, nil
}

func (l *Local) write(kind string, rec *Record, body string) (string, error) {
	dir := filepath.Join(l.OutputDir, kind)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", kind, err)
	}

	front, err := yaml.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to marshal front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(front)
	buf.WriteString("---\n\n")
	buf.WriteString(body)

	path := filepath.Join(dir, rec.fileName())
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", kind, err)
	}
	l.Logger.Info("Saved output file", "kind", kind, "path", path)
	return path, nil
}

// ReadFrontMatter parses the YAML header of a file written by Local.
func ReadFrontMatter(path string) (*Record, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	rest, ok := bytes.CutPrefix(raw, []byte("---\n"))
	if !ok {
		return nil, "", fmt.Errorf("%s has no front matter", path)
	}
	header, body, ok := bytes.Cut(rest, []byte("\n---\n"))
	if !ok {
		return nil, "", fmt.Errorf("%s has unterminated front matter", path)
	}

	var rec Record
	if err := yaml.Unmarshal(header, &rec); err != nil {
		return nil, "", fmt.Errorf("parse front matter of %s: %w", path, err)
	}
	return &rec, strings.TrimSpace(string(body)), nil
}

// ScanTranscripts reads the front matter of every transcript under
// outputDir, newest first. Files without a readable header are skipped.
func ScanTranscripts(outputDir string, limit int) ([]Record, error) {
	matches, err := filepath.Glob(filepath.Join(outputDir, TranscriptsDir, "*.md"))
	if err != nil {
		return nil, err
	}

	var out []Record
	for _, path := range matches {
		rec, _, err := ReadFrontMatter(path)
		if err != nil {
			continue
		}
		rec.TranscriptPath = path
		out = append(out, *rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
