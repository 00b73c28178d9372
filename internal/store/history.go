package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// HistoryFile is the database file name inside the output directory.
const HistoryFile = "history.db"

// History records every completed run in SQLite.
type History struct {
	db *sql.DB
}

// OpenHistory opens or creates the history database at dbPath.
func OpenHistory(dbPath string) (*History, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		video_id TEXT NOT NULL,
		url TEXT NOT NULL,
		title TEXT NOT NULL,
		author TEXT NOT NULL,
		duration_seconds INTEGER NOT NULL,
		method TEXT NOT NULL,
		confidence REAL,
		speakers TEXT NOT NULL,
		word_count INTEGER NOT NULL,
		transcript_path TEXT NOT NULL,
		summary_path TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &History{db: db}, nil
}

// Save inserts rec.
func (h *History) Save(ctx context.Context, rec *Record) error {
	var confidence sql.NullFloat64
	if rec.Confidence != nil {
		confidence = sql.NullFloat64{Float64: *rec.Confidence, Valid: true}
	}

	query := `
	INSERT INTO runs (run_id, video_id, url, title, author, duration_seconds, method,
		confidence, speakers, word_count, transcript_path, summary_path, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := h.db.ExecContext(ctx, query,
		rec.RunID, rec.VideoID, rec.URL, rec.Title, rec.Author, rec.DurationSeconds, rec.Method,
		confidence, strings.Join(rec.Speakers, ","), rec.WordCount,
		rec.TranscriptPath, rec.SummaryPath, rec.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// List returns up to limit runs, newest first. A non-positive limit returns
// all of them.
func (h *History) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `
	SELECT run_id, video_id, url, title, author, duration_seconds, method,
		confidence, speakers, word_count, transcript_path, summary_path, created_at
	FROM runs ORDER BY created_at DESC, id DESC LIMIT ?
	`
	rows, err := h.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec        Record
			confidence sql.NullFloat64
			speakers   string
			createdAt  int64
		)
		if err := rows.Scan(&rec.RunID, &rec.VideoID, &rec.URL, &rec.Title, &rec.Author,
			&rec.DurationSeconds, &rec.Method, &confidence, &speakers, &rec.WordCount,
			&rec.TranscriptPath, &rec.SummaryPath, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if confidence.Valid {
			c := confidence.Float64
			rec.Confidence = &c
		}
		if speakers != "" {
			rec.Speakers = strings.Split(speakers, ",")
		}
		rec.CreatedAt = time.UnixMilli(createdAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (h *History) Close() error {
	return h.db.Close()
}
