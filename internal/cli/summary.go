package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"tidyoux/ytsum/internal/acquire"
	"tidyoux/ytsum/internal/store"
	"tidyoux/ytsum/internal/summarize"
	"tidyoux/ytsum/internal/youtube"
)

// runSummary is the main flow: acquire, save, summarize, save, record.
func (a *app) runSummary(ctx context.Context, out io.Writer, input string) error {
	startTime := time.Now()

	ref, err := youtube.ParseRef(input)
	if err != nil {
		return err
	}
	logger := a.logger.With("videoID", ref.ID)
	logger.Info("Starting summary pipeline", "url", ref.URL, "summary", !a.noSummary)

	// A missing summarizer key fails before any download.
	var summarizer summarize.Summarizer
	if !a.noSummary {
		if summarizer, err = a.newSummarizer(a); err != nil {
			return err
		}
	}

	var progress io.Writer
	if a.progress {
		progress = a.stderr
	}
	res, err := a.newAcquirer(a, progress).Acquire(ctx, ref)
	if res == nil {
		return err
	}
	if !res.Found() {
		fmt.Fprintln(out, "No transcript could be obtained: captions and speech-to-text both failed.")
		return fmt.Errorf("all transcript methods exhausted: %w", err)
	}

	rec := recordFromResult(ref, res)
	if _, err := a.local().SaveTranscript(rec, res.Text); err != nil {
		return err
	}

	if summarizer != nil {
		summary, err := summarizer.Summarize(ctx, res.Text, summarize.Meta{Title: rec.Title, Author: rec.Author})
		if err != nil {
			logger.Error("Summary generation failed", "error", err)
			fmt.Fprintf(out, "Summary unavailable: %v\n", err)
		} else {
			if _, err := a.local().SaveSummary(rec, summary); err != nil {
				return err
			}
			printSummary(out, rec, summary)
		}
	}

	a.recordRun(ctx, rec)
	fmt.Fprintf(out, "\nTranscript (%s, %d words): %s\n", rec.Method, rec.WordCount, rec.TranscriptPath)
	if rec.SummaryPath != "" {
		fmt.Fprintf(out, "Summary: %s\n", rec.SummaryPath)
	}

	logger.Info("Processing finished", "totalDuration", time.Since(startTime), "method", rec.Method)
	return nil
}

func recordFromResult(ref youtube.Ref, res *acquire.Result) *store.Record {
	rec := store.NewRecord()
	rec.VideoID = ref.ID
	rec.URL = ref.URL
	rec.Method = string(res.Method)
	rec.Confidence = res.Confidence
	rec.Speakers = res.Speakers
	if res.Metadata != nil {
		rec.Title = res.Metadata.Title
		rec.Author = res.Metadata.Author
		rec.DurationSeconds = res.Metadata.DurationSeconds
	}
	return rec
}

func printSummary(out io.Writer, rec *store.Record, summary string) {
	if rec.Title != "" {
		fmt.Fprintf(out, "%s", rec.Title)
		if rec.Author != "" {
			fmt.Fprintf(out, " (%s)", rec.Author)
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out, summary)
}
