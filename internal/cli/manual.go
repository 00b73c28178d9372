package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"tidyoux/ytsum/internal/apperr"
	"tidyoux/ytsum/internal/store"
	"tidyoux/ytsum/internal/summarize"
	"tidyoux/ytsum/internal/youtube"
)

// MethodManual marks transcripts typed or pasted by the user.
const MethodManual = "manual"

const endMarker = "END"

func newManualCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "manual",
		Short: "Enter a transcript by hand and summarize it",
		Long: `manual prompts for the video URL, title and author, then reads transcript
lines until a line containing only END (or end of input).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runManual(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// manualEntry is what the user typed.
type manualEntry struct {
	URL        string
	Title      string
	Author     string
	Transcript string
}

// promptManual reads one entry from in, writing prompts to out.
func promptManual(in io.Reader, out io.Writer) (*manualEntry, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	ask := func(label string) string {
		fmt.Fprint(out, label)
		if !scanner.Scan() {
			return ""
		}
		return strings.TrimSpace(scanner.Text())
	}

	entry := &manualEntry{
		URL:    ask("Video URL (optional): "),
		Title:  ask("Title: "),
		Author: ask("Author: "),
	}

	fmt.Fprintf(out, "Paste the transcript, then type %s on its own line:\n", endMarker)
	var lines []string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == endMarker {
			break
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}

	entry.Transcript = strings.TrimSpace(strings.Join(lines, "\n"))
	if entry.Transcript == "" {
		return nil, fmt.Errorf("%w: the transcript is empty", apperr.ErrMissingInput)
	}
	return entry, nil
}

func (a *app) runManual(ctx context.Context, in io.Reader, out io.Writer) error {
	entry, err := promptManual(in, out)
	if err != nil {
		return err
	}

	rec := store.NewRecord()
	rec.Method = MethodManual
	rec.Title = entry.Title
	rec.Author = entry.Author
	if entry.URL != "" {
		ref, err := youtube.ParseRef(entry.URL)
		if err != nil {
			return err
		}
		rec.VideoID = ref.ID
		rec.URL = ref.URL
	}

	if _, err := a.local().SaveTranscript(rec, entry.Transcript); err != nil {
		return err
	}
	fmt.Fprintf(out, "Transcript saved (%d words): %s\n", rec.WordCount, rec.TranscriptPath)

	if !a.noSummary {
		summarizer, err := a.newSummarizer(a)
		if err != nil {
			return err
		}
		summary, err := summarizer.Summarize(ctx, entry.Transcript, summarize.Meta{Title: rec.Title, Author: rec.Author})
		if err != nil {
			a.logger.Error("Summary generation failed", "error", err)
			fmt.Fprintf(out, "Summary unavailable: %v\n", err)
		} else {
			if _, err := a.local().SaveSummary(rec, summary); err != nil {
				return err
			}
			fmt.Fprintln(out)
			printSummary(out, rec, summary)
			fmt.Fprintf(out, "\nSummary: %s\n", rec.SummaryPath)
		}
	}

	a.recordRun(ctx, rec)
	return nil
}
