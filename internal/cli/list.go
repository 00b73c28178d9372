package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tidyoux/ytsum/internal/store"
)

func newListCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List previous runs and output directory statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runList(cmd, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	return cmd
}

func (a *app) runList(cmd *cobra.Command, limit int) error {
	out := cmd.OutOrStdout()
	dbPath := filepath.Join(a.cfg.OutputDir, store.HistoryFile)

	if _, err := os.Stat(dbPath); errors.Is(err, fs.ErrNotExist) {
		// No history yet: fall back to the transcripts on disk, which also
		// covers output directories copied from another machine.
		records, err := store.ScanTranscripts(a.cfg.OutputDir, limit)
		if err != nil {
			return fmt.Errorf("read transcripts: %w", err)
		}
		if len(records) == 0 {
			fmt.Fprintln(out, "No runs recorded yet.")
		} else {
			printRuns(out, records)
		}
	} else {
		h, err := store.OpenHistory(dbPath)
		if err != nil {
			return err
		}
		defer h.Close()

		records, err := h.List(cmd.Context(), limit)
		if err != nil {
			return err
		}
		printRuns(out, records)
	}

	stats, err := store.Stats(a.cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("read output directory: %w", err)
	}
	fmt.Fprintln(out)
	printStats(out, stats)
	return nil
}

func printRuns(out io.Writer, records []store.Record) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tVIDEO\tMETHOD\tWORDS\tTITLE")
	for _, r := range records {
		video := r.VideoID
		if video == "" {
			video = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			r.CreatedAt.Format("2006-01-02 15:04"), video, r.Method, r.WordCount, r.Title)
	}
	w.Flush()
}

func printStats(out io.Writer, stats []store.DirStats) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DIRECTORY\tFILES\tSIZE\tLATEST")
	for _, s := range stats {
		latest := "-"
		if !s.Newest.IsZero() {
			latest = s.Newest.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", s.Name, s.Files, formatBytes(s.Bytes), latest)
	}
	w.Flush()
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
