// Package cli wires configuration, logging and the acquisition pipeline into
// the ytsum commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"tidyoux/ytsum/internal/acquire"
	"tidyoux/ytsum/internal/apperr"
	"tidyoux/ytsum/internal/captions"
	"tidyoux/ytsum/internal/config"
	"tidyoux/ytsum/internal/proc"
	"tidyoux/ytsum/internal/speech"
	"tidyoux/ytsum/internal/store"
	"tidyoux/ytsum/internal/summarize"
	"tidyoux/ytsum/internal/youtube"
)

// Acquirer obtains a transcript for a video.
type Acquirer interface {
	Acquire(ctx context.Context, ref youtube.Ref) (*acquire.Result, error)
}

type app struct {
	envFile   string
	outputDir string
	workDir   string
	logLevel  string
	logFormat string
	noSummary bool
	progress  bool

	cfg    *config.Config
	logger *slog.Logger

	// Overridable in tests.
	newAcquirer   func(a *app, progress io.Writer) Acquirer
	newSummarizer func(a *app) (summarize.Summarizer, error)
	stderr        io.Writer
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{
		newAcquirer:   defaultAcquirer,
		newSummarizer: defaultSummarizer,
		stderr:        os.Stderr,
	})
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ytsum [url|video-id]",
		Short: "Summarize a YouTube video from its captions or audio",
		Long: `ytsum fetches a YouTube video's captions, falling back to speech-to-text
on the audio when none are available, and asks a language model for a
bullet-point summary. Transcripts and summaries are saved under the output
directory.`,
		Example: `  ytsum "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
  ytsum dQw4w9WgXcQ --no-summary
  ytsum transcript https://youtu.be/dQw4w9WgXcQ -o transcript.txt`,
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("%w: a YouTube URL or video ID is required", apperr.ErrMissingInput)
			}
			return a.runSummary(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.envFile, "env-file", ".env", "Environment file to load")
	flags.StringVar(&a.outputDir, "output-dir", "", "Directory for transcripts, summaries and history (overrides OUTPUT_DIR)")
	flags.StringVar(&a.workDir, "work-dir", "", "Directory for temporary caption and audio files (overrides WORK_DIR)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: DEBUG, INFO, WARN, ERROR (overrides LOG_LEVEL)")
	flags.StringVar(&a.logFormat, "log-format", "json", "Log format: json or text")
	flags.BoolVar(&a.noSummary, "no-summary", false, "Only produce the transcript")
	rootCmd.Flags().BoolVar(&a.progress, "progress", false, "Show a progress bar while downloading audio")

	rootCmd.AddCommand(newTranscriptCmd(a))
	rootCmd.AddCommand(newManualCmd(a))
	rootCmd.AddCommand(newListCmd(a))

	return rootCmd
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context) int {
	cmd := NewRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		Report(cmd.ErrOrStderr(), err)
		return 1
	}
	return 0
}

// Report prints err and a troubleshooting hint when one is known.
func Report(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	if hint := apperr.Hint(err); hint != "" {
		fmt.Fprintf(w, "Hint: %s\n", hint)
	}
}

// setup loads configuration, applies flag overrides and installs the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if a.outputDir != "" {
		cfg.OutputDir = a.outputDir
	}
	if a.workDir != "" {
		cfg.WorkDir = a.workDir
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg

	a.logger = newLogger(a.stderr, cfg.LogLevel, a.logFormat)
	slog.SetDefault(a.logger)
	a.logger.Debug("Configuration loaded",
		"command", cmd.Name(),
		"outputDir", cfg.OutputDir,
		"workDir", cfg.WorkDir,
		"summaryProvider", cfg.SummaryProvider,
		"downloadTimeout", cfg.DownloadTimeout)

	if _, err := store.SweepStale(a.logger, cfg.WorkDir, cfg.OutputDir, cfg.StaleAfter); err != nil {
		a.logger.Warn("Failed to sweep work directory", "path", cfg.WorkDir, "error", err)
	}
	return nil
}

func defaultAcquirer(a *app, progress io.Writer) Acquirer {
	cfg := a.cfg
	yt := youtube.NewClient(nil)

	fetcher := &captions.Fetcher{
		Runner:   proc.ExecRunner{Logger: a.logger},
		WorkDir:  cfg.WorkDir,
		Language: cfg.Language,
		Logger:   a.logger,
	}
	deepgram := &speech.Deepgram{
		APIKey:     cfg.DeepgramAPIKey,
		Model:      cfg.DeepgramModel,
		Language:   cfg.Language,
		URL:        cfg.DeepgramURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Minute},
		Logger:     a.logger,
	}

	return acquire.NewPipeline(a.logger,
		&acquire.CaptionStrategy{Captions: fetcher, Metadata: yt, Logger: a.logger},
		&acquire.SpeechStrategy{
			APIKey:      cfg.DeepgramAPIKey,
			Videos:      yt,
			Transcriber: deepgram,
			WorkDir:     cfg.WorkDir,
			Timeout:     cfg.DownloadTimeout,
			Progress:    progress,
			Logger:      a.logger,
		},
	)
}

func defaultSummarizer(a *app) (summarize.Summarizer, error) {
	return summarize.New(a.cfg, a.logger)
}

func (a *app) local() *store.Local {
	return store.NewLocal(a.cfg.OutputDir, a.logger)
}

// recordRun appends rec to the history database. History is informational,
// so failures are logged only.
func (a *app) recordRun(ctx context.Context, rec *store.Record) {
	if err := proc.EnsureDir(a.logger, a.cfg.OutputDir); err != nil {
		return
	}
	h, err := store.OpenHistory(filepath.Join(a.cfg.OutputDir, store.HistoryFile))
	if err != nil {
		a.logger.Warn("Failed to open history", "error", err)
		return
	}
	defer h.Close()
	if err := h.Save(ctx, rec); err != nil {
		a.logger.Warn("Failed to record run", "runID", rec.RunID, "error", err)
	}
}
