package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tidyoux/ytsum/internal/youtube"
)

func newTranscriptCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "transcript [url|video-id]",
		Short: "Print a video's transcript without summarizing it",
		Example: `  ytsum transcript "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
  ytsum transcript dQw4w9WgXcQ -o transcript.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := youtube.ParseRef(args[0])
			if err != nil {
				return err
			}

			res, err := a.newAcquirer(a, nil).Acquire(cmd.Context(), ref)
			if res == nil {
				return err
			}
			if !res.Found() {
				return fmt.Errorf("all transcript methods exhausted: %w", err)
			}

			if output != "" {
				if err := os.WriteFile(output, []byte(res.Text+"\n"), 0o644); err != nil {
					return fmt.Errorf("write transcript: %w", err)
				}
				a.logger.Info("Transcript written", "path", output, "method", res.Method)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Text)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path (default: stdout)")
	return cmd
}
