// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/study-assistant/internal/convert"
	"github.com/pdiddy/study-assistant/internal/watch"
)

const watchBanner = `
=========================================================
                Study Assistant Auto-Watcher
=========================================================

Watching: %s
Auto-processing enabled

Drop your notes into the folder and they will be processed automatically.

Press Ctrl+C to stop...
`

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the incoming directory and process notes as they arrive",
	Long: `Watch observes the incoming directory and runs each new or modified note
through the pipeline, one at a time. Notes that were processed before are
skipped through the index. Existing notes are not processed on startup; run
"process" for that.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		p, release, err := buildPipeline(out)
		if err != nil {
			return err
		}
		defer release()

		w, err := watch.New(watch.Config{
			Dir:          cfg.Paths.IncomingDir,
			Extensions:   convert.SupportedExtensions(),
			ModifyGrace:  cfg.Watch.ModifyGrace,
			ReleaseGrace: cfg.Watch.ReleaseGrace,
			Handle: func(ctx context.Context, path string) error {
				fmt.Fprintf(out, "\nNew file detected: %s\n", filepath.Base(path))
				outcome := p.ProcessFile(ctx, path)
				switch {
				case outcome.Skipped:
				case outcome.Success:
					fmt.Fprintln(out, "Auto-processed successfully")
				default:
					fmt.Fprintln(out, "Processing failed")
				}
				return outcome.Err
			},
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(out, watchBanner, w.Dir())
		if err := w.Run(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(out, "\nAuto-Watcher stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
