// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process all unprocessed notes in the incoming directory",
	Long: `Process discovers every supported note in the incoming directory, skips
the ones already recorded in the processed index, and generates study material
for the rest. One failing note does not stop the batch.

The command exits with status 2 when any note failed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		p, release, err := buildPipeline(out)
		if err != nil {
			return err
		}
		defer release()

		fmt.Fprintf(out, "\nStudy Assistant\n\n")
		result, err := p.ProcessAll(cmd.Context())
		if err != nil {
			return err
		}
		if result.Attempted() == 0 && len(result.Skipped) > 0 {
			fmt.Fprintln(out, "No new files to process")
		}
		if result.HasFailures() {
			return &exitError{
				code: 2,
				err:  errors.Errorf("%d of %d file(s) failed", result.Failed(), result.Attempted()),
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(processCmd)
}
