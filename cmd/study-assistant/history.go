// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/pdiddy/study-assistant/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent processing attempts",
	Long: `History lists the most recent attempts recorded in the history ledger,
newest first. The ledger is enabled by setting history.path in the config
file or STUDY_ASSISTANT_HISTORY_PATH.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")
		out := cmd.OutOrStdout()

		if cfg.History.Path == "" {
			return errors.New("history ledger is disabled (set history.path)")
		}
		ledger, err := history.Open(cfg.History.Path)
		if err != nil {
			return err
		}
		defer ledger.Close()

		attempts, err := ledger.Recent(cmd.Context(), limit)
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(attempts)
		}
		if len(attempts) == 0 {
			fmt.Fprintln(out, "No attempts recorded")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "WHEN\tFILE\tSTAGE\tRESULT\tDURATION")
		for _, a := range attempts {
			result := "ok"
			switch {
			case a.Skipped:
				result = "skipped"
			case !a.Success:
				result = a.Error
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				a.CreatedAt.Local().Format("2006-01-02 15:04:05"), a.Filename, a.Stage, result, a.Duration.Round(time.Millisecond))
		}
		return tw.Flush()
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of attempts to show")
	historyCmd.Flags().Bool("json", false, "output attempts as JSON")
	rootCmd.AddCommand(historyCmd)
}
