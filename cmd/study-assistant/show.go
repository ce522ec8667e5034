// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

var showCmd = &cobra.Command{
	Use:   "show <study-file>",
	Short: "Render a study material file in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		width, _ := cmd.Flags().GetInt("width")

		data, err := os.ReadFile(args[0])
		if err != nil {
			return errors.Errorf("reading %s: %w", args[0], err)
		}

		opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
		if width > 0 {
			opts = append(opts, glamour.WithWordWrap(width))
		}
		r, err := glamour.NewTermRenderer(opts...)
		if err != nil {
			return errors.Errorf("creating renderer: %w", err)
		}
		rendered, err := r.Render(string(data))
		if err != nil {
			return errors.Errorf("rendering %s: %w", args[0], err)
		}
		fmt.Fprint(cmd.OutOrStdout(), rendered)
		return nil
	},
}

func init() {
	showCmd.Flags().Int("width", 100, "word wrap width, 0 disables wrapping")
	rootCmd.AddCommand(showCmd)
}
