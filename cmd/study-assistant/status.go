// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/study-assistant/internal/index"
	"github.com/pdiddy/study-assistant/internal/subject"
)

// statusEntry is one processed note as reported by the status command.
type statusEntry struct {
	Filename    string `json:"filename" yaml:"filename"`
	Subject     string `json:"subject,omitempty" yaml:"subject,omitempty"`
	ProcessedAt string `json:"processed_at" yaml:"processed_at"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List the notes recorded in the processed index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		idx := index.NewStore(cfg.Paths.IndexPath).Load()

		entries := make([]statusEntry, 0, len(idx))
		for name, at := range idx {
			s, _ := subject.ExtractSubject(name)
			entries = append(entries, statusEntry{Filename: name, Subject: s, ProcessedAt: at})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Filename < entries[j].Filename })

		return writeEntries(cmd.OutOrStdout(), format, entries)
	},
}

func writeEntries(w io.Writer, format string, entries []statusEntry) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return errors.Errorf("encoding status: %w", err)
		}
		return enc.Close()
	case "text", "":
		if len(entries) == 0 {
			fmt.Fprintln(w, "No processed notes")
			return nil
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "FILE\tSUBJECT\tPROCESSED")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Filename, e.Subject, e.ProcessedAt)
		}
		return tw.Flush()
	default:
		return errors.Errorf("unknown format %q (want text, json or yaml)", format)
	}
}

func init() {
	statusCmd.Flags().String("format", "text", "output format: text, json, or yaml")
	rootCmd.AddCommand(statusCmd)
}
