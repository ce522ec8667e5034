// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"path/filepath"
	"strings"
)

// CandidateFile is an incoming note discovered by a directory scan or a
// filesystem event. It is never modified after construction.
type CandidateFile struct {
	// Path is the absolute path of the file.
	Path string `json:"path" yaml:"path"`

	// Name is the base filename, used as the idempotency index key.
	Name string `json:"name" yaml:"name"`

	// Ext is the lower-cased extension including the leading dot (e.g. ".pdf").
	Ext string `json:"ext" yaml:"ext"`
}

// NewCandidateFile builds a CandidateFile from a path. Relative paths are
// resolved against the working directory; if that fails the path is kept as is.
func NewCandidateFile(path string) CandidateFile {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	name := filepath.Base(abs)
	return CandidateFile{
		Path: abs,
		Name: name,
		Ext:  strings.ToLower(filepath.Ext(name)),
	}
}

// ProcessedIndex maps a filename (not a full path) to the ISO-8601 timestamp
// at which it last completed the pipeline.
type ProcessedIndex map[string]string

// Stage is a state in the per-file pipeline.
type Stage int

const (
	StageDiscovered Stage = iota
	StageClassified
	StageExtracted
	StageGenerated
	StageMaterialized
	StageIndexed
	StageFailed
)

var stageNames = map[Stage]string{
	StageDiscovered:   "discovered",
	StageClassified:   "classified",
	StageExtracted:    "extracted",
	StageGenerated:    "generated",
	StageMaterialized: "materialized",
	StageIndexed:      "indexed",
	StageFailed:       "failed",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// FileOutcome reports a single pipeline attempt for one file.
type FileOutcome struct {
	Name    string
	Subject string

	// Stage is the last stage reached. A failed attempt reports StageFailed and
	// FailedAt holds the stage it could not reach.
	Stage    Stage
	FailedAt Stage

	Success bool
	Skipped bool

	MarkdownPath string
	DocumentPath string

	// Err is the per-file error for a failed attempt.
	Err error

	// RenderErr is set when the Markdown was written but the rendered document
	// could not be produced. The attempt still counts as a success.
	RenderErr error
}

// BatchResult summarizes one ProcessAll invocation. Files already present in
// the index at discovery time appear only in Skipped.
type BatchResult struct {
	Results map[string]bool
	Skipped []string
}

// Succeeded returns the number of files that reached the index.
func (r BatchResult) Succeeded() int {
	n := 0
	for _, ok := range r.Results {
		if ok {
			n++
		}
	}
	return n
}

// Attempted returns the number of files that entered the pipeline.
func (r BatchResult) Attempted() int {
	return len(r.Results)
}

// Failed returns the number of attempted files that did not succeed.
func (r BatchResult) Failed() int {
	return r.Attempted() - r.Succeeded()
}

// HasFailures reports whether any attempted file failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed() > 0
}
