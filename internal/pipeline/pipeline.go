// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives each incoming note through classification,
// extraction, generation, materialization and the idempotency index.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/oklog/ulid/v2"
	"gitlab.com/tozd/go/errors"

	"github.com/pdiddy/study-assistant/internal/convert"
	"github.com/pdiddy/study-assistant/internal/history"
	"github.com/pdiddy/study-assistant/internal/index"
	"github.com/pdiddy/study-assistant/internal/logging"
	"github.com/pdiddy/study-assistant/internal/render"
	"github.com/pdiddy/study-assistant/internal/subject"
	"github.com/pdiddy/study-assistant/pkg/types"
)

// Extractor turns a note file into plain text.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Generator turns note text into study material.
type Generator interface {
	Generate(ctx context.Context, note string) (string, error)
}

// Materializer writes study material to disk.
type Materializer interface {
	Materialize(markdownPath, content, title string) (render.Result, error)
}

// IndexStore persists the processed index.
type IndexStore interface {
	Load() types.ProcessedIndex
	Save(idx types.ProcessedIndex) error
	MarkProcessed(name string, idx types.ProcessedIndex)
}

// Recorder receives one entry per attempt. It is optional.
type Recorder interface {
	Record(ctx context.Context, a history.Attempt) error
}

// Options wires a Pipeline.
type Options struct {
	Extractor    Extractor
	Generator    Generator
	Materializer Materializer
	Index        IndexStore

	// IncomingDir is scanned by ProcessAll.
	IncomingDir string

	// OutputDir is the base of the subject tree. Empty means the parent of
	// IncomingDir.
	OutputDir string

	// Extensions limits discovery. Empty means convert.SupportedExtensions().
	Extensions []string

	History Recorder

	// Out receives human-readable progress lines. Nil discards them.
	Out io.Writer

	// RunID tags history entries. Empty generates a ULID.
	RunID string
}

// Pipeline processes notes one at a time. It owns the in-memory index for
// its lifetime and is the only writer of the persisted index.
type Pipeline struct {
	opts     Options
	patterns []string

	mu  sync.Mutex
	idx types.ProcessedIndex
}

// New returns a Pipeline. The index is loaded on first use.
func New(opts Options) *Pipeline {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.OutputDir == "" {
		opts.OutputDir = filepath.Dir(filepath.Clean(opts.IncomingDir))
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = convert.SupportedExtensions()
	}
	if opts.RunID == "" {
		opts.RunID = ulid.Make().String()
	}

	patterns := make([]string, len(opts.Extensions))
	for i, ext := range opts.Extensions {
		patterns[i] = "*" + strings.ToLower(ext)
	}
	return &Pipeline{opts: opts, patterns: patterns}
}

// RunID returns the identifier attached to this pipeline's history entries.
func (p *Pipeline) RunID() string { return p.opts.RunID }

// OutputDir returns the resolved base of the subject tree.
func (p *Pipeline) OutputDir() string { return p.opts.OutputDir }

// Matches reports whether name has one of the configured extensions and an
// extraction backend for it.
func (p *Pipeline) Matches(name string) bool {
	if !convert.IsSupported(name) {
		return false
	}
	name = strings.ToLower(filepath.Base(name))
	for _, pat := range p.patterns {
		if ok, _ := doublestar.Match(pat, name); ok {
			return true
		}
	}
	return false
}

// Discover lists the regular files in the incoming directory with a
// recognized extension, sorted by path.
func (p *Pipeline) Discover() ([]types.CandidateFile, error) {
	entries, err := os.ReadDir(p.opts.IncomingDir)
	if err != nil {
		return nil, errors.Errorf("reading incoming directory %s: %w", p.opts.IncomingDir, err)
	}

	var files []types.CandidateFile
	for _, e := range entries {
		if e.IsDir() || !p.Matches(e.Name()) {
			continue
		}
		files = append(files, types.NewCandidateFile(filepath.Join(p.opts.IncomingDir, e.Name())))
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// ProcessAll runs every discovered file that is not yet indexed. Per-file
// failures are reported in the result and never stop the batch. An error is
// returned only when the incoming directory cannot be listed or ctx is
// cancelled between files.
func (p *Pipeline) ProcessAll(ctx context.Context) (types.BatchResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := types.BatchResult{Results: map[string]bool{}}

	files, err := p.Discover()
	if err != nil {
		return result, err
	}
	if len(files) == 0 {
		fmt.Fprintln(p.opts.Out, "No files found to process")
		return result, nil
	}

	idx := p.index()
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if index.IsProcessed(f.Name, idx) {
			p.skip(ctx, f)
			result.Skipped = append(result.Skipped, f.Name)
			continue
		}
		out := p.process(ctx, f, idx)
		result.Results[f.Name] = out.Success
	}

	fmt.Fprintf(p.opts.Out, "Successfully processed %d/%d file(s)\n", result.Succeeded(), result.Attempted())
	return result, nil
}

// ProcessFile runs one file through the pipeline. A file already in the
// index is skipped without any extraction or generation.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) types.FileOutcome {
	p.mu.Lock()
	defer p.mu.Unlock()

	f := types.NewCandidateFile(path)
	idx := p.index()
	if index.IsProcessed(f.Name, idx) {
		return p.skip(ctx, f)
	}
	return p.process(ctx, f, idx)
}

// index loads the persisted index once. Callers hold p.mu.
func (p *Pipeline) index() types.ProcessedIndex {
	if p.idx == nil {
		p.idx = p.opts.Index.Load()
	}
	return p.idx
}

func (p *Pipeline) skip(ctx context.Context, f types.CandidateFile) types.FileOutcome {
	logging.Get("pipeline").Info().Str("file", f.Name).Msg("skipping already processed file")
	fmt.Fprintf(p.opts.Out, "skipped %s\n", f.Name)

	out := types.FileOutcome{Name: f.Name, Stage: types.StageIndexed, Skipped: true}
	if s, ok := subject.ExtractSubject(f.Name); ok {
		out.Subject = s
	}
	p.record(ctx, out, 0)
	return out
}

// process walks the state machine for one file that is not yet indexed.
func (p *Pipeline) process(ctx context.Context, f types.CandidateFile, idx types.ProcessedIndex) types.FileOutcome {
	log := logging.Get("pipeline")
	start := time.Now()
	out := types.FileOutcome{Name: f.Name, Stage: types.StageDiscovered}

	log.Info().Str("file", f.Name).Msg("processing")
	fmt.Fprintf(p.opts.Out, "processing %s\n", f.Name)

	fail := func(at types.Stage, err error) types.FileOutcome {
		out.FailedAt = at
		out.Stage = types.StageFailed
		out.Err = err
		log.Error().Err(err).Str("file", f.Name).Stringer("stage", at).Msg("processing failed")
		fmt.Fprintf(p.opts.Out, "failed  %s: %v\n", f.Name, err)
		p.record(ctx, out, time.Since(start))
		return out
	}

	subj, ok := subject.ExtractSubject(f.Name)
	if !ok {
		return fail(types.StageClassified, errors.Errorf("invalid filename format %q: %w", f.Name, subject.ErrNoSubject))
	}
	out.Subject = subj
	out.Stage = types.StageClassified

	text, err := p.opts.Extractor.Extract(ctx, f.Path)
	if err != nil {
		return fail(types.StageExtracted, err)
	}
	out.Stage = types.StageExtracted

	log.Debug().Str("file", f.Name).Str("subject", subj).Int("chars", len(text)).Msg("generating study material")
	material, err := p.opts.Generator.Generate(ctx, text)
	if err != nil {
		return fail(types.StageGenerated, err)
	}
	out.Stage = types.StageGenerated

	folder, err := subject.ResolveOutputFolder(p.opts.OutputDir, subj)
	if err != nil {
		return fail(types.StageMaterialized, &render.MaterializationError{Path: filepath.Join(p.opts.OutputDir, subj), Err: err})
	}
	mdPath := filepath.Join(folder, subject.OutputFilename(f.Name, subject.DefaultSuffix))
	title := strings.TrimSuffix(f.Name, filepath.Ext(f.Name))

	res, err := p.opts.Materializer.Materialize(mdPath, material, title)
	if err != nil {
		return fail(types.StageMaterialized, err)
	}
	out.Stage = types.StageMaterialized
	out.MarkdownPath = res.MarkdownPath
	out.DocumentPath = res.DocumentPath
	out.RenderErr = res.RenderErr
	if res.RenderErr != nil {
		fmt.Fprintf(p.opts.Out, "warning %s: %v\n", f.Name, res.RenderErr)
	}

	p.opts.Index.MarkProcessed(f.Name, idx)
	if err := p.opts.Index.Save(idx); err != nil {
		// Keep memory consistent with disk so a later run retries the file.
		delete(idx, f.Name)
		return fail(types.StageIndexed, err)
	}
	out.Stage = types.StageIndexed
	out.Success = true

	log.Info().Str("file", f.Name).Str("output", mdPath).Dur("took", time.Since(start)).Msg("processed")
	fmt.Fprintf(p.opts.Out, "saved   %s -> %s\n", f.Name, displayPath(mdPath))
	p.record(ctx, out, time.Since(start))
	return out
}

func (p *Pipeline) record(ctx context.Context, out types.FileOutcome, took time.Duration) {
	if p.opts.History == nil {
		return
	}
	a := history.Attempt{
		RunID:        p.opts.RunID,
		Filename:     out.Name,
		Subject:      out.Subject,
		Stage:        out.Stage.String(),
		Success:      out.Success,
		Skipped:      out.Skipped,
		MarkdownPath: out.MarkdownPath,
		Duration:     took,
	}
	if out.Err != nil {
		a.Error = out.FailedAt.String() + ": " + out.Err.Error()
	}
	// The ledger write must not be lost to a cancelled run context.
	if err := p.opts.History.Record(context.WithoutCancel(ctx), a); err != nil {
		logging.Get("pipeline").Warn().Err(err).Str("file", out.Name).Msg("recording history")
	}
}

// displayPath prefers a path relative to the working directory.
func displayPath(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(wd, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}
