// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert extracts plain text from note files with pluggable,
// per-format backends.
//
// Dispatch is purely on the file extension. PDF extraction picks the first
// backend from an ordered preference list whose capability probe succeeds,
// so neither PDF tool has to exist at build time.
package convert

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gitlab.com/tozd/go/errors"

	"github.com/pdiddy/study-assistant/internal/logging"
)

// Backend turns one file into plain text.
type Backend interface {
	// Name identifies the backend in errors and logs.
	Name() string

	// Extract reads the file at path and returns its text.
	Extract(ctx context.Context, path string) (string, error)
}

// PDFBackend is a Backend whose availability is only known at runtime.
type PDFBackend interface {
	Backend

	// Probe returns nil when the backend can run in this environment.
	Probe(ctx context.Context) error
}

var (
	// ErrUnsupportedFormat matches every *UnsupportedFormatError.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrExtraction matches every *ExtractionError.
	ErrExtraction = errors.New("extraction failed")

	// ErrNoPDFBackend is wrapped when no PDF backend passes its probe.
	ErrNoPDFBackend = errors.New("no PDF backend available")

	// ErrInvalidUTF8 is wrapped when a text note is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("file is not valid UTF-8")
)

// UnsupportedFormatError reports an extension no backend handles.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format: %q", e.Ext)
}

func (e *UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

// ExtractionError reports a failure on a supported format.
type ExtractionError struct {
	Path    string
	Backend string
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %s with %s: %v", filepath.Base(e.Path), e.Backend, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func (e *ExtractionError) Is(target error) bool {
	return target == ErrExtraction
}

// formats maps each recognized extension to a backend slot.
var formats = map[string]string{
	".txt":      "text",
	".md":       "text",
	".markdown": "text",
	".docx":     "docx",
	".html":     "html",
	".htm":      "html",
	".pdf":      "pdf",
}

// SupportedExtensions returns the recognized extensions, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(formats))
	for ext := range formats {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// IsSupported reports whether path has a recognized extension.
func IsSupported(path string) bool {
	_, ok := formats[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extractor dispatches files to backends by extension.
type Extractor struct {
	backends map[string]Backend
	pdfPrefs []PDFBackend

	pdfMu    sync.Mutex
	pdf      PDFBackend
	pdfErr   error
	resolved bool
}

// NewExtractor builds an Extractor. pdfPrefs is the PDF preference list,
// most preferred first; DefaultPDFBackends supplies the production list.
func NewExtractor(pdfPrefs ...PDFBackend) *Extractor {
	return &Extractor{
		backends: map[string]Backend{
			"text": TextBackend{},
			"docx": DocxBackend{},
			"html": HTMLBackend{},
		},
		pdfPrefs: pdfPrefs,
	}
}

// DefaultPDFBackends returns pdftotext (layout-preserving) followed by the
// container-based markitdown fallback.
func DefaultPDFBackends() []PDFBackend {
	return []PDFBackend{NewPdftotextBackend(), NewMarkitdownBackend()}
}

// ResolvePDF probes the PDF preference list once and caches the outcome.
// Callers may invoke it at startup to surface the choice early; Extract
// calls it lazily on the first PDF.
func (e *Extractor) ResolvePDF(ctx context.Context) (PDFBackend, error) {
	e.pdfMu.Lock()
	defer e.pdfMu.Unlock()

	if e.resolved {
		return e.pdf, e.pdfErr
	}

	log := logging.Get("convert")
	var probeErrs []string
	for _, b := range e.pdfPrefs {
		if err := b.Probe(ctx); err != nil {
			log.Debug().Str("backend", b.Name()).Err(err).Msg("PDF backend unavailable")
			probeErrs = append(probeErrs, fmt.Sprintf("%s: %v", b.Name(), err))
			continue
		}
		log.Info().Str("backend", b.Name()).Msg("selected PDF backend")
		e.pdf, e.resolved = b, true
		return b, nil
	}

	e.pdfErr = errors.Errorf("%w (%s)", ErrNoPDFBackend, strings.Join(probeErrs, "; "))
	e.resolved = true
	return nil, e.pdfErr
}

// Extract returns the plain text of the file at path.
func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	slot, ok := formats[ext]
	if !ok {
		return "", &UnsupportedFormatError{Ext: ext}
	}

	var b Backend
	if slot == "pdf" {
		pdf, err := e.ResolvePDF(ctx)
		if err != nil {
			return "", &ExtractionError{Path: path, Backend: "pdf", Err: err}
		}
		b = pdf
	} else {
		b = e.backends[slot]
	}

	logging.Get("convert").Info().Str("file", filepath.Base(path)).Str("backend", b.Name()).Msg("extracting text")

	text, err := b.Extract(ctx, path)
	if err != nil {
		return "", &ExtractionError{Path: path, Backend: b.Name(), Err: err}
	}
	return text, nil
}
