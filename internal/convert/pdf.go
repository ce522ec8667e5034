// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"os/exec"
	"strings"

	"gitlab.com/tozd/go/errors"
)

const binPdftotext = "pdftotext"

// commander abstracts command execution for testing.
type commander interface {
	LookPath(file string) (string, error)
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

type osCommander struct{}

func (osCommander) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (osCommander) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// PdftotextBackend runs poppler's pdftotext in layout mode. It is the
// preferred PDF backend because it keeps column and table layout.
type PdftotextBackend struct {
	cmd commander
}

// NewPdftotextBackend returns a backend using the pdftotext binary on PATH.
func NewPdftotextBackend() *PdftotextBackend {
	return &PdftotextBackend{cmd: osCommander{}}
}

func (p *PdftotextBackend) Name() string { return binPdftotext }

func (p *PdftotextBackend) Probe(_ context.Context) error {
	if _, err := p.cmd.LookPath(binPdftotext); err != nil {
		return errors.Errorf("%s not found on PATH: %w", binPdftotext, err)
	}
	return nil
}

func (p *PdftotextBackend) Extract(ctx context.Context, path string) (string, error) {
	out, err := p.cmd.Output(ctx, binPdftotext, "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return "", errors.Errorf("%s: %s: %w", binPdftotext, strings.TrimSpace(string(exitErr.Stderr)), err)
		}
		return "", errors.Errorf("%s: %w", binPdftotext, err)
	}
	return joinPages(string(out)), nil
}

// joinPages splits form-feed separated page output, drops blank pages and
// joins the rest in page order with a blank line.
func joinPages(raw string) string {
	var pages []string
	for _, page := range strings.Split(raw, "\f") {
		page = strings.TrimRight(strings.TrimLeft(page, "\r\n"), " \t\r\n")
		if strings.TrimSpace(page) == "" {
			continue
		}
		pages = append(pages, page)
	}
	return strings.Join(pages, "\n\n")
}
