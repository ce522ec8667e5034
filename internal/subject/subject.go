// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package subject derives a note's subject from its filename and maps it to
// a folder in the output tree.
//
// Notes are named <subject>_<rest>.<ext>, e.g. "cybersäkerhet_föreläsning1.txt"
// routes to the "cybersäkerhet" folder.
package subject

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/pdiddy/study-assistant/internal/logging"
)

// DefaultSuffix is appended to the input stem to name the study file.
const DefaultSuffix = "_study"

// ErrNoSubject marks a filename without a valid subject prefix.
var ErrNoSubject = errors.New("filename has no subject prefix")

// subjectPattern matches letters (including the Swedish å, ä, ö), digits and
// hyphens up to the first underscore.
var subjectPattern = regexp.MustCompile(`^([a-zA-ZåäöÅÄÖ0-9\-]+)_`)

// ExtractSubject returns the lower-cased subject prefix of filename. The
// second result is false when the name does not follow <subject>_<rest>.
func ExtractSubject(filename string) (string, bool) {
	log := logging.Get("subject")

	m := subjectPattern.FindStringSubmatch(filename)
	if m == nil {
		log.Warn().Str("file", filename).Msg("could not extract subject, invalid format")
		return "", false
	}
	subject := strings.ToLower(m[1])
	log.Debug().Str("file", filename).Str("subject", subject).Msg("extracted subject")
	return subject, true
}

// ResolveOutputFolder returns baseDir/subject, creating it if needed.
func ResolveOutputFolder(baseDir, subject string) (string, error) {
	dir := filepath.Join(baseDir, subject)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Errorf("creating subject folder %s: %w", dir, err)
	}
	return dir, nil
}

// OutputFilename strips the extension of inputFilename, appends suffix and
// gives the result a Markdown extension.
func OutputFilename(inputFilename, suffix string) string {
	base := filepath.Base(inputFilename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return stem + suffix + ".md"
}
