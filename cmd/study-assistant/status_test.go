// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteEntries(t *testing.T) {
	entries := []statusEntry{
		{Filename: "math_l1.txt", Subject: "math", ProcessedAt: "2026-02-03T14:05:06.123456+01:00"},
	}

	tests := []struct {
		format string
		want   string
	}{
		{"json", "[\n  {\n    \"filename\": \"math_l1.txt\",\n    \"subject\": \"math\",\n    \"processed_at\": \"2026-02-03T14:05:06.123456+01:00\"\n  }\n]\n"},
		{"yaml", "- filename: math_l1.txt\n  subject: math\n  processed_at: \"2026-02-03T14:05:06.123456+01:00\"\n"},
		{"text", "FILE         SUBJECT  PROCESSED\nmath_l1.txt  math     2026-02-03T14:05:06.123456+01:00\n"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeEntries(&buf, tt.format, entries))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestWriteEntries_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeEntries(&buf, "text", nil))
	assert.Equal(t, "No processed notes\n", buf.String())
}

func TestWriteEntries_UnknownFormat(t *testing.T) {
	assert.Error(t, writeEntries(&bytes.Buffer{}, "xml", nil))
}
