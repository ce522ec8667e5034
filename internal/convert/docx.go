// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"strings"

	"gitlab.com/tozd/go/errors"
)

const docxDocumentPart = "word/document.xml"

// DocxBackend extracts Word documents. Body paragraphs come first, one block
// each, followed by one " | "-joined block per table row.
type DocxBackend struct{}

func (DocxBackend) Name() string { return "docx" }

func (DocxBackend) Extract(_ context.Context, path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", errors.Errorf("opening docx archive: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != docxDocumentPart {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", errors.Errorf("opening %s: %w", docxDocumentPart, err)
		}
		defer rc.Close()
		return parseDocumentXML(rc)
	}
	return "", errors.Errorf("%s not found in archive", docxDocumentPart)
}

type wDocument struct {
	Body struct {
		Blocks []wBlock `xml:",any"`
	} `xml:"body"`
}

// wBlock is a direct child of w:body: a paragraph, a table, or something we ignore.
type wBlock struct {
	XMLName xml.Name
	Rows    []wRow `xml:"tr"`
	Inner   []byte `xml:",innerxml"`
}

type wRow struct {
	Cells []wCell `xml:"tc"`
}

type wCell struct {
	Paras []wPara `xml:"p"`
}

type wPara struct {
	Inner []byte `xml:",innerxml"`
}

func parseDocumentXML(r io.Reader) (string, error) {
	var doc wDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return "", errors.Errorf("parsing %s: %w", docxDocumentPart, err)
	}

	var blocks []string
	for _, b := range doc.Body.Blocks {
		if b.XMLName.Local != "p" {
			continue
		}
		if text := paragraphText(b.Inner); strings.TrimSpace(text) != "" {
			blocks = append(blocks, text)
		}
	}

	for _, b := range doc.Body.Blocks {
		if b.XMLName.Local != "tbl" {
			continue
		}
		for _, row := range b.Rows {
			cells := make([]string, len(row.Cells))
			for i, c := range row.Cells {
				paras := make([]string, len(c.Paras))
				for j, p := range c.Paras {
					paras[j] = paragraphText(p.Inner)
				}
				cells[i] = strings.TrimSpace(strings.Join(paras, "\n"))
			}
			// A row of several empty cells still yields its separators; only
			// a row that joins to nothing but whitespace is dropped.
			if text := strings.Join(cells, " | "); strings.TrimSpace(text) != "" {
				blocks = append(blocks, text)
			}
		}
	}

	return strings.Join(blocks, "\n\n"), nil
}

// paragraphText concatenates the run text of a w:p element's inner XML.
// Property elements are skipped so tab stop definitions do not leak tabs.
func paragraphText(inner []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(inner))
	var b strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "pPr", "rPr":
				if err := dec.Skip(); err != nil {
					return b.String()
				}
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			if t.Name.Local == "t" {
				inText = false
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return b.String()
}
