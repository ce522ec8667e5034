// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gitlab.com/tozd/go/errors"
)

// Renderer produces a secondary document from Markdown.
type Renderer interface {
	Render(markdown, path, title string) error
}

type lineKind int

const (
	lineHeading lineKind = iota
	lineParagraph
	lineItem
	lineCode
	lineRule
)

// line is one laid-out block of the rendered document.
type line struct {
	kind   lineKind
	level  int // heading level
	depth  int // list and quote nesting
	marker string
	text   string
}

// layout flattens Markdown into printable lines. Inline emphasis, links and
// code spans are reduced to their text.
func layout(markdown string) []line {
	src := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var out []line
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		out = layoutBlock(out, n, src, 0)
	}
	return out
}

func layoutBlock(out []line, n ast.Node, src []byte, depth int) []line {
	switch n := n.(type) {
	case *ast.Heading:
		return append(out, line{kind: lineHeading, level: n.Level, depth: depth, text: inlineText(n, src)})
	case *ast.Paragraph, *ast.TextBlock:
		if t := inlineText(n, src); t != "" {
			out = append(out, line{kind: lineParagraph, depth: depth, text: t})
		}
		return out
	case *ast.List:
		num := n.Start
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			marker := "•"
			if n.IsOrdered() {
				marker = strconv.Itoa(num) + "."
				num++
			}
			out = layoutItem(out, item, src, depth, marker)
		}
		return out
	case *ast.Blockquote:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			out = layoutBlock(out, c, src, depth+1)
		}
		return out
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			out = append(out, line{kind: lineCode, depth: depth, text: strings.TrimRight(string(seg.Value(src)), "\r\n")})
		}
		return out
	case *ast.ThematicBreak:
		return append(out, line{kind: lineRule, depth: depth})
	default:
		return out
	}
}

// layoutItem emits the item's first text block with marker and nests the rest.
func layoutItem(out []line, item ast.Node, src []byte, depth int, marker string) []line {
	first := true
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		switch c.(type) {
		case *ast.Paragraph, *ast.TextBlock:
			if first {
				out = append(out, line{kind: lineItem, depth: depth, marker: marker, text: inlineText(c, src)})
				first = false
				continue
			}
		}
		out = layoutBlock(out, c, src, depth+1)
	}
	if first {
		out = append(out, line{kind: lineItem, depth: depth, marker: marker})
	}
	return out
}

// inlineText concatenates the text under n. Soft breaks become spaces.
func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch c := c.(type) {
			case *ast.Text:
				b.Write(c.Segment.Value(src))
				if c.HardLineBreak() {
					b.WriteByte('\n')
				} else if c.SoftLineBreak() {
					b.WriteByte(' ')
				}
			case *ast.String:
				b.Write(c.Value)
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

const (
	lineHeight = 6.0
	indentStep = 6.0
)

var headingSizes = map[int]float64{1: 16, 2: 14, 3: 12}

// PDFRenderer draws study material on A4 pages with the core Helvetica
// font. Text is translated to cp1252; characters outside it are lost.
type PDFRenderer struct{}

// Render writes a PDF of markdown to path.
func (PDFRenderer) Render(markdown, path, title string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(title, true)
	pdf.SetCreator("study-assistant", false)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	left, _, _, _ := pdf.GetMargins()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 9, tr(title), "", "L", false)
	pdf.Ln(4)

	for _, l := range layout(markdown) {
		x := left + float64(l.depth)*indentStep
		switch l.kind {
		case lineHeading:
			size, ok := headingSizes[l.level]
			if !ok {
				size = 11
			}
			pdf.Ln(3)
			pdf.SetFont("Helvetica", "B", size)
			pdf.SetX(x)
			pdf.MultiCell(0, size*0.5, tr(l.text), "", "L", false)
			pdf.Ln(1)
		case lineParagraph:
			pdf.SetFont("Helvetica", "", 11)
			pdf.SetX(x)
			pdf.MultiCell(0, lineHeight, tr(l.text), "", "L", false)
			pdf.Ln(2)
		case lineItem:
			pdf.SetFont("Helvetica", "", 11)
			pdf.SetX(x)
			pdf.MultiCell(0, lineHeight, tr(l.marker+" "+l.text), "", "L", false)
		case lineCode:
			pdf.SetFont("Courier", "", 9)
			pdf.SetX(x)
			pdf.MultiCell(0, 4.5, tr(l.text), "", "L", false)
		case lineRule:
			pageW, _ := pdf.GetPageSize()
			_, _, right, _ := pdf.GetMargins()
			y := pdf.GetY() + 2
			pdf.Line(x, y, pageW-right, y)
			pdf.Ln(4)
		}
	}

	if err := pdf.Error(); err != nil {
		return errors.Errorf("laying out PDF: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return errors.Errorf("encoding PDF: %w", err)
	}
	return writeAtomic(path, buf.Bytes())
}
