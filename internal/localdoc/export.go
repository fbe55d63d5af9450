package localdoc

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf16"

	"github.com/fumiama/go-docx"
	"github.com/yuin/goldmark"
)

// Format is an export format.
type Format string

const (
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
	FormatDocx     Format = "docx"
)

// ParseFormat accepts a format name or its common aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "txt", "text":
		return FormatText, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	case "docx", "":
		return FormatDocx, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// emuPerPoint converts image sizes given in points to docx EMUs.
const emuPerPoint = 12700

// paragraph is a run of units up to and excluding a newline.
type paragraph struct {
	level int
	parts []part
}

// part is either text or an image.
type part struct {
	text string
	img  *image
}

func (d *Document) paragraphs() []paragraph {
	var out []paragraph
	var cur paragraph
	var text []uint16
	started := false

	flushText := func() {
		if len(text) > 0 {
			cur.parts = append(cur.parts, part{text: string(utf16.Decode(text))})
			text = text[:0]
		}
	}
	for _, u := range d.body {
		if !started {
			cur.level = u.level
			started = true
		}
		switch {
		case u.img != nil:
			flushText()
			cur.parts = append(cur.parts, part{img: u.img})
		case u.c == '\n':
			flushText()
			out = append(out, cur)
			cur, started = paragraph{}, false
		default:
			text = append(text, u.c)
		}
	}
	flushText()
	if started {
		out = append(out, cur)
	}
	return out
}

// Text returns the document body with images omitted.
func (d *Document) Text() string {
	units := make([]uint16, 0, len(d.body))
	for _, u := range d.body {
		if u.img == nil {
			units = append(units, u.c)
		}
	}
	return string(utf16.Decode(units))
}

// Markdown renders headings as "#" lines and images as image links.
func (d *Document) Markdown() string {
	var blocks []string
	for _, p := range d.paragraphs() {
		var b strings.Builder
		if p.level > 0 {
			b.WriteString(strings.Repeat("#", p.level) + " ")
		}
		for _, pt := range p.parts {
			if pt.img != nil {
				fmt.Fprintf(&b, "![](%s)", filepath.ToSlash(pt.img.path))
				continue
			}
			b.WriteString(pt.text)
		}
		if s := b.String(); strings.TrimSpace(s) != "" {
			blocks = append(blocks, s)
		}
	}
	return strings.Join(blocks, "\n\n")
}

// HTML renders the markdown export as a standalone page.
func (d *Document) HTML() (string, error) {
	var body bytes.Buffer
	if err := goldmark.Convert([]byte(d.Markdown()), &body); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return fmt.Sprintf("<!DOCTYPE html>\n<html>\n<head><meta charset=\"utf-8\"><title>%s</title></head>\n<body>\n%s</body>\n</html>\n",
		html.EscapeString(d.Title), body.String()), nil
}

// Docx builds a Word document. Heading paragraphs get HeadingN styles.
// Images that cannot be embedded are written as their path.
func (d *Document) Docx() *docx.Docx {
	f := docx.New()
	for _, p := range d.paragraphs() {
		para := f.AddParagraph()
		if p.level > 0 {
			para.Style(fmt.Sprintf("Heading%d", p.level))
		}
		for _, pt := range p.parts {
			if pt.img == nil {
				para.AddText(pt.text)
				continue
			}
			run, err := para.AddInlineDrawingFrom(pt.img.path)
			if err != nil {
				para.AddText(fmt.Sprintf("[image: %s]", filepath.Base(pt.img.path)))
				continue
			}
			for _, child := range run.Children {
				if dr, ok := child.(*docx.Drawing); ok && dr.Inline != nil {
					dr.Inline.Size(int64(pt.img.width)*emuPerPoint, int64(pt.img.height)*emuPerPoint)
				}
			}
		}
	}
	return f
}

// Export returns the document encoded in format.
func (d *Document) Export(format Format) ([]byte, error) {
	switch format {
	case FormatText:
		return []byte(d.Text()), nil
	case FormatMarkdown:
		return []byte(d.Markdown() + "\n"), nil
	case FormatHTML:
		s, err := d.HTML()
		return []byte(s), err
	case FormatDocx:
		var buf bytes.Buffer
		if _, err := d.Docx().WriteTo(&buf); err != nil {
			return nil, fmt.Errorf("write docx: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unknown export format %q", format)
}

// Save exports docID into the store directory and returns the file path.
func (s *Store) Save(docID string, format Format) (string, error) {
	doc, ok := s.Get(docID)
	if !ok {
		return "", fmt.Errorf("document %s not found", docID)
	}
	data, err := doc.Export(format)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := s.path(docID, format)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	s.log.Info("document saved", "document_id", docID, "path", path, "format", string(format))
	return path, nil
}

// Finalize writes the docx export that URL points at.
func (s *Store) Finalize(_ context.Context, docID string) error {
	_, err := s.Save(docID, FormatDocx)
	return err
}

func (s *Store) path(docID string, format Format) string {
	return filepath.Join(s.dir, docID+"."+string(format))
}
