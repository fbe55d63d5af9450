package source

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

type markdownParser struct{}

func (markdownParser) ParseFile(path string) (*Document, error) {
	src, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return parseMarkdown(src), nil
}

func parseMarkdown(src []byte) *Document {
	root := goldmark.New().Parser().Parse(text.NewReader(src))

	o := newOutline()
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			o.heading(h.Level, blockText(h, src))
			continue
		}
		o.paragraph(blockText(n, src))
	}
	return &Document{Sections: o.sections()}
}

// MarkdownText strips markdown markup and returns the readable text.
func MarkdownText(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return parseMarkdown([]byte(s)).Text()
}

// blockText collects the text of a goldmark node: raw lines for code and
// other line-based blocks, inline text for everything else.
func blockText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && !n.HasChildren() {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(src))
		}
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(src))
			if node.HardLineBreak() || node.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(node.Value)
		default:
			t := blockText(c, src)
			if t != "" && c.Type() == ast.TypeBlock && buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			buf.WriteString(t)
		}
	}
	return strings.TrimSpace(buf.String())
}
