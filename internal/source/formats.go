package source

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/fumiama/go-docx"
	pdflib "github.com/ledongthuc/pdf"
)

// textParser treats blank-line separated blocks as paragraphs.
type textParser struct{}

func (textParser) ParseFile(path string) (*Document, error) {
	src, err := readFile(path)
	if err != nil {
		return nil, err
	}
	doc := &Document{}
	var current []string
	flush := func() {
		if len(current) > 0 {
			doc.Sections = append(doc.Sections, &Section{Text: strings.Join(current, "\n")})
			current = current[:0]
		}
	}
	for _, line := range strings.Split(string(src), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return doc, nil
}

// csvParser groups rows into sections of csvBatch rows each, rendered as
// "header: value" pairs.
type csvParser struct{}

const csvBatch = 20

func (csvParser) ParseFile(path string) (*Document, error) {
	src, err := readFile(path)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(bytes.NewReader(src))
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	doc := &Document{}
	if len(records) < 2 {
		return doc, nil
	}
	headers, rows := records[0], records[1:]
	for start := 0; start < len(rows); start += csvBatch {
		end := min(start+csvBatch, len(rows))
		var b strings.Builder
		for _, row := range rows[start:end] {
			pairs := make([]string, 0, len(row))
			for i, cell := range row {
				if i < len(headers) {
					pairs = append(pairs, headers[i]+": "+cell)
				} else {
					pairs = append(pairs, cell)
				}
			}
			b.WriteString(strings.Join(pairs, ", "))
			b.WriteByte('\n')
		}
		doc.Sections = append(doc.Sections, &Section{
			Heading: fmt.Sprintf("Rows %d-%d", start+2, end+1),
			Text:    strings.TrimSpace(b.String()),
		})
	}
	return doc, nil
}

// docxParser builds the outline from HeadingN paragraph styles.
type docxParser struct{}

func (docxParser) ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	d, err := docx.Parse(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	o := newOutline()
	for _, item := range d.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := paragraphText(para)
		if level := paragraphHeadingLevel(para); level > 0 && text != "" {
			o.heading(level, text)
		} else {
			o.paragraph(text)
		}
	}
	return &Document{Sections: o.sections()}, nil
}

// paragraphHeadingLevel accepts both style IDs ("Heading2") and style
// names ("heading 2").
func paragraphHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if len(style) == len("heading1") && strings.HasPrefix(style, "heading") {
		if c := style[len(style)-1]; c >= '1' && c <= '6' {
			return int(c - '0')
		}
	}
	return 0
}

func paragraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

// pdfParser produces one section per non-empty page.
type pdfParser struct{}

func (pdfParser) ParseFile(path string) (*Document, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	doc := &Document{}
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		doc.Sections = append(doc.Sections, &Section{
			Heading: fmt.Sprintf("Page %d", i),
			Text:    text,
			Page:    i,
		})
	}
	return doc, nil
}
