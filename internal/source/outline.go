// Package source turns files into render-context values: JSON/YAML context
// files, and reference documents (markdown, text, csv, html, docx, pdf)
// parsed into a heading outline that templates can loop over.
package source

import "strings"

// Document is a parsed reference document.
type Document struct {
	Title    string
	Sections []*Section
}

// Section is one heading and the text under it. Sections without a
// heading hold text found before the first heading.
type Section struct {
	Heading  string
	Text     string
	Page     int
	Sections []*Section
}

// Text flattens the outline, headings included, paragraphs separated by a
// blank line.
func (d *Document) Text() string {
	var parts []string
	var walk func([]*Section)
	walk = func(secs []*Section) {
		for _, s := range secs {
			if s.Heading != "" {
				parts = append(parts, s.Heading)
			}
			if s.Text != "" {
				parts = append(parts, s.Text)
			}
			walk(s.Sections)
		}
	}
	walk(d.Sections)
	return strings.Join(parts, "\n\n")
}

// Value converts the document to plain maps and slices so the renderer's
// path lookups and loops can walk it.
func (d *Document) Value() map[string]any {
	return map[string]any{
		"title":    d.Title,
		"text":     d.Text(),
		"sections": sectionsValue(d.Sections),
	}
}

func sectionsValue(secs []*Section) []any {
	out := make([]any, 0, len(secs))
	for _, s := range secs {
		out = append(out, map[string]any{
			"heading":  s.Heading,
			"text":     s.Text,
			"page":     s.Page,
			"sections": sectionsValue(s.Sections),
		})
	}
	return out
}

// outline builds a Section tree from a flat stream of headings and
// paragraphs. A heading closes every open section at the same or a deeper
// level.
type outline struct {
	root    *Section
	stack   []frame
	pending strings.Builder
}

type frame struct {
	sec   *Section
	level int
}

func newOutline() *outline {
	root := &Section{}
	return &outline{root: root, stack: []frame{{sec: root, level: 0}}}
}

func (o *outline) heading(level int, title string) {
	o.flush()
	sec := &Section{Heading: title}
	for len(o.stack) > 1 && o.stack[len(o.stack)-1].level >= level {
		o.stack = o.stack[:len(o.stack)-1]
	}
	parent := o.stack[len(o.stack)-1].sec
	parent.Sections = append(parent.Sections, sec)
	o.stack = append(o.stack, frame{sec: sec, level: level})
}

func (o *outline) paragraph(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if o.pending.Len() > 0 {
		o.pending.WriteString("\n\n")
	}
	o.pending.WriteString(text)
}

func (o *outline) flush() {
	t := strings.TrimSpace(o.pending.String())
	o.pending.Reset()
	if t == "" {
		return
	}
	top := o.stack[len(o.stack)-1].sec
	if top.Text != "" {
		top.Text += "\n\n" + t
	} else {
		top.Text = t
	}
}

// sections finishes the outline. Text before the first heading becomes a
// leading heading-less section.
func (o *outline) sections() []*Section {
	o.flush()
	secs := o.root.Sections
	if o.root.Text != "" {
		secs = append([]*Section{{Text: o.root.Text}}, secs...)
	}
	return secs
}
