package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/tndg16-bot/ai-writing-automation/internal/docs"
	"github.com/tndg16-bot/ai-writing-automation/internal/history"
)

// renderTree formats a parsed template as an indented outline.
func renderTree(tpl *docs.Template) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", titleStyle.Render("Title:"), valueStyle.Render(docs.Stringify(tpl.Title)))
	writeSections(&b, tpl.Sections, 1)
	return b.String()
}

func writeSections(b *strings.Builder, secs []docs.Section, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, s := range secs {
		b.WriteString("\n" + indent)
		switch s := s.(type) {
		case docs.Heading:
			fmt.Fprintf(b, "%s %s", keyStyle.Render(fmt.Sprintf("h%d", s.Level)), valueStyle.Render(oneLine(docs.Stringify(s.Text))))
		case docs.Paragraph:
			fmt.Fprintf(b, "%s %s", keyStyle.Render("p "), valueStyle.Render(oneLine(docs.Stringify(s.Text))))
		case docs.Image:
			line := fmt.Sprintf("%s %dx%d", docs.Stringify(s.Path), s.Width, s.Height)
			if s.Condition != nil {
				line += " if " + docs.Stringify(s.Condition)
			}
			fmt.Fprintf(b, "%s %s", keyStyle.Render("img"), valueStyle.Render(line))
		case docs.Loop:
			fmt.Fprintf(b, "%s %s", keyStyle.Render("for"), valueStyle.Render(s.ItemName+" in "+s.Variable))
			writeSections(b, s.Sections, depth+1)
		case docs.Unknown:
			fmt.Fprintf(b, "%s %s", keyStyle.Render("?  "), valueStyle.Render(s.Type))
		}
	}
}

// oneLine shortens text for the outline.
func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\n", " ⏎ ")
	if r := []rune(s); len(r) > 60 {
		return string(r[:57]) + "..."
	}
	return s
}

func formatEntry(e history.Entry) string {
	line := fmt.Sprintf("%s  %s  %s  %s",
		keyStyle.Render(e.CreatedAt.Format("2006-01-02 15:04:05")),
		statusStyle(e.Status).Render(fmt.Sprintf("%-9s", e.Status)),
		valueStyle.Render(e.Template),
		e.Title,
	)
	if e.URL != "" {
		line += "  " + keyStyle.Render(e.URL)
	}
	if e.Error != "" {
		line += "  " + errStyle.Render(e.Error)
	}
	return line
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
