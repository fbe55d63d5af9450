package source

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestParseFile_TextParagraphs(t *testing.T) {
	path := writeFile(t, "notes.txt", "First line one.\nFirst line two.\n\nSecond.\n   \nThird.")
	doc, err := ParseFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "notes" {
		t.Errorf("expected title %q, got %q", "notes", doc.Title)
	}
	want := []string{"First line one.\nFirst line two.", "Second.", "Third."}
	if len(doc.Sections) != len(want) {
		t.Fatalf("expected %d sections, got %d", len(want), len(doc.Sections))
	}
	for i, w := range want {
		if doc.Sections[i].Text != w {
			t.Errorf("section[%d]: expected %q, got %q", i, w, doc.Sections[i].Text)
		}
	}
}

func TestParseFile_MarkdownHeadingHierarchy(t *testing.T) {
	input := `Preamble.

# Title

Intro text.

## Section A

Section A content.

### Subsection A1

Subsection A1 content.

## Section B

Section B content.
`
	doc, err := ParseFile(writeFile(t, "doc.md", input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Sections) != 2 {
		t.Fatalf("expected preamble + h1, got %d sections", len(doc.Sections))
	}
	if doc.Sections[0].Heading != "" || doc.Sections[0].Text != "Preamble." {
		t.Errorf("expected heading-less preamble, got %+v", doc.Sections[0])
	}

	h1 := doc.Sections[1]
	if h1.Heading != "Title" {
		t.Errorf("expected h1 %q, got %q", "Title", h1.Heading)
	}
	if h1.Text != "Intro text." {
		t.Errorf("expected h1 text %q, got %q", "Intro text.", h1.Text)
	}
	if len(h1.Sections) != 2 {
		t.Fatalf("expected 2 h2 sections, got %d", len(h1.Sections))
	}
	if h1.Sections[0].Heading != "Section A" || len(h1.Sections[0].Sections) != 1 {
		t.Errorf("unexpected section A: %+v", h1.Sections[0])
	}
	if h1.Sections[0].Sections[0].Text != "Subsection A1 content." {
		t.Errorf("unexpected subsection text %q", h1.Sections[0].Sections[0].Text)
	}
	if h1.Sections[1].Heading != "Section B" {
		t.Errorf("expected %q, got %q", "Section B", h1.Sections[1].Heading)
	}
}

func TestParseFile_MarkdownCodeBlock(t *testing.T) {
	input := "# API\n\nList:\n\n```\nGET /api/users\n```\n\nAfter code.\n"
	doc, err := ParseFile(writeFile(t, "api.md", input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := doc.Sections[0].Text
	if !strings.Contains(text, "GET /api/users") || !strings.Contains(text, "After code.") {
		t.Errorf("expected code and trailing text, got %q", text)
	}
}

func TestParseFile_HTML(t *testing.T) {
	input := `<html><head><title>Guide</title></head><body>
<nav>skip me</nav>
<h1>Intro</h1><p>Hello <b>there</b>.</p>
<h2>Details</h2><ul><li>one</li><li>two</li></ul>
</body></html>`
	doc, err := ParseFile(writeFile(t, "page.html", input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "Guide" {
		t.Errorf("expected title from <title>, got %q", doc.Title)
	}
	if len(doc.Sections) != 1 || doc.Sections[0].Heading != "Intro" {
		t.Fatalf("expected one h1 section, got %+v", doc.Sections)
	}
	if doc.Sections[0].Text != "Hello there." {
		t.Errorf("expected %q, got %q", "Hello there.", doc.Sections[0].Text)
	}
	details := doc.Sections[0].Sections[0]
	if details.Text != "one\n\ntwo" {
		t.Errorf("expected list items as paragraphs, got %q", details.Text)
	}
	if strings.Contains(doc.Text(), "skip me") {
		t.Error("expected nav content to be skipped")
	}
}

func TestParseFile_CSVBatches(t *testing.T) {
	var b strings.Builder
	b.WriteString("name,score\n")
	for i := 0; i < 25; i++ {
		b.WriteString("x,1\n")
	}
	doc, err := ParseFile(writeFile(t, "scores.csv", b.String()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Sections) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(doc.Sections))
	}
	if doc.Sections[0].Heading != "Rows 2-21" || doc.Sections[1].Heading != "Rows 22-26" {
		t.Errorf("unexpected batch headings %q, %q", doc.Sections[0].Heading, doc.Sections[1].Heading)
	}
	if !strings.HasPrefix(doc.Sections[0].Text, "name: x, score: 1") {
		t.Errorf("unexpected row rendering %q", doc.Sections[0].Text)
	}
}

func TestParseFile_Unsupported(t *testing.T) {
	if _, err := ParseFile(writeFile(t, "image.png", "x")); err == nil {
		t.Error("expected error for unsupported extension")
	}
	if IsSupported("a.png") || !IsSupported("a.PDF") {
		t.Error("unexpected IsSupported result")
	}
}

func TestDocumentValue(t *testing.T) {
	doc := &Document{
		Title: "T",
		Sections: []*Section{
			{Heading: "H", Text: "body", Sections: []*Section{{Heading: "Sub", Text: "inner"}}},
		},
	}
	v := doc.Value()
	if v["title"] != "T" {
		t.Errorf("expected title T, got %v", v["title"])
	}
	if v["text"] != "H\n\nbody\n\nSub\n\ninner" {
		t.Errorf("unexpected flattened text %q", v["text"])
	}
	secs, ok := v["sections"].([]any)
	if !ok || len(secs) != 1 {
		t.Fatalf("expected one section, got %#v", v["sections"])
	}
	first := secs[0].(map[string]any)
	if first["heading"] != "H" {
		t.Errorf("expected heading H, got %v", first["heading"])
	}
	if inner := first["sections"].([]any); len(inner) != 1 {
		t.Errorf("expected nested section, got %d", len(inner))
	}
}

func TestMarkdownText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"plain", "plain"},
		{"Some **bold** and *emph* text.", "Some bold and emph text."},
		{"# Title\n\nBody [link](http://x).", "Title\n\nBody link."},
	}
	for _, tt := range tests {
		if got := MarkdownText(tt.in); got != tt.want {
			t.Errorf("MarkdownText(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestHTMLText(t *testing.T) {
	got, err := HTMLText("<p>Hello <b>world</b></p><script>x()</script><p>Second<br>line</p>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Hello world\n\nSecond\nline"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestLoadContext(t *testing.T) {
	jsonPath := writeFile(t, "ctx.json", `{"keyword":"go","count":3,"sections":[{"heading":"A"}]}`)
	ctx, err := LoadContext(jsonPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx["keyword"] != "go" {
		t.Errorf("expected keyword go, got %v", ctx["keyword"])
	}
	if n, ok := ctx["count"].(json.Number); !ok || n.String() != "3" {
		t.Errorf("expected count kept as the number 3, got %#v", ctx["count"])
	}

	yamlPath := writeFile(t, "ctx.yaml", "keyword: yaml\nnested:\n  inner: 1\n")
	ctx, err = LoadContext(yamlPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	nested, ok := ctx["nested"].(map[string]any)
	if !ok || nested["inner"] != 1 {
		t.Errorf("expected nested mapping, got %#v", ctx["nested"])
	}

	if _, err := LoadContext(writeFile(t, "ctx.txt", "x")); err == nil {
		t.Error("expected error for unsupported context type")
	}
	if _, err := LoadContext(writeFile(t, "bad.json", "[1,2]")); err == nil {
		t.Error("expected error for non-mapping JSON")
	}
}

func TestAttach(t *testing.T) {
	ctx := map[string]any{}
	path := writeFile(t, "ref.md", "# Heading\n\nText.")
	if err := Attach(ctx, "ref", path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ref, ok := ctx["ref"].(map[string]any)
	if !ok || ref["title"] != "ref" {
		t.Fatalf("expected attached document, got %#v", ctx["ref"])
	}
}

func TestParseAttachment(t *testing.T) {
	name, path, err := ParseAttachment("notes = ./a.md")
	if err != nil || name != "notes" || path != "./a.md" {
		t.Errorf("unexpected result %q %q %v", name, path, err)
	}
	for _, bad := range []string{"", "noequals", "=path", "name="} {
		if _, _, err := ParseAttachment(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
