package tmpl

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func newTestEngine(t *testing.T, files map[string]string) *Engine {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	e, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestRenderTemplate(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		"t.json": `{"title": "{{ title }}"}`,
	})
	out, err := e.RenderTemplate("t.json", map[string]any{"title": "X"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `{"title": "X"}` {
		t.Errorf("expected substituted JSON, got %q", out)
	}
}

func TestRenderTemplate_NotFound(t *testing.T) {
	e := newTestEngine(t, map[string]string{"sub/a.json": "{}"})
	for _, name := range []string{"missing.json", "../escape.json", "sub"} {
		_, err := e.RenderTemplate(name, nil)
		if !IsKind(err, KindNotFound) {
			t.Errorf("%s: expected not_found, got %v", name, err)
		}
	}
	_, err := e.RenderTemplate("missing.json", nil)
	if err.Error() != "template not found: missing.json" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestRenderTemplate_SyntaxError(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		"bad.json": `{"title": "{% if x %}unterminated"}`,
	})
	_, err := e.RenderTemplate("bad.json", nil)
	if !IsKind(err, KindSyntax) {
		t.Fatalf("expected syntax error, got %v", err)
	}
	var te *Error
	if !errors.As(err, &te) || te.Name != "bad.json" {
		t.Errorf("expected error naming bad.json, got %v", err)
	}
}

func TestRenderString(t *testing.T) {
	tests := []struct {
		name string
		src  string
		data map[string]any
		want string
	}{
		{"substitution", "Hello {{ name }}", map[string]any{"name": "World"}, "Hello World"},
		{"missing variable", "[{{ nope }}]", nil, "[]"},
		{"nested lookup", "{{ user.name }}", map[string]any{"user": map[string]any{"name": "Ada"}}, "Ada"},
		{"conditional true", "{% if flag %}yes{% else %}no{% endif %}", map[string]any{"flag": true}, "yes"},
		{"conditional false", "{% if flag %}yes{% else %}no{% endif %}", map[string]any{"flag": false}, "no"},
		{"default filter", `{{ missing|default:"fallback" }}`, nil, "fallback"},
		{"loop", "{% for x in xs %}{{ x }},{% endfor %}", map[string]any{"xs": []any{1, 2, 3}}, "1,2,3,"},
		{"no autoescape", "{{ s }}", map[string]any{"s": "<b>&</b>"}, "<b>&</b>"},
		{"split_lines", "{% for l in text|split_lines %}[{{ l }}]{% endfor %}", map[string]any{"text": "a\nb"}, "[a][b]"},
		{"first_line", "{{ text|first_line }}", map[string]any{"text": "head\ntail"}, "head"},
		{"tojson", "{{ v|tojson }}", map[string]any{"v": "a\"b<c>"}, `"a\"b<c>"`},
		{"plaintext", "{{ md|plaintext }}", map[string]any{"md": "**bold** text"}, "bold text"},
		{"html_text", "{{ h|html_text }}", map[string]any{"h": "<p>one</p><p>two</p>"}, "one\n\ntwo"},
	}
	e := newTestEngine(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.RenderString(tt.src, tt.data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRenderString_JSONNumbers(t *testing.T) {
	var data map[string]any
	if err := json.Unmarshal([]byte(`{"n": 3, "ratio": 2.5, "big": 1e3, "list": [1, 2.25], "nested": {"count": 7}}`), &data); err != nil {
		t.Fatal(err)
	}
	dec := json.NewDecoder(strings.NewReader(`{"whole": 4, "written": 3.0, "frac": 0.1}`))
	dec.UseNumber()
	var numbers map[string]any
	if err := dec.Decode(&numbers); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		src  string
		data map[string]any
		want string
	}{
		{"whole float", "Part {{ n }}", data, "Part 3"},
		{"fraction", "{{ ratio }}", data, "2.5"},
		{"exponent", "{{ big }}", data, "1000"},
		{"inside list", "{% for x in list %}{{ x }};{% endfor %}", data, "1;2.25;"},
		{"inside map", "{{ nested.count }}", data, "7"},
		{"arithmetic", "{{ n + 1 }}", data, "4"},
		{"comparison", "{% if n > 2 %}many{% endif %}", data, "many"},
		{"tojson", "{{ ratio|tojson }}", data, "2.5"},
		{"json.Number int", "{{ whole }}", numbers, "4"},
		{"json.Number written float", "{{ written }}", numbers, "3.0"},
		{"json.Number fraction", "{{ frac }}", numbers, "0.1"},
	}
	e := newTestEngine(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.RenderString(tt.src, tt.data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
	if _, ok := data["n"].(float64); !ok {
		t.Error("expected caller's context left unmodified")
	}
}

func TestRender_IgnoresNonIdentifierKeys(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		"t.json": `{"title": "{{ title }}", "body": "{{ body }}"}`,
	})
	data := map[string]any{"title": "T", "body": "B", "seo-keywords": "x", "": "empty", "with space": 1}

	out, err := e.RenderTemplate("t.json", data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `{"title": "T", "body": "B"}` {
		t.Errorf("unexpected output %q", out)
	}
	if got, err := e.RenderString("{{ title }}", data); err != nil || got != "T" {
		t.Errorf("expected inline render to succeed, got %q, %v", got, err)
	}
	if _, ok := data["seo-keywords"]; !ok {
		t.Error("expected caller's context left unmodified")
	}
}

func TestRenderString_Syntax(t *testing.T) {
	e := newTestEngine(t, nil)
	_, err := e.RenderString("{{ unclosed", nil)
	if !IsKind(err, KindSyntax) {
		t.Fatalf("expected syntax error, got %v", err)
	}
	if !strings.Contains(err.Error(), "<string>") {
		t.Errorf("expected inline name in message, got %q", err.Error())
	}
}

func TestList(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		"b.json":           "{}",
		"a.json":           "{}",
		"nested/c.json":    "{}",
		"notes.txt":        "x",
		"nested/readme.md": "x",
	})
	names, err := e.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"a.json", "b.json", "nested/c.json"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("expected %v, got %v", want, names)
	}
}

func TestFilterHelpers(t *testing.T) {
	if got := SplitLines(""); len(got) != 1 || got[0] != "" {
		t.Errorf("expected one empty line, got %q", got)
	}
	if got := FirstLine("only"); got != "only" {
		t.Errorf("expected %q, got %q", "only", got)
	}
	got, err := ToJSON(map[string]any{"k": []int{1}})
	if err != nil || got != `{"k":[1]}` {
		t.Errorf("unexpected ToJSON result %q %v", got, err)
	}
}

func TestErrorKindsAreDistinct(t *testing.T) {
	err := &Error{Name: "x", Kind: KindInvalidJSON, Err: errors.New("boom")}
	if IsKind(err, KindRender) || !IsKind(err, KindInvalidJSON) {
		t.Error("IsKind mismatched")
	}
	if err.Error() != "invalid JSON in template x: boom" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if IsKind(errors.New("plain"), KindNotFound) {
		t.Error("plain errors have no kind")
	}
}
