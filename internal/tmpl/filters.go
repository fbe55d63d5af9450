package tmpl

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	"github.com/tndg16-bot/ai-writing-automation/internal/source"
)

var (
	filtersOnce sync.Once
	filtersErr  error
)

// filters are pure string -> value functions available to every template.
var filters = map[string]pongo2.FilterFunction{
	"split_lines": filterSplitLines,
	"first_line":  filterFirstLine,
	"tojson":      filterToJSON,
	"plaintext":   filterPlaintext,
	"html_text":   filterHTMLText,
}

// registerFilters installs the custom filters into pongo2's filter table
// and turns off HTML autoescaping; output here is JSON and document text,
// never HTML.
func registerFilters() error {
	filtersOnce.Do(func() {
		pongo2.SetAutoescape(false)
		for name, fn := range filters {
			if pongo2.FilterExists(name) {
				filtersErr = pongo2.ReplaceFilter(name, fn)
			} else {
				filtersErr = pongo2.RegisterFilter(name, fn)
			}
			if filtersErr != nil {
				return
			}
		}
	})
	return filtersErr
}

// SplitLines splits text on "\n". An empty string yields one empty line.
func SplitLines(text string) []string {
	return strings.Split(text, "\n")
}

// FirstLine returns text up to the first "\n".
func FirstLine(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	return line
}

// ToJSON encodes v as JSON without HTML escaping.
func ToJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func filterSplitLines(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsValue(SplitLines(in.String())), nil
}

func filterFirstLine(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsValue(FirstLine(in.String())), nil
}

func filterToJSON(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	out, err := ToJSON(in.Interface())
	if err != nil {
		return nil, &pongo2.Error{Sender: "filter:tojson", OrigError: err}
	}
	return pongo2.AsSafeValue(out), nil
}

func filterPlaintext(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsValue(source.MarkdownText(in.String())), nil
}

func filterHTMLText(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	text, err := source.HTMLText(in.String())
	if err != nil {
		return nil, &pongo2.Error{Sender: "filter:html_text", OrigError: err}
	}
	return pongo2.AsValue(text), nil
}
