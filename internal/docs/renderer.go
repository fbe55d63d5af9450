package docs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/tndg16-bot/ai-writing-automation/internal/tmpl"
)

// TemplateEngine renders template text against a context map.
type TemplateEngine interface {
	RenderTemplate(name string, data map[string]any) (string, error)
	RenderString(src string, data map[string]any) (string, error)
}

// Renderer turns templates into documents. It keeps no per-render state,
// so one Renderer can serve concurrent renders of different documents.
type Renderer struct {
	engine TemplateEngine
	client Client
	log    *slog.Logger
}

func NewRenderer(engine TemplateEngine, client Client, log *slog.Logger) *Renderer {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Renderer{engine: engine, client: client, log: log}
}

// Result describes a rendered document.
type Result struct {
	DocumentID string        `json:"document_id"`
	URL        string        `json:"url"`
	Title      string        `json:"title"`
	Length     int           `json:"length"`
	Duration   time.Duration `json:"-"`
}

// RenderError is a failure while writing a section. Path locates the
// section in the template tree, loop iterations included, and Offset is
// the cursor at the time of failure.
type RenderError struct {
	Path   string
	Offset int
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s at offset %d: %v", e.Path, e.Offset, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Parse renders the named template against data and decodes the result.
// A result that is not valid JSON is a tmpl.Error of kind invalid_json.
func (r *Renderer) Parse(data map[string]any, name string) (*Template, error) {
	text, err := r.engine.RenderTemplate(name, data)
	if err != nil {
		return nil, err
	}
	tpl, err := ParseTemplate([]byte(text))
	if err != nil {
		return nil, &tmpl.Error{Name: name, Kind: tmpl.KindInvalidJSON, Err: err}
	}
	return tpl, nil
}

// Render builds a new document from the named template and returns its
// URL along with the document ID.
func (r *Renderer) Render(ctx context.Context, data map[string]any, name string) (*Result, error) {
	tpl, err := r.Parse(data, name)
	if err != nil {
		return nil, err
	}
	return r.Execute(ctx, tpl, data)
}

// Execute writes an already parsed template into a new document.
func (r *Renderer) Execute(ctx context.Context, tpl *Template, data map[string]any) (*Result, error) {
	start := time.Now()
	scope := NewScope(data)

	title := r.resolve(tpl.Title, scope)
	docID, err := r.client.Create(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	log := r.log.With("document_id", docID)
	log.Info("document created", "title", title)

	cursor := 1
	for i, s := range tpl.Sections {
		cursor, err = r.renderSection(ctx, docID, s, cursor, scope, fmt.Sprintf("sections[%d]", i))
		if err != nil {
			log.Error("render failed", "error", err)
			return nil, err
		}
	}

	res := &Result{
		DocumentID: docID,
		URL:        r.client.URL(docID),
		Title:      title,
		Length:     cursor - 1,
		Duration:   time.Since(start),
	}
	log.Info("document rendered", "length", res.Length, "duration_ms", res.Duration.Milliseconds())
	return res, nil
}

// renderSection writes one section at cursor and returns the cursor after
// it. A section that renders nothing returns cursor unchanged.
func (r *Renderer) renderSection(ctx context.Context, docID string, s Section, cursor int, scope *Scope, path string) (int, error) {
	if err := ctx.Err(); err != nil {
		return cursor, &RenderError{Path: path, Offset: cursor, Err: err}
	}
	fail := func(err error) (int, error) {
		return cursor, &RenderError{Path: path, Offset: cursor, Err: err}
	}

	switch s := s.(type) {
	case Heading:
		text := r.resolve(s.Text, scope)
		if text == "" {
			return cursor, nil
		}
		if err := r.client.InsertText(ctx, docID, text+"\n", cursor); err != nil {
			return fail(err)
		}
		n := TextLen(text)
		if err := r.client.ApplyHeadingStyle(ctx, docID, cursor, cursor+n, s.Level); err != nil {
			return fail(err)
		}
		return cursor + n + 1, nil

	case Paragraph:
		text := r.resolve(s.Text, scope)
		if text == "" {
			return cursor, nil
		}
		if err := r.client.InsertText(ctx, docID, text, cursor); err != nil {
			return fail(err)
		}
		return cursor + TextLen(text), nil

	case Image:
		if s.Condition != nil && s.Condition != "" {
			if cond := r.resolve(s.Condition, scope); isEmpty(cond) {
				r.log.Debug("image skipped", "path", path, "reason", "condition")
				return cursor, nil
			}
		}
		imgPath := r.resolve(s.Path, scope)
		if isEmpty(imgPath) {
			r.log.Debug("image skipped", "path", path, "reason", "no path")
			return cursor, nil
		}
		if _, err := os.Stat(imgPath); err != nil {
			r.log.Debug("image skipped", "path", path, "file", imgPath, "reason", "missing")
			return cursor, nil
		}
		if err := r.client.InsertImage(ctx, docID, imgPath, cursor, s.Width, s.Height); err != nil {
			return fail(err)
		}
		return cursor + 1, nil

	case Loop:
		v, ok := scope.Lookup(s.Variable)
		if !ok {
			return cursor, nil
		}
		elems, ok := items(v)
		if !ok {
			r.log.Debug("loop skipped", "path", path, "variable", s.Variable, "reason", "not a sequence")
			return cursor, nil
		}
		for i, item := range elems {
			iter := scope.With(s.ItemName, item)
			for j, child := range s.Sections {
				var err error
				cursor, err = r.renderSection(ctx, docID, child, cursor, iter, fmt.Sprintf("%s[%d].sections[%d]", path, i, j))
				if err != nil {
					return cursor, err
				}
			}
		}
		return cursor, nil

	case Unknown:
		r.log.Debug("unknown section type skipped", "path", path, "type", s.Type)
		return cursor, nil

	default:
		panic(fmt.Sprintf("docs: unhandled section %T", s))
	}
}

// resolve turns a template value into text. Strings holding {{ }} are
// rendered against scope; if that fails the literal is kept so one bad
// expression does not abort the document.
func (r *Renderer) resolve(v any, scope *Scope) string {
	s, ok := v.(string)
	if !ok {
		return Stringify(v)
	}
	if !strings.Contains(s, "{{") || !strings.Contains(s, "}}") {
		return s
	}
	out, err := r.engine.RenderString(s, scope.Map())
	if err != nil {
		r.log.Warn("variable resolution failed, using literal", "value", s, "error", err)
		return s
	}
	return out
}

func isEmpty(s string) bool {
	return s == "" || s == "None"
}
