// Package tmpl renders Jinja-style templates ({{ expr }}, {% if %},
// {% for %}, filters) against a context map. It knows nothing about
// documents; callers interpret the text it returns.
package tmpl

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/flosch/pongo2/v6"
)

// Kind classifies template failures.
type Kind string

const (
	KindNotFound    Kind = "not_found"
	KindSyntax      Kind = "syntax"
	KindRender      Kind = "render"
	KindInvalidJSON Kind = "invalid_json"
)

// Error is returned for every template failure. Name is the template name,
// or "<string>" for inline sources.
type Error struct {
	Name string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("template not found: %s", e.Name)
	case KindSyntax:
		return fmt.Sprintf("template syntax error in %s: %v", e.Name, e.Err)
	case KindInvalidJSON:
		return fmt.Sprintf("invalid JSON in template %s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("failed to render template %s: %v", e.Name, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a template Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == kind
}

const inlineName = "<string>"

// Engine loads templates from a directory. It holds no per-call state and
// is safe for concurrent use.
type Engine struct {
	dir string
	set *pongo2.TemplateSet
}

// New creates an engine rooted at dir. Custom filters are registered on
// first construction.
func New(dir string) (*Engine, error) {
	if err := registerFilters(); err != nil {
		return nil, fmt.Errorf("register filters: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("template dir: %w", err)
	}
	loader, err := pongo2.NewLocalFileSystemLoader(abs)
	if err != nil {
		return nil, fmt.Errorf("template dir %s: %w", abs, err)
	}
	return &Engine{
		dir: abs,
		set: pongo2.NewSet("docrender", loader),
	}, nil
}

// Dir returns the absolute template directory.
func (e *Engine) Dir() string {
	return e.dir
}

// RenderTemplate renders the named template file with data.
func (e *Engine) RenderTemplate(name string, data map[string]any) (string, error) {
	if !filepath.IsLocal(name) {
		return "", &Error{Name: name, Kind: KindNotFound, Err: fs.ErrInvalid}
	}
	info, err := os.Stat(filepath.Join(e.dir, name))
	if err != nil {
		return "", &Error{Name: name, Kind: KindNotFound, Err: err}
	}
	if info.IsDir() {
		return "", &Error{Name: name, Kind: KindNotFound, Err: fmt.Errorf("%s is a directory", name)}
	}

	tpl, err := e.set.FromFile(name)
	if err != nil {
		return "", &Error{Name: name, Kind: KindSyntax, Err: err}
	}
	out, err := tpl.Execute(contextFor(data))
	if err != nil {
		return "", &Error{Name: name, Kind: KindRender, Err: err}
	}
	return out, nil
}

// RenderString renders an inline template source with data.
func (e *Engine) RenderString(src string, data map[string]any) (string, error) {
	tpl, err := e.set.FromString(src)
	if err != nil {
		return "", &Error{Name: inlineName, Kind: KindSyntax, Err: err}
	}
	out, err := tpl.Execute(contextFor(data))
	if err != nil {
		return "", &Error{Name: inlineName, Kind: KindRender, Err: err}
	}
	return out, nil
}

// List returns the names of the .json templates under the template
// directory, slash-separated and sorted.
func (e *Engine) List() ([]string, error) {
	var names []string
	err := filepath.WalkDir(e.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".json") {
			return nil
		}
		rel, err := filepath.Rel(e.dir, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	sort.Strings(names)
	return names, nil
}
