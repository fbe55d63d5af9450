package docs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Defaults applied when a template leaves a field out.
const (
	DefaultTitle       = "Untitled Document"
	DefaultLevel       = 1
	DefaultImageWidth  = 400
	DefaultImageHeight = 300
	DefaultItemName    = "item"
)

// Template is a parsed document template. Title and the string fields of
// its sections may still hold {{ }} expressions; they are resolved per
// section while rendering.
type Template struct {
	Title    any       `json:"title"`
	Sections []Section `json:"sections"`
}

// Section is one node of the template tree. The set of implementations is
// closed: Heading, Paragraph, Image, Loop and Unknown.
type Section interface {
	Kind() string
	section()
}

type Heading struct {
	Level int
	Text  any
}

type Paragraph struct {
	Text any
}

// Image is inserted only when Condition (if set) and Path resolve to
// something other than "" or "None", and Path exists on disk.
type Image struct {
	Path      any
	Width     int
	Height    int
	Condition any
}

// Loop renders Sections once per element of the sequence found at the
// dotted path Variable, with ItemName bound to the element.
type Loop struct {
	Variable string
	ItemName string
	Sections []Section
}

// Unknown is a section whose type is not recognised. It renders nothing.
type Unknown struct {
	Type string
}

func (Heading) Kind() string   { return "heading" }
func (Paragraph) Kind() string { return "paragraph" }
func (Image) Kind() string     { return "image" }
func (Loop) Kind() string      { return "loop" }
func (Unknown) Kind() string   { return "unknown" }

func (Heading) section()   {}
func (Paragraph) section() {}
func (Image) section()     {}
func (Loop) section()      {}
func (Unknown) section()   {}

func (h Heading) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string `json:"type"`
		Level int    `json:"level"`
		Text  any    `json:"text"`
	}{"heading", h.Level, h.Text})
}

func (p Paragraph) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
		Text any    `json:"text"`
	}{"paragraph", p.Text})
}

func (i Image) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      string `json:"type"`
		Path      any    `json:"path"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Condition any    `json:"condition,omitempty"`
	}{"image", i.Path, i.Width, i.Height, i.Condition})
}

func (l Loop) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string    `json:"type"`
		Variable string    `json:"variable"`
		ItemName string    `json:"item_name"`
		Sections []Section `json:"sections"`
	}{"loop", l.Variable, l.ItemName, l.Sections})
}

func (u Unknown) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
	}{u.Type})
}

// errNotObject is returned when the template's top level is not a JSON
// object.
var errNotObject = errors.New("template must be a JSON object")

// ParseTemplate decodes rendered template text. Unknown keys are ignored,
// a section without "type" is a paragraph, and a section of any other
// unrecognised type becomes Unknown.
func ParseTemplate(data []byte) (*Template, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("unexpected data after template object")
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, errNotObject
	}

	tpl := &Template{Title: DefaultTitle}
	if title, ok := obj["title"]; ok {
		tpl.Title = title
	}
	sections, err := parseSections(obj["sections"], "sections")
	if err != nil {
		return nil, err
	}
	tpl.Sections = sections
	return tpl, nil
}

func parseSections(v any, path string) ([]Section, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected an array", path)
	}
	out := make([]Section, 0, len(list))
	for i, item := range list {
		s, err := parseSection(item, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func parseSection(v any, path string) (Section, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return Unknown{Type: fmt.Sprintf("%T", v)}, nil
	}

	typ := "paragraph"
	if t, ok := obj["type"]; ok {
		typ = Stringify(t)
	}
	switch typ {
	case "heading":
		return Heading{
			Level: intField(obj, "level", DefaultLevel),
			Text:  obj["text"],
		}, nil
	case "paragraph":
		return Paragraph{Text: obj["text"]}, nil
	case "image":
		return Image{
			Path:      obj["path"],
			Width:     intField(obj, "width", DefaultImageWidth),
			Height:    intField(obj, "height", DefaultImageHeight),
			Condition: obj["condition"],
		}, nil
	case "loop":
		children, ok := obj["sections"]
		if !ok {
			children = obj["children"]
		}
		inner, err := parseSections(children, path+".sections")
		if err != nil {
			return nil, err
		}
		itemName := Stringify(obj["item_name"])
		if itemName == "" {
			itemName = DefaultItemName
		}
		return Loop{
			Variable: Stringify(obj["variable"]),
			ItemName: itemName,
			Sections: inner,
		}, nil
	}
	return Unknown{Type: typ}, nil
}

// intField reads an integer field. Missing means def; a value that is not
// a whole number yields 0 so the client's validation reports it.
func intField(obj map[string]any, key string, def int) int {
	v, ok := obj[key]
	if !ok || v == nil {
		return def
	}
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
		if f, err := n.Float64(); err == nil && f == math.Trunc(f) {
			return int(f)
		}
	case float64:
		if n == math.Trunc(n) {
			return int(n)
		}
	case int:
		return n
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	}
	return 0
}

// Stringify converts a template value to text: nil is "", booleans are
// "True"/"False", numbers keep their JSON spelling.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "True"
		}
		return "False"
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case fmt.Stringer:
		return x.String()
	}
	switch v.(type) {
	case map[string]any, []any:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(v)
}
