package docs

import (
	"reflect"
	"strings"
)

// Scope is the variable context a section renders against. It is
// persistent: With returns a new scope sharing its parent, so a loop
// binding is visible to that iteration's children and nowhere else.
type Scope struct {
	parent *Scope
	root   map[string]any
	name   string
	value  any
}

// NewScope wraps the caller's data. The map is read, never written.
func NewScope(root map[string]any) *Scope {
	return &Scope{root: root}
}

// With returns a child scope where name is bound to v.
func (s *Scope) With(name string, v any) *Scope {
	return &Scope{parent: s, name: name, value: v}
}

// Get resolves a single name, innermost binding first.
func (s *Scope) Get(name string) (any, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.parent == nil {
			v, ok := cur.root[name]
			return v, ok
		}
		if cur.name == name {
			return cur.value, true
		}
	}
	return nil, false
}

// Lookup walks a dotted path such as "a.b.c" through maps and struct
// fields. It reports false as soon as a step is missing, nil, or not
// something that can be indexed by name.
func (s *Scope) Lookup(path string) (any, bool) {
	parts := strings.Split(path, ".")
	v, ok := s.Get(parts[0])
	if !ok || v == nil {
		return nil, false
	}
	for _, part := range parts[1:] {
		v, ok = field(v, part)
		if !ok || v == nil {
			return nil, false
		}
	}
	return v, true
}

// Map flattens the scope into a fresh map for the template engine.
func (s *Scope) Map() map[string]any {
	var frames []*Scope
	for cur := s; cur != nil; cur = cur.parent {
		frames = append(frames, cur)
	}
	root := frames[len(frames)-1]
	out := make(map[string]any, len(root.root)+len(frames)-1)
	for k, v := range root.root {
		out[k] = v
	}
	for i := len(frames) - 2; i >= 0; i-- {
		out[frames[i].name] = frames[i].value
	}
	return out
}

func field(v any, name string) (any, bool) {
	if m, ok := v.(map[string]any); ok {
		x, ok := m[name]
		return x, ok
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		x := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !x.IsValid() {
			return nil, false
		}
		return x.Interface(), true
	case reflect.Struct:
		t := rv.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			tag, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if f.Name == name || tag == name || (tag == "" && strings.EqualFold(f.Name, name)) {
				return rv.Field(i).Interface(), true
			}
		}
	}
	return nil, false
}

// items returns the elements of a slice or array, or false for anything
// else. Strings and byte slices are not sequences here.
func items(v any) ([]any, bool) {
	if xs, ok := v.([]any); ok {
		return xs, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
