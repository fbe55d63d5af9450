package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadContext reads a render context from a .json, .yaml or .yml file.
// The top level must be a mapping.
func LoadContext(path string) (map[string]any, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, fmt.Errorf("read context: %w", err)
	}
	ctx := map[string]any{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&ctx); err != nil {
			return nil, fmt.Errorf("decode context %s: %w", filepath.Base(path), err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &ctx); err != nil {
			return nil, fmt.Errorf("decode context %s: %w", filepath.Base(path), err)
		}
	default:
		return nil, fmt.Errorf("unsupported context file type: %s", ext)
	}
	if ctx == nil {
		ctx = map[string]any{}
	}
	return ctx, nil
}

// ParseAttachment splits a "name=path" flag value.
func ParseAttachment(arg string) (name, path string, err error) {
	name, path, ok := strings.Cut(arg, "=")
	name, path = strings.TrimSpace(name), strings.TrimSpace(path)
	if !ok || name == "" || path == "" {
		return "", "", fmt.Errorf("attachment %q: expected name=path", arg)
	}
	return name, path, nil
}

// Attach parses the document at path and binds it into ctx under name.
func Attach(ctx map[string]any, name, path string) error {
	doc, err := ParseFile(path)
	if err != nil {
		return err
	}
	ctx[name] = doc.Value()
	return nil
}
