package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Parser reads one file format into a Document.
type Parser interface {
	ParseFile(path string) (*Document, error)
}

// parsers maps lower-cased extensions to their parser.
var parsers = map[string]Parser{
	".txt":      textParser{},
	".md":       markdownParser{},
	".markdown": markdownParser{},
	".csv":      csvParser{},
	".html":     htmlParser{},
	".htm":      htmlParser{},
	".docx":     docxParser{},
	".pdf":      pdfParser{},
}

// IsSupported reports whether path has an extension we can parse.
func IsSupported(path string) bool {
	_, ok := parsers[strings.ToLower(filepath.Ext(path))]
	return ok
}

// ParseFile parses path with the parser for its extension. The document
// title defaults to the file name without extension.
func ParseFile(path string) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	p, ok := parsers[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}
	doc, err := p.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if doc.Title == "" {
		doc.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return doc, nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return data, nil
}
