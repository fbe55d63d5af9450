// Package docs assembles documents from templates. A Renderer turns a
// rendered JSON template into a tree of sections and drives a Client with
// absolute insertion offsets, threading a cursor through the tree.
package docs

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"
)

// Client is a remote rich-text document that only accepts edits at
// absolute offsets. Offsets are 1-based; the caller is responsible for
// keeping them consistent with the lengths it has already inserted.
type Client interface {
	Create(ctx context.Context, title string) (docID string, err error)
	InsertText(ctx context.Context, docID, text string, offset int) error
	ApplyHeadingStyle(ctx context.Context, docID string, start, end, level int) error
	InsertImage(ctx context.Context, docID, path string, offset, width, height int) error
	URL(docID string) string
}

var (
	ErrInvalidHeadingLevel = errors.New("heading level must be between 1 and 6")
	ErrImageNotFound       = errors.New("image file not found")
	ErrNoDocumentID        = errors.New("response did not include a document id")
)

// APIError is a failed document operation: validation, a permanent remote
// error, or a transient one that exhausted its retries.
type APIError struct {
	Op    string
	DocID string
	Err   error
}

func (e *APIError) Error() string {
	if e.DocID == "" {
		return fmt.Sprintf("docs %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("docs %s %s: %v", e.Op, e.DocID, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// ValidateHeadingLevel returns an APIError wrapping ErrInvalidHeadingLevel
// for levels outside 1..6.
func ValidateHeadingLevel(docID string, level int) error {
	if level < 1 || level > 6 {
		return &APIError{
			Op:    "apply_heading_style",
			DocID: docID,
			Err:   fmt.Errorf("%w: got %d", ErrInvalidHeadingLevel, level),
		}
	}
	return nil
}

// TextLen is the length of s in UTF-16 code units, the unit document
// offsets are counted in.
func TextLen(s string) int {
	n := 0
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		s = s[size:]
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}
