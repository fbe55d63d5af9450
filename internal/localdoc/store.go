// Package localdoc is an in-process document backend with the same
// offset contract as Google Docs. Documents live in memory and can be
// exported to text, markdown, HTML or docx.
package localdoc

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
	"unicode/utf16"

	"github.com/google/uuid"
	"github.com/tndg16-bot/ai-writing-automation/internal/docs"
)

// unit is one offset position: a UTF-16 code unit of text, or an image.
type unit struct {
	c     uint16
	img   *image
	level int // heading level of the paragraph this unit belongs to
}

type image struct {
	path          string
	width, height int
}

// Document is a local document body.
type Document struct {
	ID        string
	Title     string
	CreatedAt time.Time
	body      []unit
}

// Store holds local documents. It implements docs.Client.
type Store struct {
	mu   sync.Mutex
	dir  string
	docs map[string]*Document
	log  *slog.Logger
}

var _ docs.Client = (*Store)(nil)

// New creates a store that saves exports under dir.
func New(dir string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{dir: dir, docs: make(map[string]*Document), log: log}
}

func (s *Store) Create(_ context.Context, title string) (string, error) {
	doc := &Document{ID: uuid.NewString(), Title: title, CreatedAt: time.Now()}
	s.mu.Lock()
	s.docs[doc.ID] = doc
	s.mu.Unlock()
	s.log.Debug("local document created", "document_id", doc.ID, "title", title)
	return doc.ID, nil
}

func (s *Store) InsertText(_ context.Context, docID, text string, offset int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.lookup("insert_text", docID)
	if err != nil {
		return err
	}
	units := make([]unit, 0, len(text))
	for _, c := range utf16.Encode([]rune(text)) {
		units = append(units, unit{c: c})
	}
	return doc.insert("insert_text", units, offset)
}

func (s *Store) ApplyHeadingStyle(_ context.Context, docID string, start, end, level int) error {
	if err := docs.ValidateHeadingLevel(docID, level); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.lookup("apply_heading_style", docID)
	if err != nil {
		return err
	}
	if start < 1 || end < start || end > len(doc.body)+1 {
		return &docs.APIError{
			Op:    "apply_heading_style",
			DocID: docID,
			Err:   fmt.Errorf("range [%d, %d) outside document of length %d", start, end, len(doc.body)),
		}
	}

	// Widen [start, end) to whole paragraphs.
	lo, hi := start-1, end-1
	for lo > 0 && doc.body[lo-1].c != '\n' {
		lo--
	}
	for hi < len(doc.body) && (hi == lo || doc.body[hi-1].c != '\n') {
		hi++
	}
	for i := lo; i < hi; i++ {
		doc.body[i].level = level
	}
	return nil
}

func (s *Store) InsertImage(_ context.Context, docID, path string, offset, width, height int) error {
	if _, err := os.Stat(path); err != nil {
		return &docs.APIError{Op: "insert_image", DocID: docID, Err: fmt.Errorf("%w: %s", docs.ErrImageNotFound, path)}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.lookup("insert_image", docID)
	if err != nil {
		return err
	}
	return doc.insert("insert_image", []unit{{img: &image{path: abs, width: width, height: height}}}, offset)
}

// URL is the file URL the docx export of docID is saved to.
func (s *Store) URL(docID string) string {
	abs, err := filepath.Abs(s.path(docID, FormatDocx))
	if err != nil {
		abs = s.path(docID, FormatDocx)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

// Get returns a snapshot of a document.
func (s *Store) Get(docID string) (*Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[docID]
	if !ok {
		return nil, false
	}
	cp := *doc
	cp.body = append([]unit(nil), doc.body...)
	return &cp, true
}

// List returns all documents, oldest first.
func (s *Store) List() []*Document {
	s.mu.Lock()
	out := make([]*Document, 0, len(s.docs))
	for _, doc := range s.docs {
		cp := *doc
		cp.body = append([]unit(nil), doc.body...)
		out = append(out, &cp)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Delete drops a document and removes any exports saved for it.
func (s *Store) Delete(_ context.Context, docID string) error {
	s.mu.Lock()
	_, ok := s.docs[docID]
	delete(s.docs, docID)
	s.mu.Unlock()
	if !ok {
		return &docs.APIError{Op: "delete", DocID: docID, Err: fmt.Errorf("document not found")}
	}
	for _, f := range []Format{FormatText, FormatMarkdown, FormatHTML, FormatDocx} {
		if err := os.Remove(s.path(docID, f)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove export: %w", err)
		}
	}
	s.log.Info("document deleted", "document_id", docID)
	return nil
}

func (s *Store) lookup(op, docID string) (*Document, error) {
	doc, ok := s.docs[docID]
	if !ok {
		return nil, &docs.APIError{Op: op, DocID: docID, Err: fmt.Errorf("document not found")}
	}
	return doc, nil
}

func (d *Document) insert(op string, units []unit, offset int) error {
	if offset < 1 || offset > len(d.body)+1 {
		return &docs.APIError{
			Op:    op,
			DocID: d.ID,
			Err:   fmt.Errorf("offset %d outside document of length %d", offset, len(d.body)),
		}
	}
	i := offset - 1
	d.body = append(d.body[:i], append(units, d.body[i:]...)...)
	return nil
}

// Len is the document length in offset units.
func (d *Document) Len() int {
	return len(d.body)
}
