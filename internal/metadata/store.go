// Package metadata holds the business metadata overlay layered on top of the
// technical schema: object and column descriptions, value mapping notes,
// reclassifications and the global context of the database.
//
// A Store is loaded once, mutated in memory and persisted explicitly with Save.
// It is not safe for concurrent use.
package metadata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/tordrt/schemadoc/internal/atomicfile"
	"github.com/tordrt/schemadoc/internal/schema"
)

// Store is the in-memory metadata document
type Store struct {
	entries       map[string]Entry
	globalContext string
	revision      int64
	dirty         bool
}

// New creates an empty store
func New() *Store {
	return &Store{entries: make(map[string]Entry)}
}

// Load reads the metadata document at path. A missing file yields an empty
// store; unparseable content yields a CorruptError.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata %s: %w", path, err)
	}

	doc, err := decode(data)
	if err != nil {
		return nil, &CorruptError{Path: path, Err: err}
	}

	s := New()
	s.globalContext = doc.GlobalContext
	s.revision = doc.Revision
	for name, entry := range doc.Objects {
		s.entries[name] = entry
	}
	return s, nil
}

func decode(data []byte) (*document, error) {
	var doc document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after document")
	}
	if doc.Revision < 0 {
		return nil, fmt.Errorf("negative revision %d", doc.Revision)
	}

	for name, entry := range doc.Objects {
		if name == "" {
			return nil, errors.New("object with empty name")
		}
		if !entry.DescriptionProvenance.Valid() {
			return nil, fmt.Errorf("object %q: unknown provenance %q", name, entry.DescriptionProvenance)
		}
		if entry.Kind != "" && entry.Kind != schema.KindTable && entry.Kind != schema.KindView {
			return nil, fmt.Errorf("object %q: invalid kind %q", name, entry.Kind)
		}
		for col, meta := range entry.Columns {
			if !meta.Provenance.Valid() {
				return nil, fmt.Errorf("column %s.%s: unknown provenance %q", name, col, meta.Provenance)
			}
		}
	}
	return &doc, nil
}

// Save writes the document atomically. The save is rejected with
// ErrRevisionConflict when the document on disk is not the one this store
// was loaded from (or last saved).
func (s *Store) Save(path string) error {
	onDisk, err := readRevision(path)
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if onDisk != s.revision {
		return &WriteError{
			Path: path,
			Err:  fmt.Errorf("%w (revision on disk %d, loaded %d)", ErrRevisionConflict, onDisk, s.revision),
		}
	}

	doc := document{
		Revision:      s.revision + 1,
		GlobalContext: s.globalContext,
		Objects:       s.entries,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return &WriteError{Path: path, Err: err}
	}

	if err := atomicfile.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return &WriteError{Path: path, Err: err}
	}

	s.revision = doc.Revision
	s.dirty = false
	return nil
}

func readRevision(path string) (int64, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var head struct {
		Revision int64 `json:"revision"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return 0, &CorruptError{Path: path, Err: err}
	}
	return head.Revision, nil
}

// Revision returns the revision of the document this store last loaded or saved
func (s *Store) Revision() int64 {
	return s.revision
}

// Dirty reports whether there are edits not yet saved
func (s *Store) Dirty() bool {
	return s.dirty
}

// Get returns a copy of the entry for object, or an empty entry when the
// object was never edited. Entries are only created by mutations.
func (s *Store) Get(object string) Entry {
	return s.entries[object].clone()
}

// Column returns the metadata of object.column without copying the entry
func (s *Store) Column(object, column string) ColumnMetadata {
	return s.entries[object].Columns[column]
}

// Has reports whether an entry exists for object
func (s *Store) Has(object string) bool {
	_, ok := s.entries[object]
	return ok
}

// Names returns the names of all objects with an entry, sorted
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of entries
func (s *Store) Len() int {
	return len(s.entries)
}

// GlobalContext returns the free-text description of the database
func (s *Store) GlobalContext() string {
	return s.globalContext
}

// SetGlobalContext replaces the global context
func (s *Store) SetGlobalContext(text string) {
	text = strings.TrimSpace(text)
	if text == s.globalContext {
		return
	}
	s.globalContext = text
	s.dirty = true
}

// SetObjectDescription replaces the description of object
func (s *Store) SetObjectDescription(object, text string, prov Provenance) {
	text = strings.TrimSpace(text)
	s.update(object, func(e *Entry) {
		e.Description = text
		e.DescriptionProvenance = provenanceFor(text, prov)
	})
}

// FillObjectDescription sets the description only when it is empty and
// reports whether it did.
func (s *Store) FillObjectDescription(object, text string, prov Provenance) bool {
	text = strings.TrimSpace(text)
	if text == "" || s.entries[object].Description != "" {
		return false
	}
	s.SetObjectDescription(object, text, prov)
	return true
}

// SetColumnDescription replaces the description of object.column
func (s *Store) SetColumnDescription(object, column, text string, prov Provenance) {
	text = strings.TrimSpace(text)
	s.updateColumn(object, column, func(c *ColumnMetadata) {
		c.Description = text
		c.Provenance = provenanceFor(text, prov)
	})
}

// FillColumnDescription sets the description of object.column only when it
// is empty, so text from heuristics or AI never replaces existing text.
func (s *Store) FillColumnDescription(object, column, text string, prov Provenance) bool {
	text = strings.TrimSpace(text)
	if text == "" || s.entries[object].Columns[column].Description != "" {
		return false
	}
	s.SetColumnDescription(object, column, text, prov)
	return true
}

// SetColumnNotes replaces the value mapping notes of object.column
func (s *Store) SetColumnNotes(object, column, notes string) {
	notes = strings.TrimSpace(notes)
	s.updateColumn(object, column, func(c *ColumnMetadata) {
		c.Notes = notes
	})
}

// FillColumnNotes sets the notes of object.column only when they are empty
func (s *Store) FillColumnNotes(object, column, notes string) bool {
	notes = strings.TrimSpace(notes)
	if notes == "" || s.entries[object].Columns[column].Notes != "" {
		return false
	}
	s.SetColumnNotes(object, column, notes)
	return true
}

// Reclassify records the real kind of an object filed under UNKNOWN
func (s *Store) Reclassify(object string, kind schema.ObjectKind) error {
	if kind != schema.KindTable && kind != schema.KindView {
		return fmt.Errorf("%w: got %q", ErrInvalidKind, kind)
	}
	s.update(object, func(e *Entry) {
		e.Kind = kind
	})
	return nil
}

// Prune removes every entry for which keep returns false and returns the
// removed names. It is the only operation that deletes entries.
func (s *Store) Prune(keep func(object string) bool) []string {
	var removed []string
	for _, name := range s.Names() {
		if !keep(name) {
			delete(s.entries, name)
			removed = append(removed, name)
		}
	}
	if len(removed) > 0 {
		s.dirty = true
	}
	return removed
}

func (s *Store) update(object string, fn func(e *Entry)) {
	entry := s.entries[object]
	before := entry.clone()
	fn(&entry)
	if _, exists := s.entries[object]; exists && entriesEqual(before, entry) {
		return
	}
	s.entries[object] = entry
	s.dirty = true
}

func (s *Store) updateColumn(object, column string, fn func(c *ColumnMetadata)) {
	s.update(object, func(e *Entry) {
		if e.Columns == nil {
			e.Columns = make(map[string]ColumnMetadata)
		}
		meta := e.Columns[column]
		fn(&meta)
		e.Columns[column] = meta
	})
}

func entriesEqual(a, b Entry) bool {
	if a.Description != b.Description || a.DescriptionProvenance != b.DescriptionProvenance || a.Kind != b.Kind {
		return false
	}
	if len(a.Columns) != len(b.Columns) {
		return false
	}
	for name, meta := range a.Columns {
		other, ok := b.Columns[name]
		if !ok || other != meta {
			return false
		}
	}
	return true
}

func provenanceFor(text string, prov Provenance) Provenance {
	if text == "" {
		return ""
	}
	if prov == "" {
		return ProvenanceHuman
	}
	return prov
}
