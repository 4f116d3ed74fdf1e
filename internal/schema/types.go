package schema

import (
	"fmt"
	"sort"
	"strings"
)

// ObjectKind classifies a database object
type ObjectKind string

const (
	KindTable   ObjectKind = "TABLE"
	KindView    ObjectKind = "VIEW"
	KindUnknown ObjectKind = "UNKNOWN"
)

// Kinds lists every object kind in document order
var Kinds = []ObjectKind{KindTable, KindView, KindUnknown}

// ParseKind converts a user supplied kind name (case-insensitive) into an ObjectKind
func ParseKind(s string) (ObjectKind, error) {
	switch ObjectKind(strings.ToUpper(strings.TrimSpace(s))) {
	case KindTable:
		return KindTable, nil
	case KindView:
		return KindView, nil
	case KindUnknown:
		return KindUnknown, nil
	}
	return "", fmt.Errorf("invalid object kind %q (must be TABLE, VIEW or UNKNOWN)", s)
}

// Valid reports whether k is one of the known kinds
func (k ObjectKind) Valid() bool {
	return k == KindTable || k == KindView || k == KindUnknown
}

// Schema is the technical schema of a database, read-only once built
type Schema struct {
	objects []Object
	index   map[string]int
}

// Object represents a table, view or unclassified relation
type Object struct {
	Name       string
	Kind       ObjectKind
	Columns    []Column
	PrimaryKey []string
	Relations  []Relation
}

// Column represents an object column
type Column struct {
	Name         string
	Type         string
	Nullable     bool
	Position     int
	DefaultValue *string
	IsUnique     bool
}

// Relation represents a foreign key relationship
type Relation struct {
	SourceColumn string
	TargetTable  string
	TargetColumn string
}

// New builds a Schema from objects, rejecting duplicate identities.
// Objects are kept sorted by name.
func New(objects []Object) (*Schema, error) {
	s := &Schema{
		objects: make([]Object, 0, len(objects)),
		index:   make(map[string]int, len(objects)),
	}

	for _, obj := range objects {
		if err := validateObject(obj); err != nil {
			return nil, err
		}
		if _, exists := s.index[obj.Name]; exists {
			return nil, fmt.Errorf("duplicate object %q", obj.Name)
		}
		s.index[obj.Name] = -1
		s.objects = append(s.objects, obj)
	}

	sort.SliceStable(s.objects, func(i, j int) bool {
		return s.objects[i].Name < s.objects[j].Name
	})
	for i, obj := range s.objects {
		s.index[obj.Name] = i
	}

	return s, nil
}

func validateObject(obj Object) error {
	if obj.Name == "" {
		return fmt.Errorf("object name is required")
	}
	if !obj.Kind.Valid() {
		return fmt.Errorf("object %q: invalid kind %q", obj.Name, obj.Kind)
	}

	seen := make(map[string]bool, len(obj.Columns))
	for i, col := range obj.Columns {
		if col.Name == "" {
			return fmt.Errorf("object %q: column %d has no name", obj.Name, i+1)
		}
		if col.Type == "" {
			return fmt.Errorf("object %q: column %q has no type", obj.Name, col.Name)
		}
		if seen[col.Name] {
			return fmt.Errorf("object %q: duplicate column %q", obj.Name, col.Name)
		}
		seen[col.Name] = true
	}

	for _, pk := range obj.PrimaryKey {
		if !seen[pk] {
			return fmt.Errorf("object %q: primary key column %q is not a column", obj.Name, pk)
		}
	}

	return nil
}

// Lookup returns the object with the given name
func (s *Schema) Lookup(name string) (Object, bool) {
	if s == nil {
		return Object{}, false
	}
	i, ok := s.index[name]
	if !ok {
		return Object{}, false
	}
	return s.objects[i], true
}

// Get is Lookup with an error wrapping ErrNotFound
func (s *Schema) Get(name string) (Object, error) {
	obj, ok := s.Lookup(name)
	if !ok {
		return Object{}, fmt.Errorf("object %q: %w", name, ErrNotFound)
	}
	return obj, nil
}

// Objects returns all objects sorted by name
func (s *Schema) Objects() []Object {
	if s == nil {
		return nil
	}
	out := make([]Object, len(s.objects))
	copy(out, s.objects)
	return out
}

// Names returns all object names sorted
func (s *Schema) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.objects))
	for i, obj := range s.objects {
		names[i] = obj.Name
	}
	return names
}

// ByKind returns the objects filed under kind
func (s *Schema) ByKind(kind ObjectKind) []Object {
	var out []Object
	for _, obj := range s.Objects() {
		if obj.Kind == kind {
			out = append(out, obj)
		}
	}
	return out
}

// Len returns the number of objects
func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.objects)
}

// Column returns the named column
func (o Object) Column(name string) (Column, bool) {
	for _, col := range o.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// HasColumn reports whether the object has a column called name
func (o Object) HasColumn(name string) bool {
	_, ok := o.Column(name)
	return ok
}

// ColumnNames returns the column names in ordinal order
func (o Object) ColumnNames() []string {
	names := make([]string, len(o.Columns))
	for i, col := range o.Columns {
		names[i] = col.Name
	}
	return names
}

// IsPrimaryKey reports whether column is part of the primary key
func (o Object) IsPrimaryKey(column string) bool {
	for _, pk := range o.PrimaryKey {
		if pk == column {
			return true
		}
	}
	return false
}

// IncomingRelation is a foreign key in another object pointing at this one
type IncomingRelation struct {
	SourceTable  string
	SourceColumn string
	TargetColumn string
}

// ReferencedBy finds all foreign keys pointing to the named object
func (s *Schema) ReferencedBy(name string) []IncomingRelation {
	var incoming []IncomingRelation
	for _, obj := range s.Objects() {
		for _, rel := range obj.Relations {
			if rel.TargetTable == name {
				incoming = append(incoming, IncomingRelation{
					SourceTable:  obj.Name,
					SourceColumn: rel.SourceColumn,
					TargetColumn: rel.TargetColumn,
				})
			}
		}
	}
	return incoming
}
