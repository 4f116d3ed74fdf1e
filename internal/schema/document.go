package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// Document layout (grouped):
//
//	{"TABLE": {"CLIENTES": {"columns": [...], "foreign_keys": [...]}}, "VIEW": {...}, "UNKNOWN": {...}}
//
// The flat layout written by older extraction scripts is also accepted:
//
//	{"CLIENTES": {"object_type": "TABLE", "columns": [...], "constraints": {...}}}

type columnDoc struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Nullable   bool    `json:"nullable"`
	Position   int     `json:"position,omitempty"`
	Default    *string `json:"default,omitempty"`
	Unique     bool    `json:"unique,omitempty"`
	PrimaryKey bool    `json:"primary_key,omitempty"`
}

type foreignKeyDoc struct {
	Column           string `json:"column"`
	ReferencesTable  string `json:"references_table"`
	ReferencesColumn string `json:"references_column,omitempty"`
}

type objectDoc struct {
	Columns     *[]columnDoc    `json:"columns"`
	ForeignKeys []foreignKeyDoc `json:"foreign_keys,omitempty"`
}

type legacyConstraintDoc struct {
	Name              string   `json:"name"`
	Columns           []string `json:"columns"`
	ReferencesTable   string   `json:"references_table"`
	ReferencesColumns []string `json:"references_columns"`
}

type legacyObjectDoc struct {
	ObjectType  string       `json:"object_type"`
	Columns     *[]columnDoc `json:"columns"`
	Constraints struct {
		PrimaryKey  []legacyConstraintDoc `json:"primary_key"`
		ForeignKeys []legacyConstraintDoc `json:"foreign_keys"`
		Unique      []legacyConstraintDoc `json:"unique"`
	} `json:"constraints"`
}

// Load reads a technical schema document from path
func Load(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	s, err := Parse(f)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Path = path
		}
		return nil, err
	}
	return s, nil
}

// Parse decodes a technical schema document in either layout
func Parse(r io.Reader) (*Schema, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &LoadError{Err: err}
	}

	top, err := orderedFields(data)
	if err != nil {
		return nil, &LoadError{Reason: "malformed document", Err: err}
	}

	var objects []Object
	if isGrouped(top) {
		objects, err = parseGrouped(top)
	} else {
		objects, err = parseLegacy(top)
	}
	if err != nil {
		return nil, &LoadError{Err: err}
	}

	s, err := New(objects)
	if err != nil {
		return nil, &LoadError{Err: err}
	}
	return s, nil
}

func isGrouped(top []field) bool {
	if len(top) == 0 {
		return true
	}
	for _, f := range top {
		if !ObjectKind(f.key).Valid() {
			return false
		}
	}
	return true
}

func parseGrouped(groups []field) ([]Object, error) {
	var objects []Object
	for _, group := range groups {
		members, err := orderedFields(group.raw)
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", group.key, err)
		}
		for _, m := range members {
			var doc objectDoc
			if err := json.Unmarshal(m.raw, &doc); err != nil {
				return nil, fmt.Errorf("object %q: %w", m.key, err)
			}
			if doc.Columns == nil {
				return nil, fmt.Errorf("object %q: missing columns", m.key)
			}

			obj := Object{Name: m.key, Kind: ObjectKind(group.key)}
			obj.Columns, obj.PrimaryKey = convertColumns(*doc.Columns)
			for _, fk := range doc.ForeignKeys {
				obj.Relations = append(obj.Relations, Relation{
					SourceColumn: fk.Column,
					TargetTable:  fk.ReferencesTable,
					TargetColumn: fk.ReferencesColumn,
				})
			}
			objects = append(objects, obj)
		}
	}
	return objects, nil
}

func parseLegacy(members []field) ([]Object, error) {
	objects := make([]Object, 0, len(members))
	for _, m := range members {
		var doc legacyObjectDoc
		if err := json.Unmarshal(m.raw, &doc); err != nil {
			return nil, fmt.Errorf("object %q: %w", m.key, err)
		}
		if doc.Columns == nil {
			return nil, fmt.Errorf("object %q: missing columns", m.key)
		}

		kind := KindUnknown
		if doc.ObjectType != "" {
			k, err := ParseKind(doc.ObjectType)
			if err != nil {
				return nil, fmt.Errorf("object %q: %w", m.key, err)
			}
			kind = k
		}

		obj := Object{Name: m.key, Kind: kind}
		obj.Columns, obj.PrimaryKey = convertColumns(*doc.Columns)

		if len(obj.PrimaryKey) == 0 {
			for _, pk := range doc.Constraints.PrimaryKey {
				obj.PrimaryKey = append(obj.PrimaryKey, pk.Columns...)
			}
		}
		for _, uq := range doc.Constraints.Unique {
			if len(uq.Columns) != 1 {
				continue
			}
			for i := range obj.Columns {
				if obj.Columns[i].Name == uq.Columns[0] {
					obj.Columns[i].IsUnique = true
				}
			}
		}
		for _, fk := range doc.Constraints.ForeignKeys {
			for i, col := range fk.Columns {
				rel := Relation{SourceColumn: col, TargetTable: fk.ReferencesTable}
				if i < len(fk.ReferencesColumns) {
					rel.TargetColumn = fk.ReferencesColumns[i]
				}
				obj.Relations = append(obj.Relations, rel)
			}
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

func convertColumns(docs []columnDoc) ([]Column, []string) {
	columns := make([]Column, 0, len(docs))
	var pk []string
	for i, d := range docs {
		pos := d.Position
		if pos == 0 {
			pos = i + 1
		}
		columns = append(columns, Column{
			Name:         d.Name,
			Type:         d.Type,
			Nullable:     d.Nullable,
			Position:     pos,
			DefaultValue: d.Default,
			IsUnique:     d.Unique,
		})
		if d.PrimaryKey {
			pk = append(pk, d.Name)
		}
	}
	return columns, pk
}

// Write encodes the schema in the grouped layout
func Write(w io.Writer, s *Schema) error {
	doc := make(map[ObjectKind]map[string]objectDoc)
	for _, obj := range s.Objects() {
		group, ok := doc[obj.Kind]
		if !ok {
			group = make(map[string]objectDoc)
			doc[obj.Kind] = group
		}

		cols := make([]columnDoc, 0, len(obj.Columns))
		for _, col := range obj.Columns {
			cols = append(cols, columnDoc{
				Name:       col.Name,
				Type:       col.Type,
				Nullable:   col.Nullable,
				Position:   col.Position,
				Default:    col.DefaultValue,
				Unique:     col.IsUnique,
				PrimaryKey: obj.IsPrimaryKey(col.Name),
			})
		}

		od := objectDoc{Columns: &cols}
		for _, rel := range obj.Relations {
			od.ForeignKeys = append(od.ForeignKeys, foreignKeyDoc{
				Column:           rel.SourceColumn,
				ReferencesTable:  rel.TargetTable,
				ReferencesColumn: rel.TargetColumn,
			})
		}
		group[obj.Name] = od
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(doc)
}

type field struct {
	key string
	raw json.RawMessage
}

// orderedFields splits a JSON object into its members in document order.
// Duplicate keys are rejected since encoding/json would silently keep the last one.
func orderedFields(data []byte) ([]field, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("expected a JSON object")
	}

	seen := make(map[string]bool)
	var fields []field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%q: %w", key, err)
		}
		if seen[key] {
			return nil, fmt.Errorf("duplicate object %q", key)
		}
		seen[key] = true
		fields = append(fields, field{key: key, raw: raw})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("unexpected data after document")
	}
	return fields, nil
}
