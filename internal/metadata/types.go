package metadata

import (
	"maps"

	"github.com/tordrt/schemadoc/internal/schema"
)

// Provenance records who produced a description
type Provenance string

const (
	ProvenanceHuman     Provenance = "human"
	ProvenanceHeuristic Provenance = "heuristic"
	ProvenanceAI        Provenance = "ai"
)

// Valid reports whether p is a known provenance. The empty value is accepted
// for documents written before provenance was tracked and counts as human.
func (p Provenance) Valid() bool {
	switch p {
	case "", ProvenanceHuman, ProvenanceHeuristic, ProvenanceAI:
		return true
	}
	return false
}

// Propagates reports whether text with this provenance may seed heuristic
// suggestions for other objects. Heuristic text never does.
func (p Provenance) Propagates() bool {
	return p != ProvenanceHeuristic
}

// Label is a short marker for rendering non-human text
func (p Provenance) Label() string {
	switch p {
	case ProvenanceHeuristic:
		return "heuristic"
	case ProvenanceAI:
		return "AI"
	}
	return ""
}

// ColumnMetadata is the business metadata of one column
type ColumnMetadata struct {
	Description string     `json:"description,omitempty"`
	Notes       string     `json:"value_mapping_notes,omitempty"`
	Provenance  Provenance `json:"provenance,omitempty"`
}

// Entry is the metadata overlay of one schema object
type Entry struct {
	Description           string                    `json:"description,omitempty"`
	DescriptionProvenance Provenance                `json:"description_provenance,omitempty"`
	Kind                  schema.ObjectKind         `json:"kind,omitempty"`
	Columns               map[string]ColumnMetadata `json:"columns,omitempty"`
}

// Column returns the metadata of a column, empty if never edited
func (e Entry) Column(name string) ColumnMetadata {
	return e.Columns[name]
}

func (e Entry) clone() Entry {
	out := e
	if e.Columns != nil {
		out.Columns = maps.Clone(e.Columns)
	}
	return out
}

type document struct {
	Revision      int64            `json:"revision"`
	GlobalContext string           `json:"global_context,omitempty"`
	Objects       map[string]Entry `json:"objects"`
}
