package metadata

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// draftDocument is the layout produced by the batch AI draft generator:
// {"TABLES": {name: {"description": ..., "COLUMNS": {col: {"description": ...}}}}, "VIEWS": {...}}
type draftDocument struct {
	GlobalContext string                 `json:"_GLOBAL_CONTEXT"`
	Tables        map[string]draftObject `json:"TABLES"`
	Views         map[string]draftObject `json:"VIEWS"`
}

type draftObject struct {
	Description string                 `json:"description"`
	Columns     map[string]draftColumn `json:"COLUMNS"`
}

type draftColumn struct {
	Description string `json:"description"`
	Notes       string `json:"value_mapping_notes"`
}

// ImportStats counts what an import changed
type ImportStats struct {
	Objects      int
	Descriptions int
	Notes        int
	Skipped      int
}

// ImportDraft merges a draft document into the store. Only empty fields are
// filled, so existing text of any provenance is kept. Placeholder text left by
// a failed generation is skipped.
func (s *Store) ImportDraft(r io.Reader, prov Provenance) (ImportStats, error) {
	var stats ImportStats

	var draft draftDocument
	if err := json.NewDecoder(r).Decode(&draft); err != nil {
		return stats, fmt.Errorf("failed to decode draft: %w", err)
	}

	if draft.GlobalContext != "" && s.globalContext == "" {
		s.SetGlobalContext(draft.GlobalContext)
	}

	for _, group := range []map[string]draftObject{draft.Tables, draft.Views} {
		names := make([]string, 0, len(group))
		for name := range group {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			obj := group[name]
			touched := false

			if isPlaceholder(obj.Description) {
				stats.Skipped++
			} else if s.FillObjectDescription(name, obj.Description, prov) {
				stats.Descriptions++
				touched = true
			}

			for col, meta := range obj.Columns {
				if isPlaceholder(meta.Description) {
					stats.Skipped++
				} else if s.FillColumnDescription(name, col, meta.Description, prov) {
					stats.Descriptions++
					touched = true
				} else if meta.Description != "" {
					stats.Skipped++
				}
				if s.FillColumnNotes(name, col, meta.Notes) {
					stats.Notes++
					touched = true
				}
			}

			if touched {
				stats.Objects++
			}
		}
	}

	return stats, nil
}

// Text written by the draft generator when the model did not answer
const draftPlaceholder = "[Descrição não gerada pela IA]"

func isPlaceholder(text string) bool {
	return text == draftPlaceholder
}
