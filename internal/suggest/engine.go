// Package suggest proposes column descriptions by reusing the description of
// a same-named column already documented on another object.
package suggest

import (
	"github.com/tordrt/schemadoc/internal/metadata"
)

// Suggestion is a candidate description and where it was found
type Suggestion struct {
	Text         string
	SourceObject string
}

// Engine holds a column-name index over the metadata store, built once per
// session and kept current through Observe.
type Engine struct {
	store *metadata.Store
	// column name -> object name -> description
	index map[string]map[string]string
}

// NewEngine indexes every propagating column description in store
func NewEngine(store *metadata.Store) *Engine {
	e := &Engine{
		store: store,
		index: make(map[string]map[string]string),
	}
	for _, object := range store.Names() {
		for column := range store.Get(object).Columns {
			e.Observe(object, column)
		}
	}
	return e
}

// Observe refreshes the index entry for object.column from the store.
// Call it after every edit of a column description.
func (e *Engine) Observe(object, column string) {
	meta := e.store.Column(object, column)
	if meta.Description == "" || !meta.Provenance.Propagates() {
		if byObject, ok := e.index[column]; ok {
			delete(byObject, object)
			if len(byObject) == 0 {
				delete(e.index, column)
			}
		}
		return
	}

	byObject, ok := e.index[column]
	if !ok {
		byObject = make(map[string]string)
		e.index[column] = byObject
	}
	byObject[object] = meta.Description
}

// Forget drops every index entry contributed by object
func (e *Engine) Forget(object string) {
	for column, byObject := range e.index {
		delete(byObject, object)
		if len(byObject) == 0 {
			delete(e.index, column)
		}
	}
}

// Suggest returns a description for object.column taken from the
// lexicographically smallest other object documenting a column with the same
// name. Nothing is suggested when the target already has a description.
func (e *Engine) Suggest(object, column string) (Suggestion, bool) {
	if e.store.Column(object, column).Description != "" {
		return Suggestion{}, false
	}

	var best Suggestion
	found := false
	for source, text := range e.index[column] {
		if source == object {
			continue
		}
		if !found || source < best.SourceObject {
			best = Suggestion{Text: text, SourceObject: source}
			found = true
		}
	}
	return best, found
}

// SuggestAll returns suggestions for every listed column that has one
func (e *Engine) SuggestAll(object string, columns []string) map[string]Suggestion {
	out := make(map[string]Suggestion)
	for _, column := range columns {
		if s, ok := e.Suggest(object, column); ok {
			out[column] = s
		}
	}
	return out
}
