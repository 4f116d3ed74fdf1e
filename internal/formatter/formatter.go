// Package formatter renders the annotated schema and the documentation
// overview as compact text, markdown or a directory of markdown files.
package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/tordrt/schemadoc/internal/metadata"
	"github.com/tordrt/schemadoc/internal/overview"
	"github.com/tordrt/schemadoc/internal/schema"
)

// Document is the technical schema with its business overlay
type Document struct {
	Schema    *schema.Schema
	Metadata  *metadata.Store
	RowCounts overview.RowCounts
}

// object resolves a schema object together with its metadata
func (d Document) object(name string) (schema.Object, metadata.Entry, error) {
	obj, err := d.Schema.Get(name)
	if err != nil {
		return schema.Object{}, metadata.Entry{}, err
	}
	return obj, d.Metadata.Get(name), nil
}

func (d Document) rowCount(name string) string {
	if d.RowCounts == nil {
		return ""
	}
	rec, ok := d.RowCounts.Get(name)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%d (counted %s)", rec.Count, formatTime(rec.MeasuredAt))
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05") + " UTC"
}

func constraints(col schema.Column, obj schema.Object) []string {
	var parts []string
	if obj.IsPrimaryKey(col.Name) {
		parts = append(parts, "PK")
	}
	if col.IsUnique {
		parts = append(parts, "UNIQUE")
	}
	if !col.Nullable {
		parts = append(parts, "NOT NULL")
	}
	if col.DefaultValue != nil {
		parts = append(parts, "DEFAULT "+*col.DefaultValue)
	}
	return parts
}

// tagged appends the provenance marker of non-human text
func tagged(text string, prov metadata.Provenance, left, right string) string {
	if label := prov.Label(); label != "" {
		return text + " " + left + label + right
	}
	return text
}

func singleLine(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func rowCountCell(o overview.ObjectSummary) string {
	if o.RowCount == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *o.RowCount)
}

func lastRun(sum overview.Summary) string {
	if sum.LastFullRecompute == nil {
		return "never"
	}
	return formatTime(*sum.LastFullRecompute)
}
