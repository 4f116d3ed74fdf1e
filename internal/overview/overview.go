// Package overview derives documentation completeness statistics from the
// schema, the metadata overlay and the row-count cache.
package overview

import (
	"math"
	"sort"
	"time"

	"github.com/tordrt/schemadoc/internal/metadata"
	"github.com/tordrt/schemadoc/internal/rowcount"
	"github.com/tordrt/schemadoc/internal/schema"
)

// RowCounts is the read side of the row-count cache
type RowCounts interface {
	Get(object string) (rowcount.Record, bool)
	LastRun(operation string) (time.Time, bool)
}

// ObjectSummary is the completeness of one object. Stale objects have
// metadata but are no longer in the schema.
type ObjectSummary struct {
	Name             string            `json:"name" yaml:"name"`
	Kind             schema.ObjectKind `json:"kind" yaml:"kind"`
	Stale            bool              `json:"stale" yaml:"stale"`
	HasDescription   bool              `json:"has_description" yaml:"has_description"`
	TotalColumns     int               `json:"total_columns" yaml:"total_columns"`
	DescribedColumns int               `json:"described_columns" yaml:"described_columns"`
	NotedColumns     int               `json:"noted_columns" yaml:"noted_columns"`
	DescribedPercent int               `json:"described_percent" yaml:"described_percent"`
	NotedPercent     int               `json:"noted_percent" yaml:"noted_percent"`
	OrphanColumns    []string          `json:"orphan_columns,omitempty" yaml:"orphan_columns,omitempty"`
	RowCount         *int64            `json:"row_count,omitempty" yaml:"row_count,omitempty"`
	RowCountAt       *time.Time        `json:"row_count_at,omitempty" yaml:"row_count_at,omitempty"`
}

// Summary is the completeness of the whole database
type Summary struct {
	Objects           []ObjectSummary `json:"objects" yaml:"objects"`
	TotalObjects      int             `json:"total_objects" yaml:"total_objects"`
	DescribedObjects  int             `json:"described_objects" yaml:"described_objects"`
	StaleObjects      int             `json:"stale_objects" yaml:"stale_objects"`
	TotalColumns      int             `json:"total_columns" yaml:"total_columns"`
	DescribedColumns  int             `json:"described_columns" yaml:"described_columns"`
	NotedColumns      int             `json:"noted_columns" yaml:"noted_columns"`
	DescribedPercent  int             `json:"described_percent" yaml:"described_percent"`
	NotedPercent      int             `json:"noted_percent" yaml:"noted_percent"`
	LastFullRecompute *time.Time      `json:"last_full_recompute,omitempty" yaml:"last_full_recompute,omitempty"`
}

// Percent returns part/total as a rounded percentage, 0 when total is 0
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	p := int(math.Round(100 * float64(part) / float64(total)))
	return min(max(p, 0), 100)
}

// EffectiveKind is the schema kind, or the reclassified kind for objects
// the schema files under UNKNOWN.
func EffectiveKind(obj schema.Object, entry metadata.Entry) schema.ObjectKind {
	if obj.Kind == schema.KindUnknown && entry.Kind != "" {
		return entry.Kind
	}
	return obj.Kind
}

// Summarize reports every object present in the schema or the store.
// counts may be nil.
func Summarize(s *schema.Schema, store *metadata.Store, counts RowCounts) Summary {
	names := make(map[string]bool)
	for _, name := range s.Names() {
		names[name] = true
	}
	for _, name := range store.Names() {
		names[name] = true
	}

	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	var sum Summary
	for _, name := range sorted {
		o := summarizeObject(s, store, counts, name)
		sum.Objects = append(sum.Objects, o)

		sum.TotalObjects++
		if o.HasDescription {
			sum.DescribedObjects++
		}
		if o.Stale {
			sum.StaleObjects++
		}
		sum.TotalColumns += o.TotalColumns
		sum.DescribedColumns += o.DescribedColumns
		sum.NotedColumns += o.NotedColumns
	}

	sum.DescribedPercent = Percent(sum.DescribedColumns, sum.TotalColumns)
	sum.NotedPercent = Percent(sum.NotedColumns, sum.TotalColumns)

	if counts != nil {
		if t, ok := counts.LastRun(rowcount.FullRecompute); ok {
			sum.LastFullRecompute = &t
		}
	}
	return sum
}

func summarizeObject(s *schema.Schema, store *metadata.Store, counts RowCounts, name string) ObjectSummary {
	entry := store.Get(name)
	obj, inSchema := s.Lookup(name)

	o := ObjectSummary{
		Name:           name,
		Stale:          !inSchema,
		HasDescription: entry.Description != "",
		TotalColumns:   len(obj.Columns),
	}

	if inSchema {
		o.Kind = EffectiveKind(obj, entry)
	} else {
		o.Kind = entry.Kind
	}

	for colName, meta := range entry.Columns {
		if !obj.HasColumn(colName) {
			if meta.Description != "" || meta.Notes != "" {
				o.OrphanColumns = append(o.OrphanColumns, colName)
			}
			continue
		}
		if meta.Description != "" {
			o.DescribedColumns++
		}
		if meta.Notes != "" {
			o.NotedColumns++
		}
	}
	sort.Strings(o.OrphanColumns)

	o.DescribedPercent = Percent(o.DescribedColumns, o.TotalColumns)
	o.NotedPercent = Percent(o.NotedColumns, o.TotalColumns)

	if counts != nil {
		if rec, ok := counts.Get(name); ok {
			n, at := rec.Count, rec.MeasuredAt
			o.RowCount = &n
			o.RowCountAt = &at
		}
	}
	return o
}
