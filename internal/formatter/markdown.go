package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/schemadoc/internal/overview"
	"github.com/tordrt/schemadoc/internal/schema"
)

// MarkdownFormatter formats the annotated schema as markdown
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// Format writes the whole annotated schema
func (f *MarkdownFormatter) Format(doc Document) error {
	_, _ = fmt.Fprintln(f.writer, "# Database Schema")
	_, _ = fmt.Fprintln(f.writer)

	if gc := doc.Metadata.GlobalContext(); gc != "" {
		_, _ = fmt.Fprintln(f.writer, gc)
		_, _ = fmt.Fprintln(f.writer)
	}

	for _, name := range doc.Schema.Names() {
		if err := f.FormatObject(doc, name); err != nil {
			return err
		}
	}
	return nil
}

// FormatObject writes one object (exported for use by multifile formatter)
func (f *MarkdownFormatter) FormatObject(doc Document, name string) error {
	obj, entry, err := doc.object(name)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(f.writer, "## %s (%s)\n\n", obj.Name, overview.EffectiveKind(obj, entry))

	if entry.Description != "" {
		_, _ = fmt.Fprintf(f.writer, "%s\n\n", tagged(entry.Description, entry.DescriptionProvenance, "_(", ")_"))
	}
	if rows := doc.rowCount(name); rows != "" {
		_, _ = fmt.Fprintf(f.writer, "Rows: %s\n\n", rows)
	}

	_, _ = fmt.Fprintln(f.writer, "### Columns")
	_, _ = fmt.Fprintln(f.writer)
	for _, col := range obj.Columns {
		meta := entry.Column(col.Name)

		def := col.Type
		if c := constraints(col, obj); len(c) > 0 {
			def += ", " + strings.Join(c, ", ")
		}
		_, _ = fmt.Fprintf(f.writer, "- **%s:** %s\n", col.Name, def)

		if meta.Description != "" {
			_, _ = fmt.Fprintf(f.writer, "  - %s\n", tagged(singleLine(meta.Description), meta.Provenance, "_(", ")_"))
		}
		if meta.Notes != "" {
			_, _ = fmt.Fprintf(f.writer, "  - Values: %s\n", singleLine(meta.Notes))
		}
	}
	_, _ = fmt.Fprintln(f.writer)

	if len(obj.Relations) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### References")
		_, _ = fmt.Fprintln(f.writer)
		for _, rel := range obj.Relations {
			_, _ = fmt.Fprintf(f.writer, "- %s → %s\n", rel.SourceColumn, target(rel))
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	if incoming := doc.Schema.ReferencedBy(name); len(incoming) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### Referenced by")
		_, _ = fmt.Fprintln(f.writer)
		for _, rel := range incoming {
			_, _ = fmt.Fprintf(f.writer, "- %s.%s → %s\n", rel.SourceTable, rel.SourceColumn, rel.TargetColumn)
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	return nil
}

// FormatOverview writes the completeness report as a markdown table
func (f *MarkdownFormatter) FormatOverview(sum overview.Summary) error {
	_, _ = fmt.Fprintln(f.writer, "# Documentation Overview")
	_, _ = fmt.Fprintln(f.writer)
	_, _ = fmt.Fprintf(f.writer, "- Objects described: %d of %d\n", sum.DescribedObjects, sum.TotalObjects)
	_, _ = fmt.Fprintf(f.writer, "- Columns described: %d of %d (%d%%)\n", sum.DescribedColumns, sum.TotalColumns, sum.DescribedPercent)
	_, _ = fmt.Fprintf(f.writer, "- Columns with value notes: %d of %d (%d%%)\n", sum.NotedColumns, sum.TotalColumns, sum.NotedPercent)
	if sum.StaleObjects > 0 {
		_, _ = fmt.Fprintf(f.writer, "- Stale objects: %d\n", sum.StaleObjects)
	}
	_, _ = fmt.Fprintf(f.writer, "- Last full row count: %s\n\n", lastRun(sum))

	_, _ = fmt.Fprintln(f.writer, "| Object | Kind | Description | Described | Notes | Rows |")
	_, _ = fmt.Fprintln(f.writer, "|---|---|---|---|---|---|")
	for _, o := range sum.Objects {
		name := o.Name
		if o.Stale {
			name += " (stale)"
		}
		described := "no"
		if o.HasDescription {
			described = "yes"
		}
		_, _ = fmt.Fprintf(f.writer, "| %s | %s | %s | %d/%d (%d%%) | %d/%d (%d%%) | %s |\n",
			name, o.Kind, described,
			o.DescribedColumns, o.TotalColumns, o.DescribedPercent,
			o.NotedColumns, o.TotalColumns, o.NotedPercent,
			rowCountCell(o))
	}
	return nil
}

func target(rel schema.Relation) string {
	if rel.TargetColumn == "" {
		return rel.TargetTable
	}
	return rel.TargetTable + "." + rel.TargetColumn
}
