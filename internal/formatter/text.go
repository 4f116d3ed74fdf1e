package formatter

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/tordrt/schemadoc/internal/overview"
)

// TextFormatter formats the annotated schema as compact text
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// Format writes every object, separated by blank lines
func (f *TextFormatter) Format(doc Document) error {
	if gc := doc.Metadata.GlobalContext(); gc != "" {
		_, _ = fmt.Fprintf(f.writer, "CONTEXT: %s\n\n", singleLine(gc))
	}
	for i, name := range doc.Schema.Names() {
		if i > 0 {
			_, _ = fmt.Fprintln(f.writer)
		}
		if err := f.FormatObject(doc, name); err != nil {
			return err
		}
	}
	return nil
}

// FormatObject writes one object with its descriptions and notes
func (f *TextFormatter) FormatObject(doc Document, name string) error {
	obj, entry, err := doc.object(name)
	if err != nil {
		return err
	}

	pkStr := ""
	if len(obj.PrimaryKey) > 0 {
		pkStr = fmt.Sprintf(" (PK: %s)", strings.Join(obj.PrimaryKey, ", "))
	}
	_, _ = fmt.Fprintf(f.writer, "%s %s%s\n", overview.EffectiveKind(obj, entry), obj.Name, pkStr)

	if entry.Description != "" {
		_, _ = fmt.Fprintf(f.writer, "  %s\n", tagged(singleLine(entry.Description), entry.DescriptionProvenance, "[", "]"))
	}
	if rows := doc.rowCount(name); rows != "" {
		_, _ = fmt.Fprintf(f.writer, "  ROWS: %s\n", rows)
	}

	for _, col := range obj.Columns {
		parts := append([]string{col.Name + ":", col.Type}, constraints(col, obj)...)
		_, _ = fmt.Fprintf(f.writer, "  %s\n", strings.Join(parts, " "))

		meta := entry.Column(col.Name)
		if meta.Description != "" {
			_, _ = fmt.Fprintf(f.writer, "    %s\n", tagged(singleLine(meta.Description), meta.Provenance, "[", "]"))
		}
		if meta.Notes != "" {
			_, _ = fmt.Fprintf(f.writer, "    values: %s\n", singleLine(meta.Notes))
		}
	}

	if len(obj.Relations) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  RELATIONS:")
		for _, rel := range obj.Relations {
			_, _ = fmt.Fprintf(f.writer, "    %s → %s\n", rel.SourceColumn, target(rel))
		}
	}

	if incoming := doc.Schema.ReferencedBy(name); len(incoming) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  REFERENCED BY:")
		for _, rel := range incoming {
			_, _ = fmt.Fprintf(f.writer, "    %s.%s → %s\n", rel.SourceTable, rel.SourceColumn, rel.TargetColumn)
		}
	}

	return nil
}

// FormatOverview writes the completeness report as an aligned table
func (f *TextFormatter) FormatOverview(sum overview.Summary) error {
	_, _ = fmt.Fprintf(f.writer, "Objects described: %d/%d\n", sum.DescribedObjects, sum.TotalObjects)
	_, _ = fmt.Fprintf(f.writer, "Columns described: %d/%d (%d%%)\n", sum.DescribedColumns, sum.TotalColumns, sum.DescribedPercent)
	_, _ = fmt.Fprintf(f.writer, "Columns with notes: %d/%d (%d%%)\n", sum.NotedColumns, sum.TotalColumns, sum.NotedPercent)
	if sum.StaleObjects > 0 {
		_, _ = fmt.Fprintf(f.writer, "Stale objects: %d (run prune to remove)\n", sum.StaleObjects)
	}
	_, _ = fmt.Fprintf(f.writer, "Last full row count: %s\n\n", lastRun(sum))

	tw := tabwriter.NewWriter(f.writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "OBJECT\tKIND\tDESC\tCOLUMNS\tNOTES\tROWS\t")
	for _, o := range sum.Objects {
		name := o.Name
		if o.Stale {
			name += " (stale)"
		}
		desc := "-"
		if o.HasDescription {
			desc = "yes"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d %d%%\t%d/%d %d%%\t%s\t\n",
			name, o.Kind, desc,
			o.DescribedColumns, o.TotalColumns, o.DescribedPercent,
			o.NotedColumns, o.TotalColumns, o.NotedPercent,
			rowCountCell(o))
	}
	return tw.Flush()
}
