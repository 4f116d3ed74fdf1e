package formatter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tordrt/schemadoc/internal/overview"
)

const (
	formatMarkdown = "markdown"
	formatText     = "text"
)

// MultiFileFormatter writes the annotated schema to a directory: an overview
// file plus one file per object.
type MultiFileFormatter struct {
	OutputDir    string
	OutputFormat string // "text" or "markdown"
}

// NewMultiFileFormatter creates a new multi-file formatter
func NewMultiFileFormatter(outputDir, format string) *MultiFileFormatter {
	return &MultiFileFormatter{
		OutputDir:    outputDir,
		OutputFormat: format,
	}
}

// Format writes the overview and every object file
func (f *MultiFileFormatter) Format(doc Document) error {
	if f.OutputFormat != formatMarkdown && f.OutputFormat != formatText {
		return fmt.Errorf("unsupported format %q", f.OutputFormat)
	}
	if err := os.MkdirAll(f.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := f.writeFile("_overview", func(w io.Writer) error {
		return f.writeOverview(w, doc)
	}); err != nil {
		return fmt.Errorf("failed to write overview: %w", err)
	}

	for _, name := range doc.Schema.Names() {
		if err := f.writeFile(name, func(w io.Writer) error {
			if f.OutputFormat == formatMarkdown {
				return NewMarkdownFormatter(w).FormatObject(doc, name)
			}
			return NewTextFormatter(w).FormatObject(doc, name)
		}); err != nil {
			return fmt.Errorf("failed to write file for %s: %w", name, err)
		}
	}
	return nil
}

func (f *MultiFileFormatter) writeOverview(w io.Writer, doc Document) error {
	sum := overview.Summarize(doc.Schema, doc.Metadata, doc.RowCounts)
	ext := f.getFileExtension()

	if f.OutputFormat == formatMarkdown {
		_, _ = fmt.Fprintf(w, "Each object has a corresponding file: `<object_name>%s`\n\n", ext)
		if gc := doc.Metadata.GlobalContext(); gc != "" {
			_, _ = fmt.Fprintf(w, "%s\n\n", gc)
		}
		return NewMarkdownFormatter(w).FormatOverview(sum)
	}

	_, _ = fmt.Fprintf(w, "Each object has a file: <object_name>%s\n\n", ext)
	if gc := doc.Metadata.GlobalContext(); gc != "" {
		_, _ = fmt.Fprintf(w, "CONTEXT: %s\n\n", singleLine(gc))
	}
	return NewTextFormatter(w).FormatOverview(sum)
}

func (f *MultiFileFormatter) writeFile(name string, render func(w io.Writer) error) error {
	file, err := os.Create(filepath.Join(f.OutputDir, fileName(name)+f.getFileExtension()))
	if err != nil {
		return err
	}
	if err := render(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// fileName keeps object names usable as file names
func fileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}

func (f *MultiFileFormatter) getFileExtension() string {
	if f.OutputFormat == formatMarkdown {
		return ".md"
	}
	return ".txt"
}
