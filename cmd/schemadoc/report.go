package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tordrt/schemadoc/internal/db"
	"github.com/tordrt/schemadoc/internal/formatter"
	"github.com/tordrt/schemadoc/internal/metadata"
	"github.com/tordrt/schemadoc/internal/overview"
	"github.com/tordrt/schemadoc/internal/rowcount"
	"github.com/tordrt/schemadoc/internal/schema"
)

var (
	overviewFormat string
	staleOnly      bool
	docsOutput     string
	docsDir        string
	docsFormat     string
	sampleLimit    int
)

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Report documentation completeness per object",
	Args:  cobra.NoArgs,
	RunE:  withApp(runOverview),
}

var showCmd = &cobra.Command{
	Use:   "show <object>",
	Short: "Print an object with its descriptions, notes, keys and row count",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runShow),
}

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Export the annotated schema as documentation",
	Long: `Writes the annotated schema to stdout, to a single file (-o) or to a directory
(-d) holding _overview plus one file per object. Heuristic and AI generated text
is tagged so readers can tell it from reviewed text.`,
	Args: cobra.NoArgs,
	RunE: withApp(runDocs),
}

var sampleCmd = &cobra.Command{
	Use:   "sample <object>",
	Short: "Show a few rows of an object",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runSample),
}

var recountCmd = &cobra.Command{
	Use:   "recount [objects...]",
	Short: "Recompute cached row counts",
	Long: `Without arguments every object in the schema is counted and, when all counts
succeed, the full recompute timestamp is recorded. With arguments only those
objects are counted. Each count is saved as soon as it completes; interrupting
stops before the next object.`,
	RunE: withApp(runRecount),
}

func init() {
	overviewCmd.Flags().StringVarP(&overviewFormat, "format", "f", "text", "Output format: text, markdown, json or yaml")
	overviewCmd.Flags().BoolVar(&staleOnly, "stale-only", false, "Only list objects missing from the schema")
	docsCmd.Flags().StringVarP(&docsOutput, "output", "o", "", "Output file (default: stdout)")
	docsCmd.Flags().StringVarP(&docsDir, "output-dir", "d", "", "Output directory for multi-file output")
	docsCmd.Flags().StringVarP(&docsFormat, "format", "f", "markdown", "Output format: text or markdown")
	sampleCmd.Flags().IntVarP(&sampleLimit, "limit", "n", db.DefaultSampleLimit, "Number of rows")

	rootCmd.AddCommand(overviewCmd, showCmd, docsCmd, sampleCmd, recountCmd)
}

func runOverview(cmd *cobra.Command, _ []string, a *app) error {
	ctrl, cleanup, err := a.openSession(cmd.Context(), sessionNeeds{})
	if err != nil {
		return err
	}
	defer cleanup()

	sum := ctrl.Overview()
	if staleOnly {
		sum = filterStale(sum)
	}
	return writeOverview(cmd.OutOrStdout(), sum, overviewFormat)
}

// filterStale keeps stale objects only; totals still describe the whole schema
func filterStale(sum overview.Summary) overview.Summary {
	var stale []overview.ObjectSummary
	for _, o := range sum.Objects {
		if o.Stale {
			stale = append(stale, o)
		}
	}
	sum.Objects = stale
	return sum
}

func writeOverview(w io.Writer, sum overview.Summary, format string) error {
	switch format {
	case "text":
		return formatter.NewTextFormatter(w).FormatOverview(sum)
	case "markdown":
		return formatter.NewMarkdownFormatter(w).FormatOverview(sum)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(sum); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("invalid format: %s (must be text, markdown, json or yaml)", format)
	}
}

// loadDocument reads the annotated schema without starting a session
func (a *app) loadDocument() (formatter.Document, error) {
	s, err := schema.Load(a.cfg.Files.Schema)
	if err != nil {
		return formatter.Document{}, explainMissingSchema(err)
	}
	store, err := metadata.Load(a.cfg.Files.Metadata)
	if err != nil {
		return formatter.Document{}, err
	}
	counts, err := rowcount.Open(a.cfg.Files.RowCounts, a.cfg.Files.Runs, a.logger)
	if err != nil {
		return formatter.Document{}, err
	}
	return formatter.Document{Schema: s, Metadata: store, RowCounts: counts}, nil
}

func runShow(cmd *cobra.Command, args []string, a *app) error {
	doc, err := a.loadDocument()
	if err != nil {
		return err
	}

	err = formatter.NewTextFormatter(cmd.OutOrStdout()).FormatObject(doc, args[0])
	if errors.Is(err, schema.ErrNotFound) && doc.Metadata.Has(args[0]) {
		return fmt.Errorf("%w; metadata for it is stale (see schemadoc prune)", err)
	}
	return err
}

func runDocs(cmd *cobra.Command, _ []string, a *app) error {
	if docsDir != "" && docsOutput != "" {
		return fmt.Errorf("cannot use both --output-dir and --output flags")
	}
	if docsFormat != "text" && docsFormat != "markdown" {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'markdown')", docsFormat)
	}

	doc, err := a.loadDocument()
	if err != nil {
		return err
	}

	if docsDir != "" {
		if err := formatter.NewMultiFileFormatter(docsDir, docsFormat).Format(doc); err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		return nil
	}

	writer := cmd.OutOrStdout()
	if docsOutput != "" {
		f, err := os.Create(docsOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "warning: failed to close output file: %v\n", err)
			}
		}()
		writer = f
	}

	if docsFormat == "markdown" {
		err = formatter.NewMarkdownFormatter(writer).Format(doc)
	} else {
		err = formatter.NewTextFormatter(writer).Format(doc)
	}
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	return nil
}

func runSample(cmd *cobra.Command, args []string, a *app) error {
	ctrl, cleanup, err := a.openSession(cmd.Context(), sessionNeeds{source: true})
	if err != nil {
		return err
	}
	defer cleanup()

	sample, err := ctrl.SampleRows(cmd.Context(), args[0], sampleLimit)
	if err != nil {
		return err
	}
	return writeSample(cmd.OutOrStdout(), sample)
}

func writeSample(w io.Writer, sample *db.Sample) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, strings.Join(sample.Columns, "\t"))
	for _, row := range sample.Rows {
		_, _ = fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(sample.Rows))
	return nil
}

func runRecount(cmd *cobra.Command, args []string, a *app) error {
	ctrl, cleanup, err := a.openSession(cmd.Context(), sessionNeeds{source: true})
	if err != nil {
		return err
	}
	defer cleanup()

	if len(args) == 1 {
		rec, err := ctrl.RecomputeRowCount(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", args[0], rec.Count)
		return nil
	}

	var result rowcount.BatchResult
	if len(args) == 0 {
		result, err = ctrl.RecomputeAllRowCounts(cmd.Context())
	} else {
		result, err = ctrl.RecomputeRowCounts(cmd.Context(), args)
	}

	out := cmd.OutOrStdout()
	for _, o := range result.Outcomes {
		if o.Err != nil {
			_, _ = fmt.Fprintf(out, "%s: failed: %v\n", o.Object, o.Err)
			continue
		}
		_, _ = fmt.Fprintf(out, "%s: %d\n", o.Object, o.Record.Count)
	}
	_, _ = fmt.Fprintf(out, "%d counted, %d failed\n", result.Succeeded, result.Failed)
	if result.Cancelled {
		_, _ = fmt.Fprintln(out, "Interrupted; remaining objects keep their previous counts")
	}

	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d row counts failed", result.Failed)
	}
	return nil
}
