package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tordrt/schemadoc/internal/schema"
	"github.com/tordrt/schemadoc/internal/session"
	"github.com/tordrt/schemadoc/internal/suggest"
)

var (
	describeText  string
	describeNotes string
	contextText   string
	suggestApply  bool
	aiObjectDesc  bool
	aiApply       bool
	pruneApply    bool
)

var describeCmd = &cobra.Command{
	Use:   "describe <object> [column]",
	Short: "Show or edit the description of an object or column",
	Long: `Without --text or --notes the current metadata is printed. --text replaces the
description (an empty value clears it) and marks it as written by a human.
--notes sets the value mapping notes of a column.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: withApp(runDescribe),
}

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Show or set the global context of the database",
	Args:  cobra.NoArgs,
	RunE:  withApp(runContext),
}

var reclassifyCmd = &cobra.Command{
	Use:   "reclassify <object> <TABLE|VIEW>",
	Short: "File an object extracted as UNKNOWN under its real kind",
	Args:  cobra.ExactArgs(2),
	RunE:  withApp(runReclassify),
}

var suggestCmd = &cobra.Command{
	Use:   "suggest <object> [columns...]",
	Short: "Suggest column descriptions from same-named documented columns",
	Long: `Looks up columns with the same name in other objects that already have a
human or AI description. Without columns every undescribed column is checked.
--apply fills the empty descriptions and marks them as heuristic.`,
	Args: cobra.MinimumNArgs(1),
	RunE: withApp(runSuggest),
}

var aiSuggestCmd = &cobra.Command{
	Use:   "ai-suggest <object> [columns...]",
	Short: "Ask the configured AI model for descriptions",
	Long: `Requests descriptions for the given columns, or for every undescribed column,
and optionally for the object itself. Unavailable suggestions are reported and
skipped. --apply fills empty descriptions and marks them as AI generated.`,
	Args: cobra.MinimumNArgs(1),
	RunE: withApp(runAISuggest),
}

var importDraftCmd = &cobra.Command{
	Use:   "import-draft <file>",
	Short: "Merge an AI-generated draft document into the metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runImportDraft),
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove metadata and row counts of objects no longer in the schema",
	Args:  cobra.NoArgs,
	RunE:  withApp(runPrune),
}

func init() {
	describeCmd.Flags().StringVar(&describeText, "text", "", "New description")
	describeCmd.Flags().StringVar(&describeNotes, "notes", "", "New value mapping notes (columns only)")
	contextCmd.Flags().StringVar(&contextText, "set", "", "New global context")
	suggestCmd.Flags().BoolVar(&suggestApply, "apply", false, "Fill empty descriptions with the suggestions")
	aiSuggestCmd.Flags().BoolVar(&aiObjectDesc, "object-description", false, "Also suggest the object description")
	aiSuggestCmd.Flags().BoolVar(&aiApply, "apply", false, "Fill empty descriptions with the suggestions")
	pruneCmd.Flags().BoolVar(&pruneApply, "apply", false, "Remove the stale data (default: only list it)")

	rootCmd.AddCommand(describeCmd, contextCmd, reclassifyCmd, suggestCmd, aiSuggestCmd, importDraftCmd, pruneCmd)
}

func runDescribe(cmd *cobra.Command, args []string, a *app) error {
	ctrl, cleanup, err := a.openSession(cmd.Context(), sessionNeeds{})
	if err != nil {
		return err
	}
	defer cleanup()

	object := args[0]
	setText := cmd.Flags().Changed("text")
	setNotes := cmd.Flags().Changed("notes")
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		if setNotes {
			return fmt.Errorf("--notes applies to columns only")
		}
		if !setText {
			if _, ok := ctrl.Schema().Lookup(object); !ok {
				return fmt.Errorf("%w: %s", session.ErrUnknownObject, object)
			}
			entry := ctrl.Entry(object)
			_, _ = fmt.Fprintln(out, labelled(entry.Description, string(entry.DescriptionProvenance)))
			return nil
		}
		if err := ctrl.SetObjectDescription(object, describeText); err != nil {
			return err
		}
		return commit(ctrl)
	}

	column := args[1]
	if !setText && !setNotes {
		s, hasSuggestion, err := ctrl.SuggestHeuristic(object, column)
		if err != nil {
			return err
		}
		meta := ctrl.Entry(object).Column(column)
		_, _ = fmt.Fprintf(out, "description: %s\n", labelled(meta.Description, string(meta.Provenance)))
		_, _ = fmt.Fprintf(out, "notes: %s\n", meta.Notes)
		if hasSuggestion {
			_, _ = fmt.Fprintf(out, "suggestion: %s (from %s)\n", s.Text, s.SourceObject)
		}
		return nil
	}

	if setText {
		if err := ctrl.SetColumnDescription(object, column, describeText); err != nil {
			return err
		}
	}
	if setNotes {
		if err := ctrl.SetColumnNotes(object, column, describeNotes); err != nil {
			return err
		}
	}
	return commit(ctrl)
}

func labelled(text, provenance string) string {
	if text == "" || provenance == "" {
		return text
	}
	return fmt.Sprintf("%s [%s]", text, provenance)
}

func runContext(cmd *cobra.Command, _ []string, a *app) error {
	ctrl, cleanup, err := a.openSession(cmd.Context(), sessionNeeds{})
	if err != nil {
		return err
	}
	defer cleanup()

	if !cmd.Flags().Changed("set") {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), ctrl.GlobalContext())
		return nil
	}
	ctrl.SetGlobalContext(contextText)
	return commit(ctrl)
}

func runReclassify(cmd *cobra.Command, args []string, a *app) error {
	kind, err := schema.ParseKind(args[1])
	if err != nil {
		return err
	}

	ctrl, cleanup, err := a.openSession(cmd.Context(), sessionNeeds{})
	if err != nil {
		return err
	}
	defer cleanup()

	if err := ctrl.Reclassify(args[0], kind); err != nil {
		return err
	}
	return commit(ctrl)
}

func runSuggest(cmd *cobra.Command, args []string, a *app) error {
	ctrl, cleanup, err := a.openSession(cmd.Context(), sessionNeeds{})
	if err != nil {
		return err
	}
	defer cleanup()

	object := args[0]
	columns := args[1:]
	if len(columns) == 0 {
		if columns, err = ctrl.EmptyColumns(object); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	found := 0
	for _, col := range columns {
		var (
			s       suggest.Suggestion
			ok      bool
			callErr error
		)
		if suggestApply {
			s, ok, callErr = ctrl.ApplyHeuristic(object, col)
		} else {
			s, ok, callErr = ctrl.SuggestHeuristic(object, col)
		}
		if callErr != nil {
			return callErr
		}
		if !ok {
			continue
		}
		found++
		_, _ = fmt.Fprintf(out, "%s: %s (from %s)\n", col, s.Text, s.SourceObject)
	}

	if found == 0 {
		_, _ = fmt.Fprintln(out, "No suggestions")
	}
	if !suggestApply {
		return nil
	}
	return commit(ctrl)
}

func runAISuggest(cmd *cobra.Command, args []string, a *app) error {
	ctrl, cleanup, err := a.openSession(cmd.Context(), sessionNeeds{provider: true})
	if err != nil {
		return err
	}
	defer cleanup()

	object := args[0]
	columns := args[1:]
	if len(columns) == 0 {
		if columns, err = ctrl.EmptyColumns(object); err != nil {
			return err
		}
	}

	results, err := ctrl.SuggestAI(cmd.Context(), object, columns, aiObjectDesc)
	if err != nil && results == nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, r := range results {
		target := r.Column
		if target == "" {
			target = "(object)"
		}
		if r.Err != nil {
			_, _ = fmt.Fprintf(out, "%s: unavailable: %v\n", target, r.Err)
			continue
		}
		_, _ = fmt.Fprintf(out, "%s: %s\n", target, r.Text)
	}
	if err != nil {
		return err
	}

	if !aiApply {
		return nil
	}
	applied, err := ctrl.ApplyAI(object, results)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Applied %d suggestions\n", applied)
	return commit(ctrl)
}

func runImportDraft(cmd *cobra.Command, args []string, a *app) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	ctrl, cleanup, err := a.openSession(cmd.Context(), sessionNeeds{})
	if err != nil {
		return err
	}
	defer cleanup()

	stats, err := ctrl.ImportDraft(f)
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", args[0], err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d descriptions and %d notes for %d objects (%d skipped)\n",
		stats.Descriptions, stats.Notes, stats.Objects, stats.Skipped)
	return commit(ctrl)
}

func runPrune(cmd *cobra.Command, _ []string, a *app) error {
	ctrl, cleanup, err := a.openSession(cmd.Context(), sessionNeeds{})
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := ctrl.Prune(pruneApply)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	verb := "Would remove"
	if pruneApply {
		verb = "Removed"
	}
	printNames := func(what string, names []string) {
		sort.Strings(names)
		for _, name := range names {
			_, _ = fmt.Fprintf(out, "%s %s of %s\n", verb, what, name)
		}
	}
	printNames("metadata", report.Metadata)
	printNames("row count", report.RowCounts)
	if len(report.Metadata) == 0 && len(report.RowCounts) == 0 {
		_, _ = fmt.Fprintln(out, "Nothing stale")
	}

	if !pruneApply {
		return nil
	}
	return commit(ctrl)
}
