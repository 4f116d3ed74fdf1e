package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tordrt/schemadoc"
	"github.com/tordrt/schemadoc/internal/schema"
)

var (
	extractTables  string
	extractExclude string
	extractOutput  string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract the technical schema from a live database",
	Long: `Connects to the database and writes the technical schema document (tables and
views with columns, primary keys and foreign keys). Metadata is never touched, so
re-extracting after schema changes keeps every description.`,
	Args: cobra.NoArgs,
	RunE: withApp(runExtract),
}

func init() {
	extractCmd.Flags().StringVarP(&extractTables, "tables", "t", "", "Specific tables (comma-separated, optional)")
	extractCmd.Flags().StringVar(&extractExclude, "exclude", "", "Tables to leave out (comma-separated)")
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "Output file, - for stdout (default: the configured schema path)")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, _ []string, a *app) error {
	if a.cfg.Database.URL == "" {
		return fmt.Errorf("a database URL is required: set --db-url or SCHEMADOC_DATABASE_URL")
	}

	opts := &schemadoc.Options{
		Tables:        parseTableList(extractTables),
		ExcludeTables: parseTableList(extractExclude),
		SchemaName:    a.cfg.Database.Schema,
	}

	if extractOutput == "-" {
		s, err := schemadoc.ExtractSchema(cmd.Context(), a.cfg.Database.URL, opts)
		if err != nil {
			return err
		}
		return schema.Write(cmd.OutOrStdout(), s)
	}

	output := extractOutput
	if output == "" {
		output = a.cfg.Files.Schema
	}
	if err := schemadoc.ExtractToFile(cmd.Context(), a.cfg.Database.URL, opts, output); err != nil {
		return err
	}

	a.logger.Info("Schema extracted", zap.String("path", output))
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Schema written to %s\n", output)
	return nil
}
