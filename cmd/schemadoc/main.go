package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tordrt/schemadoc/internal/config"
	"github.com/tordrt/schemadoc/internal/db"
	"github.com/tordrt/schemadoc/internal/llm"
	"github.com/tordrt/schemadoc/internal/logging"
	"github.com/tordrt/schemadoc/internal/schema"
	"github.com/tordrt/schemadoc/internal/session"
)

var (
	configPath    string
	schemaPath    string
	metadataPath  string
	rowCountsPath string
	runsPath      string
	dbURL         string
	dbSchema      string
	logLevel      string
)

var rootCmd = &cobra.Command{
	Use:   "schemadoc",
	Short: "Document database schemas with business metadata",
	Long: `schemadoc keeps a business metadata overlay (descriptions, value mapping notes,
reclassifications) alongside an extracted technical schema, suggests descriptions
from already documented columns or an AI model, and tracks row counts and
documentation completeness.`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Config file (default: schemadoc.yaml if present)")
	pf.StringVar(&schemaPath, "schema", "", "Technical schema document")
	pf.StringVar(&metadataPath, "metadata", "", "Metadata document")
	pf.StringVar(&rowCountsPath, "row-counts", "", "Row-count cache document")
	pf.StringVar(&runsPath, "runs", "", "Run timestamp document")
	pf.StringVar(&dbURL, "db-url", "", "Database URL (postgres://, mysql://, sqlite://, sqlserver://)")
	pf.StringVar(&dbSchema, "db-schema", "", "Database schema name (default: public, dbo or the MySQL database)")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
}

// app carries what every command needs
type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

func loadApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg)

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger}, nil
}

// withApp loads configuration and logging before running a command
func withApp(run func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.logger.Sync() }()
		return run(cmd, args, a)
	}
}

// applyOverrides lets command-line flags win over file and environment
func applyOverrides(cfg *config.Config) {
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&cfg.Files.Schema, schemaPath)
	override(&cfg.Files.Metadata, metadataPath)
	override(&cfg.Files.RowCounts, rowCountsPath)
	override(&cfg.Files.Runs, runsPath)
	override(&cfg.Database.URL, dbURL)
	override(&cfg.Database.Schema, dbSchema)
	override(&cfg.Log.Level, logLevel)
}

func (a *app) paths() session.Paths {
	return session.Paths{
		Schema:    a.cfg.Files.Schema,
		Metadata:  a.cfg.Files.Metadata,
		RowCounts: a.cfg.Files.RowCounts,
		Runs:      a.cfg.Files.Runs,
	}
}

type sessionNeeds struct {
	source   bool
	provider bool
}

// openSession starts an annotation session with the collaborators the
// command needs. The returned cleanup closes the database connection.
func (a *app) openSession(ctx context.Context, needs sessionNeeds) (*session.Controller, func(), error) {
	var opts []session.Option
	cleanup := func() {}

	if needs.source {
		if a.cfg.Database.URL == "" {
			return nil, nil, fmt.Errorf("%w: set --db-url or SCHEMADOC_DATABASE_URL", session.ErrNoSource)
		}
		src, err := db.Open(ctx, a.cfg.Database.URL, a.cfg.Database.Schema)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, session.WithSource(src))
		cleanup = func() {
			if err := src.Close(); err != nil {
				a.logger.Warn("Failed to close database connection", zap.Error(err))
			}
		}
	}

	if needs.provider {
		p, err := llm.New(llm.Config{
			Provider:   a.cfg.AI.Provider,
			BaseURL:    a.cfg.AI.BaseURL,
			Model:      a.cfg.AI.Model,
			APIKey:     a.cfg.AI.APIKey,
			Language:   a.cfg.AI.Language,
			Timeout:    a.cfg.AI.Timeout,
			MaxRetries: a.cfg.AI.MaxRetries,
		}, a.logger)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		opts = append(opts, session.WithProvider(p, a.cfg.AI.MaxConcurrent))
	}

	ctrl, err := session.Open(a.paths(), a.logger, opts...)
	if err != nil {
		cleanup()
		return nil, nil, explainMissingSchema(err)
	}
	return ctrl, cleanup, nil
}

func explainMissingSchema(err error) error {
	var le *schema.LoadError
	if errors.As(err, &le) && errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w (run schemadoc extract first)", err)
	}
	return err
}

// commit saves pending edits and closes the session
func commit(ctrl *session.Controller) error {
	if err := ctrl.Save(); err != nil {
		return fmt.Errorf("edits were not saved: %w", err)
	}
	return ctrl.Close()
}

func parseTableList(tablesStr string) []string {
	if tablesStr == "" {
		return nil
	}
	var tableList []string
	for _, t := range strings.Split(tablesStr, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tableList = append(tableList, t)
		}
	}
	return tableList
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
