// Package session mediates every read-modify-persist cycle over the metadata
// overlay and the row-count cache. It is the only writer of either.
package session

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tordrt/schemadoc/internal/db"
	"github.com/tordrt/schemadoc/internal/llm"
	"github.com/tordrt/schemadoc/internal/metadata"
	"github.com/tordrt/schemadoc/internal/overview"
	"github.com/tordrt/schemadoc/internal/rowcount"
	"github.com/tordrt/schemadoc/internal/schema"
	"github.com/tordrt/schemadoc/internal/suggest"
)

// Source runs the queries delegated to the live database
type Source interface {
	CountRows(ctx context.Context, object string) (int64, error)
	SampleRows(ctx context.Context, object string, limit int) (*db.Sample, error)
}

// Paths locates the documents a session reads and writes
type Paths struct {
	Schema    string
	Metadata  string
	RowCounts string
	Runs      string
}

// Option configures optional collaborators
type Option func(*Controller)

// WithSource enables row counting and sample rows
func WithSource(src Source) Option {
	return func(c *Controller) { c.source = src }
}

// WithProvider enables AI suggestions with at most maxConcurrent calls in flight
func WithProvider(p llm.Provider, maxConcurrent int) Option {
	return func(c *Controller) {
		c.provider = p
		c.maxConcurrent = max(maxConcurrent, 1)
	}
}

// Controller is one annotation session. It is not safe for concurrent use.
type Controller struct {
	id            uuid.UUID
	schema        *schema.Schema
	store         *metadata.Store
	metadataPath  string
	counts        *rowcount.Cache
	engine        *suggest.Engine
	source        Source
	provider      llm.Provider
	maxConcurrent int
	state         State
	logger        *zap.Logger
}

// Open loads the schema, the metadata and the row-count cache. Any load
// failure is fatal to the session.
func Open(paths Paths, logger *zap.Logger, opts ...Option) (*Controller, error) {
	s, err := schema.Load(paths.Schema)
	if err != nil {
		return nil, err
	}

	store, err := metadata.Load(paths.Metadata)
	if err != nil {
		return nil, err
	}

	counts, err := rowcount.Open(paths.RowCounts, paths.Runs, logger)
	if err != nil {
		return nil, err
	}

	return New(s, store, paths.Metadata, counts, logger, opts...), nil
}

// New builds a session over already loaded components
func New(s *schema.Schema, store *metadata.Store, metadataPath string, counts *rowcount.Cache, logger *zap.Logger, opts ...Option) *Controller {
	id := uuid.New()
	c := &Controller{
		id:            id,
		schema:        s,
		store:         store,
		metadataPath:  metadataPath,
		counts:        counts,
		engine:        suggest.NewEngine(store),
		maxConcurrent: 1,
		state:         Idle,
		logger:        logger.Named("session").With(zap.String("session_id", id.String())),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.logger.Info("Session started",
		zap.Int("objects", s.Len()),
		zap.Int("metadata_entries", store.Len()),
		zap.Int64("metadata_revision", store.Revision()))
	return c
}

// ID identifies the session in logs
func (c *Controller) ID() uuid.UUID {
	return c.id
}

// State returns the current edit state
func (c *Controller) State() State {
	return c.state
}

// Schema returns the technical schema
func (c *Controller) Schema() *schema.Schema {
	return c.schema
}

// Entry returns a copy of the metadata of object
func (c *Controller) Entry(object string) metadata.Entry {
	return c.store.Get(object)
}

// GlobalContext returns the global description of the database
func (c *Controller) GlobalContext() string {
	return c.store.GlobalContext()
}

// RowCount returns the cached row count of object
func (c *Controller) RowCount(object string) (rowcount.Record, bool) {
	return c.counts.Get(object)
}

// Overview summarizes documentation completeness
func (c *Controller) Overview() overview.Summary {
	return overview.Summarize(c.schema, c.store, c.counts)
}

func (c *Controller) object(name string) (schema.Object, error) {
	obj, ok := c.schema.Lookup(name)
	if !ok {
		return schema.Object{}, fmt.Errorf("%w: %s", ErrUnknownObject, name)
	}
	return obj, nil
}

func (c *Controller) column(object, column string) (schema.Object, schema.Column, error) {
	obj, err := c.object(object)
	if err != nil {
		return schema.Object{}, schema.Column{}, err
	}
	col, ok := obj.Column(column)
	if !ok {
		return schema.Object{}, schema.Column{}, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, object, column)
	}
	return obj, col, nil
}

// edited moves the session to EditApplied when the store has pending changes
func (c *Controller) edited() {
	if c.store.Dirty() {
		c.state = EditApplied
	}
}

// SetGlobalContext replaces the global context
func (c *Controller) SetGlobalContext(text string) {
	c.store.SetGlobalContext(text)
	c.edited()
}

// SetObjectDescription records a human description of object
func (c *Controller) SetObjectDescription(object, text string) error {
	if _, err := c.object(object); err != nil {
		return err
	}
	c.store.SetObjectDescription(object, text, metadata.ProvenanceHuman)
	c.edited()
	return nil
}

// SetColumnDescription records a human description of object.column
func (c *Controller) SetColumnDescription(object, column, text string) error {
	if _, _, err := c.column(object, column); err != nil {
		return err
	}
	c.store.SetColumnDescription(object, column, text, metadata.ProvenanceHuman)
	c.engine.Observe(object, column)
	c.edited()
	return nil
}

// SetColumnNotes records value mapping notes of object.column
func (c *Controller) SetColumnNotes(object, column, notes string) error {
	if _, _, err := c.column(object, column); err != nil {
		return err
	}
	c.store.SetColumnNotes(object, column, notes)
	c.edited()
	return nil
}

// Reclassify files an UNKNOWN object as a table or view
func (c *Controller) Reclassify(object string, kind schema.ObjectKind) error {
	obj, err := c.object(object)
	if err != nil {
		return err
	}
	if obj.Kind != schema.KindUnknown {
		return fmt.Errorf("%w: %s is a %s", ErrNotReclassifiable, object, obj.Kind)
	}
	if err := c.store.Reclassify(object, kind); err != nil {
		return err
	}
	c.edited()
	return nil
}

// ImportDraft merges an AI draft document without overwriting existing text
func (c *Controller) ImportDraft(r io.Reader) (metadata.ImportStats, error) {
	stats, err := c.store.ImportDraft(r, metadata.ProvenanceAI)
	if err != nil {
		return stats, err
	}
	c.engine = suggest.NewEngine(c.store)
	c.edited()
	c.logger.Info("Draft imported",
		zap.Int("objects", stats.Objects),
		zap.Int("descriptions", stats.Descriptions),
		zap.Int("notes", stats.Notes),
		zap.Int("skipped", stats.Skipped))
	return stats, nil
}

// Save persists the metadata. On failure the session stays in EditApplied
// with every edit still in memory, and the error is returned.
func (c *Controller) Save() error {
	if !c.store.Dirty() {
		return nil
	}
	if err := c.store.Save(c.metadataPath); err != nil {
		c.logger.Error("Failed to save metadata", zap.String("path", c.metadataPath), zap.Error(err))
		return err
	}
	c.state = Persisted
	c.logger.Info("Metadata saved", zap.Int64("revision", c.store.Revision()))
	return nil
}

// Close ends the session, reporting unsaved edits instead of dropping them silently
func (c *Controller) Close() error {
	if c.store.Dirty() {
		c.logger.Warn("Session closed with unsaved changes", zap.String("path", c.metadataPath))
		return ErrUnsavedChanges
	}
	c.logger.Debug("Session closed")
	return nil
}

// PruneReport lists stale data removed, or that would be removed
type PruneReport struct {
	Metadata  []string
	RowCounts []string
}

// Prune finds metadata entries and row counts of objects no longer in the
// schema. Nothing is removed unless apply is set; removed metadata still
// needs a Save.
func (c *Controller) Prune(apply bool) (PruneReport, error) {
	keep := func(name string) bool {
		_, ok := c.schema.Lookup(name)
		return ok
	}

	var report PruneReport
	if !apply {
		for _, name := range c.store.Names() {
			if !keep(name) {
				report.Metadata = append(report.Metadata, name)
			}
		}
		for _, name := range c.counts.Names() {
			if !keep(name) {
				report.RowCounts = append(report.RowCounts, name)
			}
		}
		return report, nil
	}

	report.Metadata = c.store.Prune(keep)
	for _, name := range report.Metadata {
		c.engine.Forget(name)
	}
	c.edited()

	removed, err := c.counts.Prune(keep)
	report.RowCounts = removed
	if err != nil {
		return report, fmt.Errorf("failed to prune row counts: %w", err)
	}

	c.logger.Info("Stale data pruned",
		zap.Strings("metadata", report.Metadata),
		zap.Strings("row_counts", report.RowCounts))
	return report, nil
}

// SampleRows fetches a few rows of object for display
func (c *Controller) SampleRows(ctx context.Context, object string, limit int) (*db.Sample, error) {
	if c.source == nil {
		return nil, ErrNoSource
	}
	if _, err := c.object(object); err != nil {
		return nil, err
	}
	sample, err := c.source.SampleRows(ctx, object, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to sample %s: %w", object, err)
	}
	return sample, nil
}
