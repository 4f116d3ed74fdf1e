package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tordrt/schemadoc/internal/rowcount"
)

func (c *Controller) countFunc() rowcount.CountFunc {
	return func(ctx context.Context, object string) (int64, error) {
		return c.source.CountRows(ctx, object)
	}
}

// RecomputeRowCount measures one object and persists the cache. On failure
// the previous record is kept.
func (c *Controller) RecomputeRowCount(ctx context.Context, object string) (rowcount.Record, error) {
	if c.source == nil {
		return rowcount.Record{}, ErrNoSource
	}
	if _, err := c.object(object); err != nil {
		return rowcount.Record{}, err
	}

	rec, err := c.counts.RecomputeOne(ctx, object, c.countFunc())
	if err != nil {
		c.logger.Warn("Row count failed", zap.String("object", object), zap.Error(err))
		return rowcount.Record{}, err
	}
	if err := c.counts.Save(); err != nil {
		return rec, fmt.Errorf("failed to save row counts: %w", err)
	}
	return rec, nil
}

// RecomputeAllRowCounts measures every object of the schema. The
// full-recompute timestamp advances only when all of them succeed.
func (c *Controller) RecomputeAllRowCounts(ctx context.Context) (rowcount.BatchResult, error) {
	if c.source == nil {
		return rowcount.BatchResult{}, ErrNoSource
	}
	return c.counts.RecomputeAll(ctx, c.schema.Names(), c.countFunc(), rowcount.Full)
}

// RecomputeRowCounts measures the named objects only
func (c *Controller) RecomputeRowCounts(ctx context.Context, objects []string) (rowcount.BatchResult, error) {
	if c.source == nil {
		return rowcount.BatchResult{}, ErrNoSource
	}
	for _, name := range objects {
		if _, err := c.object(name); err != nil {
			return rowcount.BatchResult{}, err
		}
	}
	return c.counts.RecomputeAll(ctx, objects, c.countFunc(), rowcount.Selective)
}
