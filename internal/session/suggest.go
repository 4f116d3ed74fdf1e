package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tordrt/schemadoc/internal/llm"
	"github.com/tordrt/schemadoc/internal/metadata"
	"github.com/tordrt/schemadoc/internal/overview"
	"github.com/tordrt/schemadoc/internal/suggest"
)

// SuggestHeuristic proposes a description for object.column reused from a
// column with the same name elsewhere. Nothing is applied.
func (c *Controller) SuggestHeuristic(object, column string) (suggest.Suggestion, bool, error) {
	if _, _, err := c.column(object, column); err != nil {
		return suggest.Suggestion{}, false, err
	}
	s, ok := c.engine.Suggest(object, column)
	return s, ok, nil
}

// ApplyHeuristic fills the description of object.column from its heuristic
// suggestion. Existing text is never replaced.
func (c *Controller) ApplyHeuristic(object, column string) (suggest.Suggestion, bool, error) {
	s, ok, err := c.SuggestHeuristic(object, column)
	if err != nil || !ok {
		return s, false, err
	}
	if !c.store.FillColumnDescription(object, column, s.Text, metadata.ProvenanceHeuristic) {
		return s, false, nil
	}
	c.engine.Observe(object, column)
	c.edited()
	return s, true, nil
}

// ApplyHeuristics fills every empty column description of object that has a
// suggestion and returns what was applied, keyed by column.
func (c *Controller) ApplyHeuristics(object string) (map[string]suggest.Suggestion, error) {
	obj, err := c.object(object)
	if err != nil {
		return nil, err
	}

	applied := make(map[string]suggest.Suggestion)
	for col, s := range c.engine.SuggestAll(object, obj.ColumnNames()) {
		if c.store.FillColumnDescription(object, col, s.Text, metadata.ProvenanceHeuristic) {
			c.engine.Observe(object, col)
			applied[col] = s
		}
	}
	c.edited()

	if len(applied) > 0 {
		c.logger.Info("Heuristic descriptions applied", zap.String("object", object), zap.Int("columns", len(applied)))
	}
	return applied, nil
}

// AIResult is one AI suggestion. An empty Column stands for the object
// description. Err is set when the suggestion was unavailable.
type AIResult struct {
	Column string
	Text   string
	Err    error
}

// SuggestAI asks the provider for descriptions of the given columns of
// object, and for the object itself when includeObject is set. Requests run
// concurrently. A failed request is reported in its result and never stops
// the others, so annotation can continue without it.
func (c *Controller) SuggestAI(ctx context.Context, object string, columns []string, includeObject bool) ([]AIResult, error) {
	if c.provider == nil {
		return nil, ErrNoProvider
	}
	obj, err := c.object(object)
	if err != nil {
		return nil, err
	}
	for _, col := range columns {
		if !obj.HasColumn(col) {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, object, col)
		}
	}

	entry := c.store.Get(object)
	base := llm.Request{
		GlobalContext:     c.store.GlobalContext(),
		Object:            object,
		Kind:              overview.EffectiveKind(obj, entry),
		ObjectDescription: entry.Description,
		ColumnNames:       obj.ColumnNames(),
	}

	var requests []llm.Request
	if includeObject {
		requests = append(requests, base)
	}
	for _, col := range columns {
		req := base
		req.Column = col
		if def, ok := obj.Column(col); ok {
			req.ColumnType = def.Type
		}
		requests = append(requests, req)
	}

	results := make([]AIResult, len(requests))
	g := new(errgroup.Group)
	g.SetLimit(c.maxConcurrent)
	for i, req := range requests {
		g.Go(func() error {
			text, err := c.provider.Suggest(ctx, req)
			results[i] = AIResult{Column: req.Column, Text: text, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			c.logger.Warn("AI suggestion unavailable",
				zap.String("object", object),
				zap.String("column", r.Column),
				zap.Error(r.Err))
		}
	}
	c.logger.Info("AI suggestions completed",
		zap.String("object", object),
		zap.Int("requested", len(requests)),
		zap.Int("failed", failed))

	if failed > 0 && ctx.Err() != nil {
		return results, ctx.Err()
	}
	return results, nil
}

// ApplyAI fills empty descriptions of object with successful AI results and
// returns how many were applied.
func (c *Controller) ApplyAI(object string, results []AIResult) (int, error) {
	if _, err := c.object(object); err != nil {
		return 0, err
	}

	applied := 0
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		if r.Column == "" {
			if c.store.FillObjectDescription(object, r.Text, metadata.ProvenanceAI) {
				applied++
			}
			continue
		}
		if c.store.FillColumnDescription(object, r.Column, r.Text, metadata.ProvenanceAI) {
			c.engine.Observe(object, r.Column)
			applied++
		}
	}
	c.edited()
	return applied, nil
}

// EmptyColumns lists the columns of object without a description, in
// schema order.
func (c *Controller) EmptyColumns(object string) ([]string, error) {
	obj, err := c.object(object)
	if err != nil {
		return nil, err
	}
	entry := c.store.Get(object)
	var empty []string
	for _, col := range obj.Columns {
		if entry.Column(col.Name).Description == "" {
			empty = append(empty, col.Name)
		}
	}
	return empty, nil
}
