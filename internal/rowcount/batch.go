package rowcount

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Scope tells RecomputeAll whether the objects are the whole population
type Scope int

const (
	// Selective recomputes never touch the full-recompute run timestamp
	Selective Scope = iota
	// Full recomputes record their completion when nothing failed
	Full
)

// Outcome is the result of one object in a batch
type Outcome struct {
	Object string
	Record Record
	Err    error
}

// BatchResult summarizes a RecomputeAll call
type BatchResult struct {
	Outcomes    []Outcome
	Succeeded   int
	Failed      int
	Cancelled   bool
	RunRecorded bool
}

// Failures returns the outcomes that did not produce a record
func (r BatchResult) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// RecomputeAll counts each object in order. Count failures are recorded per
// object and the batch continues. The cache is saved after every successful
// measurement, so a crash loses at most the object in flight.
//
// Cancellation is checked before each object and never reaches a count in
// flight. A cancelled batch returns the outcomes collected so far together
// with the context error. A failed save
// stops the batch and is returned as the error.
//
// With Full scope the run timestamp is only advanced when every object was
// measured.
func (c *Cache) RecomputeAll(ctx context.Context, objects []string, count CountFunc, scope Scope) (BatchResult, error) {
	var result BatchResult
	logger := c.logger.With(zap.Int("objects", len(objects)), zap.Bool("full", scope == Full))
	logger.Info("Starting row count recompute")

	for _, object := range objects {
		if err := ctx.Err(); err != nil {
			result.Cancelled = true
			logger.Warn("Row count recompute cancelled",
				zap.Int("succeeded", result.Succeeded),
				zap.Int("remaining", len(objects)-len(result.Outcomes)))
			return result, err
		}

		rec, err := c.RecomputeOne(context.WithoutCancel(ctx), object, count)
		result.Outcomes = append(result.Outcomes, Outcome{Object: object, Record: rec, Err: err})
		if err != nil {
			result.Failed++
			logger.Warn("Row count failed", zap.String("object", object), zap.Error(err))
			continue
		}
		result.Succeeded++

		if err := c.Save(); err != nil {
			logger.Error("Failed to persist row counts", zap.String("object", object), zap.Error(err))
			return result, fmt.Errorf("row count batch stopped after %s: %w", object, err)
		}
	}

	if scope == Full && result.Failed == 0 {
		prev, had := c.runs[FullRecompute]
		c.runs[FullRecompute] = c.now().UTC()
		if err := c.saveRuns(); err != nil {
			if had {
				c.runs[FullRecompute] = prev
			} else {
				delete(c.runs, FullRecompute)
			}
			return result, fmt.Errorf("failed to record full recompute: %w", err)
		}
		result.RunRecorded = true
	}

	logger.Info("Row count recompute finished",
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
		zap.Bool("run_recorded", result.RunRecorded))
	return result, nil
}
