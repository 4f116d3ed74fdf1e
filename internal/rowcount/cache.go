// Package rowcount caches the row counts of schema objects together with the
// time each was measured, and the completion time of full recomputes.
package rowcount

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/tordrt/schemadoc/internal/atomicfile"
)

// FullRecompute is the run-timestamp key of a recompute over every object
const FullRecompute = "full_recompute"

// Record is the last successful measurement of an object
type Record struct {
	Count      int64     `json:"count"`
	MeasuredAt time.Time `json:"timestamp"`
}

// CountFunc returns the number of rows of object
type CountFunc func(ctx context.Context, object string) (int64, error)

// Cache holds row-count records and run timestamps. Both are persisted as
// separate documents. It is not safe for concurrent use.
type Cache struct {
	path     string
	runsPath string
	records  map[string]Record
	runs     map[string]time.Time
	now      func() time.Time
	logger   *zap.Logger
}

// Open loads both documents, treating missing files as empty
func Open(path, runsPath string, logger *zap.Logger) (*Cache, error) {
	c := &Cache{
		path:     path,
		runsPath: runsPath,
		records:  make(map[string]Record),
		runs:     make(map[string]time.Time),
		now:      time.Now,
		logger:   logger.Named("rowcount"),
	}

	if err := readJSON(path, &c.records); err != nil {
		return nil, fmt.Errorf("failed to load row counts: %w", err)
	}
	if err := readJSON(runsPath, &c.runs); err != nil {
		return nil, fmt.Errorf("failed to load run timestamps: %w", err)
	}

	for name, rec := range c.records {
		if rec.Count < 0 {
			return nil, fmt.Errorf("failed to load row counts: %s has negative count %d", name, rec.Count)
		}
	}
	return c, nil
}

// SetClock replaces the time source
func (c *Cache) SetClock(now func() time.Time) {
	c.now = now
}

// Get returns the record of object, if it was ever measured
func (c *Cache) Get(object string) (Record, bool) {
	rec, ok := c.records[object]
	return rec, ok
}

// Names returns the measured objects, sorted
func (c *Cache) Names() []string {
	names := make([]string, 0, len(c.records))
	for name := range c.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LastRun returns when the named operation last completed successfully
func (c *Cache) LastRun(operation string) (time.Time, bool) {
	t, ok := c.runs[operation]
	return t, ok
}

// RecomputeOne measures object and replaces its record on success. On failure
// the prior record is left untouched and a CountQueryError is returned. The
// cache is not saved.
func (c *Cache) RecomputeOne(ctx context.Context, object string, count CountFunc) (Record, error) {
	n, err := count(ctx, object)
	if err == nil && n < 0 {
		err = fmt.Errorf("negative count %d", n)
	}
	if err != nil {
		var cqe *CountQueryError
		if !errors.As(err, &cqe) {
			err = &CountQueryError{Object: object, Err: err}
		}
		return Record{}, err
	}

	measured := c.now().UTC()
	if prev, ok := c.records[object]; ok && !measured.After(prev.MeasuredAt) {
		measured = prev.MeasuredAt.Add(time.Nanosecond)
	}

	rec := Record{Count: n, MeasuredAt: measured}
	c.records[object] = rec
	return rec, nil
}

// Save writes the row-count document atomically
func (c *Cache) Save() error {
	return writeJSON(c.path, c.records)
}

func (c *Cache) saveRuns() error {
	return writeJSON(c.runsPath, c.runs)
}

// Prune removes records for which keep returns false, saves, and returns
// the removed names.
func (c *Cache) Prune(keep func(object string) bool) ([]string, error) {
	var removed []string
	for _, name := range c.Names() {
		if !keep(name) {
			delete(c.records, name)
			removed = append(removed, name)
		}
	}
	if len(removed) == 0 {
		return nil, nil
	}
	return removed, c.Save()
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if err := atomicfile.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
