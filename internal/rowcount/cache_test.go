package rowcount

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func openTestCache(t *testing.T) (*Cache, *testClock, string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "row_counts.json")
	runs := filepath.Join(dir, "run_timestamps.json")

	c, err := Open(path, runs, zap.NewNop())
	require.NoError(t, err)

	clock := &testClock{now: t0}
	c.SetClock(clock.Now)
	return c, clock, path, runs
}

func counts(values map[string]int64, failing ...string) CountFunc {
	return func(ctx context.Context, object string) (int64, error) {
		for _, f := range failing {
			if f == object {
				return 0, errors.New("connection lost")
			}
		}
		return values[object], nil
	}
}

func TestOpenMissingFiles(t *testing.T) {
	c, _, _, _ := openTestCache(t)

	_, ok := c.Get("PEDIDOS")
	assert.False(t, ok)
	_, ok = c.LastRun(FullRecompute)
	assert.False(t, ok)
	assert.Empty(t, c.Names())
}

func TestOpenCorruptDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "row_counts.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"PEDIDOS": `), 0644))

	_, err := Open(path, filepath.Join(dir, "runs.json"), zap.NewNop())
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{"PEDIDOS": {"count": -1, "timestamp": "2024-03-01T10:00:00Z"}}`), 0644))
	_, err = Open(path, filepath.Join(dir, "runs.json"), zap.NewNop())
	assert.Error(t, err)
}

func TestRecomputeOneSuccessAdvancesTimestamp(t *testing.T) {
	c, clock, _, _ := openTestCache(t)
	ctx := context.Background()

	first, err := c.RecomputeOne(ctx, "PEDIDOS", counts(map[string]int64{"PEDIDOS": 500}))
	require.NoError(t, err)
	assert.Equal(t, int64(500), first.Count)
	assert.True(t, first.MeasuredAt.Equal(t0))

	second, err := c.RecomputeOne(ctx, "PEDIDOS", counts(map[string]int64{"PEDIDOS": 510}))
	require.NoError(t, err)
	assert.True(t, second.MeasuredAt.After(first.MeasuredAt), "same clock reading must still advance")

	clock.Advance(-time.Hour)
	third, err := c.RecomputeOne(ctx, "PEDIDOS", counts(map[string]int64{"PEDIDOS": 520}))
	require.NoError(t, err)
	assert.True(t, third.MeasuredAt.After(second.MeasuredAt), "clock going backwards must still advance")
}

func TestRecomputeOneFailureKeepsPriorRecord(t *testing.T) {
	c, clock, path, runs := openTestCache(t)
	ctx := context.Background()

	_, err := c.RecomputeOne(ctx, "PEDIDOS", counts(map[string]int64{"PEDIDOS": 500}))
	require.NoError(t, err)
	require.NoError(t, c.Save())

	reopened, err := Open(path, runs, zap.NewNop())
	require.NoError(t, err)
	clock.Advance(time.Hour)
	reopened.SetClock(clock.Now)

	_, err = reopened.RecomputeOne(ctx, "PEDIDOS", counts(nil, "PEDIDOS"))
	require.Error(t, err)

	var cqe *CountQueryError
	require.True(t, errors.As(err, &cqe))
	assert.Equal(t, "PEDIDOS", cqe.Object)

	rec, ok := reopened.Get("PEDIDOS")
	require.True(t, ok)
	assert.Equal(t, int64(500), rec.Count)
	assert.True(t, rec.MeasuredAt.Equal(t0))
}

func TestRecomputeOneRejectsNegativeCount(t *testing.T) {
	c, _, _, _ := openTestCache(t)

	_, err := c.RecomputeOne(context.Background(), "X", counts(map[string]int64{"X": -3}))
	var cqe *CountQueryError
	assert.True(t, errors.As(err, &cqe))
	_, ok := c.Get("X")
	assert.False(t, ok)
}

func TestFullRecomputeWithFailureDoesNotRecordRun(t *testing.T) {
	c, clock, _, _ := openTestCache(t)
	ctx := context.Background()
	objects := []string{"CLIENTES", "PEDIDOS", "PRODUTOS"}

	_, err := c.RecomputeAll(ctx, objects, counts(map[string]int64{"CLIENTES": 10, "PEDIDOS": 500, "PRODUTOS": 30}), Full)
	require.NoError(t, err)
	firstRun, ok := c.LastRun(FullRecompute)
	require.True(t, ok)

	clock.Advance(time.Hour)
	result, err := c.RecomputeAll(ctx, objects, counts(map[string]int64{"CLIENTES": 11, "PRODUTOS": 31}, "PEDIDOS"), Full)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.False(t, result.RunRecorded)
	require.Len(t, result.Failures(), 1)
	assert.Equal(t, "PEDIDOS", result.Failures()[0].Object)

	run, _ := c.LastRun(FullRecompute)
	assert.True(t, run.Equal(firstRun))

	for _, name := range []string{"CLIENTES", "PRODUTOS"} {
		rec, _ := c.Get(name)
		assert.True(t, rec.MeasuredAt.Equal(t0.Add(time.Hour)), name)
	}
	pedidos, _ := c.Get("PEDIDOS")
	assert.Equal(t, int64(500), pedidos.Count)
	assert.True(t, pedidos.MeasuredAt.Equal(t0))
}

func TestSelectiveRecomputeNeverTouchesRun(t *testing.T) {
	c, _, _, runs := openTestCache(t)

	result, err := c.RecomputeAll(context.Background(), []string{"CLIENTES"}, counts(map[string]int64{"CLIENTES": 10}), Selective)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	assert.False(t, result.RunRecorded)

	_, ok := c.LastRun(FullRecompute)
	assert.False(t, ok)
	_, err = os.Stat(runs)
	assert.True(t, os.IsNotExist(err))
}

func TestFullRecomputePersistsEverything(t *testing.T) {
	c, _, path, runs := openTestCache(t)

	result, err := c.RecomputeAll(context.Background(), []string{"A", "B"}, counts(map[string]int64{"A": 1, "B": 2}), Full)
	require.NoError(t, err)
	assert.True(t, result.RunRecorded)

	reopened, err := Open(path, runs, zap.NewNop())
	require.NoError(t, err)
	run, ok := reopened.LastRun(FullRecompute)
	require.True(t, ok)
	assert.True(t, run.Equal(t0))

	b, ok := reopened.Get("B")
	require.True(t, ok)
	assert.Equal(t, int64(2), b.Count)
}

func TestRecomputeAllPersistsAfterEachObject(t *testing.T) {
	c, _, path, runs := openTestCache(t)

	var seenOnDisk bool
	count := func(ctx context.Context, object string) (int64, error) {
		if object == "B" {
			onDisk, err := Open(path, runs, zap.NewNop())
			require.NoError(t, err)
			_, seenOnDisk = onDisk.Get("A")
		}
		return 1, nil
	}

	_, err := c.RecomputeAll(context.Background(), []string{"A", "B"}, count, Selective)
	require.NoError(t, err)
	assert.True(t, seenOnDisk, "A must be saved before B is counted")
}

func TestRecomputeAllCancellation(t *testing.T) {
	c, _, path, runs := openTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())

	var counted []string
	count := func(ctx context.Context, object string) (int64, error) {
		counted = append(counted, object)
		if object == "B" {
			cancel()
		}
		return 7, nil
	}

	result, err := c.RecomputeAll(ctx, []string{"A", "B", "C"}, count, Full)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, result.Cancelled)
	assert.False(t, result.RunRecorded)
	assert.Equal(t, []string{"A", "B"}, counted)

	reopened, err := Open(path, runs, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, reopened.Names())
	_, ok := reopened.LastRun(FullRecompute)
	assert.False(t, ok)
}

func TestRecomputeAllLetsCountInFlightFinish(t *testing.T) {
	c, _, path, runs := openTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var counted []string
	count := func(ctx context.Context, object string) (int64, error) {
		counted = append(counted, object)
		if object == "BIG" {
			cancel()
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(20 * time.Millisecond):
			}
		}
		return 1200, nil
	}

	result, err := c.RecomputeAll(ctx, []string{"BIG", "NEXT"}, count, Full)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, result.Cancelled)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 0, result.Failed)
	assert.False(t, result.RunRecorded)
	assert.Equal(t, []string{"BIG"}, counted)

	reopened, err := Open(path, runs, zap.NewNop())
	require.NoError(t, err)
	rec, ok := reopened.Get("BIG")
	require.True(t, ok)
	assert.Equal(t, int64(1200), rec.Count)
}

func TestRecomputeAllLastObjectCountFinishesAfterCancel(t *testing.T) {
	c, _, _, _ := openTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	count := func(ctx context.Context, object string) (int64, error) {
		cancel()
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return 9, nil
	}

	result, err := c.RecomputeAll(ctx, []string{"BIG"}, count, Selective)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	assert.Empty(t, result.Failures())
}

func TestRecomputeAllStopsWhenSaveFails(t *testing.T) {
	dir := t.TempDir()
	blocked := filepath.Join(dir, "row_counts.json")
	require.NoError(t, os.MkdirAll(filepath.Join(blocked, "child"), 0755))

	c, err := Open(filepath.Join(dir, "missing.json"), filepath.Join(dir, "runs.json"), zap.NewNop())
	require.NoError(t, err)
	c.path = blocked

	result, err := c.RecomputeAll(context.Background(), []string{"A", "B"}, counts(map[string]int64{"A": 1, "B": 2}), Full)
	require.Error(t, err)
	assert.Len(t, result.Outcomes, 1)
	assert.False(t, result.RunRecorded)
}

func TestPrune(t *testing.T) {
	c, _, path, runs := openTestCache(t)
	_, err := c.RecomputeAll(context.Background(), []string{"KEEP", "GONE"}, counts(map[string]int64{"KEEP": 1, "GONE": 2}), Selective)
	require.NoError(t, err)

	removed, err := c.Prune(func(name string) bool { return name == "KEEP" })
	require.NoError(t, err)
	assert.Equal(t, []string{"GONE"}, removed)

	reopened, err := Open(path, runs, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"KEEP"}, reopened.Names())
}
