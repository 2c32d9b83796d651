package utils

import (
	"sort"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessBatchReturnsAllResults(t *testing.T) {
	processor := NewParallelProcessor(4, false)

	items := make([]any, 100)
	for i := range items {
		items[i] = i
	}

	results, err := processor.ProcessBatch(items, func(job any) any {
		return job.(int) * 2
	}, "doubling")
	require.NoError(t, err)
	require.Len(t, results, 100)

	values := make([]int, len(results))
	for i, r := range results {
		values[i] = r.(int)
	}
	sort.Ints(values)
	for i, v := range values {
		assert.Equal(t, i*2, v)
	}
}

func TestProcessBatchEmpty(t *testing.T) {
	processor := NewParallelProcessor(2, false)
	results, err := processor.ProcessBatch(nil, func(job any) any { return job }, "noop")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestProcessBatchDropsNilResults(t *testing.T) {
	processor := NewParallelProcessor(2, false)

	results, err := processor.ProcessBatch([]any{1, 2, 3, 4}, func(job any) any {
		if job.(int)%2 == 0 {
			return nil
		}
		return job
	}, "odds")
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestProcessBatchRunsEachJobOnce(t *testing.T) {
	processor := NewParallelProcessor(8, false)

	var calls int64
	items := make([]any, 50)
	for i := range items {
		items[i] = i
	}
	_, err := processor.ProcessBatch(items, func(job any) any {
		atomic.AddInt64(&calls, 1)
		return job
	}, "counting")
	require.NoError(t, err)
	assert.Equal(t, int64(50), calls)
}

func TestWorkerPoolDefaultsWorkerCount(t *testing.T) {
	wp := NewWorkerPool(0, 1, 1)
	assert.Greater(t, wp.NumWorkers, 0)
}
