package task

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyrexdev/velox/internal/pool"
	"github.com/wyrexdev/velox/internal/util"
)

func runAggregator(t *testing.T, records string) DataResult {
	t.Helper()

	out, err := NewAggregator().Execute(context.Background(), DataInput{Records: []byte(records)})
	require.NoError(t, err)

	result, ok := out.(DataResult)
	require.True(t, ok)
	return result
}

func TestAggregator_Kind(t *testing.T) {
	t.Parallel()

	assert.Equal(t, pool.TaskDataProcessing, NewAggregator().Kind())
}

func TestAggregator_RejectsWrongPayloadType(t *testing.T) {
	t.Parallel()

	_, err := NewAggregator().Execute(context.Background(), []byte("[]"))
	assert.ErrorIs(t, err, util.ErrInvalidInput)
}

func TestAggregator_RejectsNonArrayInput(t *testing.T) {
	t.Parallel()

	_, err := NewAggregator().Execute(context.Background(), DataInput{Records: []byte(`{"a": 1}`)})
	assert.ErrorIs(t, err, util.ErrInvalidInput)
}

func TestAggregator_AggregatesNumericFields(t *testing.T) {
	t.Parallel()

	result := runAggregator(t, `[
		{"latency": 10, "status": 200, "region": "eu"},
		{"latency": 30, "status": 500},
		{"latency": 20}
	]`)

	assert.Equal(t, 3, result.Records)
	assert.Zero(t, result.Skipped)
	assert.Equal(t, []string{"latency", "status"}, result.FieldNames())

	latency := result.Fields["latency"]
	assert.Equal(t, 3, latency.Count)
	assert.InDelta(t, 60, latency.Sum, 1e-9)
	assert.InDelta(t, 10, latency.Min, 1e-9)
	assert.InDelta(t, 30, latency.Max, 1e-9)
	assert.InDelta(t, 20, latency.Mean, 1e-9)

	status := result.Fields["status"]
	assert.Equal(t, 2, status.Count)
	assert.InDelta(t, 350, status.Mean, 1e-9)
}

func TestAggregator_NegativeValues(t *testing.T) {
	t.Parallel()

	result := runAggregator(t, `[{"delta": -5}, {"delta": -1}, {"delta": 3}]`)

	delta := result.Fields["delta"]
	assert.InDelta(t, -5, delta.Min, 1e-9)
	assert.InDelta(t, 3, delta.Max, 1e-9)
	assert.InDelta(t, -3, delta.Sum, 1e-9)
}

func TestAggregator_SkipsNonObjectRecords(t *testing.T) {
	t.Parallel()

	result := runAggregator(t, `[{"n": 1}, "stray string", 17, {"n": 2}]`)

	assert.Equal(t, 4, result.Records)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, 2, result.Fields["n"].Count)
}

func TestAggregator_IgnoresNonNumericFields(t *testing.T) {
	t.Parallel()

	result := runAggregator(t, `[{"name": "a", "ok": true, "tags": [1, 2], "n": 1.5}]`)

	assert.Equal(t, []string{"n"}, result.FieldNames())
}

func TestAggregator_EmptyArray(t *testing.T) {
	t.Parallel()

	result := runAggregator(t, `[]`)

	assert.Zero(t, result.Records)
	assert.Empty(t, result.Fields)
}

func TestExecutors_CoverEveryTaskKind(t *testing.T) {
	t.Parallel()

	executors := Executors(&fakeEngine{}, nil, nil)

	kinds := make(map[pool.TaskKind]bool, len(executors))
	for _, e := range executors {
		kinds[e.Kind()] = true
	}

	assert.Equal(t, map[pool.TaskKind]bool{
		pool.TaskFileValidation: true,
		pool.TaskFileProcessing: true,
		pool.TaskImageResize:    true,
		pool.TaskDataProcessing: true,
	}, kinds)
}
