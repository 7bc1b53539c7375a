package task

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/wyrexdev/velox/internal/pool"
	"github.com/wyrexdev/velox/internal/util"
)

// DataInput is the payload for a data-processing task.
type DataInput struct {
	// Records is a JSON array of flat objects. Numeric fields are
	// aggregated, everything else is counted only.
	Records []byte
}

// FieldAggregate summarizes one numeric field across all records.
type FieldAggregate struct {
	Count int     `json:"count"`
	Sum   float64 `json:"sum"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
}

// DataResult is the outcome of a data-processing task.
type DataResult struct {
	// Records is the total number of records in the input.
	Records int `json:"records"`

	// Fields maps each numeric field name to its aggregate.
	Fields map[string]FieldAggregate `json:"fields"`

	// Skipped counts records that were not JSON objects.
	Skipped int `json:"skipped"`
}

// aggregator folds numeric fields of a JSON record set into per-field
// sum, count, min, max, and mean.
type aggregator struct{}

// NewAggregator returns the data-processing executor.
func NewAggregator() pool.Executor {
	return &aggregator{}
}

func (a *aggregator) Kind() pool.TaskKind {
	return pool.TaskDataProcessing
}

func (a *aggregator) Execute(ctx context.Context, payload any) (any, error) {
	input, ok := payload.(DataInput)
	if !ok {
		return nil, fmt.Errorf("data-processing payload must be task.DataInput, got %T: %w",
			payload, util.ErrInvalidInput)
	}

	var records []json.RawMessage
	if err := json.Unmarshal(input.Records, &records); err != nil {
		return nil, fmt.Errorf("records must be a JSON array: %v: %w", err, util.ErrInvalidInput)
	}

	result := DataResult{
		Records: len(records),
		Fields:  make(map[string]FieldAggregate),
	}

	for _, raw := range records {
		var record map[string]any
		if err := json.Unmarshal(raw, &record); err != nil {
			result.Skipped++
			continue
		}
		for field, value := range record {
			num, ok := value.(float64)
			if !ok {
				continue
			}
			agg, seen := result.Fields[field]
			if !seen || num < agg.Min {
				agg.Min = num
			}
			if !seen || num > agg.Max {
				agg.Max = num
			}
			agg.Count++
			agg.Sum += num
			result.Fields[field] = agg
		}
	}

	for field, agg := range result.Fields {
		agg.Mean = agg.Sum / float64(agg.Count)
		result.Fields[field] = agg
	}

	return result, nil
}

// FieldNames returns the aggregated field names in sorted order.
func (r DataResult) FieldNames() []string {
	names := make([]string, 0, len(r.Fields))
	for name := range r.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
