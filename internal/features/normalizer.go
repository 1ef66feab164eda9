package features

import (
	"context"
	"sync"
	"time"

	simerrors "github.com/ducminhle1904/crypto-gym/internal/errors"
	"github.com/ducminhle1904/crypto-gym/internal/indicators"
	"github.com/ducminhle1904/crypto-gym/internal/monitoring"
)

// RelativeChange replaces each value with its tick-over-tick relative change
// (v[i]-v[i-1])/v[i-1]. Index 0 and any index whose predecessor is zero, NaN or
// infinite become 0.
func RelativeChange(values []float64) []float64 {
	out := make([]float64, len(values))
	for i := 1; i < len(values); i++ {
		prev := values[i-1]
		if prev == 0 || !indicators.IsFinite(prev) {
			continue
		}
		change := (values[i] - prev) / prev
		if indicators.IsFinite(change) {
			out[i] = change
		}
	}
	return out
}

func relativeChangeFunc(_ string, values []float64) ([]float64, error) {
	return RelativeChange(values), nil
}

// resultStore collects normalized columns by name. One store belongs to one Normalize call.
type resultStore struct {
	mu     sync.Mutex
	values map[string][]float64
}

func newResultStore() *resultStore {
	return &resultStore{values: make(map[string][]float64)}
}

func (s *resultStore) put(column string, values []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[column] = values
}

func (s *resultStore) snapshot() map[string][]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]float64, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// ColumnNormalizer converts absolute and oscillator columns to relative change,
// one column per job on a worker pool, and reassembles the table in Schema order.
type ColumnNormalizer struct {
	workers int
	fn      NormalizeFunc
	columns []string
}

// NormalizerOption customises a ColumnNormalizer
type NormalizerOption func(*ColumnNormalizer)

// WithNormalizeFunc replaces the per-column transform
func WithNormalizeFunc(fn NormalizeFunc) NormalizerOption {
	return func(n *ColumnNormalizer) {
		n.fn = fn
	}
}

// WithColumns replaces the set of columns that get normalized
func WithColumns(columns []string) NormalizerOption {
	return func(n *ColumnNormalizer) {
		n.columns = append([]string(nil), columns...)
	}
}

// NewColumnNormalizer creates a normalizer; workers <= 0 uses one worker per CPU
func NewColumnNormalizer(workers int, opts ...NormalizerOption) *ColumnNormalizer {
	n := &ColumnNormalizer{
		workers: workers,
		fn:      relativeChangeFunc,
		columns: append(append([]string(nil), AbsoluteColumns...), OscillatorColumns...),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize waits for every column job to finish. If any column fails, all results are
// discarded and a single error listing every failed column is returned.
func (n *ColumnNormalizer) Normalize(ctx context.Context, table *FeatureTable) (*FeatureTable, error) {
	startTime := time.Now()

	var jobs []NormalizeJob
	for _, name := range n.columns {
		values, ok := table.Column(name)
		if !ok {
			return nil, simerrors.NewValidationError("normalizer", "Normalize", "column not in table").
				WithContext("column", name)
		}
		jobs = append(jobs, NormalizeJob{Column: name, Values: values})
	}

	pool := NewWorkerPool(ctx, n.workers, len(jobs), n.fn)
	pool.Start()

	failures := make(simerrors.ColumnErrors)
	for _, job := range jobs {
		if err := pool.SubmitJob(job); err != nil {
			failures[job.Column] = err
		}
	}
	pool.Close()

	store := newResultStore()
	for result := range pool.Results() {
		if result.Err != nil {
			failures[result.Column] = result.Err
			continue
		}
		if len(result.Values) != table.Rows() {
			failures[result.Column] = simerrors.NewValidationError("normalizer", "Normalize",
				"normalized column changed length")
			continue
		}
		store.put(result.Column, result.Values)
	}

	monitoring.ObserveNormalization(time.Since(startTime), len(jobs), len(failures))

	if len(failures) > 0 {
		return nil, simerrors.NewNormalizationError("normalizer", "Normalize", failures).
			WithContext("failed", len(failures))
	}

	// Columns that were not normalized pass through unchanged.
	merged := store.snapshot()
	for _, name := range table.Columns() {
		if _, ok := merged[name]; !ok {
			merged[name], _ = table.Column(name)
		}
	}

	order := Schema
	if !sameColumns(table.Columns(), Schema) {
		order = table.Columns()
	}
	out, err := NewFeatureTable(order, merged)
	if err != nil {
		return nil, err
	}
	return out.Sanitized(), nil
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, name := range a {
		set[name] = struct{}{}
	}
	for _, name := range b {
		if _, ok := set[name]; !ok {
			return false
		}
	}
	return true
}
