package features

import (
	"context"

	simerrors "github.com/ducminhle1904/crypto-gym/internal/errors"
	"github.com/ducminhle1904/crypto-gym/pkg/types"
)

// Dataset is a normalized feature table plus the raw closing prices it was built from,
// index-aligned row for row.
type Dataset struct {
	Prices []float64      `json:"prices"`
	Table  *FeatureTable `json:"table"`
}

// Pipeline runs IndicatorEngine then ColumnNormalizer
type Pipeline struct {
	engine     *IndicatorEngine
	normalizer *ColumnNormalizer
}

// NewPipeline creates a pipeline
func NewPipeline(engine *IndicatorEngine, normalizer *ColumnNormalizer) *Pipeline {
	return &Pipeline{engine: engine, normalizer: normalizer}
}

// NewDefaultPipeline uses the default indicator parameters and one worker per CPU
func NewDefaultPipeline() *Pipeline {
	return NewPipeline(NewIndicatorEngine(DefaultEngineConfig()), NewColumnNormalizer(0))
}

// Build computes, truncates and normalizes the feature table for candles
func (p *Pipeline) Build(ctx context.Context, candles []types.OHLCV) (*Dataset, error) {
	raw, err := p.engine.ComputeCandles(candles)
	if err != nil {
		return nil, err
	}

	normalized, err := p.normalizer.Normalize(ctx, raw)
	if err != nil {
		return nil, err
	}

	prices, ok := raw.Column(ColClose)
	if !ok {
		return nil, simerrors.NewValidationError("pipeline", "Build", "close column missing")
	}

	return &Dataset{Prices: prices, Table: normalized}, nil
}
