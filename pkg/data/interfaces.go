package data

import (
	"context"
	"time"

	"github.com/ducminhle1904/crypto-gym/internal/features"
	"github.com/ducminhle1904/crypto-gym/pkg/types"
)

// DataProvider interface for loading historical data from various sources
type DataProvider interface {
	// LoadData loads historical data from the specified source
	LoadData(source string) ([]types.OHLCV, error)

	// ValidateData validates the integrity of the loaded data
	ValidateData(data []types.OHLCV) error

	// GetName returns the name of the data provider
	GetName() string
}

// DataCache interface for caching loaded candles
type DataCache interface {
	Get(key string) ([]types.OHLCV, bool)
	Set(key string, data []types.OHLCV)
	Clear()
	Size() int
}

// FeatureCache stores built datasets so a price series is only normalized once.
// Implementations must be safe for concurrent use.
type FeatureCache interface {
	// Get returns the cached dataset, or ok=false on a miss
	Get(ctx context.Context, key string) (ds *features.Dataset, ok bool, err error)

	// Set stores the dataset under key
	Set(ctx context.Context, key string, ds *features.Dataset) error
}

// DataFilter interface for filtering and transforming data
type DataFilter interface {
	// FilterByDateRange filters data to a specific date range
	FilterByDateRange(data []types.OHLCV, start, end time.Time) []types.OHLCV

	// LastN keeps the trailing n candles
	LastN(data []types.OHLCV, n int) []types.OHLCV

	// ValidateTimeSequence ensures data is in chronological order
	ValidateTimeSequence(data []types.OHLCV) error
}

// Column names recognised in a CSV header, matched case-insensitively
var (
	TimestampColumns = []string{"timestamp", "time", "date", "datetime", "open_time"}
	RequiredColumns  = []string{"open", "high", "low", "close", "volume"}
)

// Accepted timestamp layouts, tried in order. Integer values are treated as unix seconds or milliseconds.
var TimestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}
