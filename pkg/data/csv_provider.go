package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	simerrors "github.com/ducminhle1904/crypto-gym/internal/errors"
	"github.com/ducminhle1904/crypto-gym/pkg/types"
)

// CSVProvider implements DataProvider for CSV files with a header row.
// Columns are located by name, so their order in the file does not matter.
type CSVProvider struct {
	strict bool
}

// NewCSVProvider creates a CSV provider that skips unparseable rows
func NewCSVProvider() *CSVProvider {
	return &CSVProvider{}
}

// NewStrictCSVProvider creates a CSV provider that fails on the first unparseable row
func NewStrictCSVProvider() *CSVProvider {
	return &CSVProvider{strict: true}
}

// GetName returns the name of the data provider
func (p *CSVProvider) GetName() string {
	return "CSV Provider"
}

// LoadData loads historical data from a CSV file
func (p *CSVProvider) LoadData(source string) ([]types.OHLCV, error) {
	file, err := os.Open(source)
	if err != nil {
		return nil, simerrors.NewDataError("csv", "LoadData", err).WithContext("source", source)
	}
	defer file.Close()

	data, err := p.Read(file)
	if err != nil {
		return nil, simerrors.NewDataError("csv", "LoadData", err).WithContext("source", source)
	}
	return data, nil
}

// Read parses candles from any reader
func (p *CSVProvider) Read(r io.Reader) ([]types.OHLCV, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty csv: %w", simerrors.ErrInsufficientData)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	index, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	var data []types.OHLCV
	lineNum := 1
	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("error reading CSV at line %d: %w", lineNum+1, err)
		}
		lineNum++

		candle, err := parseRecord(record, index)
		if err != nil {
			if p.strict {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			log.Printf("[csv] skipping line %d: %v", lineNum, err)
			continue
		}
		data = append(data, candle)
	}

	return data, nil
}

type columnIndex struct {
	timestamp int
	fields    map[string]int
}

func mapHeader(header []string) (columnIndex, error) {
	index := columnIndex{timestamp: -1, fields: make(map[string]int)}

	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		for _, required := range RequiredColumns {
			if name == required {
				index.fields[required] = i
			}
		}
		if index.timestamp < 0 {
			for _, candidate := range TimestampColumns {
				if name == candidate {
					index.timestamp = i
				}
			}
		}
	}

	var missing []string
	for _, required := range RequiredColumns {
		if _, ok := index.fields[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return index, simerrors.NewValidationError("csv", "mapHeader",
			fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")))
	}

	return index, nil
}

func parseRecord(record []string, index columnIndex) (types.OHLCV, error) {
	var candle types.OHLCV
	values := make(map[string]float64, len(RequiredColumns))

	for _, name := range RequiredColumns {
		col := index.fields[name]
		if col >= len(record) {
			return candle, fmt.Errorf("missing %s column", name)
		}
		raw := strings.TrimSpace(record[col])
		if raw == "" {
			// Empty cells are treated like NaN and zeroed.
			values[name] = 0
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return candle, fmt.Errorf("invalid %s %q: %w", name, raw, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		values[name] = v
	}

	candle.Open = values["open"]
	candle.High = values["high"]
	candle.Low = values["low"]
	candle.Close = values["close"]
	candle.Volume = values["volume"]

	if index.timestamp >= 0 && index.timestamp < len(record) {
		ts, err := parseTimestamp(strings.TrimSpace(record[index.timestamp]))
		if err != nil {
			return candle, err
		}
		candle.Timestamp = ts
	}

	return candle, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		// 13 digits and more are milliseconds
		if n > 1e12 || n < -1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	for _, layout := range TimestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
}

// ValidateData validates the integrity of loaded data
func (p *CSVProvider) ValidateData(data []types.OHLCV) error {
	if len(data) == 0 {
		return simerrors.NewDataError("csv", "ValidateData", simerrors.ErrInsufficientData)
	}

	for i, candle := range data {
		if candle.Open <= 0 || candle.High <= 0 || candle.Low <= 0 || candle.Close <= 0 {
			return simerrors.NewValidationError("csv", "ValidateData", "prices must be positive").
				WithContext("index", i)
		}

		if candle.High < candle.Low {
			return simerrors.NewValidationError("csv", "ValidateData",
				fmt.Sprintf("high (%.4f) cannot be less than low (%.4f)", candle.High, candle.Low)).
				WithContext("index", i)
		}

		if i > 0 && candle.Timestamp.Before(data[i-1].Timestamp) {
			return simerrors.NewValidationError("csv", "ValidateData", "timestamps must be in chronological order").
				WithContext("index", i)
		}
	}

	return nil
}

// GenerateSampleData creates a seeded random walk of hourly candles, for demos and tests
func GenerateSampleData(n int, seed int64) []types.OHLCV {
	rng := rand.New(rand.NewSource(seed))
	data := make([]types.OHLCV, n)
	startTime := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	basePrice := 30000.0

	for i := range data {
		volatility := 0.02
		randomWalk := (rng.Float64() - 0.5) * basePrice * volatility
		price := basePrice + randomWalk

		// Ensure price stays positive
		if price < basePrice*0.5 {
			price = basePrice * 0.5
		}

		open := price * (1 + (rng.Float64()-0.5)*0.01)
		high := math.Max(open, price) * (1 + rng.Float64()*0.02)
		low := math.Min(open, price) * (1 - rng.Float64()*0.02)

		data[i] = types.OHLCV{
			Timestamp: startTime.Add(time.Duration(i) * time.Hour),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     price,
			Volume:    100 + rng.Float64()*1000000,
		}

		basePrice = price
	}

	return data
}
