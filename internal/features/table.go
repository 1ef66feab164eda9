package features

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	simerrors "github.com/ducminhle1904/crypto-gym/internal/errors"
	"github.com/ducminhle1904/crypto-gym/internal/indicators"
)

// Column names of the canonical feature schema
const (
	ColOpen                = "open"
	ColClose               = "close"
	ColHigh                = "high"
	ColLow                 = "low"
	ColVolume              = "volume"
	ColAdosc               = "adosc"
	ColAtr                 = "atr"
	ColMacd                = "macd"
	ColMacdSignal          = "macd_signal"
	ColMacdHist            = "macd_hist"
	ColMfi                 = "mfi"
	ColUpperBand           = "upper_band"
	ColMiddleBand          = "middle_band"
	ColLowerBand           = "lower_band"
	ColRsi                 = "rsi"
	ColDifferenceLowHigh   = "difference_low_high"
	ColDifferenceOpenClose = "difference_open_close"
)

// Schema is the fixed column order of every FeatureTable produced by the pipeline
var Schema = []string{
	ColOpen, ColClose, ColHigh, ColLow, ColVolume,
	ColAdosc, ColAtr,
	ColMacd, ColMacdSignal, ColMacdHist,
	ColMfi,
	ColUpperBand, ColMiddleBand, ColLowerBand,
	ColRsi,
	ColDifferenceLowHigh, ColDifferenceOpenClose,
}

// Column groups. Absolute and oscillator columns are converted to relative change;
// ratio columns are already relative and pass through.
var (
	AbsoluteColumns = []string{
		ColOpen, ColClose, ColHigh, ColLow, ColVolume,
		ColAdosc, ColAtr, ColMacd, ColMacdSignal, ColMacdHist,
		ColUpperBand, ColMiddleBand, ColLowerBand,
	}
	OscillatorColumns = []string{ColMfi, ColRsi}
	RatioColumns      = []string{ColDifferenceLowHigh, ColDifferenceOpenClose}
)

// FeatureTable is a rectangular table of named float columns.
// It is immutable once built: accessors return copies.
type FeatureTable struct {
	columns []string
	data    map[string][]float64
	rows    int
}

// NewFeatureTable builds a table with the given column order. Every column must be
// present in data and all columns must have the same length.
func NewFeatureTable(columns []string, data map[string][]float64) (*FeatureTable, error) {
	table := &FeatureTable{
		columns: append([]string(nil), columns...),
		data:    make(map[string][]float64, len(columns)),
		rows:    -1,
	}

	for _, name := range columns {
		values, ok := data[name]
		if !ok {
			return nil, simerrors.NewValidationError("features", "NewFeatureTable", "missing column").
				WithContext("column", name)
		}
		if _, dup := table.data[name]; dup {
			return nil, simerrors.NewValidationError("features", "NewFeatureTable", "duplicate column").
				WithContext("column", name)
		}
		if table.rows >= 0 && len(values) != table.rows {
			return nil, simerrors.NewValidationError("features", "NewFeatureTable",
				fmt.Sprintf("column has %d rows, expected %d", len(values), table.rows)).
				WithContext("column", name)
		}
		table.rows = len(values)
		table.data[name] = append([]float64(nil), values...)
	}
	if table.rows < 0 {
		table.rows = 0
	}

	return table, nil
}

// Columns returns the column names in table order
func (t *FeatureTable) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Rows returns the number of rows
func (t *FeatureTable) Rows() int {
	return t.rows
}

// Width returns the number of columns
func (t *FeatureTable) Width() int {
	return len(t.columns)
}

// Column returns a copy of the named column
func (t *FeatureTable) Column(name string) ([]float64, bool) {
	values, ok := t.data[name]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), values...), true
}

// Row returns the values of row i in column order
func (t *FeatureTable) Row(i int) []float64 {
	row := make([]float64, len(t.columns))
	for j, name := range t.columns {
		row[j] = t.data[name][i]
	}
	return row
}

// Matrix returns the table as row-major [rows][columns] values
func (t *FeatureTable) Matrix() [][]float64 {
	out := make([][]float64, t.rows)
	for i := range out {
		out[i] = t.Row(i)
	}
	return out
}

// Tail returns a new table holding the trailing n rows
func (t *FeatureTable) Tail(n int) *FeatureTable {
	if n < 0 || n >= t.rows {
		n = t.rows
	}
	data := make(map[string][]float64, len(t.columns))
	for _, name := range t.columns {
		data[name] = t.data[name][t.rows-n:]
	}
	out, _ := NewFeatureTable(t.columns, data)
	return out
}

// Reindex returns a table with columns in the given order. Every name must exist.
func (t *FeatureTable) Reindex(columns []string) (*FeatureTable, error) {
	return NewFeatureTable(columns, t.data)
}

// Sanitized returns a copy of the table with NaN and ±Inf replaced by 0
func (t *FeatureTable) Sanitized() *FeatureTable {
	data := make(map[string][]float64, len(t.columns))
	for _, name := range t.columns {
		data[name] = indicators.Sanitize(t.data[name])
	}
	out, _ := NewFeatureTable(t.columns, data)
	return out
}

// WriteCSV writes the table with a header row
func (t *FeatureTable) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.columns); err != nil {
		return err
	}

	record := make([]string, len(t.columns))
	for i := 0; i < t.rows; i++ {
		for j, name := range t.columns {
			record[j] = strconv.FormatFloat(t.data[name][i], 'g', -1, 64)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

type tableJSON struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"`
}

// MarshalJSON encodes the table column-major
func (t *FeatureTable) MarshalJSON() ([]byte, error) {
	payload := tableJSON{Columns: t.columns, Values: make([][]float64, len(t.columns))}
	for j, name := range t.columns {
		payload.Values[j] = t.data[name]
	}
	return json.Marshal(payload)
}

// UnmarshalJSON decodes a table written by MarshalJSON
func (t *FeatureTable) UnmarshalJSON(raw []byte) error {
	var payload tableJSON
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	if len(payload.Values) != len(payload.Columns) {
		return fmt.Errorf("feature table json: %d columns but %d value arrays", len(payload.Columns), len(payload.Values))
	}

	data := make(map[string][]float64, len(payload.Columns))
	for j, name := range payload.Columns {
		data[name] = payload.Values[j]
	}
	decoded, err := NewFeatureTable(payload.Columns, data)
	if err != nil {
		return err
	}
	*t = *decoded
	return nil
}
