package reporting

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/crypto-gym/internal/env"
	"github.com/ducminhle1904/crypto-gym/internal/runner"
)

func oracleResult(t *testing.T) *runner.EpisodeResult {
	t.Helper()
	prices := []float64{5, 5, 4, 3, 4, 5, 4, 6}
	sim, err := env.NewTradingSimulator(prices, env.SignalFeaturesFromPrices(prices),
		env.Config{WindowSize: 1, FrameBound: env.FrameBound{Start: 1, End: 8}})
	require.NoError(t, err)

	result, err := runner.NewRunner(sim, runner.WithMetrics(false), runner.WithEpisodeID("ep-1")).
		Run(context.Background(), &runner.OraclePolicy{})
	require.NoError(t, err)
	return result
}

func TestConsoleReporter_OutputResults(t *testing.T) {
	var buf bytes.Buffer
	NewConsoleReporter(&buf).OutputResults(oracleResult(t))

	out := buf.String()
	assert.Contains(t, strings.ToLower(out), "episode ep-1")
	assert.Contains(t, out, "oracle")
	assert.Contains(t, out, "2.500000")
	assert.Contains(t, out, "100.00%")
	assert.Contains(t, out, "2 (2 closed)")
}

func TestConsoleReporter_OutputBatch(t *testing.T) {
	var buf bytes.Buffer
	NewConsoleReporter(&buf).OutputBatch([]runner.BatchResult{
		{ID: "good", Result: oracleResult(t)},
		{ID: "broken", Err: errors.New("frame out of range")},
	})

	out := buf.String()
	assert.Contains(t, strings.ToUpper(out), "BATCH RESULTS")
	assert.Contains(t, out, "good")
	assert.Contains(t, out, "error: frame out of range")
}

func TestWriteEpisodeXLSX(t *testing.T) {
	result := oracleResult(t)
	path := filepath.Join(t.TempDir(), "nested", "episode.xlsx")
	require.NoError(t, WriteEpisodeXLSX(result, path))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()

	assert.Equal(t, []string{"Summary", "Steps", "Trades"}, fx.GetSheetList())

	v, err := fx.GetCellValue("Summary", "B2")
	require.NoError(t, err)
	assert.Equal(t, "ep-1", v)

	rows, err := fx.GetRows("Steps")
	require.NoError(t, err)
	require.Len(t, rows, len(result.Records)+1)
	assert.Equal(t, "Tick", rows[0][0])
	assert.Equal(t, "2", rows[1][0])

	trades, err := fx.GetRows("Trades")
	require.NoError(t, err)
	require.Len(t, trades, 3)
	assert.Equal(t, "3", trades[1][1])
	assert.Equal(t, "5", trades[1][2])
}

func TestWriteSummaryJSON(t *testing.T) {
	result := oracleResult(t)
	path := filepath.Join(t.TempDir(), "summary.json")
	require.NoError(t, WriteSummaryJSON(result, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var summary EpisodeSummary
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, "ep-1", summary.ID)
	assert.True(t, summary.Completed)
	assert.InDelta(t, 2.5, summary.TotalProfit, 1e-12)
	assert.Equal(t, []int{3, 6}, summary.BuyTicks)
	require.Len(t, summary.Trades, 2)
	assert.Equal(t, 3, summary.Trades[0].EntryTick)
	assert.Contains(t, string(data), `"max_possible_profit"`)
}

func TestWriteStepsCSV(t *testing.T) {
	result := oracleResult(t)
	path := filepath.Join(t.TempDir(), "steps.csv")
	require.NoError(t, WriteStepsCSV(result, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, len(result.Records)+2)
	assert.Equal(t, "Tick", records[0][0])
	assert.Equal(t, result.Records[0].Action.String(), records[1][2])
	assert.True(t, strings.HasPrefix(records[len(records)-1][7], "SUMMARY:"))
}

func TestWriteStepsCSV_XLSXPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steps.xlsx")
	require.NoError(t, WriteStepsCSV(oracleResult(t), path))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()
	assert.Contains(t, fx.GetSheetList(), "Steps")
}

func TestDefaultOutputDir(t *testing.T) {
	assert.Equal(t, filepath.Join("results", "oracle_lookahead"), DefaultOutputDir(" Oracle ", "LookAhead"))
	assert.Equal(t, filepath.Join("results", "unknown_unknown"), DefaultOutputDir("", ""))
}
