package reporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ducminhle1904/crypto-gym/internal/runner"
)

// DefaultCSVReporter writes step records as CSV
type DefaultCSVReporter struct{}

// NewDefaultCSVReporter creates a new CSV reporter
func NewDefaultCSVReporter() *DefaultCSVReporter {
	return &DefaultCSVReporter{}
}

// WriteStepsCSV writes one row per step followed by a summary row. An .xlsx path is
// delegated to the Excel writer.
func (r *DefaultCSVReporter) WriteStepsCSV(result *runner.EpisodeResult, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return WriteEpisodeXLSX(result, path)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"Tick", "Price", "Action", "Reward", "Position", "Total_Reward", "Total_Profit", "Trade"}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, s := range result.Records {
		row := []string{
			strconv.Itoa(s.Tick),
			strconv.FormatFloat(s.Price, 'f', -1, 64),
			s.Action.String(),
			strconv.FormatFloat(s.Reward, 'f', 6, 64),
			s.Position.String(),
			strconv.FormatFloat(s.TotalReward, 'f', 6, 64),
			strconv.FormatFloat(s.TotalProfit, 'f', 8, 64),
			strconv.FormatBool(s.Trade),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	summary := make([]string, len(header))
	summary[len(header)-1] = fmt.Sprintf("SUMMARY: steps=%d; total_reward=%.4f; total_profit=%.6f; max_profit=%.6f; trades=%d",
		result.Steps, result.TotalReward, result.TotalProfit, result.MaxPossibleProfit, len(result.Trades))
	if err := w.Write(summary); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

// WriteStepsCSV is a convenience function using the default reporter
func WriteStepsCSV(result *runner.EpisodeResult, path string) error {
	return NewDefaultCSVReporter().WriteStepsCSV(result, path)
}
