package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ducminhle1904/crypto-gym/internal/runner"
)

// EpisodeSummary is the JSON shape of an episode result without per-step records
type EpisodeSummary struct {
	ID                string         `json:"id"`
	Policy            string         `json:"policy"`
	Reward            string         `json:"reward"`
	StartTick         int            `json:"start_tick"`
	EndTick           int            `json:"end_tick"`
	Steps             int            `json:"steps"`
	Completed         bool           `json:"completed"`
	TotalReward       float64        `json:"total_reward"`
	TotalProfit       float64        `json:"total_profit"`
	MaxPossibleProfit float64        `json:"max_possible_profit"`
	Efficiency        float64        `json:"efficiency"`
	WinRate           float64        `json:"win_rate"`
	MaxDrawdown       float64        `json:"max_drawdown"`
	SharpeRatio       float64        `json:"sharpe_ratio"`
	Trades            []runner.Trade `json:"trades"`
	BuyTicks          []int          `json:"buy_ticks"`
	HoldTicks         []int          `json:"hold_ticks"`
	SellTicks         []int          `json:"sell_ticks"`
	DurationMS        int64          `json:"duration_ms"`
}

// Summarize converts a result into its JSON summary
func Summarize(result *runner.EpisodeResult) EpisodeSummary {
	return EpisodeSummary{
		ID:                result.ID,
		Policy:            result.Policy,
		Reward:            result.Reward,
		StartTick:         result.StartTick,
		EndTick:           result.EndTick,
		Steps:             result.Steps,
		Completed:         result.Completed,
		TotalReward:       result.TotalReward,
		TotalProfit:       result.TotalProfit,
		MaxPossibleProfit: result.MaxPossibleProfit,
		Efficiency:        result.Efficiency,
		WinRate:           result.WinRate,
		MaxDrawdown:       result.MaxDrawdown,
		SharpeRatio:       result.SharpeRatio,
		Trades:            result.Trades,
		BuyTicks:          result.Report.BuyTicks,
		HoldTicks:         result.Report.HoldTicks,
		SellTicks:         result.Report.SellTicks,
		DurationMS:        result.Duration.Milliseconds(),
	}
}

// FormatSummary returns the indented JSON summary
func FormatSummary(result *runner.EpisodeResult) ([]byte, error) {
	return json.MarshalIndent(Summarize(result), "", "  ")
}

// PrintSummaryJSON prints the JSON summary to stdout
func PrintSummaryJSON(result *runner.EpisodeResult) {
	data, _ := FormatSummary(result)
	fmt.Println(string(data))
}

// WriteSummaryJSON writes the JSON summary to path
func WriteSummaryJSON(result *runner.EpisodeResult, path string) error {
	data, err := FormatSummary(result)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return os.WriteFile(path, data, 0644)
}
