package reporting

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/crypto-gym/internal/runner"
)

// DefaultConsoleReporter renders results as tables
type DefaultConsoleReporter struct {
	out io.Writer
}

// NewDefaultConsoleReporter creates a console reporter writing to stdout
func NewDefaultConsoleReporter() *DefaultConsoleReporter {
	return &DefaultConsoleReporter{out: os.Stdout}
}

// NewConsoleReporter creates a console reporter writing to w
func NewConsoleReporter(w io.Writer) *DefaultConsoleReporter {
	return &DefaultConsoleReporter{out: w}
}

// OutputResults prints the episode summary
func (r *DefaultConsoleReporter) OutputResults(result *runner.EpisodeResult) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("EPISODE " + result.ID)
	t.SetStyle(table.StyleRounded)

	status := "completed"
	if !result.Completed {
		status = "interrupted"
	}

	t.AppendRows([]table.Row{
		{"Policy", result.Policy},
		{"Reward", result.Reward},
		{"Ticks", fmt.Sprintf("%d -> %d (%d steps, %s)", result.StartTick, result.EndTick, result.Steps, status)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Total Reward", fmt.Sprintf("%.4f", result.TotalReward)},
		{"Total Profit", fmt.Sprintf("%.6f", result.TotalProfit)},
		{"Max Profit", fmt.Sprintf("%.6f", result.MaxPossibleProfit)},
		{"Efficiency", fmt.Sprintf("%.2f%%", result.Efficiency*100)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Trades", fmt.Sprintf("%d (%d closed)", len(result.Trades), result.ClosedTrades())},
		{"Win Rate", fmt.Sprintf("%.1f%%", result.WinRate)},
		{"Max Drawdown", fmt.Sprintf("%.2f%%", result.MaxDrawdown*100)},
		{"Sharpe Ratio", fmt.Sprintf("%.2f", result.SharpeRatio)},
		{"Buys/Holds/Sells", fmt.Sprintf("%d / %d / %d",
			len(result.Report.BuyTicks), len(result.Report.HoldTicks), len(result.Report.SellTicks))},
		{"Duration", result.Duration.String()},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, WidthMax: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 25, WidthMax: 45, Align: text.AlignLeft},
	})
	t.Render()
}

// OutputBatch prints one row per episode of a batch
func (r *DefaultConsoleReporter) OutputBatch(results []runner.BatchResult) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("BATCH RESULTS")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Episode", "Policy", "Steps", "Reward", "Profit", "Max Profit", "Efficiency", "Trades", "Status"})

	for _, res := range results {
		if res.Err != nil || res.Result == nil {
			t.AppendRow(table.Row{res.ID, "-", "-", "-", "-", "-", "-", "-", fmt.Sprintf("error: %v", res.Err)})
			continue
		}
		e := res.Result
		t.AppendRow(table.Row{
			res.ID, e.Policy, e.Steps,
			fmt.Sprintf("%.4f", e.TotalReward),
			fmt.Sprintf("%.6f", e.TotalProfit),
			fmt.Sprintf("%.6f", e.MaxPossibleProfit),
			fmt.Sprintf("%.2f%%", e.Efficiency*100),
			len(e.Trades),
			"ok",
		})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 9, WidthMax: 40, Align: text.AlignLeft},
	})
	t.Render()
}

// OutputConsole prints a summary to stdout
func OutputConsole(result *runner.EpisodeResult) {
	NewDefaultConsoleReporter().OutputResults(result)
}
