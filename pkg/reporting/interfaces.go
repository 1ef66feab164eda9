// Package reporting renders episode results as console tables, workbooks, JSON and CSV.
package reporting

import (
	"github.com/ducminhle1904/crypto-gym/internal/runner"
)

// ConsoleReporter defines interface for console output
type ConsoleReporter interface {
	OutputResults(result *runner.EpisodeResult)
	OutputBatch(results []runner.BatchResult)
}

var _ ConsoleReporter = (*DefaultConsoleReporter)(nil)

// ExcelStyles holds Excel formatting styles
type ExcelStyles struct {
	HeaderStyle       int
	BaseStyle         int
	PriceStyle        int
	PercentStyle      int
	RedPercentStyle   int
	GreenPercentStyle int
	BuyStyle          int
	SellStyle         int
	SummaryStyle      int
}
