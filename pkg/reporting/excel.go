package reporting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/crypto-gym/internal/env"
	"github.com/ducminhle1904/crypto-gym/internal/runner"
)

const (
	summarySheet = "Summary"
	stepsSheet   = "Steps"
	tradesSheet  = "Trades"
)

// DefaultExcelReporter implements Excel output functionality
type DefaultExcelReporter struct{}

// NewDefaultExcelReporter creates a new Excel reporter
func NewDefaultExcelReporter() *DefaultExcelReporter {
	return &DefaultExcelReporter{}
}

// WriteEpisodeXLSX writes the summary, the step history and the trades of one episode
func (r *DefaultExcelReporter) WriteEpisodeXLSX(result *runner.EpisodeResult, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	fx.SetSheetName(fx.GetSheetName(0), summarySheet)
	if _, err := fx.NewSheet(stepsSheet); err != nil {
		return err
	}
	if _, err := fx.NewSheet(tradesSheet); err != nil {
		return err
	}

	styles, err := r.createExcelStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeSummarySheet(fx, result, styles); err != nil {
		return err
	}
	if err := r.writeStepsSheet(fx, result, styles); err != nil {
		return err
	}
	if err := r.writeTradesSheet(fx, result, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func (r *DefaultExcelReporter) createExcelStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles
	var err error

	thin := []excelize.Border{
		{Type: "left", Color: "E0E0E0", Style: 1},
		{Type: "right", Color: "E0E0E0", Style: 1},
		{Type: "bottom", Color: "E0E0E0", Style: 1},
	}

	styles.HeaderStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	styles.BaseStyle, err = fx.NewStyle(&excelize.Style{Border: thin})
	if err != nil {
		return styles, err
	}

	// 4 decimals for prices and profit factors
	styles.PriceStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    4,
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    thin,
	})
	if err != nil {
		return styles, err
	}

	styles.PercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    10,
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    thin,
	})
	if err != nil {
		return styles, err
	}

	styles.RedPercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    10,
		Font:      &excelize.Font{Color: "FF0000"},
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    thin,
	})
	if err != nil {
		return styles, err
	}

	styles.GreenPercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    10,
		Font:      &excelize.Font{Color: "008000"},
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    thin,
	})
	if err != nil {
		return styles, err
	}

	styles.BuyStyle, err = fx.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Color: "006100"},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"C6EFCE"}, Pattern: 1},
		Border: thin,
	})
	if err != nil {
		return styles, err
	}

	styles.SellStyle, err = fx.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Color: "9C0006"},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"FFC7CE"}, Pattern: 1},
		Border: thin,
	})
	if err != nil {
		return styles, err
	}

	styles.SummaryStyle, err = fx.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Color: "000000"},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"D9E1F2"}, Pattern: 1},
		Border: thin,
	})
	return styles, err
}

func (r *DefaultExcelReporter) writeHeader(fx *excelize.File, sheet string, headers []string, styles ExcelStyles) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(sheet, cell, h)
		fx.SetCellStyle(sheet, cell, cell, styles.HeaderStyle)
	}
	fx.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func (r *DefaultExcelReporter) writeSummarySheet(fx *excelize.File, result *runner.EpisodeResult, styles ExcelStyles) error {
	sheet := summarySheet
	fx.SetColWidth(sheet, "A", "A", 22)
	fx.SetColWidth(sheet, "B", "B", 24)

	r.writeHeader(fx, sheet, []string{"Metric", "Value"}, styles)

	rows := []struct {
		label string
		value interface{}
		style int
	}{
		{"Episode", result.ID, styles.BaseStyle},
		{"Policy", result.Policy, styles.BaseStyle},
		{"Reward", result.Reward, styles.BaseStyle},
		{"Start Tick", result.StartTick, styles.BaseStyle},
		{"End Tick", result.EndTick, styles.BaseStyle},
		{"Steps", result.Steps, styles.BaseStyle},
		{"Completed", result.Completed, styles.BaseStyle},
		{"Total Reward", result.TotalReward, styles.PriceStyle},
		{"Total Profit", result.TotalProfit, styles.PriceStyle},
		{"Max Possible Profit", result.MaxPossibleProfit, styles.PriceStyle},
		{"Efficiency", result.Efficiency, styles.PercentStyle},
		{"Trades", len(result.Trades), styles.BaseStyle},
		{"Win Rate", result.WinRate / 100, styles.PercentStyle},
		{"Max Drawdown", result.MaxDrawdown, styles.RedPercentStyle},
		{"Sharpe Ratio", result.SharpeRatio, styles.PriceStyle},
	}

	for i, row := range rows {
		labelCell, _ := excelize.CoordinatesToCellName(1, i+2)
		valueCell, _ := excelize.CoordinatesToCellName(2, i+2)
		fx.SetCellValue(sheet, labelCell, row.label)
		fx.SetCellStyle(sheet, labelCell, labelCell, styles.SummaryStyle)
		fx.SetCellValue(sheet, valueCell, row.value)
		fx.SetCellStyle(sheet, valueCell, valueCell, row.style)
	}
	return nil
}

func (r *DefaultExcelReporter) writeStepsSheet(fx *excelize.File, result *runner.EpisodeResult, styles ExcelStyles) error {
	sheet := stepsSheet
	fx.SetColWidth(sheet, "A", "A", 8)  // Tick
	fx.SetColWidth(sheet, "B", "B", 12) // Price
	fx.SetColWidth(sheet, "C", "C", 8)  // Action
	fx.SetColWidth(sheet, "D", "D", 12) // Reward
	fx.SetColWidth(sheet, "E", "E", 10) // Position
	fx.SetColWidth(sheet, "F", "F", 14) // Total Reward
	fx.SetColWidth(sheet, "G", "G", 14) // Total Profit
	fx.SetColWidth(sheet, "H", "H", 8)  // Trade

	r.writeHeader(fx, sheet, []string{"Tick", "Price", "Action", "Reward", "Position", "Total Reward", "Total Profit", "Trade"}, styles)

	for i, s := range result.Records {
		row := i + 2
		values := []interface{}{s.Tick, s.Price, s.Action.String(), s.Reward, s.Position.String(), s.TotalReward, s.TotalProfit, s.Trade}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := fx.SetSheetRow(sheet, start, &values); err != nil {
			return err
		}

		end, _ := excelize.CoordinatesToCellName(len(values), row)
		fx.SetCellStyle(sheet, start, end, styles.BaseStyle)

		priceCell, _ := excelize.CoordinatesToCellName(2, row)
		fx.SetCellStyle(sheet, priceCell, priceCell, styles.PriceStyle)

		if s.Trade {
			actionCell, _ := excelize.CoordinatesToCellName(3, row)
			style := styles.BuyStyle
			if s.Action == env.ActionSell {
				style = styles.SellStyle
			}
			fx.SetCellStyle(sheet, actionCell, actionCell, style)
		}

		profitStart, _ := excelize.CoordinatesToCellName(4, row)
		fx.SetCellStyle(sheet, profitStart, profitStart, styles.PriceStyle)
		totalStart, _ := excelize.CoordinatesToCellName(6, row)
		totalEnd, _ := excelize.CoordinatesToCellName(7, row)
		fx.SetCellStyle(sheet, totalStart, totalEnd, styles.PriceStyle)
	}
	return nil
}

func (r *DefaultExcelReporter) writeTradesSheet(fx *excelize.File, result *runner.EpisodeResult, styles ExcelStyles) error {
	sheet := tradesSheet
	fx.SetColWidth(sheet, "A", "A", 6)
	fx.SetColWidth(sheet, "B", "C", 11)
	fx.SetColWidth(sheet, "D", "E", 13)
	fx.SetColWidth(sheet, "F", "F", 11)
	fx.SetColWidth(sheet, "G", "G", 8)

	r.writeHeader(fx, sheet, []string{"#", "Entry Tick", "Exit Tick", "Entry Price", "Exit Price", "Return", "Open"}, styles)

	for i, t := range result.Trades {
		row := i + 2
		values := []interface{}{i + 1, t.EntryTick, t.ExitTick, t.EntryPrice, t.ExitPrice, t.Return, t.Open}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := fx.SetSheetRow(sheet, start, &values); err != nil {
			return err
		}

		end, _ := excelize.CoordinatesToCellName(len(values), row)
		fx.SetCellStyle(sheet, start, end, styles.BaseStyle)

		priceStart, _ := excelize.CoordinatesToCellName(4, row)
		priceEnd, _ := excelize.CoordinatesToCellName(5, row)
		fx.SetCellStyle(sheet, priceStart, priceEnd, styles.PriceStyle)

		retCell, _ := excelize.CoordinatesToCellName(6, row)
		style := styles.GreenPercentStyle
		if t.Return < 0 {
			style = styles.RedPercentStyle
		}
		fx.SetCellStyle(sheet, retCell, retCell, style)
	}
	return nil
}

// WriteEpisodeXLSX is a convenience function using the default reporter
func WriteEpisodeXLSX(result *runner.EpisodeResult, path string) error {
	return NewDefaultExcelReporter().WriteEpisodeXLSX(result, path)
}
