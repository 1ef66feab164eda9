package runner

import (
	"math"
	"time"

	"github.com/ducminhle1904/crypto-gym/internal/env"
)

// EpisodeMeta identifies an episode to observers
type EpisodeMeta struct {
	ID         string
	Policy     string
	Reward     string
	WindowSize int
	StartTick  int
	EndTick    int
	StartedAt  time.Time
}

// StepRecord is one executed step
type StepRecord struct {
	EpisodeID   string
	Tick        int
	Price       float64
	Action      env.Action
	Reward      float64
	Position    env.Position
	TotalReward float64
	TotalProfit float64
	Trade       bool
	Done        bool
}

// Trade is a round trip reconstructed from the position history. Open trades were still
// LONG when the episode ended and were marked to the last price.
type Trade struct {
	EntryTick  int     `json:"entry_tick"`
	ExitTick   int     `json:"exit_tick"`
	EntryPrice float64 `json:"entry_price"`
	ExitPrice  float64 `json:"exit_price"`
	Return     float64 `json:"return"`
	Open       bool    `json:"open"`
}

// TradeReport partitions executed ticks by action
type TradeReport struct {
	BuyTicks  []int
	HoldTicks []int
	SellTicks []int
}

// EpisodeResult summarises a finished or interrupted episode
type EpisodeResult struct {
	ID                string
	Policy            string
	Reward            string
	StartTick         int
	EndTick           int
	Steps             int
	Completed         bool
	TotalReward       float64
	TotalProfit       float64
	MaxPossibleProfit float64
	Efficiency        float64
	WinRate           float64
	MaxDrawdown       float64
	SharpeRatio       float64
	Trades            []Trade
	Report            TradeReport
	Records           []StepRecord
	Prices            []float64
	History           env.InfoHistory
	Duration          time.Duration
}

// Efficiency is (profit-1)/(maxProfit-1), or 0 when nothing could be earned
func Efficiency(profit, maxProfit float64) float64 {
	if maxProfit <= 1 {
		return 0
	}
	return (profit - 1) / (maxProfit - 1)
}

// UpdateMetrics recomputes every derived field from Records
func (r *EpisodeResult) UpdateMetrics() {
	r.Trades = buildTrades(r.Records)
	r.Report = buildReport(r.Records)
	r.Efficiency = Efficiency(r.TotalProfit, r.MaxPossibleProfit)
	r.WinRate = r.calculateWinRate()
	r.MaxDrawdown = r.calculateMaxDrawdown()
	r.SharpeRatio = r.calculateSharpeRatio()
}

// ClosedTrades counts trades that were sold before the episode ended
func (r *EpisodeResult) ClosedTrades() int {
	n := 0
	for _, t := range r.Trades {
		if !t.Open {
			n++
		}
	}
	return n
}

func buildTrades(records []StepRecord) []Trade {
	var trades []Trade
	var open *Trade
	prev := env.PositionFlat

	for _, rec := range records {
		switch {
		case prev == env.PositionFlat && rec.Position == env.PositionLong:
			open = &Trade{EntryTick: rec.Tick, EntryPrice: rec.Price}
		case prev == env.PositionLong && rec.Position == env.PositionFlat && open != nil:
			open.ExitTick = rec.Tick
			open.ExitPrice = rec.Price
			open.Return = tradeReturn(open.EntryPrice, open.ExitPrice)
			trades = append(trades, *open)
			open = nil
		}
		prev = rec.Position
	}

	if open != nil && len(records) > 0 {
		last := records[len(records)-1]
		open.ExitTick = last.Tick
		open.ExitPrice = last.Price
		open.Return = tradeReturn(open.EntryPrice, open.ExitPrice)
		open.Open = true
		trades = append(trades, *open)
	}
	return trades
}

func buildReport(records []StepRecord) TradeReport {
	var report TradeReport
	for _, rec := range records {
		switch rec.Action {
		case env.ActionBuy:
			report.BuyTicks = append(report.BuyTicks, rec.Tick)
		case env.ActionSell:
			report.SellTicks = append(report.SellTicks, rec.Tick)
		default:
			report.HoldTicks = append(report.HoldTicks, rec.Tick)
		}
	}
	return report
}

func tradeReturn(entry, exit float64) float64 {
	if entry == 0 {
		return 0
	}
	return exit/entry - 1
}

func (r *EpisodeResult) calculateWinRate() float64 {
	if len(r.Trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range r.Trades {
		if t.Return > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(r.Trades)) * 100
}

// calculateMaxDrawdown works on the total profit curve, starting from 1.0
func (r *EpisodeResult) calculateMaxDrawdown() float64 {
	peak := 1.0
	maxDD := 0.0
	for _, rec := range r.Records {
		if rec.TotalProfit > peak {
			peak = rec.TotalProfit
		}
		if peak > 0 {
			if dd := (peak - rec.TotalProfit) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

func (r *EpisodeResult) calculateSharpeRatio() float64 {
	if len(r.Trades) == 0 {
		return 0
	}

	avg := 0.0
	for _, t := range r.Trades {
		avg += t.Return
	}
	avg /= float64(len(r.Trades))

	variance := 0.0
	for _, t := range r.Trades {
		variance += math.Pow(t.Return-avg, 2)
	}
	variance /= float64(len(r.Trades))
	stdDev := math.Sqrt(variance)

	if stdDev < 1e-10 {
		return 0
	}
	return avg / stdDev
}
