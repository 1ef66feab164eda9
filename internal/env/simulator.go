package env

import (
	"fmt"

	simerrors "github.com/ducminhle1904/crypto-gym/internal/errors"
	"github.com/ducminhle1904/crypto-gym/internal/features"
)

// EntryPriceSource selects which tick prices the open position when profit is compounded
type EntryPriceSource string

const (
	EntryLastBuy   EntryPriceSource = "last_buy"
	EntryLastTrade EntryPriceSource = "last_trade"
)

// Config configures a TradingSimulator
type Config struct {
	WindowSize int
	FrameBound FrameBound
	BidFee     float64 // fraction charged when closing
	AskFee     float64 // fraction charged when opening
	EntryPrice EntryPriceSource
	Reward     RewardStrategy
}

// DefaultConfig returns a window of 60 over the whole series given its length
func DefaultConfig(seriesLen int) Config {
	return Config{
		WindowSize: 60,
		FrameBound: FrameBound{Start: 60, End: seriesLen},
		BidFee:     0.00075,
		AskFee:     0.00075,
		EntryPrice: EntryLastBuy,
	}
}

// TradingSimulator replays a price series one tick per step and keeps position, reward and
// profit bookkeeping. It is not safe for concurrent use.
type TradingSimulator struct {
	prices   []float64
	signals  [][]float32
	cfg      Config
	reward   RewardStrategy
	features int

	startTick int
	endTick   int

	state   EpisodeState
	history InfoHistory
	ready   bool
}

// NewTradingSimulator slices prices and signalFeatures to
// [FrameBound.Start-WindowSize, FrameBound.End) and prepares an episode over the slice.
// Both inputs must have the same length. Inputs are copied.
func NewTradingSimulator(prices []float64, signalFeatures [][]float64, cfg Config) (*TradingSimulator, error) {
	if err := validateConfig(cfg, len(prices), len(signalFeatures)); err != nil {
		return nil, err
	}

	lo, hi := cfg.FrameBound.Start-cfg.WindowSize, cfg.FrameBound.End
	sliced := append([]float64(nil), prices[lo:hi]...)

	width := len(signalFeatures[lo])
	signals := make([][]float32, 0, hi-lo)
	for i := lo; i < hi; i++ {
		row := signalFeatures[i]
		if len(row) != width {
			return nil, simerrors.NewValidationError("env", "NewTradingSimulator",
				fmt.Sprintf("signal row %d has %d features, expected %d", i, len(row), width))
		}
		out := make([]float32, width)
		for j, v := range row {
			out[j] = float32(v)
		}
		signals = append(signals, out)
	}

	if cfg.Reward == nil {
		r, err := NewLookAheadReward(DefaultRewardParams())
		if err != nil {
			return nil, err
		}
		cfg.Reward = r
	}
	if cfg.EntryPrice == "" {
		cfg.EntryPrice = EntryLastBuy
	}

	s := &TradingSimulator{
		prices:    sliced,
		signals:   signals,
		cfg:       cfg,
		reward:    cfg.Reward,
		features:  width,
		startTick: cfg.WindowSize,
		endTick:   len(sliced) - 1,
	}
	s.state = newEpisodeState(s.startTick, cfg.WindowSize)
	return s, nil
}

// NewFromDataset builds a simulator whose observations are the rows of a normalized
// feature table and whose prices are the matching raw closes.
func NewFromDataset(ds *features.Dataset, cfg Config) (*TradingSimulator, error) {
	if ds == nil || ds.Table == nil {
		return nil, simerrors.NewValidationError("env", "NewFromDataset", "dataset is empty")
	}
	return NewTradingSimulator(ds.Prices, ds.Table.Matrix(), cfg)
}

// SignalFeaturesFromPrices returns the (price, price delta) feature pair per tick, with a
// zero delta on the first tick.
func SignalFeaturesFromPrices(prices []float64) [][]float64 {
	out := make([][]float64, len(prices))
	for i, p := range prices {
		diff := 0.0
		if i > 0 {
			diff = p - prices[i-1]
		}
		out[i] = []float64{p, diff}
	}
	return out
}

func validateConfig(cfg Config, priceLen, signalLen int) error {
	const op = "NewTradingSimulator"
	switch {
	case cfg.WindowSize < 1:
		return simerrors.NewConfigurationError("env", op, "window size must be at least 1").
			WithContext("window_size", cfg.WindowSize)
	case priceLen != signalLen:
		return simerrors.NewValidationError("env", op, "prices and signal features differ in length").
			WithContext("prices", priceLen).WithContext("signals", signalLen)
	case cfg.FrameBound.Start-cfg.WindowSize < 0 || cfg.FrameBound.End > priceLen:
		return simerrors.NewPreconditionError("env", op, simerrors.ErrInvalidFrameBound).
			WithContext("start", cfg.FrameBound.Start).WithContext("end", cfg.FrameBound.End).
			WithContext("window_size", cfg.WindowSize).WithContext("len", priceLen)
	case cfg.FrameBound.End-cfg.FrameBound.Start < 2:
		// window plus two ticks is the shortest slice with a step in it
		return simerrors.NewPreconditionError("env", op, simerrors.ErrInsufficientData).
			WithContext("start", cfg.FrameBound.Start).WithContext("end", cfg.FrameBound.End)
	case cfg.BidFee < 0 || cfg.BidFee >= 1 || cfg.AskFee < 0 || cfg.AskFee >= 1:
		return simerrors.NewConfigurationError("env", op, "fees must be in [0, 1)").
			WithContext("bid_fee", cfg.BidFee).WithContext("ask_fee", cfg.AskFee)
	case cfg.EntryPrice != "" && cfg.EntryPrice != EntryLastBuy && cfg.EntryPrice != EntryLastTrade:
		return simerrors.NewConfigurationError("env", op, "unknown entry price source").
			WithContext("entry_price", string(cfg.EntryPrice))
	}
	return nil
}

// Reset starts a new episode and returns the first observation
func (s *TradingSimulator) Reset() Observation {
	s.state = newEpisodeState(s.startTick, s.cfg.WindowSize)
	s.history = InfoHistory{}
	s.ready = true
	return s.observation(s.state.CurrentTick)
}

// Step advances one tick, scores the action and updates position and profit. It fails
// without touching state when the episode is over, Reset was never called, the action is
// not valid or the reward strategy rejects the action.
func (s *TradingSimulator) Step(action Action) (StepResult, error) {
	if !action.Valid() {
		return StepResult{}, simerrors.NewPreconditionError("env", "Step", simerrors.ErrInvalidAction).
			WithContext("action", int(action))
	}
	if !s.ready {
		return StepResult{}, simerrors.NewSimError(simerrors.ErrorCategoryPrecondition, "env", "Step",
			"reset must be called before step")
	}
	if s.state.Done || s.state.CurrentTick >= s.endTick {
		return StepResult{}, simerrors.NewPreconditionError("env", "Step", simerrors.ErrEpisodeDone).
			WithContext("tick", s.state.CurrentTick)
	}

	next := s.state
	next.CurrentTick++
	next.Done = next.CurrentTick == s.endTick

	reward, err := s.reward.Evaluate(action, next, s.prices)
	if err != nil {
		return StepResult{}, err
	}
	next.TotalReward += reward

	s.updateProfit(&next, action)

	if next.IsTrade(action) {
		next.Position = next.Position.Opposite()
		next.LastTradeTick = next.CurrentTick
		if action == ActionBuy {
			next.LastBuyTick = next.CurrentTick
		} else {
			next.LastSellTick = next.CurrentTick
		}
	}

	next.PositionHistory = append(next.PositionHistory, next.Position)
	next.ActionHistory = append(next.ActionHistory, action)
	s.state = next

	info := StepInfo{
		StepReward:  reward,
		TotalReward: next.TotalReward,
		TotalProfit: next.TotalProfit,
		Position:    next.Position,
	}
	s.history.append(info)

	return StepResult{
		Observation: s.observation(next.CurrentTick),
		Reward:      reward,
		Done:        next.Done,
		Info:        info,
	}, nil
}

// updateProfit compounds total profit when a long position closes or the episode ends long
func (s *TradingSimulator) updateProfit(state *EpisodeState, action Action) {
	if state.Position != PositionLong {
		return
	}
	if action != ActionSell && !state.Done {
		return
	}

	entryTick := state.LastBuyTick
	if s.cfg.EntryPrice == EntryLastTrade {
		entryTick = state.LastTradeTick
	}
	entry := s.prices[entryTick]
	if entry == 0 {
		return
	}

	exit := s.prices[state.CurrentTick]
	shares := state.TotalProfit * (1 - s.cfg.AskFee) / entry
	state.TotalProfit = shares * (1 - s.cfg.BidFee) * exit
}

func (s *TradingSimulator) observation(tick int) Observation {
	window := s.signals[tick-s.cfg.WindowSize : tick]
	obs := make(Observation, len(window))
	for i, row := range window {
		obs[i] = append([]float32(nil), row...)
	}
	return obs
}

// MaxPossibleProfit is the fee-free profit of buying at the start and selling at the end
// of every non-decreasing run between start and end tick.
func (s *TradingSimulator) MaxPossibleProfit() float64 {
	return MaxPossibleProfit(s.prices, s.startTick, s.endTick)
}

// MaxPossibleProfit partitions [startTick, endTick] into maximal decreasing and
// non-decreasing runs and compounds every non-decreasing one.
func MaxPossibleProfit(prices []float64, startTick, endTick int) float64 {
	profit := 1.0
	if startTick < 1 || endTick >= len(prices) {
		return profit
	}

	tick := startTick
	lastTradeTick := tick - 1
	for tick <= endTick {
		rising := true
		if prices[tick] < prices[tick-1] {
			rising = false
			for tick <= endTick && prices[tick] < prices[tick-1] {
				tick++
			}
		} else {
			for tick <= endTick && prices[tick] >= prices[tick-1] {
				tick++
			}
		}

		if rising && prices[lastTradeTick] != 0 {
			profit = profit / prices[lastTradeTick] * prices[tick-1]
		}
		lastTradeTick = tick - 1
	}
	return profit
}

// State returns a copy of the current episode state
func (s *TradingSimulator) State() EpisodeState {
	return s.state.Clone()
}

// History returns a copy of every info reported since the last reset
func (s *TradingSimulator) History() InfoHistory {
	return s.history.clone()
}

// Info returns the info for the current state; StepReward is the last reported reward
func (s *TradingSimulator) Info() StepInfo {
	info := StepInfo{
		TotalReward: s.state.TotalReward,
		TotalProfit: s.state.TotalProfit,
		Position:    s.state.Position,
	}
	if n := len(s.history.StepReward); n > 0 {
		info.StepReward = s.history.StepReward[n-1]
	}
	return info
}

// Prices returns a copy of the sliced price series
func (s *TradingSimulator) Prices() []float64 {
	return append([]float64(nil), s.prices...)
}

// StartTick is the first tick an episode observes
func (s *TradingSimulator) StartTick() int { return s.startTick }

// EndTick is the last tick of the frame
func (s *TradingSimulator) EndTick() int { return s.endTick }

// WindowSize is the number of rows in each observation
func (s *TradingSimulator) WindowSize() int { return s.cfg.WindowSize }

// Done reports whether the current episode has ended
func (s *TradingSimulator) Done() bool { return s.state.Done }

// Steps is the number of steps an episode lasts
func (s *TradingSimulator) Steps() int {
	return s.endTick - s.startTick
}

// RewardStrategy returns the configured strategy
func (s *TradingSimulator) RewardStrategy() RewardStrategy {
	return s.reward
}

// ActionSpace is the discrete BUY/HOLD/SELL space
func (s *TradingSimulator) ActionSpace() DiscreteSpace {
	return DiscreteSpace{N: len(Actions)}
}

// ObservationSpace is an unbounded window_size x feature_count box
func (s *TradingSimulator) ObservationSpace() BoxSpace {
	return UnboundedBox(s.cfg.WindowSize, s.features)
}
