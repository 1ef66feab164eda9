package env

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	simerrors "github.com/ducminhle1904/crypto-gym/internal/errors"
	"github.com/ducminhle1904/crypto-gym/internal/features"
	"github.com/ducminhle1904/crypto-gym/pkg/data"
)

func generateRamp(n int, start, step float64) []float64 {
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = start + float64(i)*step
	}
	return prices
}

func newTestSimulator(t *testing.T, prices []float64, window int, bound FrameBound, opts ...func(*Config)) *TradingSimulator {
	t.Helper()
	cfg := Config{WindowSize: window, FrameBound: bound, BidFee: 0.01, AskFee: 0.01}
	for _, opt := range opts {
		opt(&cfg)
	}
	sim, err := NewTradingSimulator(prices, SignalFeaturesFromPrices(prices), cfg)
	require.NoError(t, err)
	return sim
}

func TestNewTradingSimulator_FrameValidation(t *testing.T) {
	prices := generateRamp(20, 100, 1)
	signals := SignalFeaturesFromPrices(prices)

	tests := []struct {
		name   string
		cfg    Config
		target error
	}{
		{"start before window", Config{WindowSize: 5, FrameBound: FrameBound{Start: 4, End: 20}}, simerrors.ErrInvalidFrameBound},
		{"end past series", Config{WindowSize: 5, FrameBound: FrameBound{Start: 5, End: 21}}, simerrors.ErrInvalidFrameBound},
		{"no step possible", Config{WindowSize: 5, FrameBound: FrameBound{Start: 10, End: 11}}, simerrors.ErrInsufficientData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim, err := NewTradingSimulator(prices, signals, tt.cfg)
			require.Error(t, err)
			assert.Nil(t, sim)
			assert.ErrorIs(t, err, tt.target)
		})
	}

	_, err := NewTradingSimulator(prices, signals, Config{WindowSize: 0, FrameBound: FrameBound{Start: 0, End: 20}})
	category, ok := simerrors.CategoryOf(err)
	require.True(t, ok)
	assert.Equal(t, simerrors.ErrorCategoryConfiguration, category)

	_, err = NewTradingSimulator(prices, signals[:10], Config{WindowSize: 5, FrameBound: FrameBound{Start: 5, End: 10}})
	assert.Error(t, err)

	_, err = NewTradingSimulator(prices, signals, Config{WindowSize: 5, FrameBound: FrameBound{Start: 5, End: 20}, BidFee: 1})
	assert.Error(t, err)
}

func TestReset_InitialState(t *testing.T) {
	prices := generateRamp(10, 100, 1)
	sim := newTestSimulator(t, prices, 2, FrameBound{Start: 2, End: 10})

	obs := sim.Reset()
	rows, cols := obs.Shape()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 2, cols)
	assert.Equal(t, Observation{{100, 0}, {101, 1}}, obs)

	state := sim.State()
	assert.Equal(t, 2, state.CurrentTick)
	assert.Equal(t, 1, state.LastTradeTick)
	assert.Equal(t, 1, state.LastBuyTick)
	assert.Equal(t, 1, state.LastSellTick)
	assert.Equal(t, PositionFlat, state.Position)
	assert.Equal(t, 0.0, state.TotalReward)
	assert.Equal(t, 1.0, state.TotalProfit)
	assert.False(t, state.Done)
	assert.Equal(t, []Position{NoPosition, NoPosition, PositionFlat}, state.PositionHistory)
	assert.Equal(t, []Action{NoAction, NoAction, ActionHold}, state.ActionHistory)

	assert.Equal(t, 2, sim.StartTick())
	assert.Equal(t, 9, sim.EndTick())
	assert.Equal(t, 7, sim.Steps())
}

func TestReset_Idempotent(t *testing.T) {
	prices := generateRamp(30, 50, -0.5)
	sim := newTestSimulator(t, prices, 5, FrameBound{Start: 5, End: 30})

	first := sim.Reset()
	_, err := sim.Step(ActionBuy)
	require.NoError(t, err)

	second := sim.Reset()
	third := sim.Reset()
	assert.Equal(t, first, second)
	assert.Equal(t, second, third)
	assert.Equal(t, 0.0, sim.State().TotalReward)
	assert.Equal(t, 1.0, sim.State().TotalProfit)
	assert.Equal(t, 0, sim.History().Len())
}

func TestStep_RunsToEndThenFails(t *testing.T) {
	for _, bound := range []FrameBound{{Start: 3, End: 5}, {Start: 3, End: 20}, {Start: 10, End: 40}} {
		prices := generateRamp(40, 10, 0.25)
		sim := newTestSimulator(t, prices, 3, bound)
		sim.Reset()

		var last StepResult
		for i := 0; i < sim.EndTick()-sim.StartTick(); i++ {
			res, err := sim.Step(Actions[i%len(Actions)])
			require.NoError(t, err)
			if i < sim.Steps()-1 {
				assert.False(t, res.Done)
			}
			last = res
		}
		assert.True(t, last.Done)
		assert.True(t, sim.Done())

		before := sim.State()
		_, err := sim.Step(ActionHold)
		require.Error(t, err)
		assert.ErrorIs(t, err, simerrors.ErrEpisodeDone)
		assert.Equal(t, before, sim.State())
	}
}

func TestStep_RequiresReset(t *testing.T) {
	sim := newTestSimulator(t, generateRamp(10, 1, 1), 2, FrameBound{Start: 2, End: 10})
	_, err := sim.Step(ActionHold)
	require.Error(t, err)
	category, _ := simerrors.CategoryOf(err)
	assert.Equal(t, simerrors.ErrorCategoryPrecondition, category)
}

func TestStep_InvalidAction(t *testing.T) {
	sim := newTestSimulator(t, generateRamp(10, 1, 1), 2, FrameBound{Start: 2, End: 10})
	sim.Reset()

	_, err := sim.Step(Action(7))
	assert.ErrorIs(t, err, simerrors.ErrInvalidAction)
	assert.Equal(t, 2, sim.State().CurrentTick)
}

func TestStep_PositionTransitions(t *testing.T) {
	sim := newTestSimulator(t, generateRamp(20, 100, 1), 3, FrameBound{Start: 3, End: 20})
	sim.Reset()
	start := sim.StartTick()

	res, err := sim.Step(ActionBuy)
	require.NoError(t, err)
	assert.Equal(t, PositionLong, res.Info.Position)
	state := sim.State()
	assert.Equal(t, start+1, state.LastBuyTick)
	assert.Equal(t, start+1, state.LastTradeTick)
	assert.Equal(t, start-1, state.LastSellTick)

	res, err = sim.Step(ActionHold)
	require.NoError(t, err)
	assert.Equal(t, PositionLong, res.Info.Position)
	state = sim.State()
	assert.Equal(t, start+1, state.LastBuyTick)
	assert.Equal(t, start-1, state.LastSellTick)

	res, err = sim.Step(ActionSell)
	require.NoError(t, err)
	assert.Equal(t, PositionFlat, res.Info.Position)
	state = sim.State()
	assert.Equal(t, start+1, state.LastBuyTick)
	assert.Equal(t, start+3, state.LastSellTick)
	assert.Equal(t, start+3, state.LastTradeTick)

	assert.Equal(t, []Position{PositionLong, PositionLong, PositionFlat}, state.PositionHistory[start+1:])
	assert.Equal(t, []Action{ActionBuy, ActionHold, ActionSell}, state.ActionHistory[start+1:])
}

func TestStep_NoOpTradesKeepBookkeeping(t *testing.T) {
	sim := newTestSimulator(t, generateRamp(20, 100, 1), 3, FrameBound{Start: 3, End: 20})
	sim.Reset()

	_, err := sim.Step(ActionSell)
	require.NoError(t, err)
	state := sim.State()
	assert.Equal(t, PositionFlat, state.Position)
	assert.Equal(t, 2, state.LastSellTick)
	assert.Equal(t, 1.0, state.TotalProfit)

	_, err = sim.Step(ActionBuy)
	require.NoError(t, err)
	_, err = sim.Step(ActionBuy)
	require.NoError(t, err)
	state = sim.State()
	assert.Equal(t, PositionLong, state.Position)
	assert.Equal(t, 5, state.LastBuyTick)
}

func TestStep_ProfitCompounding(t *testing.T) {
	prices := []float64{100, 100, 100, 100, 100, 100, 102, 104, 106, 108, 110, 109}
	sim := newTestSimulator(t, prices, 4, FrameBound{Start: 4, End: 12})
	sim.Reset()

	actions := []Action{ActionBuy, ActionHold, ActionHold, ActionHold, ActionHold, ActionSell}
	for _, a := range actions {
		_, err := sim.Step(a)
		require.NoError(t, err)
	}

	state := sim.State()
	assert.Equal(t, 5, state.LastBuyTick)
	assert.Equal(t, 10, state.LastSellTick)

	shares := 1.0 * 0.99 / 100
	assert.InDelta(t, 0.0099, shares, 1e-15)
	assert.InDelta(t, shares*0.99*110, state.TotalProfit, 1e-12)
	assert.InDelta(t, 1.07811, state.TotalProfit, 1e-9)

	res, err := sim.Step(ActionHold)
	require.NoError(t, err)
	assert.True(t, res.Done)
	assert.InDelta(t, 1.07811, res.Info.TotalProfit, 1e-9)
}

func TestStep_CompoundsOnceWhenEpisodeEndsLong(t *testing.T) {
	prices := []float64{10, 10, 10, 20}

	for _, last := range []Action{ActionHold, ActionSell, ActionBuy} {
		sim := newTestSimulator(t, prices, 1, FrameBound{Start: 1, End: 4})
		sim.Reset()

		_, err := sim.Step(ActionBuy)
		require.NoError(t, err)
		assert.Equal(t, 1.0, sim.State().TotalProfit)

		res, err := sim.Step(last)
		require.NoError(t, err)
		assert.True(t, res.Done)
		assert.InDelta(t, 0.99/10*0.99*20, res.Info.TotalProfit, 1e-12, last.String())
	}
}

func TestStep_EntryPriceLastTrade(t *testing.T) {
	prices := []float64{10, 10, 10, 20}
	sim := newTestSimulator(t, prices, 1, FrameBound{Start: 1, End: 4}, func(c *Config) {
		c.EntryPrice = EntryLastTrade
		c.BidFee, c.AskFee = 0, 0
	})
	sim.Reset()

	_, err := sim.Step(ActionBuy)
	require.NoError(t, err)
	_, err = sim.Step(ActionSell)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, sim.State().TotalProfit, 1e-12)
}

func TestStep_HoldAtEndReject(t *testing.T) {
	params := DefaultRewardParams()
	params.HoldAtEnd = HoldAtEndReject
	reward, err := NewLookAheadReward(params)
	require.NoError(t, err)

	sim := newTestSimulator(t, generateRamp(6, 1, 1), 2, FrameBound{Start: 2, End: 6}, func(c *Config) {
		c.Reward = reward
	})
	sim.Reset()

	for i := 0; i < sim.Steps()-1; i++ {
		_, err := sim.Step(ActionHold)
		require.NoError(t, err)
	}

	before := sim.State()
	_, err = sim.Step(ActionHold)
	require.Error(t, err)
	assert.ErrorIs(t, err, simerrors.ErrHoldAtEnd)
	assert.Equal(t, before, sim.State())

	res, err := sim.Step(ActionSell)
	require.NoError(t, err)
	assert.True(t, res.Done)
}

func TestStep_InfoAndHistory(t *testing.T) {
	sim := newTestSimulator(t, generateRamp(15, 20, 1), 3, FrameBound{Start: 3, End: 15})
	sim.Reset()

	var total float64
	for i := 0; i < 4; i++ {
		res, err := sim.Step(ActionHold)
		require.NoError(t, err)
		total += res.Reward
		assert.Equal(t, res.Reward, res.Info.StepReward)
		assert.InDelta(t, total, res.Info.TotalReward, 1e-12)

		rows, cols := res.Observation.Shape()
		assert.Equal(t, 3, rows)
		assert.Equal(t, 2, cols)
	}

	history := sim.History()
	assert.Equal(t, 4, history.Len())
	assert.InDelta(t, total, history.TotalReward[3], 1e-12)

	info := sim.Info().Map()
	assert.Contains(t, info, "step_reward")
	assert.Contains(t, info, "total_reward")
	assert.Contains(t, info, "total_profit")
	assert.Equal(t, 0.0, info["position"])
}

func TestObservation_IsWindowBeforeTick(t *testing.T) {
	prices := generateRamp(12, 0, 1)
	sim := newTestSimulator(t, prices, 3, FrameBound{Start: 5, End: 12})
	obs := sim.Reset()

	// slice starts at Start-WindowSize = 2, so the first window holds prices 2..4
	assert.Equal(t, float32(2), obs[0][0])
	assert.Equal(t, float32(4), obs[2][0])

	res, err := sim.Step(ActionHold)
	require.NoError(t, err)
	assert.Equal(t, float32(3), res.Observation[0][0])
	assert.Equal(t, float32(5), res.Observation[2][0])

	res.Observation[0][0] = 99
	assert.NotEqual(t, float32(99), sim.Reset()[0][0])
}

func TestMaxPossibleProfit(t *testing.T) {
	t.Run("strictly decreasing", func(t *testing.T) {
		sim := newTestSimulator(t, generateRamp(20, 100, -1), 2, FrameBound{Start: 2, End: 20})
		assert.Equal(t, 1.0, sim.MaxPossibleProfit())
	})

	t.Run("non decreasing", func(t *testing.T) {
		assert.InDelta(t, 3.0, MaxPossibleProfit([]float64{1, 2, 3}, 1, 2), 1e-12)
	})

	t.Run("zigzag compounds every rise", func(t *testing.T) {
		assert.InDelta(t, 4.0, MaxPossibleProfit([]float64{1, 2, 1, 2}, 1, 3), 1e-12)
	})

	t.Run("never below one", func(t *testing.T) {
		candles := data.GenerateSampleData(300, 7)
		prices := make([]float64, len(candles))
		for i, c := range candles {
			prices[i] = c.Close
		}
		sim := newTestSimulator(t, prices, 10, FrameBound{Start: 10, End: 300})
		assert.GreaterOrEqual(t, sim.MaxPossibleProfit(), 1.0)
	})

	t.Run("does not touch episode", func(t *testing.T) {
		sim := newTestSimulator(t, generateRamp(10, 1, 1), 2, FrameBound{Start: 2, End: 10})
		sim.Reset()
		before := sim.State()
		sim.MaxPossibleProfit()
		assert.Equal(t, before, sim.State())
	})
}

func TestSpaces(t *testing.T) {
	sim := newTestSimulator(t, generateRamp(10, 1, 1), 4, FrameBound{Start: 4, End: 10})

	actions := sim.ActionSpace()
	assert.Equal(t, 3, actions.N)
	assert.True(t, actions.Contains(ActionSell.Encode()))
	assert.False(t, actions.Contains(3))

	box := sim.ObservationSpace()
	assert.Equal(t, [2]int{4, 2}, box.Shape)
	assert.True(t, box.Low < -1e300)
	assert.True(t, box.High > 1e300)
}

func TestDecodeAction(t *testing.T) {
	for i, want := range []Action{ActionBuy, ActionHold, ActionSell} {
		got, err := DecodeAction(i)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := DecodeAction(3)
	assert.True(t, errors.Is(err, simerrors.ErrInvalidAction))
	assert.Equal(t, PositionLong, PositionFlat.Opposite())
	assert.Equal(t, PositionFlat, PositionLong.Opposite())
	assert.Equal(t, "SELL", ActionSell.String())
}

func TestNewFromDataset(t *testing.T) {
	ds, err := features.NewDefaultPipeline().Build(context.Background(), data.GenerateSampleData(600, 3))
	require.NoError(t, err)

	sim, err := NewFromDataset(ds, Config{WindowSize: 60, FrameBound: FrameBound{Start: 60, End: ds.Table.Rows()}})
	require.NoError(t, err)

	obs := sim.Reset()
	rows, cols := obs.Shape()
	assert.Equal(t, 60, rows)
	assert.Equal(t, len(features.Schema), cols)

	_, err = NewFromDataset(nil, Config{})
	assert.Error(t, err)
}
