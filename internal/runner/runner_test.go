package runner

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/crypto-gym/internal/env"
	simerrors "github.com/ducminhle1904/crypto-gym/internal/errors"
)

func generateRisingData(n int, start, step float64) []float64 {
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = start + float64(i)*step
	}
	return prices
}

func newSim(t *testing.T, prices []float64, cfg env.Config) *env.TradingSimulator {
	t.Helper()
	sim, err := env.NewTradingSimulator(prices, env.SignalFeaturesFromPrices(prices), cfg)
	require.NoError(t, err)
	return sim
}

type recordingObserver struct {
	mu      sync.Mutex
	started []EpisodeMeta
	steps   []StepRecord
	ended   []*EpisodeResult
	failOn  int
}

func (o *recordingObserver) OnEpisodeStart(_ context.Context, meta EpisodeMeta) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, meta)
	return nil
}

func (o *recordingObserver) OnStep(_ context.Context, step StepRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.steps = append(o.steps, step)
	if o.failOn > 0 && len(o.steps) == o.failOn {
		return errors.New("disk full")
	}
	return nil
}

func (o *recordingObserver) OnEpisodeEnd(_ context.Context, result *EpisodeResult) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ended = append(o.ended, result)
	return nil
}

func TestRunner_HoldPolicy(t *testing.T) {
	prices := generateRisingData(30, 100, 1)
	sim := newSim(t, prices, env.Config{WindowSize: 5, FrameBound: env.FrameBound{Start: 5, End: 30}})

	result, err := NewRunner(sim, WithMetrics(false)).Run(context.Background(), HoldPolicy{})
	require.NoError(t, err)

	assert.True(t, result.Completed)
	assert.Equal(t, sim.Steps(), result.Steps)
	assert.Equal(t, 1.0, result.TotalProfit)
	assert.Empty(t, result.Trades)
	assert.Len(t, result.Report.HoldTicks, result.Steps)
	assert.Empty(t, result.Report.BuyTicks)
	assert.Greater(t, result.MaxPossibleProfit, 1.0)
	assert.Equal(t, 0.0, result.Efficiency)
	assert.Equal(t, result.Steps, result.History.Len())
	assert.Equal(t, "hold", result.Policy)
	assert.Equal(t, "lookahead", result.Reward)
}

func TestRunner_OracleReachesMaxProfit(t *testing.T) {
	prices := []float64{5, 5, 4, 3, 4, 5, 4, 6}
	sim := newSim(t, prices, env.Config{WindowSize: 1, FrameBound: env.FrameBound{Start: 1, End: 8}})

	result, err := NewRunner(sim, WithMetrics(false)).Run(context.Background(), &OraclePolicy{})
	require.NoError(t, err)

	assert.InDelta(t, 2.5, result.MaxPossibleProfit, 1e-12)
	assert.InDelta(t, 2.5, result.TotalProfit, 1e-12)
	assert.InDelta(t, 1.0, result.Efficiency, 1e-12)

	require.Len(t, result.Trades, 2)
	first := result.Trades[0]
	assert.Equal(t, 3, first.EntryTick)
	assert.Equal(t, 5, first.ExitTick)
	assert.Equal(t, 3.0, first.EntryPrice)
	assert.Equal(t, 5.0, first.ExitPrice)
	assert.InDelta(t, 2.0/3, first.Return, 1e-12)
	assert.False(t, first.Open)
	assert.Equal(t, 6, result.Trades[1].EntryTick)
	assert.Equal(t, 7, result.Trades[1].ExitTick)
	assert.Equal(t, 2, result.ClosedTrades())
	assert.Equal(t, 100.0, result.WinRate)
	assert.Equal(t, 0.0, result.MaxDrawdown)
	assert.Equal(t, []int{3, 6}, result.Report.BuyTicks)
	assert.Equal(t, []int{5, 7}, result.Report.SellTicks)
}

func TestRunner_BuyAndHold(t *testing.T) {
	prices := generateRisingData(20, 100, 1)
	sim := newSim(t, prices, env.Config{WindowSize: 2, FrameBound: env.FrameBound{Start: 2, End: 20}})
	policy := &BuyAndHoldPolicy{}
	runner := NewRunner(sim, WithMetrics(false))

	first, err := runner.Run(context.Background(), policy)
	require.NoError(t, err)
	second, err := runner.Run(context.Background(), policy)
	require.NoError(t, err)

	assert.InDelta(t, prices[19]/prices[3], first.TotalProfit, 1e-12)
	assert.Equal(t, first.TotalProfit, second.TotalProfit)

	require.Len(t, first.Trades, 1)
	assert.True(t, first.Trades[0].Open)
	assert.Equal(t, 3, first.Trades[0].EntryTick)
	assert.Equal(t, 0, first.ClosedTrades())
}

func TestRunner_RandomPolicyIsReproducible(t *testing.T) {
	prices := generateRisingData(60, 50, 0.5)
	cfg := env.Config{WindowSize: 10, FrameBound: env.FrameBound{Start: 10, End: 60}, BidFee: 0.001, AskFee: 0.001}
	policy := NewRandomPolicy(42)

	a, err := NewRunner(newSim(t, prices, cfg), WithMetrics(false)).Run(context.Background(), policy)
	require.NoError(t, err)
	b, err := NewRunner(newSim(t, prices, cfg), WithMetrics(false)).Run(context.Background(), policy)
	require.NoError(t, err)

	assert.Equal(t, a.TotalReward, b.TotalReward)
	assert.Equal(t, a.Report, b.Report)
}

func TestRunner_Cancelled(t *testing.T) {
	prices := generateRisingData(30, 100, 1)
	sim := newSim(t, prices, env.Config{WindowSize: 5, FrameBound: env.FrameBound{Start: 5, End: 30}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := NewRunner(sim, WithMetrics(false)).Run(ctx, HoldPolicy{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.False(t, result.Completed)
	assert.Equal(t, 0, result.Steps)
}

func TestRunner_Observers(t *testing.T) {
	prices := generateRisingData(20, 100, 1)
	sim := newSim(t, prices, env.Config{WindowSize: 2, FrameBound: env.FrameBound{Start: 2, End: 20}})
	obs := &recordingObserver{}

	result, err := NewRunner(sim, WithObserver(obs), WithEpisodeID("ep-1"), WithMetrics(false)).
		Run(context.Background(), &BuyAndHoldPolicy{})
	require.NoError(t, err)

	require.Len(t, obs.started, 1)
	assert.Equal(t, "ep-1", obs.started[0].ID)
	assert.Equal(t, 2, obs.started[0].StartTick)
	assert.Len(t, obs.steps, result.Steps)
	assert.True(t, obs.steps[0].Trade)
	assert.False(t, obs.steps[1].Trade)
	assert.True(t, obs.steps[len(obs.steps)-1].Done)
	require.Len(t, obs.ended, 1)
	assert.Same(t, result, obs.ended[0])
}

func TestRunner_ObserverErrorStopsEpisode(t *testing.T) {
	prices := generateRisingData(20, 100, 1)
	sim := newSim(t, prices, env.Config{WindowSize: 2, FrameBound: env.FrameBound{Start: 2, End: 20}})
	obs := &recordingObserver{failOn: 3}

	result, err := NewRunner(sim, WithObserver(obs), WithMetrics(false)).Run(context.Background(), HoldPolicy{})
	require.Error(t, err)
	assert.Equal(t, 3, result.Steps)
	assert.Empty(t, obs.ended)
}

func TestRunner_StepErrorIsReturned(t *testing.T) {
	params := env.DefaultRewardParams()
	params.HoldAtEnd = env.HoldAtEndReject
	reward, err := env.NewLookAheadReward(params)
	require.NoError(t, err)

	prices := generateRisingData(10, 100, 1)
	sim := newSim(t, prices, env.Config{WindowSize: 2, FrameBound: env.FrameBound{Start: 2, End: 10}, Reward: reward})

	result, err := NewRunner(sim).Run(context.Background(), HoldPolicy{})
	require.Error(t, err)
	assert.ErrorIs(t, err, simerrors.ErrHoldAtEnd)
	assert.Equal(t, sim.Steps()-1, result.Steps)
	assert.False(t, result.Completed)

	_, err = NewRunner(sim).Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestRunBatch(t *testing.T) {
	prices := generateRisingData(80, 100, 0.5)
	signals := env.SignalFeaturesFromPrices(prices)
	cfg := env.Config{WindowSize: 10, FrameBound: env.FrameBound{Start: 10, End: 80}}

	jobs := []BatchJob{
		{ID: "hold", Config: cfg, Policy: HoldPolicy{}},
		{ID: "bh", Config: cfg, Policy: &BuyAndHoldPolicy{}},
		{Config: cfg, Policy: &OraclePolicy{}},
		{ID: "bad", Config: env.Config{WindowSize: 10, FrameBound: env.FrameBound{Start: 5, End: 80}}, Policy: HoldPolicy{}},
		{ID: "random", Config: cfg, Policy: NewRandomPolicy(7)},
	}

	results, err := RunBatch(context.Background(), prices, signals, jobs, 3, WithMetrics(false))
	require.NoError(t, err)
	require.Len(t, results, len(jobs))

	for i, res := range results {
		assert.Equal(t, i, res.Index)
	}
	assert.Equal(t, "hold", results[0].ID)
	assert.Equal(t, "episode_2", results[2].ID)
	assert.Equal(t, "", jobs[2].ID)

	require.NoError(t, results[0].Err)
	assert.Equal(t, 1.0, results[0].Result.TotalProfit)
	require.NoError(t, results[1].Err)
	assert.Greater(t, results[1].Result.TotalProfit, 1.0)
	require.NoError(t, results[2].Err)
	assert.GreaterOrEqual(t, results[2].Result.TotalProfit, results[1].Result.TotalProfit)

	assert.ErrorIs(t, results[3].Err, simerrors.ErrInvalidFrameBound)
	assert.Nil(t, results[3].Result)
	assert.NoError(t, results[4].Err)
}

func TestEfficiency(t *testing.T) {
	assert.Equal(t, 0.0, Efficiency(1.5, 1.0))
	assert.InDelta(t, 0.5, Efficiency(1.5, 2.0), 1e-12)
	assert.InDelta(t, -0.5, Efficiency(0.5, 2.0), 1e-12)
}

func TestUpdateMetrics_Drawdown(t *testing.T) {
	r := &EpisodeResult{
		TotalProfit:       0.9,
		MaxPossibleProfit: 1.5,
		Records: []StepRecord{
			{Tick: 1, Price: 10, Action: env.ActionBuy, Position: env.PositionLong, TotalProfit: 1.0},
			{Tick: 2, Price: 12, Action: env.ActionSell, Position: env.PositionFlat, TotalProfit: 1.2},
			{Tick: 3, Price: 12, Action: env.ActionBuy, Position: env.PositionLong, TotalProfit: 1.2},
			{Tick: 4, Price: 9, Action: env.ActionSell, Position: env.PositionFlat, TotalProfit: 0.9},
		},
	}
	r.UpdateMetrics()

	require.Len(t, r.Trades, 2)
	assert.InDelta(t, 0.2, r.Trades[0].Return, 1e-12)
	assert.InDelta(t, -0.25, r.Trades[1].Return, 1e-12)
	assert.Equal(t, 50.0, r.WinRate)
	assert.InDelta(t, 0.25, r.MaxDrawdown, 1e-12)
	assert.InDelta(t, -0.2, r.Efficiency, 1e-12)
	assert.NotZero(t, r.SharpeRatio)
}

func TestNewPolicy(t *testing.T) {
	for _, name := range PolicyNames {
		p, ok := NewPolicy(name, 1)
		require.True(t, ok, name)
		assert.Equal(t, name, p.Name())
	}
	_, ok := NewPolicy("martingale", 1)
	assert.False(t, ok)
}
