package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/crypto-gym/internal/env"
	"github.com/ducminhle1904/crypto-gym/internal/runner"
)

func openJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := NewJournal(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestJournal_RecordsEpisodeFromRunner(t *testing.T) {
	j := openJournal(t)
	j.batchSize = 4

	prices := []float64{5, 5, 4, 3, 4, 5, 4, 6, 7, 8, 6}
	sim, err := env.NewTradingSimulator(prices, env.SignalFeaturesFromPrices(prices),
		env.Config{WindowSize: 1, FrameBound: env.FrameBound{Start: 1, End: len(prices)}})
	require.NoError(t, err)

	ctx := context.Background()
	result, err := runner.NewRunner(sim, runner.WithObserver(j), runner.WithEpisodeID("oracle-1"), runner.WithMetrics(false)).
		Run(ctx, &runner.OraclePolicy{})
	require.NoError(t, err)

	episodes, err := j.GetEpisodes(ctx, 10)
	require.NoError(t, err)
	require.Len(t, episodes, 1)

	ep := episodes[0]
	assert.Equal(t, "oracle-1", ep.ID)
	assert.Equal(t, "oracle", ep.Policy)
	assert.Equal(t, "lookahead", ep.Reward)
	assert.Equal(t, result.Steps, ep.Steps)
	assert.Equal(t, len(result.Trades), ep.Trades)
	assert.InDelta(t, result.TotalProfit, ep.TotalProfit, 1e-12)
	assert.InDelta(t, result.MaxPossibleProfit, ep.MaxProfit, 1e-12)
	assert.True(t, ep.Completed)
	assert.NotEmpty(t, ep.FinishedAt)

	steps, err := j.GetSteps(ctx, "oracle-1")
	require.NoError(t, err)
	require.Len(t, steps, result.Steps)
	for i, s := range steps {
		want := result.Records[i]
		assert.Equal(t, want.Tick, s.Tick)
		assert.Equal(t, want.Action, s.Action)
		assert.Equal(t, want.Position, s.Position)
		assert.Equal(t, want.Trade, s.Trade)
		assert.InDelta(t, want.Reward, s.Reward, 1e-12)
	}
}

func TestJournal_RerunReplacesSteps(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()
	meta := runner.EpisodeMeta{ID: "ep", Policy: "hold", Reward: "trend", WindowSize: 2, StartTick: 2, EndTick: 9, StartedAt: time.Now()}

	for run := 0; run < 2; run++ {
		require.NoError(t, j.OnEpisodeStart(ctx, meta))
		for tick := 3; tick <= 5+run; tick++ {
			require.NoError(t, j.OnStep(ctx, runner.StepRecord{EpisodeID: "ep", Tick: tick, Action: env.ActionHold, TotalProfit: 1}))
		}
		require.NoError(t, j.OnEpisodeEnd(ctx, &runner.EpisodeResult{ID: "ep", Steps: 3 + run, TotalProfit: 1}))
	}

	steps, err := j.GetSteps(ctx, "ep")
	require.NoError(t, err)
	assert.Len(t, steps, 4)

	episodes, err := j.GetEpisodes(ctx, 10)
	require.NoError(t, err)
	require.Len(t, episodes, 1)
	assert.Equal(t, 4, episodes[0].Steps)
	assert.False(t, episodes[0].Completed)
}

func TestJournal_FlushWithoutEnd(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()

	require.NoError(t, j.OnEpisodeStart(ctx, runner.EpisodeMeta{ID: "partial", Policy: "random", Reward: "lookahead", StartedAt: time.Now()}))
	require.NoError(t, j.OnStep(ctx, runner.StepRecord{EpisodeID: "partial", Tick: 10, Action: env.ActionBuy, Position: env.PositionLong, Trade: true}))

	steps, err := j.GetSteps(ctx, "partial")
	require.NoError(t, err)
	assert.Empty(t, steps)

	require.NoError(t, j.Flush(ctx))
	steps, err = j.GetSteps(ctx, "partial")
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, env.PositionLong, steps[0].Position)
	assert.True(t, steps[0].Trade)
}

func TestJournal_ImplementsObserver(t *testing.T) {
	var _ runner.Observer = (*Journal)(nil)
}
