package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/crypto-gym/internal/env"
	"github.com/ducminhle1904/crypto-gym/internal/runner"
)

func TestLogger_EpisodeTranscript(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger("episodes", Options{Dir: dir, MaxSize: 1})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "episodes.log"), l.GetLogPath())

	ctx := context.Background()
	require.NoError(t, l.OnEpisodeStart(ctx, runner.EpisodeMeta{
		ID: "ep-7", Policy: "oracle", Reward: "lookahead", WindowSize: 60, StartTick: 60, EndTick: 499, StartedAt: time.Now(),
	}))
	require.NoError(t, l.OnStep(ctx, runner.StepRecord{Tick: 61, Price: 100, Action: env.ActionBuy, Position: env.PositionLong, Trade: true}))
	require.NoError(t, l.OnStep(ctx, runner.StepRecord{Tick: 62, Price: 101, Action: env.ActionHold, Position: env.PositionLong}))
	require.NoError(t, l.OnStep(ctx, runner.StepRecord{Tick: 63, Price: 103, Action: env.ActionSell, Position: env.PositionFlat, Trade: true, TotalProfit: 1.03}))
	require.NoError(t, l.OnEpisodeEnd(ctx, &runner.EpisodeResult{ID: "ep-7", Steps: 3, TotalProfit: 1.03, MaxPossibleProfit: 1.03, Efficiency: 1}))
	l.Warning("late %s", "warning")
	require.NoError(t, l.Close())

	raw, err := os.ReadFile(l.GetLogPath())
	require.NoError(t, err)
	content := string(raw)

	assert.Contains(t, content, "EPISODE ep-7 STARTED")
	assert.Contains(t, content, "Policy: oracle | Reward: lookahead | Window: 60")
	assert.Contains(t, content, "[TRADE] OPEN  tick=61 price=100.0000")
	assert.Contains(t, content, "[TRADE] CLOSE tick=63 price=103.0000")
	assert.Contains(t, content, "profit=1.030000")
	assert.NotContains(t, content, "tick=62")
	assert.Contains(t, content, "EPISODE ep-7 FINISHED")
	assert.Contains(t, content, "Efficiency: 100.00%")
	assert.Contains(t, content, "[WARN] late warning")
}

func TestLogger_LogSteps(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger("steps", Options{Dir: dir, LogSteps: true})
	require.NoError(t, err)

	require.NoError(t, l.OnStep(context.Background(), runner.StepRecord{Tick: 5, Price: 1.5, Action: env.ActionHold, Position: env.PositionFlat}))
	require.NoError(t, l.Close())

	raw, err := os.ReadFile(filepath.Join(dir, "steps.log"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[INFO] tick=5 action=HOLD")
	assert.Contains(t, string(raw), "position=FLAT")
}

func TestLogger_ImplementsObserver(t *testing.T) {
	var _ runner.Observer = (*Logger)(nil)
}
