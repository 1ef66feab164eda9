package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	simerrors "github.com/ducminhle1904/crypto-gym/internal/errors"
)

func mustLookAhead(t *testing.T, mutate ...func(*RewardParams)) *LookAheadReward {
	t.Helper()
	params := DefaultRewardParams()
	for _, m := range mutate {
		m(&params)
	}
	r, err := NewLookAheadReward(params)
	require.NoError(t, err)
	return r
}

func mustTrend(t *testing.T) *TrendReward {
	t.Helper()
	r, err := NewTrendReward(DefaultRewardParams())
	require.NoError(t, err)
	return r
}

func stateAt(tick int, pos Position, lastBuy, lastSell int) EpisodeState {
	return EpisodeState{CurrentTick: tick, Position: pos, LastBuyTick: lastBuy, LastSellTick: lastSell, LastTradeTick: tick - 1}
}

func TestLookAheadReward_BuyNearBottomBeatsTop(t *testing.T) {
	r := mustLookAhead(t)
	prices := generateRamp(30, 100, 1)

	bottom, err := r.Evaluate(ActionBuy, stateAt(11, PositionFlat, 0, 10), prices)
	require.NoError(t, err)
	top, err := r.Evaluate(ActionBuy, stateAt(20, PositionFlat, 0, 10), prices)
	require.NoError(t, err)

	// scan [10, 16): low 110, high 115 around 111
	assert.InDelta(t, (110.0-111)/111*100+(115.0-111)/111*100, bottom, 1e-9)
	// scan [10, 25): low 110, high 124 around 120
	assert.InDelta(t, (110.0-120)/120*100+(124.0-120)/120*100, top, 1e-9)
	assert.Greater(t, bottom, top)
}

func TestLookAheadReward_SellNearTopBeatsBottom(t *testing.T) {
	r := mustLookAhead(t)
	prices := generateRamp(30, 200, -1)

	top, err := r.Evaluate(ActionSell, stateAt(11, PositionLong, 10, 0), prices)
	require.NoError(t, err)
	bottom, err := r.Evaluate(ActionSell, stateAt(20, PositionLong, 10, 0), prices)
	require.NoError(t, err)

	// both sells are below entry*1.01 and take the fixed bonus
	assert.InDelta(t, 1+(189.0-190)/190*100+(189.0-185)/185*100, top, 1e-9)
	assert.InDelta(t, 1+(180.0-190)/190*100+(180.0-176)/176*100, bottom, 1e-9)
	assert.Greater(t, top, bottom)
}

func TestLookAheadReward_SellThresholdBonus(t *testing.T) {
	r := mustLookAhead(t, func(p *RewardParams) { p.LookAheadRange = 1 })

	// scan covers only entry and current tick
	prices := []float64{100, 100, 105, 105}
	got, err := r.Evaluate(ActionSell, stateAt(2, PositionLong, 1, 0), prices)
	require.NoError(t, err)
	assert.InDelta(t, -1+(105.0-100)/100*100, got, 1e-9)

	prices = []float64{100, 100, 100.5, 100.5}
	got, err = r.Evaluate(ActionSell, stateAt(2, PositionLong, 1, 0), prices)
	require.NoError(t, err)
	assert.InDelta(t, 1+0.5, got, 1e-9)
}

func TestLookAheadReward_RedundantTrades(t *testing.T) {
	r := mustLookAhead(t)
	prices := []float64{100, 90, 110, 120}

	got, err := r.Evaluate(ActionBuy, stateAt(2, PositionLong, 0, 1), prices)
	require.NoError(t, err)
	assert.InDelta(t, (100.0-110)/110*100, got, 1e-9)

	got, err = r.Evaluate(ActionSell, stateAt(1, PositionFlat, 0, 0), prices)
	require.NoError(t, err)
	assert.InDelta(t, -10.0, got, 1e-9)
}

func TestLookAheadReward_ScanClippedToSeries(t *testing.T) {
	r := mustLookAhead(t, func(p *RewardParams) { p.LookAheadRange = 50 })
	prices := []float64{5, 4, 3, 2, 1}

	assert.NotPanics(t, func() {
		_, err := r.Evaluate(ActionBuy, stateAt(4, PositionFlat, 0, 0), prices)
		assert.NoError(t, err)
		_, err = r.Evaluate(ActionSell, stateAt(4, PositionLong, 0, 0), prices)
		assert.NoError(t, err)
	})
}

func TestLookAheadReward_Hold(t *testing.T) {
	r := mustLookAhead(t)

	tests := []struct {
		name   string
		prices []float64
		pos    Position
		want   float64
	}{
		{"rising flat", []float64{1, 2, 3}, PositionFlat, 200},
		{"rising long", []float64{1, 2, 3}, PositionLong, 200},
		{"falling", []float64{3, 2, 1}, PositionFlat, 200},
		{"peak", []float64{1, 3, 1}, PositionLong, 0},
		{"trough", []float64{3, 1, 3}, PositionFlat, 0},
		{"flat prices", []float64{2, 2, 2}, PositionFlat, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Evaluate(ActionHold, stateAt(1, tt.pos, 0, 0), tt.prices)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestTrendReward_Hold(t *testing.T) {
	r := mustTrend(t)

	tests := []struct {
		name   string
		prices []float64
		pos    Position
		want   float64
	}{
		{"rising flat pays nothing", []float64{1, 2, 3}, PositionFlat, 0},
		{"rising long", []float64{1, 2, 3}, PositionLong, 200},
		{"falling flat", []float64{3, 2, 1}, PositionFlat, 200},
		{"falling long", []float64{3, 2, 1}, PositionLong, 200},
		{"plateau is not a move", []float64{1, 2, 2}, PositionLong, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Evaluate(ActionHold, stateAt(1, tt.pos, 0, 0), tt.prices)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	prices := generateRamp(30, 100, 1)
	trend, err := r.Evaluate(ActionBuy, stateAt(11, PositionFlat, 0, 10), prices)
	require.NoError(t, err)
	base, err := mustLookAhead(t).Evaluate(ActionBuy, stateAt(11, PositionFlat, 0, 10), prices)
	require.NoError(t, err)
	assert.Equal(t, base, trend)
	assert.Equal(t, "trend", r.Name())
}

func TestHoldAtEnd(t *testing.T) {
	prices := []float64{1, 2, 3}

	got, err := mustLookAhead(t).Evaluate(ActionHold, stateAt(2, PositionFlat, 0, 0), prices)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	reject := mustLookAhead(t, func(p *RewardParams) { p.HoldAtEnd = HoldAtEndReject })
	_, err = reject.Evaluate(ActionHold, stateAt(2, PositionFlat, 0, 0), prices)
	assert.ErrorIs(t, err, simerrors.ErrHoldAtEnd)
}

func TestRewardParams_Validate(t *testing.T) {
	params := DefaultRewardParams()
	params.LookAheadRange = 0
	_, err := NewLookAheadReward(params)
	assert.Error(t, err)

	params = DefaultRewardParams()
	params.HoldAtEnd = "maybe"
	_, err = NewTrendReward(params)
	assert.Error(t, err)

	_, err = NewRewardStrategy("martingale", DefaultRewardParams())
	assert.Error(t, err)

	s, err := NewRewardStrategy("", DefaultRewardParams())
	require.NoError(t, err)
	assert.Equal(t, "lookahead", s.Name())
}

func TestReward_ZeroPriceNeverNaN(t *testing.T) {
	r := mustLookAhead(t)
	prices := []float64{0, 0, 0, 0}

	for _, a := range Actions {
		got, err := r.Evaluate(a, stateAt(1, PositionFlat, 0, 0), prices)
		require.NoError(t, err)
		assert.Equal(t, 0.0, got, a.String())
	}
}
