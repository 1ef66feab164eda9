package env

import (
	simerrors "github.com/ducminhle1904/crypto-gym/internal/errors"
)

// RewardStrategy scores an action against a read-only snapshot of the episode. The state
// passed in already has CurrentTick advanced but position and trade ticks not yet updated,
// so Position describes what the agent held when it decided.
type RewardStrategy interface {
	Evaluate(action Action, state EpisodeState, prices []float64) (float64, error)
	Name() string
}

// HoldAtEndPolicy decides what HOLD is worth on the final tick, where no next price exists
type HoldAtEndPolicy string

const (
	HoldAtEndZero   HoldAtEndPolicy = "zero"
	HoldAtEndReject HoldAtEndPolicy = "reject"
)

// RewardParams holds the tunables shared by the built-in strategies
type RewardParams struct {
	LookAheadRange              int
	ProfitableSellThreshold     float64 // percent
	ProfitableSellReward        float64
	NonProfitableSellPunishment float64
	HoldAtEnd                   HoldAtEndPolicy
}

// DefaultRewardParams returns the defaults used by the registered environment
func DefaultRewardParams() RewardParams {
	return RewardParams{
		LookAheadRange:              5,
		ProfitableSellThreshold:     1,
		ProfitableSellReward:        1,
		NonProfitableSellPunishment: -1,
		HoldAtEnd:                   HoldAtEndZero,
	}
}

// Validate checks the parameters
func (p RewardParams) Validate() error {
	if p.LookAheadRange < 1 {
		return simerrors.NewConfigurationError("reward", "Validate", "look-ahead range must be at least 1").
			WithContext("look_ahead_range", p.LookAheadRange)
	}
	if p.HoldAtEnd != HoldAtEndZero && p.HoldAtEnd != HoldAtEndReject {
		return simerrors.NewConfigurationError("reward", "Validate", "unknown hold-at-end policy").
			WithContext("hold_at_end", string(p.HoldAtEnd))
	}
	return nil
}

// LookAheadReward scores buys and sells by how close they land to the extremes seen between
// the previous opposite trade and a few ticks into the future. HOLD is rewarded for riding a
// monotonic move through the current tick, whatever the position.
type LookAheadReward struct {
	params RewardParams
}

// NewLookAheadReward creates the strategy
func NewLookAheadReward(params RewardParams) (*LookAheadReward, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &LookAheadReward{params: params}, nil
}

func (r *LookAheadReward) Name() string { return "lookahead" }

// Params returns the strategy tunables
func (r *LookAheadReward) Params() RewardParams { return r.params }

func (r *LookAheadReward) Evaluate(action Action, state EpisodeState, prices []float64) (float64, error) {
	switch action {
	case ActionBuy:
		return r.buyReward(state, prices), nil
	case ActionSell:
		return r.sellReward(state, prices), nil
	case ActionHold:
		prev, cur, next, ok, err := holdPrices(r.params.HoldAtEnd, state, prices)
		if err != nil || !ok {
			return 0, err
		}
		return monotonicHold(prev, cur, next), nil
	default:
		return 0, simerrors.NewPreconditionError("reward", "Evaluate", simerrors.ErrInvalidAction).
			WithContext("action", int(action))
	}
}

func (r *LookAheadReward) buyReward(state EpisodeState, prices []float64) float64 {
	current := prices[state.CurrentTick]

	if state.Position == PositionLong {
		// buying again above the open entry is penalized
		return percentChange(prices[state.LastBuyTick], current, current)
	}

	low, high := scanExtremes(prices, state.LastSellTick, state.CurrentTick+r.params.LookAheadRange, current)
	var reward float64
	if current > low {
		reward += percentChange(low, current, current)
	}
	if current < high {
		reward += percentChange(high, current, current)
	}
	return reward
}

func (r *LookAheadReward) sellReward(state EpisodeState, prices []float64) float64 {
	current := prices[state.CurrentTick]

	if state.Position == PositionFlat {
		last := prices[state.LastSellTick]
		return percentChange(current, last, last)
	}

	var reward float64
	entry := prices[state.LastBuyTick]
	if current <= entry*(1+r.params.ProfitableSellThreshold/100) {
		reward += r.params.ProfitableSellReward
	} else {
		reward += r.params.NonProfitableSellPunishment
	}

	low, high := scanExtremes(prices, state.LastBuyTick, state.CurrentTick+r.params.LookAheadRange, current)
	if current < high {
		reward += percentChange(current, high, high)
	}
	if current > low {
		reward += percentChange(current, low, low)
	}
	return reward
}

// TrendReward shares the buy and sell scoring of LookAheadReward but only pays HOLD for
// strict moves: a rising move counts only while LONG, a falling move counts in any position.
type TrendReward struct {
	LookAheadReward
}

// NewTrendReward creates the strategy
func NewTrendReward(params RewardParams) (*TrendReward, error) {
	base, err := NewLookAheadReward(params)
	if err != nil {
		return nil, err
	}
	return &TrendReward{LookAheadReward: *base}, nil
}

func (r *TrendReward) Name() string { return "trend" }

func (r *TrendReward) Evaluate(action Action, state EpisodeState, prices []float64) (float64, error) {
	if action != ActionHold {
		return r.LookAheadReward.Evaluate(action, state, prices)
	}

	prev, cur, next, ok, err := holdPrices(r.params.HoldAtEnd, state, prices)
	if err != nil || !ok {
		return 0, err
	}
	switch {
	case state.Position == PositionLong && prev < cur && next > cur:
		return percentChange(next, prev, prev), nil
	case prev > cur && next < cur:
		return percentChange(prev, next, next), nil
	}
	return 0, nil
}

// NewRewardStrategy builds a strategy by name
func NewRewardStrategy(name string, params RewardParams) (RewardStrategy, error) {
	switch name {
	case "", "lookahead":
		return NewLookAheadReward(params)
	case "trend":
		return NewTrendReward(params)
	default:
		return nil, simerrors.NewConfigurationError("reward", "NewRewardStrategy", "unknown reward strategy").
			WithContext("strategy", name)
	}
}

func monotonicHold(prev, cur, next float64) float64 {
	switch {
	case prev <= cur && next >= cur:
		return percentChange(next, prev, prev)
	case prev >= cur && next <= cur:
		return percentChange(prev, next, next)
	}
	return 0
}

// holdPrices returns the three prices around the current tick. ok is false when the
// current tick is the last one and the policy allows a zero reward.
func holdPrices(policy HoldAtEndPolicy, state EpisodeState, prices []float64) (prev, cur, next float64, ok bool, err error) {
	t := state.CurrentTick
	if t+1 >= len(prices) {
		if policy == HoldAtEndReject {
			return 0, 0, 0, false, simerrors.NewPreconditionError("reward", "hold", simerrors.ErrHoldAtEnd).
				WithContext("tick", t)
		}
		return 0, 0, 0, false, nil
	}
	return prices[t-1], prices[t], prices[t+1], true, nil
}

// scanExtremes returns the lowest and highest price in [from, to) clipped to the series,
// seeded with ref so that an empty scan yields (ref, ref).
func scanExtremes(prices []float64, from, to int, ref float64) (low, high float64) {
	low, high = ref, ref
	if from < 0 {
		from = 0
	}
	if to > len(prices) {
		to = len(prices)
	}
	for tick := from; tick < to; tick++ {
		p := prices[tick]
		if p < low {
			low = p
		}
		if p > high {
			high = p
		}
	}
	return low, high
}

// percentChange returns (a-b)/base*100, or 0 when base is 0
func percentChange(a, b, base float64) float64 {
	if base == 0 {
		return 0
	}
	return (a - b) / base * 100
}
