package runner

import (
	"math/rand"

	"github.com/ducminhle1904/crypto-gym/internal/env"
)

// Policy picks the next action from the latest observation and info
type Policy interface {
	Name() string
	Act(obs env.Observation, info env.StepInfo) env.Action
}

// SimulatorAware policies get the simulator before the episode starts
type SimulatorAware interface {
	Attach(sim *env.TradingSimulator)
}

// Resettable policies clear their own state at the start of each episode
type Resettable interface {
	Reset()
}

// HoldPolicy never trades
type HoldPolicy struct{}

func (HoldPolicy) Name() string { return "hold" }

func (HoldPolicy) Act(env.Observation, env.StepInfo) env.Action {
	return env.ActionHold
}

// BuyAndHoldPolicy buys on the first step and holds until the episode ends
type BuyAndHoldPolicy struct {
	bought bool
}

func (p *BuyAndHoldPolicy) Name() string { return "buy_and_hold" }

func (p *BuyAndHoldPolicy) Reset() { p.bought = false }

func (p *BuyAndHoldPolicy) Act(_ env.Observation, info env.StepInfo) env.Action {
	if !p.bought && info.Position == env.PositionFlat {
		p.bought = true
		return env.ActionBuy
	}
	return env.ActionHold
}

// RandomPolicy draws actions uniformly from a seeded source
type RandomPolicy struct {
	seed int64
	rng  *rand.Rand
}

// NewRandomPolicy creates a reproducible random policy
func NewRandomPolicy(seed int64) *RandomPolicy {
	return &RandomPolicy{seed: seed, rng: rand.New(rand.NewSource(seed))}
}

func (p *RandomPolicy) Name() string { return "random" }

// Reset rewinds the source so every episode sees the same action sequence
func (p *RandomPolicy) Reset() { p.rng = rand.New(rand.NewSource(p.seed)) }

func (p *RandomPolicy) Act(env.Observation, env.StepInfo) env.Action {
	return env.Actions[p.rng.Intn(len(env.Actions))]
}

// OraclePolicy peeks one tick ahead: it holds a position whenever the next price is higher
// and stays flat whenever it is lower. Without fees it reaches the max possible profit
// except for runs that begin before the first executable tick.
type OraclePolicy struct {
	sim    *env.TradingSimulator
	prices []float64
}

func (p *OraclePolicy) Name() string { return "oracle" }

func (p *OraclePolicy) Attach(sim *env.TradingSimulator) {
	p.sim = sim
	p.prices = sim.Prices()
}

func (p *OraclePolicy) Act(_ env.Observation, info env.StepInfo) env.Action {
	if p.sim == nil {
		return env.ActionHold
	}

	// the action executes on the next tick
	t := p.sim.State().CurrentTick + 1
	if t >= p.sim.EndTick() || t+1 >= len(p.prices) {
		return env.ActionSell
	}

	switch next, cur := p.prices[t+1], p.prices[t]; {
	case next > cur && info.Position == env.PositionFlat:
		return env.ActionBuy
	case next < cur && info.Position == env.PositionLong:
		return env.ActionSell
	}
	return env.ActionHold
}

// NewPolicy builds a baseline policy by name
func NewPolicy(name string, seed int64) (Policy, bool) {
	switch name {
	case "hold":
		return HoldPolicy{}, true
	case "buy_and_hold":
		return &BuyAndHoldPolicy{}, true
	case "random":
		return NewRandomPolicy(seed), true
	case "oracle":
		return &OraclePolicy{}, true
	}
	return nil, false
}

// PolicyNames lists the baseline policies NewPolicy knows
var PolicyNames = []string{"hold", "buy_and_hold", "random", "oracle"}
