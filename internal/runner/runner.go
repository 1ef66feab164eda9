package runner

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ducminhle1904/crypto-gym/internal/env"
	simerrors "github.com/ducminhle1904/crypto-gym/internal/errors"
	"github.com/ducminhle1904/crypto-gym/internal/monitoring"
)

// Observer receives episode events. The journal and the file logger implement it.
type Observer interface {
	OnEpisodeStart(ctx context.Context, meta EpisodeMeta) error
	OnStep(ctx context.Context, step StepRecord) error
	OnEpisodeEnd(ctx context.Context, result *EpisodeResult) error
}

// Runner drives one simulator with a policy
type Runner struct {
	sim       *env.TradingSimulator
	observers []Observer
	metrics   bool
	id        string
}

// Option configures a Runner
type Option func(*Runner)

// WithObserver adds an observer; observer errors abort the episode
func WithObserver(o Observer) Option {
	return func(r *Runner) {
		if o != nil {
			r.observers = append(r.observers, o)
		}
	}
}

// WithMetrics toggles prometheus recording
func WithMetrics(enabled bool) Option {
	return func(r *Runner) { r.metrics = enabled }
}

// WithEpisodeID overrides the generated episode id
func WithEpisodeID(id string) Option {
	return func(r *Runner) { r.id = id }
}

// NewRunner creates a runner for sim
func NewRunner(sim *env.TradingSimulator, opts ...Option) *Runner {
	r := &Runner{sim: sim, metrics: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run resets the simulator and steps it with policy until the episode is done. On
// cancellation the partial result is returned together with the context error.
func (r *Runner) Run(ctx context.Context, policy Policy) (*EpisodeResult, error) {
	if policy == nil {
		return nil, simerrors.NewConfigurationError("runner", "Run", "policy is nil")
	}

	startTime := time.Now()
	if aware, ok := policy.(SimulatorAware); ok {
		aware.Attach(r.sim)
	}
	if resettable, ok := policy.(Resettable); ok {
		resettable.Reset()
	}

	id := r.id
	if id == "" {
		id = fmt.Sprintf("%s_%d", policy.Name(), startTime.UnixNano())
	}

	meta := EpisodeMeta{
		ID:         id,
		Policy:     policy.Name(),
		Reward:     r.sim.RewardStrategy().Name(),
		WindowSize: r.sim.WindowSize(),
		StartTick:  r.sim.StartTick(),
		EndTick:    r.sim.EndTick(),
		StartedAt:  startTime,
	}

	prices := r.sim.Prices()
	result := &EpisodeResult{
		ID:                id,
		Policy:            meta.Policy,
		Reward:            meta.Reward,
		StartTick:         meta.StartTick,
		EndTick:           meta.EndTick,
		TotalProfit:       1.0,
		MaxPossibleProfit: r.sim.MaxPossibleProfit(),
		Prices:            prices,
		Records:           make([]StepRecord, 0, r.sim.Steps()),
	}

	for _, o := range r.observers {
		if err := o.OnEpisodeStart(ctx, meta); err != nil {
			return nil, r.fail(err)
		}
	}

	obs := r.sim.Reset()
	info := r.sim.Info()

	var runErr error
	for !r.sim.Done() {
		if err := ctx.Err(); err != nil {
			log.Printf("[runner] episode %s cancelled at tick %d", id, r.sim.State().CurrentTick)
			runErr = err
			break
		}

		action := policy.Act(obs, info)
		prevPosition := info.Position

		step, err := r.sim.Step(action)
		if err != nil {
			runErr = err
			break
		}

		tick := r.sim.State().CurrentTick
		rec := StepRecord{
			EpisodeID:   id,
			Tick:        tick,
			Price:       prices[tick],
			Action:      action,
			Reward:      step.Reward,
			Position:    step.Info.Position,
			TotalReward: step.Info.TotalReward,
			TotalProfit: step.Info.TotalProfit,
			Trade:       step.Info.Position != prevPosition,
			Done:        step.Done,
		}
		result.Records = append(result.Records, rec)
		r.recordStep(rec)

		for _, o := range r.observers {
			if err := o.OnStep(ctx, rec); err != nil {
				runErr = err
				break
			}
		}
		if runErr != nil {
			break
		}

		obs, info = step.Observation, step.Info
	}

	state := r.sim.State()
	result.Steps = len(result.Records)
	result.Completed = state.Done
	result.TotalReward = state.TotalReward
	result.TotalProfit = state.TotalProfit
	result.History = r.sim.History()
	result.UpdateMetrics()
	result.Duration = time.Since(startTime)

	if runErr != nil {
		return result, r.fail(runErr)
	}

	for _, o := range r.observers {
		if err := o.OnEpisodeEnd(ctx, result); err != nil {
			return result, r.fail(err)
		}
	}
	if r.metrics {
		monitoring.RecordEpisode(result.Policy, result.TotalProfit)
	}
	return result, nil
}

func (r *Runner) recordStep(rec StepRecord) {
	if !r.metrics {
		return
	}
	monitoring.RecordStep(rec.Action.String(), rec.Reward)
	if rec.Trade {
		if rec.Action == env.ActionBuy {
			monitoring.RecordTrade("buy")
		} else {
			monitoring.RecordTrade("sell")
		}
	}
}

func (r *Runner) fail(err error) error {
	if r.metrics {
		if category, ok := simerrors.CategoryOf(err); ok {
			monitoring.RecordError(string(category))
		} else {
			monitoring.RecordError("UNKNOWN")
		}
	}
	return err
}
