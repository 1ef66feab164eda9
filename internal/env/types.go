package env

import (
	"fmt"
	"math"

	simerrors "github.com/ducminhle1904/crypto-gym/internal/errors"
)

// Action is what the agent asks for at a tick. The integer values are the wire encoding
// used by the external training loop.
type Action int

const (
	ActionBuy  Action = 0
	ActionHold Action = 1
	ActionSell Action = 2

	// NoAction pads the start of the action history; it is never a valid step input
	NoAction Action = -1
)

// Actions lists every valid action in encoding order
var Actions = []Action{ActionBuy, ActionHold, ActionSell}

// Valid reports whether a is one of BUY, HOLD, SELL
func (a Action) Valid() bool {
	return a == ActionBuy || a == ActionHold || a == ActionSell
}

func (a Action) String() string {
	switch a {
	case ActionBuy:
		return "BUY"
	case ActionHold:
		return "HOLD"
	case ActionSell:
		return "SELL"
	case NoAction:
		return "-"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// DecodeAction converts the external integer encoding into an Action
func DecodeAction(v int) (Action, error) {
	a := Action(v)
	if !a.Valid() {
		return NoAction, simerrors.NewPreconditionError("env", "DecodeAction", simerrors.ErrInvalidAction).
			WithContext("value", v)
	}
	return a, nil
}

// Encode returns the external integer encoding
func (a Action) Encode() int {
	return int(a)
}

// Position is the current holding. Only FLAT <-> LONG transitions exist.
type Position int

const (
	PositionFlat Position = 0
	PositionLong Position = 1

	// NoPosition pads the start of the position history
	NoPosition Position = -1
)

// Opposite toggles FLAT and LONG
func (p Position) Opposite() Position {
	if p == PositionLong {
		return PositionFlat
	}
	return PositionLong
}

func (p Position) String() string {
	switch p {
	case PositionFlat:
		return "FLAT"
	case PositionLong:
		return "LONG"
	case NoPosition:
		return "-"
	default:
		return fmt.Sprintf("Position(%d)", int(p))
	}
}

// Encode returns the external integer encoding (0 flat, 1 long)
func (p Position) Encode() int {
	return int(p)
}

// FrameBound selects the [Start, End) row range of the dataset used for an episode
type FrameBound struct {
	Start int
	End   int
}

// DiscreteSpace describes an action space of N integer values 0..N-1
type DiscreteSpace struct {
	N int
}

// Contains reports whether v is inside the space
func (d DiscreteSpace) Contains(v int) bool {
	return v >= 0 && v < d.N
}

// BoxSpace describes a continuous observation space
type BoxSpace struct {
	Low   float64
	High  float64
	Shape [2]int
}

// UnboundedBox returns an (-inf, +inf) box of the given shape
func UnboundedBox(rows, cols int) BoxSpace {
	return BoxSpace{Low: math.Inf(-1), High: math.Inf(1), Shape: [2]int{rows, cols}}
}

// Observation is a window_size x feature_count slice of signal features
type Observation [][]float32

// Shape returns (rows, cols)
func (o Observation) Shape() (int, int) {
	if len(o) == 0 {
		return 0, 0
	}
	return len(o), len(o[0])
}

// StepInfo is the info mapping returned from Step
type StepInfo struct {
	StepReward  float64
	TotalReward float64
	TotalProfit float64
	Position    Position
}

// Map returns the info as the external string-keyed mapping
func (i StepInfo) Map() map[string]float64 {
	return map[string]float64{
		"step_reward":  i.StepReward,
		"total_reward": i.TotalReward,
		"total_profit": i.TotalProfit,
		"position":     float64(i.Position.Encode()),
	}
}

// StepResult bundles the four values returned by a step
type StepResult struct {
	Observation Observation
	Reward      float64
	Done        bool
	Info        StepInfo
}
