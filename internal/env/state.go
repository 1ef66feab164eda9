package env

// EpisodeState is all mutable bookkeeping of one episode. The simulator owns it and only
// Step and Reset change it; everything handed out is a copy.
type EpisodeState struct {
	CurrentTick   int
	LastTradeTick int
	LastBuyTick   int
	LastSellTick  int

	Position    Position
	TotalReward float64
	TotalProfit float64
	Done        bool

	// Index i of each history holds the value at tick i; the first windowSize entries
	// are NoPosition / NoAction placeholders.
	PositionHistory []Position
	ActionHistory   []Action
}

// newEpisodeState builds the post-reset state
func newEpisodeState(startTick, windowSize int) EpisodeState {
	positions := make([]Position, windowSize, windowSize+1)
	actions := make([]Action, windowSize, windowSize+1)
	for i := 0; i < windowSize; i++ {
		positions[i] = NoPosition
		actions[i] = NoAction
	}

	return EpisodeState{
		CurrentTick:     startTick,
		LastTradeTick:   startTick - 1,
		LastBuyTick:     startTick - 1,
		LastSellTick:    startTick - 1,
		Position:        PositionFlat,
		TotalReward:     0,
		TotalProfit:     1.0,
		Done:            false,
		PositionHistory: append(positions, PositionFlat),
		ActionHistory:   append(actions, ActionHold),
	}
}

// Clone returns a deep copy
func (s EpisodeState) Clone() EpisodeState {
	s.PositionHistory = append([]Position(nil), s.PositionHistory...)
	s.ActionHistory = append([]Action(nil), s.ActionHistory...)
	return s
}

// IsTrade reports whether action changes the position from the current state
func (s EpisodeState) IsTrade(action Action) bool {
	return (action == ActionBuy && s.Position == PositionFlat) ||
		(action == ActionSell && s.Position == PositionLong)
}

// InfoHistory keeps every info value reported by Step, one entry per step
type InfoHistory struct {
	StepReward  []float64
	TotalReward []float64
	TotalProfit []float64
	Position    []Position
}

func (h *InfoHistory) append(info StepInfo) {
	h.StepReward = append(h.StepReward, info.StepReward)
	h.TotalReward = append(h.TotalReward, info.TotalReward)
	h.TotalProfit = append(h.TotalProfit, info.TotalProfit)
	h.Position = append(h.Position, info.Position)
}

// Len returns the number of recorded steps
func (h InfoHistory) Len() int {
	return len(h.StepReward)
}

func (h InfoHistory) clone() InfoHistory {
	return InfoHistory{
		StepReward:  append([]float64(nil), h.StepReward...),
		TotalReward: append([]float64(nil), h.TotalReward...),
		TotalProfit: append([]float64(nil), h.TotalProfit...),
		Position:    append([]Position(nil), h.Position...),
	}
}
