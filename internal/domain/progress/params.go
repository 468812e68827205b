package progress

// Params defines the configurable parameters of the progression rules.
type Params struct {
	// RankStep is how many completed meditations advance the rank by one.
	RankStep int

	// RankCap is the highest attainable rank.
	RankCap int
}

// NewDefaultParams creates a new Params instance with default values.
func NewDefaultParams() *Params {
	return &Params{
		RankStep: 5,
		RankCap:  30,
	}
}
