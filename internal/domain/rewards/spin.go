package rewards

import (
	"github.com/okian/pokepack/internal/domain/draw"
)

// Spin outcome kinds.
const (
	OutcomeCoins    = "coins"
	OutcomeFreePack = "free_pack"
)

// Outcome is one wheel result. Delta is set only for coin outcomes.
type Outcome struct {
	Type  string `json:"type"`
	Delta int64  `json:"delta,omitempty"`
	Label string `json:"label"`
}

// FreePack reports whether the outcome grants a pack.
func (o Outcome) FreePack() bool { return o.Type == OutcomeFreePack }

type wedge struct {
	upTo    float64
	outcome Outcome
}

// wheel partitions [0,1) into cumulative ranges.
var wheel = []wedge{ //nolint:gochecknoglobals // fixed probability table
	{upTo: 0.10, outcome: Outcome{Type: OutcomeCoins, Delta: -50, Label: "Lose 50 coins"}},
	{upTo: 0.45, outcome: Outcome{Type: OutcomeCoins, Delta: 50, Label: "+50 coins"}},
	{upTo: 0.70, outcome: Outcome{Type: OutcomeCoins, Delta: 100, Label: "+100 coins"}},
	{upTo: 0.80, outcome: Outcome{Type: OutcomeCoins, Delta: 250, Label: "+250 coins"}},
	{upTo: 1.00, outcome: Outcome{Type: OutcomeFreePack, Label: "Free random pack"}},
}

// SpinAt maps one uniform value in [0,1) to its outcome.
func SpinAt(r float64) Outcome {
	for _, w := range wheel {
		if r < w.upTo {
			return w.outcome
		}
	}
	return wheel[len(wheel)-1].outcome
}

// Spin draws one outcome from src.
func Spin(src draw.RandomSource) Outcome {
	return SpinAt(src.Float64())
}

// SpinFloor is the lowest balance a coin outcome may leave.
const SpinFloor int64 = 0
