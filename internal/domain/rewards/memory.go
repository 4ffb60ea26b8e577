package rewards

import (
	"math"
)

// MemoryTelemetry is what the client reports when a memory-match run ends.
type MemoryTelemetry struct {
	PairsMatched int
	Mismatches   int
	TimeLeft     float64
	StreakMax    int
}

// Breakdown itemizes a memory-match reward.
type Breakdown struct {
	Base      int64   `json:"base"`
	TimeBonus int64   `json:"timeBonus"`
	Bonus     int64   `json:"bonus"`
	ComboMult float64 `json:"comboMult"`
}

// MemoryResult is the outcome of a memory-match run.
type MemoryResult struct {
	Won       bool
	Coins     int64
	Breakdown Breakdown
}

// Memory scores a run. The number of pairs comes from the mode, never from
// the client; telemetry is clamped before use.
func Memory(t MemoryTelemetry, m Mode) MemoryResult {
	matched := clampInt(t.PairsMatched, 0, m.Pairs)
	mismatches := max(t.Mismatches, 0)
	timeLeft := int64(0)
	if !math.IsNaN(t.TimeLeft) && t.TimeLeft > 0 {
		timeLeft = int64(math.Floor(math.Min(t.TimeLeft, float64(m.totalTime()))))
	}
	streak := clampInt(t.StreakMax, 1, max(m.Pairs, 1))

	won := matched >= m.Pairs && timeLeft > 0

	comboMult := math.Min(1+m.ComboStep*float64(streak-1), m.ComboCap)
	base := int64(math.Floor(m.BasePerPair * float64(matched) * comboMult))
	timeBonus := m.timeBonus(timeLeft)
	var bonus int64
	if won && mismatches == 0 {
		bonus = m.PerfectBonus
	}

	res := MemoryResult{
		Won:       won,
		Breakdown: Breakdown{Base: base, TimeBonus: timeBonus, Bonus: bonus, ComboMult: comboMult},
	}
	if won {
		res.Coins = max(base+timeBonus+bonus, 0)
	}
	return res
}

func (m Mode) totalTime() int {
	if m.TotalTime <= 0 {
		return DefaultTotalTime
	}
	return m.TotalTime
}

func (m Mode) timeBonus(seconds int64) int64 {
	switch m.TimeRule {
	case TimeDouble:
		return 2 * seconds
	case TimeFloor:
		return int64(math.Floor(m.TimeBonusMultiplier * float64(seconds)))
	default:
		return int64(math.Round(m.TimeBonusMultiplier * float64(seconds)))
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
