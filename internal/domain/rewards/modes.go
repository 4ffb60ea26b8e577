// Package rewards computes coin rewards for the mini-games. Every function is
// pure: identical telemetry and mode always give identical coins.
package rewards

import (
	"strings"
)

// Difficulty names of the memory-match table.
const (
	Easy   = "easy"
	Medium = "medium"
	Hard   = "hard"
)

// TimeRule is how seconds left turn into a time bonus.
type TimeRule string

const (
	// TimeRound pays round(multiplier * seconds).
	TimeRound TimeRule = "round"
	// TimeFloor pays floor(multiplier * seconds).
	TimeFloor TimeRule = "floor"
	// TimeDouble pays 2 * seconds whatever the multiplier.
	TimeDouble TimeRule = "double"
)

// DefaultTotalTime is the round length of rows that do not set one.
const DefaultTotalTime = 60

// Mode is one row of the memory-match difficulty table. TotalTime is the
// round length in seconds and bounds the reported time left.
type Mode struct {
	Name                string
	Pairs               int
	TotalTime           int
	BasePerPair         float64
	TimeBonusMultiplier float64
	TimeRule            TimeRule
	PerfectBonus        int64
	ComboStep           float64
	ComboCap            float64
}

// DefaultModes returns a fresh copy of the built-in difficulty table.
func DefaultModes() map[string]Mode {
	return map[string]Mode{
		Easy: {Name: Easy, Pairs: 3, TotalTime: 30, BasePerPair: 5, TimeBonusMultiplier: 1, TimeRule: TimeRound,
			PerfectBonus: 10, ComboStep: 0, ComboCap: 1},
		Medium: {Name: Medium, Pairs: 6, TotalTime: 45, BasePerPair: 8, TimeBonusMultiplier: 1.5, TimeRule: TimeFloor,
			PerfectBonus: 25, ComboStep: 0.1, ComboCap: 1.5},
		Hard: {Name: Hard, Pairs: 8, TotalTime: 60, BasePerPair: 12, TimeBonusMultiplier: 2, TimeRule: TimeDouble,
			PerfectBonus: 50, ComboStep: 0.2, ComboCap: 2},
	}
}

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithModes replaces or adds difficulty rows. Rows with no pairs are ignored.
// A row that leaves TimeRule or TotalTime unset keeps the value of the row it
// replaces, or gets TimeRound and DefaultTotalTime when it is new.
func WithModes(modes map[string]Mode) Option {
	return func(c *Calculator) {
		for name, m := range modes {
			if m.Pairs <= 0 {
				continue
			}
			name = strings.ToLower(strings.TrimSpace(name))
			m.Name = name
			prev, replaced := c.modes[name]
			if m.TimeRule == "" {
				m.TimeRule = TimeRound
				if replaced {
					m.TimeRule = prev.TimeRule
				}
			}
			if m.TotalTime <= 0 {
				m.TotalTime = DefaultTotalTime
				if replaced {
					m.TotalTime = prev.TotalTime
				}
			}
			c.modes[name] = m
		}
	}
}

// WithDefaultMode picks the row used for unknown difficulty names.
func WithDefaultMode(name string) Option {
	return func(c *Calculator) {
		if _, ok := c.modes[name]; ok {
			c.fallback = name
		}
	}
}

// Calculator resolves difficulty names against its table.
type Calculator struct {
	modes    map[string]Mode
	fallback string
}

// NewCalculator creates a calculator over the default table.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{modes: DefaultModes(), fallback: Easy}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mode returns the row for difficulty, case-insensitively, or the default row.
func (c *Calculator) Mode(difficulty string) Mode {
	if m, ok := c.modes[strings.ToLower(strings.TrimSpace(difficulty))]; ok {
		return m
	}
	return c.modes[c.fallback]
}

// Memory scores a memory-match run under the named difficulty.
func (c *Calculator) Memory(difficulty string, t MemoryTelemetry) MemoryResult {
	return Memory(t, c.Mode(difficulty))
}
