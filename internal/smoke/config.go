// Package smoke drives a running pokepack server through a full player
// journey and checks the economy stays consistent.
package smoke

import "time"

// Config holds configuration for a smoke run.
type Config struct {
	BaseURL      string        // Base URL of the service
	Users        int           // Number of players to simulate
	PacksPerUser int           // Packs each player opens
	SetID        string        // Set to open; empty lets the server pick
	Workers      int           // Number of concurrent players
	Timeout      time.Duration // HTTP request timeout
	LogFile      string        // Log file for run output
	Verbose      bool          // Log every step
}

// Stats holds run statistics.
type Stats struct {
	UsersRegistered int64
	PacksOpened     int64
	CardsReceived   int64
	CoinsEarned     int64
	Spins           int64
	Failures        int64
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}

// Expected rewards of the scripted games.
const (
	typingWords         = 5
	typingStreak        = 3
	expectedTypingCoins = 130

	memoryPairs         = 3
	memoryTimeLeft      = 10
	memoryStreak        = 3
	expectedMemoryCoins = 35

	defaultPackCost = 100
)
