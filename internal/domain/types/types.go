// Package types contains the request and response bodies of the HTTP API,
// shared by the server and the smoke client.
package types

import (
	"github.com/okian/pokepack/internal/domain/model"
	"github.com/okian/pokepack/internal/domain/rewards"
)

// RegisterRequest registers or fetches a user.
type RegisterRequest struct {
	Username string `json:"username"`
}

// OpenPackRequest opens one pack of a set. An empty SetID opens the default set.
type OpenPackRequest struct {
	Username string `json:"username"`
	SetID    string `json:"setId"`
}

// SetRef names the set a pack came from.
type SetRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PackResult is the content of an opened pack.
type PackResult struct {
	Set   SetRef       `json:"set"`
	Cards []model.Card `json:"cards"`
}

// OpenPackResponse is a paid pack opening.
type OpenPackResponse struct {
	User  model.User   `json:"user"`
	Cards []model.Card `json:"cards"`
	Set   SetRef       `json:"set"`
}

// MemoryFinishRequest is the telemetry of a finished memory-match run.
// PairsTotal is accepted for compatibility and ignored.
type MemoryFinishRequest struct {
	Username     string  `json:"username"`
	Difficulty   string  `json:"difficulty"`
	PairsTotal   *int    `json:"pairsTotal,omitempty"`
	PairsMatched int     `json:"pairsMatched"`
	Mismatches   int     `json:"mismatches"`
	TimeLeft     float64 `json:"timeLeft"`
	StreakMax    int     `json:"streakMax"`
}

// MemoryFinishResponse is the reward of a memory-match run.
type MemoryFinishResponse struct {
	Won       bool              `json:"won"`
	Coins     int64             `json:"coins"`
	Breakdown rewards.Breakdown `json:"breakdown"`
	User      model.User        `json:"user"`
}

// UsernameRequest carries only a username.
type UsernameRequest struct {
	Username string `json:"username"`
}

// SpinResponse is a wheel result. Pack is null unless a free pack was won.
type SpinResponse struct {
	Outcome rewards.Outcome `json:"outcome"`
	User    model.User      `json:"user"`
	Pack    *PackResult     `json:"pack"`
}

// SilhouetteStartResponse opens a silhouette challenge.
type SilhouetteStartResponse struct {
	Token string `json:"token"`
	Image string `json:"image"`
}

// SilhouetteGuessRequest answers a challenge.
type SilhouetteGuessRequest struct {
	Username string `json:"username"`
	Token    string `json:"token"`
	Guess    string `json:"guess"`
}

// SilhouetteGuessResponse reveals the result. Answer is set only when the
// guess was wrong.
type SilhouetteGuessResponse struct {
	Correct     bool       `json:"correct"`
	User        model.User `json:"user"`
	Answer      string     `json:"answer,omitempty"`
	PokemonName string     `json:"pokemonName"`
	Image       string     `json:"image"`
}

// TypingFinishRequest is the result of a typing run.
type TypingFinishRequest struct {
	Username     string `json:"username"`
	CorrectWords int    `json:"correctWords"`
	MaxStreak    int    `json:"maxStreak"`
}

// TypingFinishResponse is the reward of a typing run.
type TypingFinishResponse struct {
	Coins int64      `json:"coins"`
	User  model.User `json:"user"`
}

// SetCoinsRequest is the admin balance override. Amount stays a float so
// fractions and non-finite values can be rejected by the server.
type SetCoinsRequest struct {
	Token    string   `json:"token,omitempty"`
	Username string   `json:"username"`
	Amount   *float64 `json:"amount"`
}

// WarmRequest warms one set, or every listed set when SetID is "all" or
// All is true.
type WarmRequest struct {
	Token string `json:"token,omitempty"`
	SetID string `json:"setId,omitempty"`
	All   *bool  `json:"all,omitempty"`
	Force bool   `json:"force"`
}

// AdminRequest carries only the admin token.
type AdminRequest struct {
	Token string `json:"token,omitempty"`
}

// RehydrateRequest names the user whose collection images are repaired.
type RehydrateRequest struct {
	Token    string `json:"token,omitempty"`
	Username string `json:"username"`
}

// RehydrateResponse counts the collection rows that got a real image.
type RehydrateResponse struct {
	Updated int64 `json:"updated"`
}

// AcceptedResponse acknowledges a background job.
type AcceptedResponse struct {
	Message string `json:"message"`
	JobID   string `json:"jobId,omitempty"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Counts is the per-tier size of a set's card pools.
type Counts struct {
	Common   int `json:"common"`
	Uncommon int `json:"uncommon"`
	Rare     int `json:"rare"`
}

// WarmResult is the outcome of warming one set.
type WarmResult struct {
	SetID  string `json:"setId"`
	OK     bool   `json:"ok"`
	Source string `json:"source,omitempty"`
	Counts Counts `json:"counts"`
	Error  string `json:"error,omitempty"`
}

// WarmResponse reports a synchronous warm-up.
type WarmResponse struct {
	Warmed  int          `json:"warmed"`
	Results []WarmResult `json:"results"`
}

// PackProbe is the availability of one listed pack.
type PackProbe struct {
	SetID        string `json:"setId"`
	OK           bool   `json:"ok"`
	SampleCardID string `json:"sampleCardId,omitempty"`
	Image        string `json:"image,omitempty"`
	Error        string `json:"error,omitempty"`
}

// PackProbeResponse lists the probes of every pack.
type PackProbeResponse struct {
	Results []PackProbe `json:"results"`
}
