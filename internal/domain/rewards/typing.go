package rewards

// Typing challenge rates.
const (
	CoinsPerWord   = 20
	CoinsPerStreak = 10
	// MaxTypingWords bounds the words one 60 second round can count.
	MaxTypingWords = 100
)

// Typing rewards correct words and the best streak. Nothing is paid without
// at least one correct word. The streak cannot exceed the words typed.
func Typing(correctWords, maxStreak int) int64 {
	if correctWords <= 0 {
		return 0
	}
	correctWords = min(correctWords, MaxTypingWords)
	maxStreak = clampInt(maxStreak, 0, correctWords)
	return int64(correctWords)*CoinsPerWord + int64(maxStreak)*CoinsPerStreak
}
