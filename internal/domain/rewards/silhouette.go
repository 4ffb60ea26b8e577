package rewards

import (
	"strings"
	"unicode"
)

// SilhouetteReward is paid for a correct guess.
const SilhouetteReward int64 = 200

// NormalizeGuess case-folds s and drops whitespace and the characters - ' .
func NormalizeGuess(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		switch r {
		case '-', '\'', '.':
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

// Silhouette compares a guess with the stored answer.
func Silhouette(guess, answer string) (bool, int64) {
	g := NormalizeGuess(guess)
	if g != "" && g == NormalizeGuess(answer) {
		return true, SilhouetteReward
	}
	return false, 0
}

// DisplayName turns "mr-mime" into "Mr Mime".
func DisplayName(answer string) string {
	words := strings.FieldsFunc(answer, func(r rune) bool { return r == '-' || unicode.IsSpace(r) })
	for i, w := range words {
		rs := []rune(w)
		rs[0] = unicode.ToUpper(rs[0])
		words[i] = string(rs)
	}
	return strings.Join(words, " ")
}
