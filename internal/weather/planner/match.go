package planner

import (
	"regexp"
	"strings"

	"github.com/i474232898/weather-planner/internal/weather"
)

// MatchThreshold is the minimum overlap score for a phrase to resolve.
const MatchThreshold = 0.33

var nonWord = regexp.MustCompile(`\W+`)

// Tokens lower-cases s and splits it on non-word characters.
func Tokens(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range nonWord.Split(strings.ToLower(s), -1) {
		if tok != "" {
			out[tok] = struct{}{}
		}
	}
	return out
}

// Overlap scores two token sets as |a∩b| / max(1, |a|, |b|).
func Overlap(a, b map[string]struct{}) float64 {
	shared := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			shared++
		}
	}
	denom := len(a)
	if len(b) > denom {
		denom = len(b)
	}
	if denom < 1 {
		denom = 1
	}
	return float64(shared) / float64(denom)
}

// Score is the best overlap of phrase against the variable's id, label and
// aliases.
func Score(phrase map[string]struct{}, v weather.CapabilityVariable) float64 {
	best := Overlap(phrase, Tokens(v.ID))
	if s := Overlap(phrase, Tokens(v.Label)); s > best {
		best = s
	}
	for _, alias := range v.Aliases {
		if s := Overlap(phrase, Tokens(alias)); s > best {
			best = s
		}
	}
	return best
}

// BestMatch returns the highest-scoring catalog entry. Ties go to the entry
// that comes first in catalog order. ok is false for an empty catalog.
func BestMatch(phrase string, catalog []weather.CapabilityVariable) (weather.CapabilityVariable, float64, bool) {
	toks := Tokens(phrase)

	var (
		best      weather.CapabilityVariable
		bestScore = -1.0
	)
	for _, v := range catalog {
		if s := Score(toks, v); s > bestScore {
			best, bestScore = v, s
		}
	}
	if bestScore < 0 {
		return weather.CapabilityVariable{}, 0, false
	}
	return best, bestScore, true
}
