package match

import "github.com/agext/levenshtein"

// Scorer computes a normalized similarity between two cleaned names on
// a 0-100 scale. The all-pairs fuzzy phase is quadratic in the input
// sizes, so the scorer is injected to keep the strategy replaceable.
type Scorer interface {
	Score(a, b string) float64
}

// LevenshteinScorer scores by edit-distance similarity.
type LevenshteinScorer struct{}

func (LevenshteinScorer) Score(a, b string) float64 {
	return levenshtein.Similarity(a, b, nil) * 100
}
