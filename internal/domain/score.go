package domain

import "math"

const ScoreDecimalPlaces = 4

// SemanticScore maps an embedding distance onto (0,1]; smaller distances score higher.
func SemanticScore(distance float64) float64 {
	if distance < 0 {
		distance = 0
	}
	return 1.0 / (1.0 + distance)
}

// LexicalScore normalizes an inverted-index relevance whose sign convention
// (lower is better) differs from the semantic ranker.
func LexicalScore(relevance float64) float64 {
	return math.Abs(relevance)
}
