// Package match resolves parsed citations against stored papers and detects
// duplicate papers, scoring candidate pairs on title, author, and year
// evidence.
package match

import (
	"math"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/blackprince001/papertrail/internal/dedup"
)

// Params holds the scoring weights and acceptance thresholds. Zero values
// are replaced with defaults by applyDefaults.
type Params struct {
	// TitleWeight is the composite weight of title similarity.
	TitleWeight float64

	// AuthorWeight is the composite weight of author overlap.
	AuthorWeight float64

	// YearWeight is the composite weight of year proximity.
	YearWeight float64

	// AcceptThreshold is the minimum composite score for a citation match.
	AcceptThreshold float64

	// DuplicateThreshold is the minimum confidence for a duplicate
	// candidate.
	DuplicateThreshold float64

	// AuthorTitleGate is the minimum title similarity for the author+title
	// duplicate method to apply.
	AuthorTitleGate float64

	// TitleBoost is the title similarity above which the composite score
	// is floored at titleSim * 0.9.
	TitleBoost float64
}

// applyDefaults fills in default weights and thresholds.
func (p *Params) applyDefaults() {
	if p.TitleWeight == 0 {
		p.TitleWeight = 0.6
	}
	if p.AuthorWeight == 0 {
		p.AuthorWeight = 0.25
	}
	if p.YearWeight == 0 {
		p.YearWeight = 0.15
	}
	if p.AcceptThreshold == 0 {
		p.AcceptThreshold = 0.6
	}
	if p.DuplicateThreshold == 0 {
		p.DuplicateThreshold = 0.8
	}
	if p.AuthorTitleGate == 0 {
		p.AuthorTitleGate = 0.7
	}
	if p.TitleBoost == 0 {
		p.TitleBoost = 0.85
	}
}

// TitleSimilarity scores two titles on word overlap. Both titles are
// normalized first. Identical titles score 1.0 and containment scores 0.85.
// Otherwise the score is the Jaccard index of the word sets, boosted by
// 1.2x (capped at 1.0) when the titles share at least three words, since a
// three-word overlap is strong evidence for short bibliographic titles.
func TitleSimilarity(a, b string) float64 {
	normA := dedup.NormalizeTitle(a)
	normB := dedup.NormalizeTitle(b)

	if normA == "" || normB == "" {
		return 0.0
	}
	if normA == normB {
		return 1.0
	}
	if strings.Contains(normA, normB) || strings.Contains(normB, normA) {
		return 0.85
	}

	wordsA := strings.Fields(normA)
	wordsB := strings.Fields(normB)

	setA := make(map[string]struct{}, len(wordsA))
	for _, w := range wordsA {
		setA[w] = struct{}{}
	}
	setB := make(map[string]struct{}, len(wordsB))
	for _, w := range wordsB {
		setB[w] = struct{}{}
	}

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0.0
	}

	score := float64(intersection) / float64(union)
	if intersection >= 3 {
		score *= 1.2
		if score > 1.0 {
			score = 1.0
		}
	}
	return score
}

// TitleRatio scores two titles on edit distance. Identical normalized
// titles score 1.0 and containment scores 0.85; otherwise the score is
// 1 - levenshtein/maxLen over the normalized forms. Edit distance is less
// forgiving of reordering than TitleSimilarity, which suits duplicate
// detection where titles come from structured sources rather than parsed
// reference strings.
func TitleRatio(a, b string) float64 {
	normA := dedup.NormalizeTitle(a)
	normB := dedup.NormalizeTitle(b)

	if normA == "" || normB == "" {
		return 0.0
	}
	if normA == normB {
		return 1.0
	}
	if strings.Contains(normA, normB) || strings.Contains(normB, normA) {
		return 0.85
	}

	maxLen := len([]rune(normA))
	if lb := len([]rune(normB)); lb > maxLen {
		maxLen = lb
	}
	dist := levenshtein.ComputeDistance(normA, normB)
	return 1.0 - float64(dist)/float64(maxLen)
}

// AuthorOverlap scores two author lists. Only the first three authors of
// each list are compared by normalized last name; any intersection scores
// 0.8, reflecting that parsed reference strings usually truncate author
// lists.
func AuthorOverlap(a, b []string) float64 {
	lastA := dedup.LastNames(a, 3)
	lastB := dedup.LastNames(b, 3)

	if len(lastA) == 0 || len(lastB) == 0 {
		return 0.0
	}

	set := make(map[string]struct{}, len(lastA))
	for _, n := range lastA {
		set[n] = struct{}{}
	}
	for _, n := range lastB {
		if _, ok := set[n]; ok {
			return 0.8
		}
	}
	return 0.0
}

// YearProximity scores two publication years by their distance: 1.0 for
// equal years, 0.7 for adjacent, 0.4 for two or three apart, 0 beyond that
// or when either year is unknown.
func YearProximity(a, b int) float64 {
	if a == 0 || b == 0 {
		return 0.0
	}

	diff := a - b
	if diff < 0 {
		diff = -diff
	}

	switch diff {
	case 0:
		return 1.0
	case 1:
		return 0.7
	case 2, 3:
		return 0.4
	default:
		return 0.0
	}
}

// CosineSimilarity computes the cosine similarity of two embedding vectors.
// Returns 0 for empty, mismatched-dimension, or zero-magnitude vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0.0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// compositeScore combines the three evidence scores using the configured
// weights, flooring at titleSim * 0.9 when the title similarity alone is
// strong enough.
func (p Params) compositeScore(titleSim, authorSim, yearSim float64) float64 {
	score := p.TitleWeight*titleSim + p.AuthorWeight*authorSim + p.YearWeight*yearSim
	if titleSim > p.TitleBoost {
		if boosted := titleSim * 0.9; boosted > score {
			score = boosted
		}
	}
	return score
}
