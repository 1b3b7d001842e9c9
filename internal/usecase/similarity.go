package usecase

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

// Supported similarity metric names
const (
	MetricTokenSort   = "token_sort"
	MetricJaroWinkler = "jaro_winkler"
)

// SimilarityMetric scores two normalized names. Implementations must be
// symmetric and return a value in [0,1], with 1 for identical non-empty input.
type SimilarityMetric interface {
	Similarity(a, b string) float64
}

// NewSimilarityMetric returns the metric registered under name
func NewSimilarityMetric(name string) (SimilarityMetric, error) {
	switch name {
	case "", MetricTokenSort:
		return TokenSortMetric{}, nil
	case MetricJaroWinkler:
		return JaroWinklerMetric{}, nil
	default:
		return nil, fmt.Errorf("unknown similarity metric: %s", name)
	}
}

// TokenSortMetric takes the larger of the token-set Jaccard index and the
// edit-distance ratio of the sorted token strings. Sorting tokens makes word
// order irrelevant; the edit ratio tolerates misspellings.
type TokenSortMetric struct{}

// Similarity implements SimilarityMetric
func (TokenSortMetric) Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	tokensA := tokenize(a)
	tokensB := tokenize(b)

	jaccard := jaccardIndex(tokensA, tokensB)
	ratio := editRatio(sortedJoin(tokensA), sortedJoin(tokensB))

	return clamp01(max(jaccard, ratio))
}

// JaroWinklerMetric applies Jaro-Winkler to the sorted token strings
type JaroWinklerMetric struct{}

// Similarity implements SimilarityMetric
func (JaroWinklerMetric) Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	sa := sortedJoin(tokenize(a))
	sb := sortedJoin(tokenize(b))
	if sa == sb {
		return 1
	}

	// matchr's long-string tolerance is order dependent; take both directions
	score := max(matchr.JaroWinkler(sa, sb, true), matchr.JaroWinkler(sb, sa, true))
	return clamp01(score)
}

// editDistance returns the Levenshtein distance between two strings
func editDistance(a, b string) int {
	return matchr.Levenshtein(a, b)
}

// editRatio is 1 - distance/longest length, measured in runes
func editRatio(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 0
	}
	return 1 - float64(editDistance(a, b))/float64(longest)
}

// jaccardIndex returns |A ∩ B| / |A ∪ B| over the token sets
func jaccardIndex(tokensA, tokensB []string) float64 {
	union := findUnion(tokensA, tokensB)
	if union == 0 {
		return 0
	}
	common, _ := findIntersection(tokensA, tokensB)
	return float64(common) / float64(union)
}

// findIntersection returns the count of common tokens and the list of matched tokens
func findIntersection(tokens1, tokens2 []string) (int, []string) {
	set := make(map[string]bool, len(tokens1))
	for _, t := range tokens1 {
		set[t] = true
	}

	var matched []string
	seen := make(map[string]bool)
	for _, t := range tokens2 {
		if set[t] && !seen[t] {
			matched = append(matched, t)
			seen[t] = true
		}
	}

	return len(matched), matched
}

// findUnion returns the count of unique tokens across both sets
func findUnion(tokens1, tokens2 []string) int {
	set := make(map[string]bool, len(tokens1)+len(tokens2))
	for _, t := range tokens1 {
		set[t] = true
	}
	for _, t := range tokens2 {
		set[t] = true
	}
	return len(set)
}

// sortedJoin sorts and de-duplicates tokens, then joins them with single spaces
func sortedJoin(tokens []string) string {
	uniq := make([]string, 0, len(tokens))
	seen := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			uniq = append(uniq, t)
		}
	}
	sort.Strings(uniq)
	return strings.Join(uniq, " ")
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
