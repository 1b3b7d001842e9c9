package usecase

import (
	"log"

	"github.com/ecoscore/backend/internal/domain"
)

// Default matching thresholds
const (
	DefaultAcceptThreshold     = 0.80 // Scores at or above are high confidence
	DefaultBorderlineThreshold = 0.50 // Scores at or above are medium confidence
)

// MatchConfig holds configuration for the matching service
type MatchConfig struct {
	AcceptThreshold     float64
	BorderlineThreshold float64
	// MinMatchScore is the lowest score reported as matched. Zero means BorderlineThreshold.
	MinMatchScore      float64
	Metric             SimilarityMetric
	EnableDebugLogging bool
}

// MatchingService matches normalized item names against the reference catalog
type MatchingService struct {
	catalog            domain.CatalogRepository
	metric             SimilarityMetric
	minMatchScore      float64
	enableDebugLogging bool
}

// NewMatchingService creates a new matching service with the given configuration
func NewMatchingService(catalog domain.CatalogRepository, config MatchConfig) *MatchingService {
	accept := config.AcceptThreshold
	if accept <= 0 {
		accept = DefaultAcceptThreshold
	}

	borderline := config.BorderlineThreshold
	if borderline <= 0 {
		borderline = DefaultBorderlineThreshold
	}
	if borderline > accept {
		borderline = accept
	}

	minScore := config.MinMatchScore
	if minScore <= 0 {
		minScore = borderline
	}
	if minScore > accept {
		minScore = accept
	}

	metric := config.Metric
	if metric == nil {
		metric = TokenSortMetric{}
	}

	return &MatchingService{
		catalog:            catalog,
		metric:             metric,
		minMatchScore:      minScore,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// Match finds the best catalog entry for a normalized query.
// Ties on score go to the entry whose canonical name is closest to the query
// by edit distance, then to the earlier catalog entry.
func (s *MatchingService) Match(normalizedQuery string) domain.MatchResult {
	if normalizedQuery == "" {
		return domain.Unmatched(normalizedQuery, 0)
	}

	candidates := s.catalog.LookupCandidates(normalizedQuery)
	if len(candidates) == 0 {
		if s.enableDebugLogging {
			log.Printf("[MATCH] No candidates for: %q", normalizedQuery)
		}
		return domain.Unmatched(normalizedQuery, 0)
	}

	var best *domain.Candidate
	bestScore := -1.0
	bestDistance := 0
	bestName := ""

	for i := range candidates {
		candidate := &candidates[i]
		score, name := s.scoreCandidate(normalizedQuery, candidate)
		distance := editDistance(candidate.Name, normalizedQuery)

		if s.enableDebugLogging {
			log.Printf("[MATCH] Candidate: %q | via %q | Score: %.3f | Distance: %d",
				candidate.Entry.CanonicalName, name, score, distance)
		}

		if score > bestScore || (score == bestScore && distance < bestDistance) {
			best = candidate
			bestScore = score
			bestDistance = distance
			bestName = name
		}
	}

	if bestScore < s.minMatchScore {
		if s.enableDebugLogging {
			log.Printf("[MATCH] Rejected %q: best %q scored %.3f (< %.2f)",
				normalizedQuery, best.Entry.CanonicalName, bestScore, s.minMatchScore)
		}
		return domain.Unmatched(normalizedQuery, bestScore)
	}

	product := best.Entry.CanonicalName

	if s.enableDebugLogging {
		log.Printf("[MATCH] Best match for %q: %q (score: %.3f)", normalizedQuery, product, bestScore)
	}

	return domain.MatchResult{
		NormalizedQuery: normalizedQuery,
		MatchedProduct:  &product,
		MatchedAlias:    bestName,
		SimilarityScore: bestScore,
		Status:          domain.StatusMatched,
	}
}

// scoreCandidate returns the best score over the candidate's name and aliases,
// along with the normalized name that produced it
func (s *MatchingService) scoreCandidate(query string, candidate *domain.Candidate) (float64, string) {
	bestScore := s.metric.Similarity(query, candidate.Name)
	bestName := candidate.Name

	for _, alias := range candidate.Aliases {
		if score := s.metric.Similarity(query, alias); score > bestScore {
			bestScore = score
			bestName = alias
		}
	}

	return clamp01(bestScore), bestName
}
