package domain

// CatalogEntry is a reference product with its emission factor
type CatalogEntry struct {
	CanonicalName       string   `json:"canonical_name"`
	Aliases             []string `json:"aliases,omitempty"`
	CO2PerKg            float64  `json:"co2_per_kg"`
	TypicalUnitWeightKg float64  `json:"typical_unit_weight_kg,omitempty"` // Weight of one countable unit, 0 if unknown
	Category            string   `json:"category,omitempty"`
}

// HasUnitWeight reports whether countable units can be converted for this entry
func (e CatalogEntry) HasUnitWeight() bool {
	return e.TypicalUnitWeightKg > 0
}

// MatchStatus is the outcome of matching a line item against the catalog
type MatchStatus string

const (
	StatusMatched   MatchStatus = "matched"
	StatusUnmatched MatchStatus = "unmatched"
)

// MatchResult represents the result of matching one normalized query
type MatchResult struct {
	NormalizedQuery string      `json:"normalized_query"`
	MatchedProduct  *string     `json:"matched_product"`
	MatchedAlias    string      `json:"matched_alias,omitempty"` // Name or alias that produced the best score
	SimilarityScore float64     `json:"similarity_score"`
	Status          MatchStatus `json:"status"`
}

// IsMatched reports whether the result carries an accepted catalog product
func (m MatchResult) IsMatched() bool {
	return m.Status == StatusMatched && m.MatchedProduct != nil
}

// Unmatched builds an unmatched result for a query
func Unmatched(query string, score float64) MatchResult {
	return MatchResult{
		NormalizedQuery: query,
		SimilarityScore: score,
		Status:          StatusUnmatched,
	}
}

// Candidate is a catalog entry paired with its normalized name and aliases
type Candidate struct {
	Entry   CatalogEntry
	Name    string
	Aliases []string
}
