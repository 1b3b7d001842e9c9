package domain

// RawLineItem is one line item as produced by the extraction collaborator
type RawLineItem struct {
	Name     string   `json:"name"`
	Quantity *float64 `json:"quantity"`
	Unit     string   `json:"unit,omitempty"`
}

// ConfidenceTier buckets a similarity score
type ConfidenceTier string

const (
	TierHigh   ConfidenceTier = "high"
	TierMedium ConfidenceTier = "medium"
	TierLow    ConfidenceTier = "low"
)

// ConfidenceTiers lists every tier in reporting order
var ConfidenceTiers = []ConfidenceTier{TierHigh, TierMedium, TierLow}

// LineIssue describes why a line item has incomplete data
type LineIssue string

const (
	IssueInvalidInput         LineIssue = "invalid_input"
	IssueNoMatch              LineIssue = "no_match"
	IssueUnresolvableQuantity LineIssue = "unresolvable_quantity"
)

// LineItemReport is the emissions record for a single receipt line
type LineItemReport struct {
	OriginalName    string          `json:"original_name"`
	MatchedProduct  *string         `json:"matched_product"`
	QuantityKg      *float64        `json:"quantity_kg"`
	CO2PerKg        *float64        `json:"co2_per_kg"`
	TotalCO2        *float64        `json:"total_co2"`
	SimilarityScore float64         `json:"similarity_score"`
	ConfidenceTier  *ConfidenceTier `json:"confidence_tier"`
	Status          MatchStatus     `json:"status"`
	Issues          []LineIssue     `json:"issues,omitempty"`
}

// ReceiptReport is the aggregated emissions report for a whole receipt
type ReceiptReport struct {
	ReceiptID        string                 `json:"receipt_id,omitempty"`
	TotalEmissions   float64                `json:"total_emissions"`
	AverageEmissions float64                `json:"average_emissions"`
	TotalItems       int                    `json:"total_items"`
	MatchedItems     int                    `json:"matched_items"`
	UnmatchedItems   int                    `json:"unmatched_items"`
	ConfidenceStats  map[ConfidenceTier]int `json:"confidence_stats"`
	EcoRating        string                 `json:"eco_rating"`
	ItemBreakdown    []LineItemReport       `json:"item_breakdown"`
}
