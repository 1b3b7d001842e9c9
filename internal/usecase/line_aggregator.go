package usecase

import "github.com/ecoscore/backend/internal/domain"

// LineAggregator turns a match and a resolved quantity into a line item report
type LineAggregator struct {
	acceptThreshold     float64
	borderlineThreshold float64
}

// NewLineAggregator creates a line aggregator with the given tier thresholds
func NewLineAggregator(acceptThreshold, borderlineThreshold float64) *LineAggregator {
	if acceptThreshold <= 0 {
		acceptThreshold = DefaultAcceptThreshold
	}
	if borderlineThreshold <= 0 {
		borderlineThreshold = DefaultBorderlineThreshold
	}
	if borderlineThreshold > acceptThreshold {
		borderlineThreshold = acceptThreshold
	}
	return &LineAggregator{
		acceptThreshold:     acceptThreshold,
		borderlineThreshold: borderlineThreshold,
	}
}

// Tier classifies a similarity score into a confidence tier
func (a *LineAggregator) Tier(score float64) domain.ConfidenceTier {
	switch {
	case score >= a.acceptThreshold:
		return domain.TierHigh
	case score >= a.borderlineThreshold:
		return domain.TierMedium
	default:
		return domain.TierLow
	}
}

// BuildLineReport assembles the emissions record for one receipt line.
// entry is the catalog entry for a matched result (nil otherwise); kg and
// qtyErr are the quantity resolver's output.
func (a *LineAggregator) BuildLineReport(
	raw domain.RawLineItem,
	match domain.MatchResult,
	entry *domain.CatalogEntry,
	kg float64,
	qtyErr error,
) domain.LineItemReport {
	report := domain.LineItemReport{
		OriginalName:    raw.Name,
		SimilarityScore: match.SimilarityScore,
		Status:          domain.StatusUnmatched,
	}

	resolved := qtyErr == nil && kg > 0
	if resolved {
		report.QuantityKg = float64Ptr(kg)
	} else {
		report.Issues = append(report.Issues, domain.IssueUnresolvableQuantity)
	}

	if !match.IsMatched() || entry == nil {
		if match.NormalizedQuery == "" {
			report.Issues = append([]domain.LineIssue{domain.IssueInvalidInput}, report.Issues...)
		} else {
			report.Issues = append([]domain.LineIssue{domain.IssueNoMatch}, report.Issues...)
		}
		return report
	}

	product := entry.CanonicalName
	tier := a.Tier(match.SimilarityScore)

	report.Status = domain.StatusMatched
	report.MatchedProduct = &product
	report.CO2PerKg = float64Ptr(entry.CO2PerKg)
	report.ConfidenceTier = &tier

	if resolved {
		report.TotalCO2 = float64Ptr(kg * entry.CO2PerKg)
	}

	return report
}

func float64Ptr(v float64) *float64 {
	return &v
}
