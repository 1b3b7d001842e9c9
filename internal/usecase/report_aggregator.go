package usecase

import "github.com/ecoscore/backend/internal/domain"

// RatingUnavailable is reported when a receipt has no items to average over
const RatingUnavailable = "N/A"

// ecoRatingBreakpoints are upper bounds (exclusive) on average kg CO2e per item
var ecoRatingBreakpoints = []struct {
	below  float64
	rating string
}{
	{2, "A+"},
	{4, "A"},
	{6, "B"},
	{8, "C"},
}

// EcoRating grades an average per-item emission value
func EcoRating(averageEmissions float64) string {
	for _, bp := range ecoRatingBreakpoints {
		if averageEmissions < bp.below {
			return bp.rating
		}
	}
	return "D"
}

// Aggregate folds line reports into a receipt report. Item order is preserved.
func Aggregate(lines []domain.LineItemReport) domain.ReceiptReport {
	report := domain.ReceiptReport{
		TotalItems:      len(lines),
		ConfidenceStats: make(map[domain.ConfidenceTier]int, len(domain.ConfidenceTiers)),
		ItemBreakdown:   make([]domain.LineItemReport, len(lines)),
	}
	for _, tier := range domain.ConfidenceTiers {
		report.ConfidenceStats[tier] = 0
	}
	copy(report.ItemBreakdown, lines)

	for _, line := range lines {
		if line.TotalCO2 != nil {
			report.TotalEmissions += *line.TotalCO2
		}

		if line.MatchedProduct == nil {
			report.UnmatchedItems++
			continue
		}

		report.MatchedItems++
		if line.ConfidenceTier != nil {
			report.ConfidenceStats[*line.ConfidenceTier]++
		}
	}

	if report.TotalItems == 0 {
		report.EcoRating = RatingUnavailable
		return report
	}

	report.AverageEmissions = report.TotalEmissions / float64(report.TotalItems)
	report.EcoRating = EcoRating(report.AverageEmissions)

	return report
}
