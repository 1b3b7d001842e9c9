package display

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ecoscore/backend/internal/domain"
)

// Styles for terminal output.
var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
	cyanStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	goodStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2")) // green
	fairStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3")) // yellow
	poorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1")) // red
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

const nameWidth = 28

// MatchRow pairs a raw query with its match result.
type MatchRow struct {
	Query  string             `json:"query"`
	Result domain.MatchResult `json:"result"`
}

// PrintReport renders a receipt report as a table followed by a summary.
func PrintReport(w io.Writer, report *domain.ReceiptReport) {
	fmt.Fprintf(w, "\n%s  %s\n",
		headerStyle.Render("Receipt Emissions"),
		cyanStyle.Render(fmt.Sprintf("%d items", report.TotalItems)),
	)
	if report.ReceiptID != "" {
		fmt.Fprintf(w, "%s\n", dimStyle.Render("Receipt "+report.ReceiptID))
	}
	fmt.Fprintln(w)

	if len(report.ItemBreakdown) > 0 {
		fmt.Fprintf(w, "  %s\n", titleStyle.Render(fmt.Sprintf("%-*s  %-*s  %9s  %9s  %6s  %s",
			nameWidth, "ITEM", nameWidth, "MATCH", "KG", "KG CO2E", "SCORE", "TIER")))
		for _, line := range report.ItemBreakdown {
			printLine(w, line)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "  Total:    %s kg CO2e\n", titleStyle.Render(fmt.Sprintf("%.3f", report.TotalEmissions)))
	fmt.Fprintf(w, "  Average:  %.3f kg CO2e per item\n", report.AverageEmissions)
	fmt.Fprintf(w, "  Matched:  %d of %d\n", report.MatchedItems, report.TotalItems)

	var tiers []string
	for _, tier := range domain.ConfidenceTiers {
		tiers = append(tiers, fmt.Sprintf("%s %d", tier, report.ConfidenceStats[tier]))
	}
	fmt.Fprintf(w, "  %s\n", dimStyle.Render("Confidence: "+strings.Join(tiers, " | ")))
	fmt.Fprintf(w, "  Rating:   %s\n\n", ratingStyle(report.EcoRating).Render(report.EcoRating))
}

// PrintReportJSON renders a receipt report as JSON.
func PrintReportJSON(w io.Writer, report *domain.ReceiptReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// PrintMatches renders single-name match results.
func PrintMatches(w io.Writer, rows []MatchRow) {
	fmt.Fprintln(w)
	for _, row := range rows {
		res := row.Result
		if res.IsMatched() {
			fmt.Fprintf(w, "  %s -> %s  %s\n",
				titleStyle.Render(row.Query),
				goodStyle.Render(*res.MatchedProduct),
				dimStyle.Render(fmt.Sprintf("score %.3f via %q", res.SimilarityScore, res.MatchedAlias)),
			)
			continue
		}
		fmt.Fprintf(w, "  %s -> %s  %s\n",
			titleStyle.Render(row.Query),
			warningStyle.Render("no match"),
			dimStyle.Render(fmt.Sprintf("best score %.3f for %q", res.SimilarityScore, res.NormalizedQuery)),
		)
	}
	fmt.Fprintln(w)
}

// PrintMatchesJSON renders match results as JSON.
func PrintMatchesJSON(w io.Writer, rows []MatchRow) error {
	if rows == nil {
		rows = []MatchRow{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// PrintError prints a styled error message.
func PrintError(w io.Writer, msg string) {
	fmt.Fprintln(w, errorStyle.Render(msg))
}

// PrintWarning prints a styled warning message.
func PrintWarning(w io.Writer, msg string) {
	fmt.Fprintln(w, warningStyle.Render(msg))
}

func printLine(w io.Writer, line domain.LineItemReport) {
	match := "-"
	if line.MatchedProduct != nil {
		match = *line.MatchedProduct
	}
	tier := "-"
	if line.ConfidenceTier != nil {
		tier = string(*line.ConfidenceTier)
	}

	row := fmt.Sprintf("%-*s  %-*s  %9s  %9s  %6.3f  %s",
		nameWidth, truncate(line.OriginalName, nameWidth),
		nameWidth, truncate(match, nameWidth),
		formatOptional(line.QuantityKg), formatOptional(line.TotalCO2),
		line.SimilarityScore, tier,
	)

	switch {
	case line.Status != domain.StatusMatched:
		row = warningStyle.Render(row)
	case line.TotalCO2 == nil:
		row = dimStyle.Render(row)
	}
	fmt.Fprintf(w, "  %s\n", row)

	if len(line.Issues) > 0 {
		issues := make([]string, len(line.Issues))
		for i, issue := range line.Issues {
			issues[i] = string(issue)
		}
		fmt.Fprintf(w, "    %s\n", dimStyle.Render(strings.Join(issues, ", ")))
	}
}

func ratingStyle(rating string) lipgloss.Style {
	switch rating {
	case "A+", "A":
		return goodStyle
	case "B", "C":
		return fairStyle
	case "D":
		return poorStyle
	default:
		return dimStyle
	}
}

func formatOptional(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.3f", *v)
}

// truncate shortens s to width runes, marking the cut with "…"
func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
