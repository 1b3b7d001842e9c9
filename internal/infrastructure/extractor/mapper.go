package extractor

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/ecoscore/backend/internal/domain"
)

// ExtractResponse is the extraction service payload
type ExtractResponse struct {
	Lines []ExtractedLine `json:"lines"`
}

// ExtractedLine is one OCR line. Quantity may arrive as a number or a string
// ("2", "1,5", "") depending on the receipt layout.
type ExtractedLine struct {
	Text     string          `json:"text"`
	Quantity json.RawMessage `json:"quantity,omitempty"`
	Unit     string          `json:"unit,omitempty"`
}

// MapToLineItems converts the extraction payload into raw line items,
// one per OCR line and in the same order. Lines without text keep an empty
// name so the analysis reports them as invalid input instead of losing them.
func MapToLineItems(resp ExtractResponse) []domain.RawLineItem {
	items := make([]domain.RawLineItem, 0, len(resp.Lines))
	for _, line := range resp.Lines {
		items = append(items, domain.RawLineItem{
			Name:     strings.TrimSpace(line.Text),
			Quantity: parseQuantity(line.Quantity),
			Unit:     strings.TrimSpace(line.Unit),
		})
	}
	return items
}

// parseQuantity reads a JSON number or numeric string; anything else is nil
func parseQuantity(raw json.RawMessage) *float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return finite(number)
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil
	}
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	if text == "" {
		return nil
	}
	number, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil
	}
	return finite(number)
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
