package usecase

import (
	"fmt"
	"math"
	"strings"

	"github.com/ecoscore/backend/internal/domain"
)

// UnitConfig holds the unit conversion table used by the quantity resolver
type UnitConfig struct {
	// Conversions maps a unit name to kilograms per unit
	Conversions map[string]float64
	// Countable lists units that need the catalog entry's typical unit weight
	Countable []string
}

// DefaultUnitConversions returns the built-in mass conversion table
func DefaultUnitConversions() map[string]float64 {
	return map[string]float64{
		"kg": 1, "kgs": 1, "kilo": 1, "kilos": 1, "kilogram": 1, "kilograms": 1,
		"g": 0.001, "gr": 0.001, "gram": 0.001, "grams": 0.001,
		"lb": 0.45359237, "lbs": 0.45359237, "pound": 0.45359237, "pounds": 0.45359237,
		"oz": 0.028349523125, "ounce": 0.028349523125, "ounces": 0.028349523125,
	}
}

// DefaultCountableUnits returns the units resolved through a typical unit weight
func DefaultCountableUnits() []string {
	return []string{
		"ea", "each", "pc", "pcs", "piece", "pieces", "ct", "count",
		"unit", "units", "item", "items", "pk", "pack", "bunch",
	}
}

// QuantityResolver converts a quantity and unit into kilograms
type QuantityResolver struct {
	toKg      map[string]float64
	countable map[string]bool
}

// NewQuantityResolver creates a resolver; empty tables fall back to the defaults
func NewQuantityResolver(config UnitConfig) *QuantityResolver {
	conversions := config.Conversions
	if len(conversions) == 0 {
		conversions = DefaultUnitConversions()
	}
	countableUnits := config.Countable
	if len(countableUnits) == 0 {
		countableUnits = DefaultCountableUnits()
	}

	toKg := make(map[string]float64, len(conversions))
	for unit, factor := range conversions {
		toKg[normalizeUnit(unit)] = factor
	}

	countable := make(map[string]bool, len(countableUnits))
	for _, unit := range countableUnits {
		countable[normalizeUnit(unit)] = true
	}

	return &QuantityResolver{
		toKg:      toKg,
		countable: countable,
	}
}

// Resolve converts quantity in unit to kilograms. A missing unit is read as
// kilograms. Countable units resolve only when entry declares a typical unit weight.
// Failures wrap domain.ErrUnresolvableQuantity.
func (r *QuantityResolver) Resolve(quantity *float64, unit string, entry *domain.CatalogEntry) (float64, error) {
	if quantity == nil {
		return 0, fmt.Errorf("%w: missing quantity", domain.ErrUnresolvableQuantity)
	}

	q := *quantity
	if math.IsNaN(q) || math.IsInf(q, 0) || q <= 0 {
		return 0, fmt.Errorf("%w: invalid quantity %v", domain.ErrUnresolvableQuantity, q)
	}

	u := normalizeUnit(unit)
	if u == "" {
		return q, nil
	}

	if factor, ok := r.toKg[u]; ok {
		return q * factor, nil
	}

	if r.countable[u] {
		if entry == nil || !entry.HasUnitWeight() {
			return 0, fmt.Errorf("%w: no unit weight for countable unit %q", domain.ErrUnresolvableQuantity, unit)
		}
		return q * entry.TypicalUnitWeightKg, nil
	}

	return 0, fmt.Errorf("%w: unknown unit %q", domain.ErrUnresolvableQuantity, unit)
}

// normalizeUnit lower-cases a unit and drops surrounding dots and spaces ("Kg." -> "kg")
func normalizeUnit(unit string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(unit)), ". ")
}
