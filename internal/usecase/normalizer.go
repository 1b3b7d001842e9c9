package usecase

import (
	"log"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer canonicalizes raw receipt item names before comparison
type Normalizer struct {
	enableDebugLogging bool
}

// Compiled regex patterns for name normalization
var (
	// Matches prices like "$4.99", "4,99 eur", "£3", "usd 12"
	currencyPattern = regexp.MustCompile(`[$€£¥]\s*\d+(?:[.,]\d+)?|\d+(?:[.,]\d+)?\s*(?:usd|eur|gbp|[$€£¥])|\b(?:usd|eur|gbp)\s*\d+(?:[.,]\d+)?`)

	// Matches quantities embedded in the name like "2kg", "500 g", "1.5 lb", "12 ct", "16 fl oz"
	quantityPattern = regexp.MustCompile(`\b\d+(?:[.,]\d+)?\s*(?:fl\s*oz|kgs?|kilos?|kilograms?|grams?|gr|g|lbs?|pounds?|oz|ounces?|ml|cl|l|liters?|litres?|ct|count|pk|packs?|ea|each|pcs?|pieces?)\b`)

	// Matches multipliers and pack counts like "x2", "3 x", "pack of 6"
	multiplierPattern = regexp.MustCompile(`\bx\s?\d+\b|\b\d+\s?x\b|\bpack\s+of\s+\d+\b`)

	// Matches unit price markers like "@ 1.99/lb"
	unitPricePattern = regexp.MustCompile(`@\s*\S*`)

	// Anything that is not a letter, digit or whitespace
	nonWordPattern = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
)

// foldDiacritics decomposes characters and strips combining marks ("café" -> "cafe").
// A chained transformer keeps internal buffers, so each call builds its own.
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// nameNoiseWords are marketing, size and packaging terms that never identify a product
var nameNoiseWords = map[string]bool{
	// Marketing terms
	"value": true, "family": true, "bonus": true, "new": true, "improved": true,
	"premium": true, "select": true, "choice": true, "quality": true, "best": true,
	"great": true, "delicious": true, "tasty": true, "favorite": true, "special": true,

	// Size descriptors
	"size": true, "large": true, "medium": true, "small": true, "mini": true,
	"jumbo": true, "giant": true, "big": true, "single": true,

	// Packaging terms
	"package": true, "pkg": true, "box": true, "bag": true, "bottle": true,
	"can": true, "jar": true, "tub": true, "carton": true, "sleeve": true,
	"pouch": true, "tray": true,

	// Unit tokens left without a number
	"kg": true, "kgs": true, "lb": true, "lbs": true, "oz": true, "ea": true,
	"each": true, "ct": true, "pk": true, "per": true, "ml": true,

	// Stop words
	"a": true, "an": true, "the": true, "and": true, "of": true, "with": true,
	"in": true, "for": true,
}

// receiptAbbreviations expands abbreviations common on printed receipts
var receiptAbbreviations = map[string]string{
	"chkn":  "chicken",
	"brst":  "breast",
	"bnls":  "boneless",
	"sknls": "skinless",
	"org":   "organic",
	"whl":   "whole",
	"frsh":  "fresh",
	"frzn":  "frozen",
	"veg":   "vegetable",
	"mlk":   "milk",
	"chse":  "cheese",
	"brd":   "bread",
	"wht":   "white",
	"grn":   "green",
	"bnna":  "banana",
	"ckn":   "chicken",
	"grnd":  "ground",
	"yog":   "yogurt",
}

// pluralAllowList holds product names that are legitimately plural
var pluralAllowList = map[string]bool{
	"oats": true, "grits": true, "molasses": true, "brussels": true,
	"chives": true, "greens": true, "swiss": true, "hummus": true,
	"couscous": true, "asparagus": true, "sprinkles": true,
}

// irregularPlurals maps plurals that the suffix rules get wrong
var irregularPlurals = map[string]string{
	"loaves":    "loaf",
	"halves":    "half",
	"leaves":    "leaf",
	"cookies":   "cookie",
	"pies":      "pie",
	"brownies":  "brownie",
	"smoothies": "smoothie",
	"veggies":   "veggie",
	"calories":  "calorie",
}

// NewNormalizer creates a new name normalizer
func NewNormalizer(enableDebugLogging bool) *Normalizer {
	return &Normalizer{
		enableDebugLogging: enableDebugLogging,
	}
}

// Normalize lower-cases, strips prices and embedded quantities, removes noise
// words and punctuation, expands receipt abbreviations and depluralizes each token.
// Symbol-only or empty input yields "".
func (n *Normalizer) Normalize(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	s := strings.ToLower(foldDiacritics(raw))

	s = currencyPattern.ReplaceAllString(s, " ")
	s = unitPricePattern.ReplaceAllString(s, " ")
	s = quantityPattern.ReplaceAllString(s, " ")
	s = multiplierPattern.ReplaceAllString(s, " ")
	s = nonWordPattern.ReplaceAllString(s, " ")

	words := strings.Fields(s)
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if len([]rune(word)) <= 1 || isNumeric(word) {
			continue
		}
		if expanded, ok := receiptAbbreviations[word]; ok {
			word = expanded
		}
		if nameNoiseWords[word] {
			continue
		}
		word = singularize(word)
		if nameNoiseWords[word] {
			continue
		}
		tokens = append(tokens, word)
	}

	normalized := strings.Join(tokens, " ")

	if n.enableDebugLogging {
		log.Printf("[NORMALIZE] Input: %q → Output: %q", raw, normalized)
	}

	return normalized
}

// singularize applies simple suffix-based depluralization to one token
func singularize(word string) string {
	if pluralAllowList[word] {
		return word
	}
	if singular, ok := irregularPlurals[word]; ok {
		return singular
	}
	if len(word) <= 3 || !strings.HasSuffix(word, "s") {
		return word
	}

	switch {
	case strings.HasSuffix(word, "ss"), strings.HasSuffix(word, "us"), strings.HasSuffix(word, "is"):
		return word
	case len(word) > 4 && strings.HasSuffix(word, "ies"):
		return strings.TrimSuffix(word, "ies") + "y"
	case strings.HasSuffix(word, "oes"):
		return strings.TrimSuffix(word, "es")
	case strings.HasSuffix(word, "ches"), strings.HasSuffix(word, "shes"),
		strings.HasSuffix(word, "sses"), strings.HasSuffix(word, "xes"), strings.HasSuffix(word, "zes"):
		return strings.TrimSuffix(word, "es")
	default:
		return strings.TrimSuffix(word, "s")
	}
}

// isNumeric checks if a string contains only digits
func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// tokenize splits an already normalized string into tokens
func tokenize(s string) []string {
	return strings.Fields(s)
}
