// Package catalog holds the immutable reference table of products and their
// emission factors, indexed for candidate lookup.
package catalog

import (
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"

	"github.com/ecoscore/backend/internal/domain"
)

// DefaultMaxEditDistance bounds whole-name edit distance during candidate lookup
const DefaultMaxEditDistance = 3

// NormalizeFunc canonicalizes a product name; it must be the same function
// used to normalize queries.
type NormalizeFunc func(string) string

// Options configures catalog indexing
type Options struct {
	MaxEditDistance int
}

// Option is a functional option for configuring the Catalog
type Option func(*Options)

// WithMaxEditDistance sets the whole-name edit distance used by the lookup pre-filter
func WithMaxEditDistance(n int) Option {
	return func(opts *Options) {
		if n >= 0 {
			opts.MaxEditDistance = n
		}
	}
}

// nameRef points at one normalized name (canonical or alias) of an entry
type nameRef struct {
	entry int
	name  string
}

// Catalog is a read-only product table. Nothing mutates it after NewCatalog
// returns, so concurrent readers need no locking.
type Catalog struct {
	candidates      []domain.Candidate
	byName          map[string]int
	tokenIndex      map[string][]int
	vocabByLen      map[int][]string
	namesByLen      map[int][]nameRef
	maxEditDistance int
}

// NewCatalog validates entries, normalizes every name and alias once, and
// builds the lookup indexes. An empty entry list returns domain.ErrEmptyCatalog.
func NewCatalog(entries []domain.CatalogEntry, normalize NormalizeFunc, opts ...Option) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, domain.ErrEmptyCatalog
	}
	if normalize == nil {
		return nil, fmt.Errorf("%w: normalize function is required", domain.ErrInvalidCatalog)
	}

	options := Options{MaxEditDistance: DefaultMaxEditDistance}
	for _, opt := range opts {
		opt(&options)
	}

	c := &Catalog{
		candidates:      make([]domain.Candidate, 0, len(entries)),
		byName:          make(map[string]int, len(entries)),
		tokenIndex:      make(map[string][]int),
		vocabByLen:      make(map[int][]string),
		namesByLen:      make(map[int][]nameRef),
		maxEditDistance: options.MaxEditDistance,
	}

	byNormalized := make(map[string]int, len(entries))
	for i, entry := range entries {
		candidate, err := buildCandidate(i, entry, normalize)
		if err != nil {
			return nil, err
		}
		if _, dup := c.byName[candidate.Entry.CanonicalName]; dup {
			return nil, fmt.Errorf("%w: duplicate canonical name %q", domain.ErrInvalidCatalog, candidate.Entry.CanonicalName)
		}
		if prev, dup := byNormalized[candidate.Name]; dup {
			return nil, fmt.Errorf("%w: %q and %q normalize to the same name",
				domain.ErrInvalidCatalog, c.candidates[prev].Entry.CanonicalName, candidate.Entry.CanonicalName)
		}

		idx := len(c.candidates)
		c.byName[candidate.Entry.CanonicalName] = idx
		byNormalized[candidate.Name] = idx
		c.candidates = append(c.candidates, candidate)
		c.index(idx, candidate)
	}

	log.Printf("[CATALOG] Indexed %d entries, %d tokens", len(c.candidates), len(c.tokenIndex))

	return c, nil
}

// buildCandidate validates one entry and normalizes its names
func buildCandidate(pos int, entry domain.CatalogEntry, normalize NormalizeFunc) (domain.Candidate, error) {
	entry.CanonicalName = strings.TrimSpace(entry.CanonicalName)
	if entry.CanonicalName == "" {
		return domain.Candidate{}, fmt.Errorf("%w: entry %d has no canonical name", domain.ErrInvalidCatalog, pos)
	}
	if math.IsNaN(entry.CO2PerKg) || math.IsInf(entry.CO2PerKg, 0) || entry.CO2PerKg < 0 {
		return domain.Candidate{}, fmt.Errorf("%w: %q has invalid co2_per_kg %v", domain.ErrInvalidCatalog, entry.CanonicalName, entry.CO2PerKg)
	}
	if math.IsNaN(entry.TypicalUnitWeightKg) || entry.TypicalUnitWeightKg < 0 {
		return domain.Candidate{}, fmt.Errorf("%w: %q has invalid typical_unit_weight_kg %v", domain.ErrInvalidCatalog, entry.CanonicalName, entry.TypicalUnitWeightKg)
	}

	name := normalize(entry.CanonicalName)
	if name == "" {
		return domain.Candidate{}, fmt.Errorf("%w: %q normalizes to an empty name", domain.ErrInvalidCatalog, entry.CanonicalName)
	}

	seen := map[string]bool{name: true}
	aliases := make([]string, 0, len(entry.Aliases))
	for _, alias := range entry.Aliases {
		normalized := normalize(alias)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		aliases = append(aliases, normalized)
	}

	entry.Aliases = append([]string(nil), entry.Aliases...)

	return domain.Candidate{Entry: entry, Name: name, Aliases: aliases}, nil
}

// index registers an entry's names in the token index and length buckets
func (c *Catalog) index(idx int, candidate domain.Candidate) {
	names := append([]string{candidate.Name}, candidate.Aliases...)
	for _, name := range names {
		length := utf8.RuneCountInString(name)
		c.namesByLen[length] = append(c.namesByLen[length], nameRef{entry: idx, name: name})

		for _, token := range strings.Fields(name) {
			postings, known := c.tokenIndex[token]
			if !known {
				tokenLen := utf8.RuneCountInString(token)
				c.vocabByLen[tokenLen] = append(c.vocabByLen[tokenLen], token)
			}
			if len(postings) == 0 || postings[len(postings)-1] != idx {
				c.tokenIndex[token] = append(postings, idx)
			}
		}
	}
}

// LookupCandidates returns, in catalog order, every entry that shares a token
// with the query, has a token within a small edit distance of a query token,
// or has a name or alias within the configured edit distance of the whole query.
func (c *Catalog) LookupCandidates(normalizedQuery string) []domain.Candidate {
	if normalizedQuery == "" {
		return nil
	}

	hits := make(map[int]bool)

	for _, token := range strings.Fields(normalizedQuery) {
		for _, idx := range c.tokenIndex[token] {
			hits[idx] = true
		}

		bound := tokenEditBound(token)
		if bound == 0 {
			continue
		}
		length := utf8.RuneCountInString(token)
		for l := length - bound; l <= length+bound; l++ {
			for _, vocab := range c.vocabByLen[l] {
				if vocab == token || matchr.Levenshtein(token, vocab) > bound {
					continue
				}
				for _, idx := range c.tokenIndex[vocab] {
					hits[idx] = true
				}
			}
		}
	}

	if c.maxEditDistance > 0 {
		length := utf8.RuneCountInString(normalizedQuery)
		for l := length - c.maxEditDistance; l <= length+c.maxEditDistance; l++ {
			for _, ref := range c.namesByLen[l] {
				if hits[ref.entry] {
					continue
				}
				if matchr.Levenshtein(normalizedQuery, ref.name) <= c.maxEditDistance {
					hits[ref.entry] = true
				}
			}
		}
	}

	if len(hits) == 0 {
		return nil
	}

	indexes := make([]int, 0, len(hits))
	for idx := range hits {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	result := make([]domain.Candidate, 0, len(indexes))
	for _, idx := range indexes {
		result = append(result, cloneCandidate(c.candidates[idx]))
	}
	return result
}

// tokenEditBound is the fuzzy token budget: none for short tokens, one edit
// up to seven runes, two beyond
func tokenEditBound(token string) int {
	switch n := utf8.RuneCountInString(token); {
	case n < 4:
		return 0
	case n < 8:
		return 1
	default:
		return 2
	}
}

// Get returns the entry with the given canonical name
func (c *Catalog) Get(canonicalName string) (domain.CatalogEntry, bool) {
	idx, ok := c.byName[canonicalName]
	if !ok {
		return domain.CatalogEntry{}, false
	}
	return cloneEntry(c.candidates[idx].Entry), true
}

// Entries returns a copy of all entries in insertion order
func (c *Catalog) Entries() []domain.CatalogEntry {
	entries := make([]domain.CatalogEntry, len(c.candidates))
	for i, candidate := range c.candidates {
		entries[i] = cloneEntry(candidate.Entry)
	}
	return entries
}

func cloneEntry(entry domain.CatalogEntry) domain.CatalogEntry {
	entry.Aliases = append([]string(nil), entry.Aliases...)
	return entry
}

func cloneCandidate(candidate domain.Candidate) domain.Candidate {
	candidate.Entry = cloneEntry(candidate.Entry)
	candidate.Aliases = append([]string(nil), candidate.Aliases...)
	return candidate
}

// Len returns the number of entries
func (c *Catalog) Len() int {
	return len(c.candidates)
}
