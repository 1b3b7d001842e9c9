package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// CatalogRepository is the read-only view of the reference catalog used by the matcher
type CatalogRepository interface {
	LookupCandidates(normalizedQuery string) []Candidate
	Get(canonicalName string) (CatalogEntry, bool)
	Entries() []CatalogEntry
	Len() int
}

// LineItemExtractor turns a receipt image into raw line items, preserving line order
type LineItemExtractor interface {
	ExtractLineItems(ctx context.Context, image []byte, contentType string) ([]RawLineItem, error)
}
