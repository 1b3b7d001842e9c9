package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ecoscore/backend/internal/domain"
)

// EmissionsServiceConfig holds configuration for the emissions service
type EmissionsServiceConfig struct {
	Match              MatchConfig
	Units              UnitConfig
	Workers            int
	CacheTTL           time.Duration
	EnableDebugLogging bool
}

// EmissionsService runs the receipt pipeline: normalize, match, resolve
// quantity, build line reports and aggregate
type EmissionsService struct {
	catalog            domain.CatalogRepository
	cache              domain.CacheRepository
	normalizer         *Normalizer
	matcher            *MatchingService
	resolver           *QuantityResolver
	lines              *LineAggregator
	workers            int
	cacheTTL           time.Duration
	enableDebugLogging bool
}

// NewEmissionsService creates a new emissions service. cache may be nil to
// disable match caching.
func NewEmissionsService(
	catalog domain.CatalogRepository,
	cache domain.CacheRepository,
	config EmissionsServiceConfig,
) *EmissionsService {
	workers := config.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 24 * time.Hour
	}

	matchConfig := config.Match
	matchConfig.EnableDebugLogging = matchConfig.EnableDebugLogging || config.EnableDebugLogging

	return &EmissionsService{
		catalog:            catalog,
		cache:              cache,
		normalizer:         NewNormalizer(config.EnableDebugLogging),
		matcher:            NewMatchingService(catalog, matchConfig),
		resolver:           NewQuantityResolver(config.Units),
		lines:              NewLineAggregator(config.Match.AcceptThreshold, config.Match.BorderlineThreshold),
		workers:            workers,
		cacheTTL:           cacheTTL,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// AnalyzeReceipt matches every line item and aggregates the receipt report.
// Items are processed concurrently; the breakdown keeps input order. If ctx is
// cancelled, partial results are discarded and ctx's error is returned.
func (s *EmissionsService) AnalyzeReceipt(
	ctx context.Context,
	items []domain.RawLineItem,
) (*domain.ReceiptReport, error) {
	start := time.Now()
	lines := make([]domain.LineItemReport, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			lines[i] = s.analyzeLine(gctx, item)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analyze receipt: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analyze receipt: %w", err)
	}

	report := Aggregate(lines)
	report.ReceiptID = uuid.NewString()

	log.Printf("[ANALYZE] Receipt %s: %d items, %d matched, %.3f kg CO2e, rating %s (%s)",
		report.ReceiptID, report.TotalItems, report.MatchedItems,
		report.TotalEmissions, report.EcoRating, time.Since(start).Round(time.Microsecond))

	return &report, nil
}

// MatchName normalizes and matches a single raw item name
func (s *EmissionsService) MatchName(ctx context.Context, name string) domain.MatchResult {
	return s.matchCached(ctx, s.normalizer.Normalize(name))
}

// CatalogEntries returns the reference catalog entries in insertion order
func (s *EmissionsService) CatalogEntries() []domain.CatalogEntry {
	return s.catalog.Entries()
}

// analyzeLine runs the per-item stages for one raw line item
func (s *EmissionsService) analyzeLine(ctx context.Context, item domain.RawLineItem) domain.LineItemReport {
	match := s.matchCached(ctx, s.normalizer.Normalize(item.Name))

	var entry *domain.CatalogEntry
	if match.IsMatched() {
		if e, ok := s.catalog.Get(*match.MatchedProduct); ok {
			entry = &e
		}
	}

	kg, qtyErr := s.resolver.Resolve(item.Quantity, item.Unit, entry)
	if qtyErr != nil && s.enableDebugLogging {
		log.Printf("[ANALYZE] %q: %v", item.Name, qtyErr)
	}

	return s.lines.BuildLineReport(item, match, entry, kg, qtyErr)
}

// matchCached returns the cached match for a normalized query, matching and
// caching it on a miss. Cache failures fall through to a direct match.
func (s *EmissionsService) matchCached(ctx context.Context, query string) domain.MatchResult {
	if s.cache == nil || query == "" {
		return s.matcher.Match(query)
	}

	key := matchCacheKey(query)
	if data, err := s.cache.Get(ctx, key); err == nil {
		var cached domain.MatchResult
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached
		}
	}

	result := s.matcher.Match(query)

	data, err := json.Marshal(result)
	if err == nil {
		err = s.cache.Set(ctx, key, data, s.cacheTTL)
	}
	if err != nil && s.enableDebugLogging {
		log.Printf("[ANALYZE] Failed to cache match for %q: %v", query, err)
	}

	return result
}

// matchCacheKey builds the cache key for a normalized query.
// Format: "match:{normalized_query}"
func matchCacheKey(query string) string {
	return "match:" + query
}
