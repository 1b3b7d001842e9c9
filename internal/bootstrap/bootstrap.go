// Package bootstrap wires configuration into the catalog, cache and emissions
// pipeline shared by the HTTP server and the CLI.
package bootstrap

import (
	"fmt"
	"log"

	"github.com/ecoscore/backend/config"
	"github.com/ecoscore/backend/internal/domain"
	"github.com/ecoscore/backend/internal/infrastructure/cache"
	"github.com/ecoscore/backend/internal/infrastructure/catalog"
	"github.com/ecoscore/backend/internal/infrastructure/extractor"
	"github.com/ecoscore/backend/internal/usecase"
)

// Pipeline holds the long-lived components built from configuration
type Pipeline struct {
	Catalog *catalog.Catalog
	Service *usecase.EmissionsService

	cache *cache.MemoryCache
}

// Build loads the catalog and assembles the emissions service
func Build(cfg *config.Config) (*Pipeline, error) {
	normalizer := usecase.NewNormalizer(cfg.Matching.EnableDebugLogging)

	cat, err := catalog.Load(cfg.Catalog.Path, normalizer.Normalize,
		catalog.WithMaxEditDistance(cfg.Matching.MaxEditDistance))
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	metric, err := usecase.NewSimilarityMetric(cfg.Matching.Metric)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{Catalog: cat}

	var cacheRepo domain.CacheRepository
	if cfg.Cache.Enabled {
		p.cache = cache.NewMemoryCache(cache.WithMaxEntries(cfg.Cache.MaxEntries))
		cacheRepo = p.cache
	}

	p.Service = usecase.NewEmissionsService(cat, cacheRepo, usecase.EmissionsServiceConfig{
		Match: usecase.MatchConfig{
			AcceptThreshold:     cfg.Matching.AcceptThreshold,
			BorderlineThreshold: cfg.Matching.BorderlineThreshold,
			MinMatchScore:       cfg.Matching.MinMatchScore,
			Metric:              metric,
		},
		Units: usecase.UnitConfig{
			Conversions: cfg.Units.Conversions,
			Countable:   cfg.Units.Countable,
		},
		Workers:            cfg.Matching.Workers,
		CacheTTL:           cfg.Cache.TTL,
		EnableDebugLogging: cfg.Matching.EnableDebugLogging,
	})

	log.Printf("[BOOTSTRAP] Catalog: %d entries | Metric: %s | Thresholds: accept=%.2f borderline=%.2f floor=%.2f | Cache: %v",
		cat.Len(), cfg.Matching.Metric, cfg.Matching.AcceptThreshold, cfg.Matching.BorderlineThreshold,
		cfg.Matching.MinMatchScore, cfg.Cache.Enabled)

	return p, nil
}

// CacheStats reports match cache counters; ok is false when caching is disabled
func (p *Pipeline) CacheStats() (stats cache.Stats, ok bool) {
	if p.cache == nil {
		return cache.Stats{}, false
	}
	return p.cache.Stats(), true
}

// Close releases background resources
func (p *Pipeline) Close() {
	if p.cache == nil {
		return
	}
	s := p.cache.Stats()
	log.Printf("[CACHE] entries=%d hits=%d misses=%d evictions=%d", s.Entries, s.Hits, s.Misses, s.Evictions)
	p.cache.Close()
}

// NewExtractor returns the configured receipt OCR client, or nil when no base
// URL is set
func NewExtractor(cfg config.ExtractorConfig, debug bool) domain.LineItemExtractor {
	if !cfg.Enabled() {
		return nil
	}

	client := extractor.NewClient(extractor.ClientConfig{
		BaseURL:           cfg.BaseURL,
		APIKey:            cfg.APIKey,
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
	})
	client.SetDebug(debug)

	return client
}
