package domain

import "errors"

var (
	// ErrInvalidInput is recorded when a line item name normalizes to nothing
	ErrInvalidInput = errors.New("line item name is empty after normalization")

	// ErrUnresolvableQuantity is recorded when a quantity/unit pair cannot be converted to kilograms
	ErrUnresolvableQuantity = errors.New("quantity cannot be resolved to kilograms")

	// ErrEmptyCatalog is returned when the reference catalog has no entries
	ErrEmptyCatalog = errors.New("catalog contains no entries")

	// ErrInvalidCatalog is returned when catalog data is malformed
	ErrInvalidCatalog = errors.New("invalid catalog data")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrExtractorUnavailable is returned when no line item extractor is configured
	ErrExtractorUnavailable = errors.New("line item extractor not configured")

	// ErrExtractorFailure is returned when the extraction service request fails
	ErrExtractorFailure = errors.New("line item extraction failed")
)
