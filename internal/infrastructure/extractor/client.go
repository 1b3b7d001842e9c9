package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ecoscore/backend/internal/domain"
)

// maxAttempts is the number of tries for transient failures
const maxAttempts = 3

// ClientConfig holds extraction service settings
type ClientConfig struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// Client sends receipt images to the OCR extraction service
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *rate.Limiter
	debug       bool
}

// NewClient creates a new extraction service client
func NewClient(config ClientConfig) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	rps := config.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	burst := config.Burst
	if burst <= 0 {
		burst = 5
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		apiKey:      config.APIKey,
		baseURL:     strings.TrimRight(config.BaseURL, "/"),
		rateLimiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// SetDebug enables or disables verbose request logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// exponentialBackoff returns the wait before retrying after the given attempt
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// ExtractLineItems uploads a receipt image and returns its line items in
// receipt order. Server errors and 429s are retried with backoff.
func (c *Client) ExtractLineItems(ctx context.Context, image []byte, contentType string) ([]domain.RawLineItem, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image", domain.ErrInvalidRequest)
	}
	if contentType == "" {
		contentType = http.DetectContentType(image)
	}

	endpoint := c.baseURL + "/v1/extract"

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		body, status, err := c.doRequest(ctx, endpoint, image, contentType)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("[EXTRACTOR] Request error (attempt %d): %v", attempt, err)
			lastErr = err
		} else {
			switch {
			case status == http.StatusOK:
				var resp ExtractResponse
				if err := json.Unmarshal(body, &resp); err != nil {
					return nil, fmt.Errorf("%w: failed to decode response: %v", domain.ErrExtractorFailure, err)
				}
				items := MapToLineItems(resp)
				if c.debug {
					log.Printf("[EXTRACTOR] Extracted %d line items", len(items))
				}
				return items, nil
			case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
				log.Printf("[EXTRACTOR] API error (attempt %d) - Status: %d", attempt, status)
				lastErr = fmt.Errorf("%w: status %d", domain.ErrExtractorFailure, status)
			default:
				if c.debug {
					log.Printf("[EXTRACTOR] API error - Status: %d, Body: %s", status, string(body))
				}
				return nil, fmt.Errorf("%w: status %d", domain.ErrExtractorFailure, status)
			}
		}

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(exponentialBackoff(attempt)):
			}
		}
	}

	log.Printf("[EXTRACTOR] All retries failed")
	return nil, lastErr
}

// doRequest executes the upload and returns the response body and status code
func (c *Client) doRequest(ctx context.Context, endpoint string, image []byte, contentType string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(image))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "EcoScore/1.0")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrExtractorFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: failed to read response: %v", domain.ErrExtractorFailure, err)
	}

	return body, resp.StatusCode, nil
}
