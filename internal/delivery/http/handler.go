package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ecoscore/backend/internal/domain"
)

// maxImageBytes caps uploaded receipt images
const maxImageBytes = 10 << 20

// ReceiptAnalyzer is the emissions pipeline used by the handlers
type ReceiptAnalyzer interface {
	AnalyzeReceipt(ctx context.Context, items []domain.RawLineItem) (*domain.ReceiptReport, error)
	MatchName(ctx context.Context, name string) domain.MatchResult
	CatalogEntries() []domain.CatalogEntry
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	analyzer  ReceiptAnalyzer
	extractor domain.LineItemExtractor
	maxItems  int
}

// NewHandler creates a new HTTP handler. extractor may be nil, in which case
// the scan endpoint reports that extraction is unavailable. maxItems <= 0
// disables the receipt size check.
func NewHandler(analyzer ReceiptAnalyzer, extractor domain.LineItemExtractor, maxItems int) *Handler {
	return &Handler{
		analyzer:  analyzer,
		extractor: extractor,
		maxItems:  maxItems,
	}
}

// AnalyzeRequest is the body of POST /api/v1/receipts/analyze
type AnalyzeRequest struct {
	Items []domain.RawLineItem `json:"items"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	entries := 0
	if h.analyzer != nil {
		entries = len(h.analyzer.CatalogEntries())
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"service":         "ecoscore-backend",
		"version":         "1.0.0",
		"catalog_entries": entries,
		"scan_enabled":    h.extractor != nil,
	})
}

// AnalyzeReceipt matches a list of line items and returns the receipt report
func (h *Handler) AnalyzeReceipt(c *gin.Context) {
	if h.analyzer == nil {
		respondError(c, http.StatusServiceUnavailable, "Emissions analysis not configured")
		return
	}

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("%v: %v", domain.ErrInvalidRequest, err))
		return
	}
	if req.Items == nil {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("%v: items is required", domain.ErrInvalidRequest))
		return
	}
	if err := h.checkItemCount(len(req.Items)); err != nil {
		handleError(c, err)
		return
	}

	report, err := h.analyzer.AnalyzeReceipt(c.Request.Context(), req.Items)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// ScanReceipt extracts line items from an uploaded receipt image and analyzes them
func (h *Handler) ScanReceipt(c *gin.Context) {
	if h.analyzer == nil {
		respondError(c, http.StatusServiceUnavailable, "Emissions analysis not configured")
		return
	}
	if h.extractor == nil {
		handleError(c, domain.ErrExtractorUnavailable)
		return
	}

	header, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("%v: image file is required", domain.ErrInvalidRequest))
		return
	}
	if header.Size > maxImageBytes {
		respondError(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("image exceeds %d bytes", maxImageBytes))
		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("%v: unreadable image", domain.ErrInvalidRequest))
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
	if err != nil {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("%v: unreadable image", domain.ErrInvalidRequest))
		return
	}

	ctx := c.Request.Context()
	items, err := h.extractor.ExtractLineItems(ctx, image, header.Header.Get("Content-Type"))
	if err != nil {
		handleError(c, err)
		return
	}
	if err := h.checkItemCount(len(items)); err != nil {
		handleError(c, err)
		return
	}

	report, err := h.analyzer.AnalyzeReceipt(ctx, items)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// MatchProduct matches a single item name against the catalog
func (h *Handler) MatchProduct(c *gin.Context) {
	if h.analyzer == nil {
		respondError(c, http.StatusServiceUnavailable, "Emissions analysis not configured")
		return
	}

	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("%v: query parameter q is required", domain.ErrInvalidRequest))
		return
	}

	c.JSON(http.StatusOK, h.analyzer.MatchName(c.Request.Context(), query))
}

// ListCatalog returns the reference catalog
func (h *Handler) ListCatalog(c *gin.Context) {
	if h.analyzer == nil {
		respondError(c, http.StatusServiceUnavailable, "Emissions analysis not configured")
		return
	}

	entries := h.analyzer.CatalogEntries()
	c.JSON(http.StatusOK, gin.H{
		"count":   len(entries),
		"entries": entries,
	})
}

func (h *Handler) checkItemCount(n int) error {
	if h.maxItems > 0 && n > h.maxItems {
		return fmt.Errorf("%w: receipt has %d items, limit is %d", domain.ErrInvalidRequest, n, h.maxItems)
	}
	return nil
}

// handleError maps domain and context errors to HTTP status codes
func handleError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, domain.ErrExtractorUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrExtractorFailure):
		status = http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads the body
		status = 499
	}

	if status >= http.StatusInternalServerError {
		log.Printf("[HTTP] %s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}

	respondError(c, status, err.Error())
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
