package http

import (
	"github.com/gin-gonic/gin"

	"github.com/ecoscore/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = maxImageBytes

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP, cfg.RateLimit.Burst))
	{
		receipts := v1.Group("/receipts")
		{
			receipts.POST("/analyze", handler.AnalyzeReceipt)
			receipts.POST("/scan", handler.ScanReceipt)
		}

		catalog := v1.Group("/catalog")
		{
			catalog.GET("/match", handler.MatchProduct)
			catalog.GET("/entries", handler.ListCatalog)
		}
	}

	return router
}
