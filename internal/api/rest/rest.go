package rest

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler) {
	// Health check endpoint (no version prefix)
	router.GET("/health", handler.HealthCheck)

	// Protocol statistics
	stats := router.Group("/stats")
	{
		stats.GET("", handler.GetStats)
		stats.GET("/tvl", handler.GetTvlStats)
		stats.GET("/network/:chainId", handler.GetNetworkStats)
		stats.GET("/wallet/:address", handler.GetWalletStats)
		stats.GET("/farm-prices", handler.GetFarmPrices)
	}

	// Treasury valuation
	treasury := router.Group("/treasury")
	{
		treasury.GET("", handler.GetTreasury)
		treasury.GET("/history", handler.GetTreasuryHistory)
		treasury.GET("/assets", handler.GetAssetOverview)
	}

	// Bill NFT metadata
	router.GET("/bills/:chainId/:contract/:tokenId", handler.GetBillMetadata)

	// Unknown paths get the same error envelope as everything else
	router.NoRoute(func(c *gin.Context) {
		respondNotFound(c, "Resource not found")
	})
}
