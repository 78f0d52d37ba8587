package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/digiswap/stats-api/internal/bills"
	"github.com/digiswap/stats-api/internal/domain"
	"github.com/digiswap/stats-api/internal/stats"
	"github.com/digiswap/stats-api/internal/treasury"
)

// Handler defines the interface for REST API handlers
// This interface allows for easy mocking and testing
type Handler interface {
	// GetStats returns the aggregate protocol statistics
	// GET /stats
	GetStats(c *gin.Context)

	// GetTvlStats returns the condensed TVL breakdown
	// GET /stats/tvl
	GetTvlStats(c *gin.Context)

	// GetNetworkStats returns statistics scoped to a single network
	// GET /stats/network/:chainId
	GetNetworkStats(c *gin.Context)

	// GetWalletStats returns staking positions and earnings for one wallet
	// GET /stats/wallet/:address
	GetWalletStats(c *gin.Context)

	// GetFarmPrices returns the LP token price map keyed by pair address
	// GET /stats/farm-prices
	GetFarmPrices(c *gin.Context)

	// GetTreasury returns the full treasury valuation
	// GET /treasury
	GetTreasury(c *gin.Context)

	// GetTreasuryHistory returns daily TVL, volume and treasury points
	// GET /treasury/history?from=<unix>&to=<unix>
	GetTreasuryHistory(c *gin.Context)

	// GetAssetOverview returns treasury holdings folded per token
	// GET /treasury/assets
	GetAssetOverview(c *gin.Context)

	// GetBillMetadata returns NFT metadata for a treasury bill token
	// GET /bills/:chainId/:contract/:tokenId
	GetBillMetadata(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	stats    *stats.Engine
	treasury *treasury.Engine
	bills    *bills.Service
}

// NewHandler creates a new REST API handler over the aggregation engines
func NewHandler(statsEngine *stats.Engine, treasuryEngine *treasury.Engine, billService *bills.Service) Handler {
	return &handler{
		stats:    statsEngine,
		treasury: treasuryEngine,
		bills:    billService,
	}
}

// GetStats returns the aggregate protocol statistics
func (h *handler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.stats.GeneralStats(c.Request.Context()))
}

// GetTvlStats returns the condensed TVL breakdown
func (h *handler) GetTvlStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.stats.TvlStats(c.Request.Context()))
}

// GetNetworkStats returns statistics scoped to a single network
func (h *handler) GetNetworkStats(c *gin.Context) {
	chainID, ok := parseChainID(c)
	if !ok {
		return
	}

	networkStats, err := h.stats.NetworkStats(c.Request.Context(), chainID)
	if err != nil {
		respondInternalError(c, err, "Failed to get network statistics",
			zap.Uint64("chain_id", uint64(chainID)))
		return
	}

	c.JSON(http.StatusOK, networkStats)
}

// GetWalletStats returns staking positions and earnings for one wallet
func (h *handler) GetWalletStats(c *gin.Context) {
	address := c.Param("address")
	if !common.IsHexAddress(address) {
		respondBadRequest(c, "Invalid wallet address")
		return
	}

	walletStats, err := h.stats.WalletStats(c.Request.Context(), address)
	if err != nil {
		respondInternalError(c, err, "Failed to get wallet statistics",
			zap.String("wallet", address))
		return
	}

	c.JSON(http.StatusOK, walletStats)
}

// GetFarmPrices returns the LP token price map keyed by pair address
func (h *handler) GetFarmPrices(c *gin.Context) {
	c.JSON(http.StatusOK, h.stats.FarmPrices(c.Request.Context()))
}

// GetTreasury returns the full treasury valuation
func (h *handler) GetTreasury(c *gin.Context) {
	c.JSON(http.StatusOK, h.treasury.Treasury(c.Request.Context()))
}

// GetTreasuryHistory returns daily TVL, volume and treasury points
func (h *handler) GetTreasuryHistory(c *gin.Context) {
	from, ok := parseTimestamp(c, "from", 0)
	if !ok {
		return
	}
	to, ok := parseTimestamp(c, "to", time.Now().Unix())
	if !ok {
		return
	}
	if from > to {
		respondValidationError(c, "'from' must not be after 'to'")
		return
	}

	points, err := h.treasury.History(c.Request.Context(), from, to)
	if err != nil {
		respondInternalError(c, err, "Failed to get treasury history")
		return
	}

	c.JSON(http.StatusOK, points)
}

// GetAssetOverview returns treasury holdings folded per token
func (h *handler) GetAssetOverview(c *gin.Context) {
	c.JSON(http.StatusOK, h.treasury.AssetOverview(c.Request.Context()))
}

// GetBillMetadata returns NFT metadata for a treasury bill token
func (h *handler) GetBillMetadata(c *gin.Context) {
	chainID, ok := parseChainID(c)
	if !ok {
		return
	}

	contract := c.Param("contract")
	if !common.IsHexAddress(contract) {
		respondBadRequest(c, "Invalid NFT contract address")
		return
	}

	tokenID := c.Param("tokenId")
	if tokenID == "" {
		respondBadRequest(c, "Token ID is required")
		return
	}

	metadata, err := h.bills.Metadata(c.Request.Context(), chainID, contract, tokenID)
	if err != nil {
		respondInternalError(c, err, "Failed to get bill metadata",
			zap.Uint64("chain_id", uint64(chainID)),
			zap.String("nft_contract", contract),
			zap.String("token_id", tokenID))
		return
	}

	c.JSON(http.StatusOK, metadata)
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// parseChainID reads the chainId path parameter and rejects unsupported networks
func parseChainID(c *gin.Context) (domain.ChainID, bool) {
	raw := c.Param("chainId")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		respondBadRequest(c, "Invalid chain id", raw)
		return 0, false
	}

	chainID := domain.ChainID(id)
	if !domain.IsValidChain(chainID) {
		respondBadRequest(c, "Unsupported chain id", raw)
		return 0, false
	}

	return chainID, true
}

// parseTimestamp reads an optional unix timestamp query parameter
func parseTimestamp(c *gin.Context, name string, fallback int64) (int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}

	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < 0 {
		respondValidationError(c, "'"+name+"' must be a non-negative unix timestamp")
		return 0, false
	}

	return value, true
}
