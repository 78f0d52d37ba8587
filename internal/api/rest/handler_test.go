package rest

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validation failures must be rejected before any engine is consulted, so a
// handler with no engines behind it is enough to exercise them
func newValidationRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	SetupRoutes(router, NewHandler(nil, nil, nil))
	return router
}

func do(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	w := do(newValidationRouter(), "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestUnknownRouteGetsErrorEnvelope(t *testing.T) {
	w := do(newValidationRouter(), "/nope")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not_found")
	assert.Contains(t, w.Body.String(), "Resource not found")
}

func TestNetworkStatsRejectsMalformedChainID(t *testing.T) {
	w := do(newValidationRouter(), "/stats/network/abc")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "bad_request")
}

func TestNetworkStatsRejectsUnsupportedChain(t *testing.T) {
	w := do(newValidationRouter(), "/stats/network/1")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Unsupported chain id")
}

func TestWalletStatsRejectsInvalidAddress(t *testing.T) {
	w := do(newValidationRouter(), "/stats/wallet/not-an-address")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid wallet address")
}

func TestTreasuryHistoryRejectsMalformedTimestamps(t *testing.T) {
	router := newValidationRouter()

	for _, path := range []string{
		"/treasury/history?from=abc",
		"/treasury/history?to=-5",
	} {
		w := do(router, path)
		require.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Contains(t, w.Body.String(), "validation_failed", path)
	}
}

func TestTreasuryHistoryRejectsInvertedRange(t *testing.T) {
	w := do(newValidationRouter(), "/treasury/history?from=200&to=100")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "'from' must not be after 'to'")
}

func TestBillMetadataRejectsBadInput(t *testing.T) {
	router := newValidationRouter()

	// malformed chain id
	w := do(router, "/bills/abc/0x71354AC3c695dfB1d3f595AfA5D4364e9e06339B/1")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// unsupported chain
	w = do(router, "/bills/1/0x71354AC3c695dfB1d3f595AfA5D4364e9e06339B/1")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// contract is not hex
	w = do(router, "/bills/56/treasury/1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid NFT contract address")
}
