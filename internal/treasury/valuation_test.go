package treasury

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/digiswap/stats-api/internal/domain"
)

func lpFixture() lpState {
	return lpState{
		address:     "0x00000000000000000000000000000000000000aa",
		token0:      common.HexToAddress("0x0000000000000000000000000000000000000001"),
		token1:      common.HexToAddress("0x0000000000000000000000000000000000000002"),
		q0:          toWei(1000, 18),
		q1:          toWei(2000, 18),
		totalSupply: toWei(500, 18),
		balance:     toWei(50, 18),
		decimals:    18,
	}
}

func lpMetas() map[string]tokenMeta {
	return map[string]tokenMeta{
		"0x0000000000000000000000000000000000000001": {symbol: "DIGICHAIN", decimals: 18},
		"0x0000000000000000000000000000000000000002": {symbol: "BUSD", decimals: 18},
	}
}

func toWei(amount int64, decimals int) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Int).Mul(big.NewInt(amount), scale)
}

func TestValueLPPositionProRataShare(t *testing.T) {
	prices := domain.PriceMap{
		"0x0000000000000000000000000000000000000001": {USD: 2, Decimals: 18},
		"0x0000000000000000000000000000000000000002": {USD: 1, Decimals: 18},
	}

	asset, ok := valueLPPosition(lpFixture(), lpMetas(), prices, domain.ChainBSC, domain.CustodyPOL, domain.CounterpartyOwn)

	assert.True(t, ok)
	assert.True(t, asset.IsLP)
	assert.Equal(t, "[DIGICHAIN]-[BUSD] LP", asset.Name)
	assert.InDelta(t, 50.0, asset.Amount, 1e-9)

	// 10% of the pool: 100 token0 and 200 token1
	if assert.Len(t, asset.Tokens, 2) {
		assert.InDelta(t, 100.0, asset.Tokens[0].Amount, 1e-9)
		assert.InDelta(t, 200.0, asset.Tokens[1].Amount, 1e-9)
	}

	assert.True(t, asset.Value.Known)
	assert.InDelta(t, 400.0, asset.Value.Amount, 1e-9)
}

func TestValueLPPositionUnknownPriceStaysUnknown(t *testing.T) {
	prices := domain.PriceMap{
		"0x0000000000000000000000000000000000000001": {USD: 2, Decimals: 18},
	}

	asset, ok := valueLPPosition(lpFixture(), lpMetas(), prices, domain.ChainBSC, domain.CustodyPOL, domain.CounterpartyOwn)

	assert.True(t, ok)
	assert.False(t, asset.Value.Known)
	assert.True(t, asset.Tokens[0].Value.Known)
	assert.False(t, asset.Tokens[1].Value.Known)
}

func TestValueLPPositionEmptyBalanceSkipped(t *testing.T) {
	state := lpFixture()
	state.balance = big.NewInt(0)

	_, ok := valueLPPosition(state, lpMetas(), domain.PriceMap{}, domain.ChainBSC, domain.CustodyPOL, domain.CounterpartyOwn)
	assert.False(t, ok)
}

func TestUSDValueAddPropagatesUnknown(t *testing.T) {
	sum := domain.KnownUSD(10).Add(domain.KnownUSD(5))
	assert.True(t, sum.Known)
	assert.InDelta(t, 15.0, sum.Amount, 1e-9)

	sum = sum.Add(domain.UnknownUSD())
	assert.False(t, sum.Known)
}
