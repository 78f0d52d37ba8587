package stats

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/digiswap/stats-api/internal/config"
	"github.com/digiswap/stats-api/internal/domain"
	"github.com/digiswap/stats-api/internal/multicall"
)

// lendingReader values the lending markets registered with the unitroller.
type lendingReader struct {
	caller multicall.Caller
	chains map[string]config.ChainConfig
}

func newLendingReader(caller multicall.Caller, chains map[string]config.ChainConfig) *lendingReader {
	return &lendingReader{caller: caller, chains: chains}
}

type lendingMarketState struct {
	address            string
	symbol             string
	borrowRate         *big.Int
	totalBorrows       *big.Int
	totalSupply        *big.Int
	exchangeRate       *big.Int
	reserveFactor      *big.Int
	underlying         common.Address
	supplySpeed        *big.Int
	borrowSpeed        *big.Int
	underlyingSymbol   string
	underlyingDecimals uint8
}

// markets reads and annualizes every lending market on the chain. Returns
// empty results when no unitroller is configured.
func (r *lendingReader) markets(ctx context.Context, chainID domain.ChainID, prices domain.PriceMap, digiPrice float64) ([]domain.LendingMarket, float64, error) {
	cfg, err := config.Chain(r.chains, chainID)
	if err != nil {
		return nil, 0, err
	}
	if cfg.Contracts.LendingUnitroller == "" {
		return nil, 0, nil
	}
	unitroller := cfg.Contracts.LendingUnitroller

	var marketAddresses []common.Address
	batch := multicall.NewBatch(multicall.ComptrollerABI)
	batch.Add(unitroller, "getAllMarkets", multicall.Addresses(&marketAddresses))
	if _, err := r.caller.Execute(ctx, chainID, batch, nil); err != nil {
		return nil, 0, fmt.Errorf("failed to list lending markets: %w", err)
	}

	states := make([]*lendingMarketState, len(marketAddresses))
	batch = multicall.NewBatch(multicall.LendingABI)
	for i, address := range marketAddresses {
		state := &lendingMarketState{address: domain.NormalizeAddress(address.Hex())}
		states[i] = state
		market := address.Hex()
		batch.Add(market, "symbol", multicall.String(&state.symbol))
		batch.Add(market, "borrowRatePerSecond", multicall.BigInt(&state.borrowRate))
		batch.Add(market, "totalBorrows", multicall.BigInt(&state.totalBorrows))
		batch.Add(market, "totalSupply", multicall.BigInt(&state.totalSupply))
		batch.Add(market, "exchangeRateStored", multicall.BigInt(&state.exchangeRate))
		batch.Add(market, "reserveFactorMantissa", multicall.BigInt(&state.reserveFactor))
		batch.Add(market, "underlying", multicall.Address(&state.underlying))
		batch.AddWithABI(multicall.ComptrollerABI, unitroller, "rewardSupplySpeeds", multicall.BigInt(&state.supplySpeed), address)
		batch.AddWithABI(multicall.ComptrollerABI, unitroller, "rewardBorrowSpeeds", multicall.BigInt(&state.borrowSpeed), address)
	}
	if _, err := r.caller.Execute(ctx, chainID, batch, nil); err != nil {
		return nil, 0, fmt.Errorf("failed to read lending markets: %w", err)
	}

	batch = multicall.NewBatch(multicall.ERC20ABI)
	for _, state := range states {
		state := state
		batch.Add(state.underlying.Hex(), "symbol", multicall.String(&state.underlyingSymbol))
		batch.Add(state.underlying.Hex(), "decimals", multicall.Uint8(&state.underlyingDecimals))
	}
	if _, err := r.caller.Execute(ctx, chainID, batch, nil); err != nil {
		return nil, 0, fmt.Errorf("failed to read underlying tokens: %w", err)
	}

	markets := make([]domain.LendingMarket, 0, len(states))
	var lendingTvl float64
	for _, state := range states {
		underlyingPrice, _ := prices.Price(state.underlying.Hex())

		// cToken balances convert to underlying through the stored
		// exchange rate, which carries underlyingDecimals+10 decimals
		// against the market's 8.
		cTokens := FormatUnits(state.totalSupply, 8)
		exchangeRate := FormatUnits(state.exchangeRate, state.underlyingDecimals+10)
		totalSupplied := cTokens * exchangeRate
		totalSupplyUSD := totalSupplied * underlyingPrice.USD
		totalBorrowed := FormatUnits(state.totalBorrows, state.underlyingDecimals)
		totalBorrowUSD := totalBorrowed * underlyingPrice.USD

		borrowAPR := BorrowAPR(FormatUnits(state.borrowRate, 18))
		borrowAPY := CompoundAPY(borrowAPR) * 100
		reserveFactor := FormatUnits(state.reserveFactor, 18)
		supplyAPY := SupplyAPY(borrowAPY, totalBorrowed, reserveFactor, underlyingPrice.USD, totalSupplyUSD)

		markets = append(markets, domain.LendingMarket{
			Name:                 state.underlyingSymbol,
			MarketAddress:        state.address,
			UnderlyingAddress:    domain.NormalizeAddress(state.underlying.Hex()),
			UnderlyingDecimals:   state.underlyingDecimals,
			SupplyAPY:            supplyAPY,
			BorrowAPY:            borrowAPY,
			SupplyDistributedAPY: DistributionAPY(FormatUnits(state.supplySpeed, 18), digiPrice, totalSupplyUSD),
			BorrowDistributedAPY: DistributionAPY(FormatUnits(state.borrowSpeed, 18), digiPrice, totalBorrowUSD),
			TotalSupplyUSD:       totalSupplyUSD,
			TotalBorrowUSD:       totalBorrowUSD,
		})
		lendingTvl += totalSupplyUSD - totalBorrowUSD
	}

	return markets, lendingTvl, nil
}
