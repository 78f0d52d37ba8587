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

// billQuoter computes the live discount quote for every listed bill
// contract on a chain.
type billQuoter struct {
	caller multicall.Caller
	chains map[string]config.ChainConfig
	lists  Lists
}

func newBillQuoter(caller multicall.Caller, chains map[string]config.ChainConfig, lists Lists) *billQuoter {
	return &billQuoter{caller: caller, chains: chains, lists: lists}
}

func (q *billQuoter) quotes(ctx context.Context, chainID domain.ChainID) ([]domain.BillQuote, error) {
	cfg, err := config.Chain(q.chains, chainID)
	if err != nil {
		return nil, err
	}
	if cfg.Contracts.PriceGetter == "" {
		return nil, nil
	}

	allBills, err := q.lists.Bills(ctx)
	if err != nil {
		return nil, err
	}
	var bills []BillListEntry
	for _, bill := range allBills {
		if bill.AddressOn(chainID) != "" && !bill.Inactive {
			bills = append(bills, bill)
		}
	}
	if len(bills) == 0 {
		return nil, nil
	}

	// Bill LP and earn tokens are priced directly; the hosted token list
	// does not cover them.
	getter := cfg.Contracts.PriceGetter
	lpPrices := make([]*big.Int, len(bills))
	earnPrices := make([]*big.Int, len(bills))
	truePrices := make([]*big.Int, len(bills))
	batch := multicall.NewBatch(multicall.PriceGetterABI)
	for i, bill := range bills {
		batch.Add(getter, "getLPPrice", multicall.BigInt(&lpPrices[i]),
			common.HexToAddress(bill.LPToken.AddressOn(chainID)), big.NewInt(18))
		batch.Add(getter, "getPrice", multicall.BigInt(&earnPrices[i]),
			common.HexToAddress(bill.EarnToken.AddressOn(chainID)), big.NewInt(18))
		batch.AddWithABI(multicall.BillABI, bill.AddressOn(chainID), "trueBillPrice", multicall.BigInt(&truePrices[i]))
	}
	if _, err := q.caller.Execute(ctx, chainID, batch, nil); err != nil {
		return nil, fmt.Errorf("failed to read bill quotes: %w", err)
	}

	quotes := make([]domain.BillQuote, 0, len(bills))
	for i, bill := range bills {
		lpPrice := FormatUnits(lpPrices[i], 18)
		earnPrice := FormatUnits(earnPrices[i], 18)
		truePrice := FormatUnits(truePrices[i], 0)
		quotes = append(quotes, domain.BillQuote{
			ContractAddress: domain.NormalizeAddress(bill.AddressOn(chainID)),
			LPToken:         domain.NormalizeAddress(bill.LPToken.AddressOn(chainID)),
			EarnToken:       domain.NormalizeAddress(bill.EarnToken.AddressOn(chainID)),
			LPPrice:         lpPrice,
			EarnTokenPrice:  earnPrice,
			TrueBillPrice:   truePrice,
			Discount:        BillDiscount(earnPrice, lpPrice, truePrice),
		})
	}
	return quotes, nil
}
