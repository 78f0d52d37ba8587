package treasury

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/digiswap/stats-api/internal/config"
	"github.com/digiswap/stats-api/internal/domain"
	"github.com/digiswap/stats-api/internal/logger"
	"github.com/digiswap/stats-api/internal/multicall"
	"github.com/digiswap/stats-api/internal/stats"
)

// lpState is the raw on-chain view of one LP position before valuation.
type lpState struct {
	address     string
	token0      common.Address
	token1      common.Address
	q0          *big.Int
	q1          *big.Int
	totalSupply *big.Int
	balance     *big.Int
	decimals    uint8
}

type tokenMeta struct {
	symbol   string
	decimals uint8
}

func (e *Engine) computeTreasury(ctx context.Context) (domain.Treasury, error) {
	cfg, err := config.Chain(e.chains, e.primaryChain)
	if err != nil {
		return domain.Treasury{}, err
	}

	prices, err := e.prices.TokenPrices(ctx, e.primaryChain)
	if err != nil {
		return domain.Treasury{}, fmt.Errorf("failed to price treasury assets: %w", err)
	}

	treasury := domain.Treasury{CreatedAt: e.clock.Now()}

	polAssets, err := e.polAssets(ctx, cfg, prices)
	if err != nil {
		return domain.Treasury{}, err
	}
	treasury.POLValue = domain.KnownUSD(0)
	for _, asset := range polAssets {
		treasury.POLValue = treasury.POLValue.Add(asset.Value)
	}
	treasury.Assets = append(treasury.Assets, polAssets...)

	opAssets, opValue := e.operationalAssets(ctx)
	treasury.OperationalValue = opValue
	treasury.Assets = append(treasury.Assets, opAssets...)

	positions, lendingValue := e.lendingPositions(ctx, cfg, prices)
	treasury.LendingPositions = positions
	treasury.LendingValue = lendingValue

	treasury.TotalValue = treasury.POLValue.
		Add(treasury.OperationalValue).
		Add(treasury.LendingValue)
	return treasury, nil
}

// polAssets values the LP tokens the treasury contract accumulated through
// bill sales. The bill type decides the counterparty bucket.
func (e *Engine) polAssets(ctx context.Context, cfg *config.ChainConfig, prices domain.PriceMap) ([]domain.TreasuryAsset, error) {
	if cfg.Contracts.Treasury == "" {
		return nil, nil
	}

	bills, err := e.lists.Bills(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bill list: %w", err)
	}

	counterparties := make(map[string]domain.Counterparty)
	var lpAddresses []string
	for _, bill := range bills {
		if bill.Inactive {
			continue
		}
		lp := domain.NormalizeAddress(bill.LPToken.AddressOn(e.primaryChain))
		if lp == "" || lp == domain.EVM_ZERO_ADDRESS {
			continue
		}
		if _, seen := counterparties[lp]; !seen {
			lpAddresses = append(lpAddresses, lp)
		}
		counterparty := domain.CounterpartyPartner
		if strings.Contains(strings.ToLower(bill.BillType), "digichain") {
			counterparty = domain.CounterpartyOwn
		}
		// a single own-protocol bill marks the whole LP as own
		if counterparties[lp] != domain.CounterpartyOwn {
			counterparties[lp] = counterparty
		}
	}
	if len(lpAddresses) == 0 {
		return nil, nil
	}
	sort.Strings(lpAddresses)

	states, err := e.readLPStates(ctx, e.primaryChain, lpAddresses, cfg.Contracts.Treasury)
	if err != nil {
		return nil, err
	}
	metas, err := e.readTokenMetas(ctx, e.primaryChain, constituentAddresses(states))
	if err != nil {
		return nil, err
	}

	var assets []domain.TreasuryAsset
	for _, state := range states {
		asset, ok := valueLPPosition(state, metas, prices, e.primaryChain, domain.CustodyPOL, counterparties[state.address])
		if !ok {
			continue
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

// operationalAssets values the configured holdings of each chain's
// operational wallet. A chain that cannot be read contributes an unknown
// value instead of silently dropping out of the total.
func (e *Engine) operationalAssets(ctx context.Context) ([]domain.TreasuryAsset, domain.USDValue) {
	total := domain.KnownUSD(0)
	var assets []domain.TreasuryAsset

	chainIDs := make([]domain.ChainID, 0, len(e.chains))
	for _, chain := range e.chains {
		chainIDs = append(chainIDs, domain.ChainID(chain.ChainID))
	}
	sort.Slice(chainIDs, func(i, j int) bool { return chainIDs[i] < chainIDs[j] })

	for _, chainID := range chainIDs {
		cfg, err := config.Chain(e.chains, chainID)
		if err != nil || cfg.Contracts.Operational == "" || len(cfg.OperationalAssets) == 0 {
			continue
		}
		chainAssets, err := e.operationalChainAssets(ctx, chainID, cfg)
		if err != nil {
			logger.WarnCtx(ctx, "failed to value operational wallet",
				zap.Uint64("chainID", uint64(chainID)), zap.Error(err))
			total = total.Add(domain.UnknownUSD())
			continue
		}
		for _, asset := range chainAssets {
			total = total.Add(asset.Value)
		}
		assets = append(assets, chainAssets...)
	}
	return assets, total
}

func (e *Engine) operationalChainAssets(ctx context.Context, chainID domain.ChainID, cfg *config.ChainConfig) ([]domain.TreasuryAsset, error) {
	prices, err := e.prices.TokenPrices(ctx, chainID)
	if err != nil {
		return nil, err
	}

	var lpAddresses, plainAddresses []string
	plainByAddress := make(map[string]config.OperationalAsset)
	for _, holding := range cfg.OperationalAssets {
		address := domain.NormalizeAddress(holding.Address)
		if holding.IsLP {
			lpAddresses = append(lpAddresses, address)
		} else {
			plainAddresses = append(plainAddresses, address)
			plainByAddress[address] = holding
		}
	}

	var assets []domain.TreasuryAsset

	if len(lpAddresses) > 0 {
		states, err := e.readLPStates(ctx, chainID, lpAddresses, cfg.Contracts.Operational)
		if err != nil {
			return nil, err
		}
		metas, err := e.readTokenMetas(ctx, chainID, constituentAddresses(states))
		if err != nil {
			return nil, err
		}
		counterparty := func(address string) domain.Counterparty {
			for _, holding := range cfg.OperationalAssets {
				if domain.NormalizeAddress(holding.Address) == address && holding.Partner {
					return domain.CounterpartyPartner
				}
			}
			return domain.CounterpartyOwn
		}
		for _, state := range states {
			asset, ok := valueLPPosition(state, metas, prices, chainID, domain.CustodyOperational, counterparty(state.address))
			if !ok {
				continue
			}
			assets = append(assets, asset)
		}
	}

	if len(plainAddresses) > 0 {
		balances := make([]*big.Int, len(plainAddresses))
		decimals := make([]uint8, len(plainAddresses))
		symbols := make([]string, len(plainAddresses))
		batch := multicall.NewBatch(multicall.ERC20ABI)
		owner := common.HexToAddress(cfg.Contracts.Operational)
		for i, address := range plainAddresses {
			batch.Add(address, "balanceOf", multicall.BigInt(&balances[i]), owner)
			batch.Add(address, "decimals", multicall.Uint8(&decimals[i]))
			batch.Add(address, "symbol", multicall.String(&symbols[i]))
		}
		if _, err := e.caller.Execute(ctx, chainID, batch, nil); err != nil {
			return nil, fmt.Errorf("failed to read operational balances: %w", err)
		}
		for i, address := range plainAddresses {
			amount := stats.FormatUnits(balances[i], decimals[i])
			if amount == 0 {
				continue
			}
			value := domain.UnknownUSD()
			if price, ok := prices.Price(address); ok {
				value = domain.KnownUSD(amount * price.USD)
			}
			counterparty := domain.CounterpartyOwn
			if plainByAddress[address].Partner {
				counterparty = domain.CounterpartyPartner
			}
			name := symbols[i]
			if holding := plainByAddress[address]; holding.Name != "" {
				name = holding.Name
			}
			assets = append(assets, domain.TreasuryAsset{
				Name:         name,
				Address:      address,
				ChainID:      chainID,
				Amount:       amount,
				Value:        value,
				Custody:      domain.CustodyOperational,
				Counterparty: counterparty,
			})
		}
	}

	return assets, nil
}

// lendingPositions values the operational wallet's lending markets: supplied
// underlying via the stored exchange rate, and outstanding borrows.
func (e *Engine) lendingPositions(ctx context.Context, cfg *config.ChainConfig, prices domain.PriceMap) ([]domain.LendingPosition, domain.USDValue) {
	if cfg.Contracts.LendingUnitroller == "" || cfg.Contracts.Operational == "" {
		return nil, domain.KnownUSD(0)
	}

	var markets []common.Address
	batch := multicall.NewBatch(multicall.LendingABI)
	batch.AddWithABI(multicall.ComptrollerABI, cfg.Contracts.LendingUnitroller,
		"getAllMarkets", multicall.Addresses(&markets))
	if _, err := e.caller.Execute(ctx, e.primaryChain, batch, nil); err != nil {
		logger.WarnCtx(ctx, "failed to list lending markets", zap.Error(err))
		return nil, domain.UnknownUSD()
	}
	if len(markets) == 0 {
		return nil, domain.KnownUSD(0)
	}

	owner := common.HexToAddress(cfg.Contracts.Operational)
	supplied := make([]*big.Int, len(markets))
	borrowed := make([]*big.Int, len(markets))
	rates := make([]*big.Int, len(markets))
	underlyings := make([]common.Address, len(markets))
	batch = multicall.NewBatch(multicall.LendingABI)
	for i, market := range markets {
		address := market.Hex()
		batch.Add(address, "balanceOf", multicall.BigInt(&supplied[i]), owner)
		batch.Add(address, "borrowBalanceStored", multicall.BigInt(&borrowed[i]), owner)
		batch.Add(address, "exchangeRateStored", multicall.BigInt(&rates[i]))
		batch.Add(address, "underlying", multicall.Address(&underlyings[i]))
	}
	if _, err := e.caller.Execute(ctx, e.primaryChain, batch, nil); err != nil {
		logger.WarnCtx(ctx, "failed to read lending positions", zap.Error(err))
		return nil, domain.UnknownUSD()
	}

	var underlyingAddresses []string
	for _, underlying := range underlyings {
		underlyingAddresses = append(underlyingAddresses, domain.NormalizeAddress(underlying.Hex()))
	}
	metas, err := e.readTokenMetas(ctx, e.primaryChain, underlyingAddresses)
	if err != nil {
		logger.WarnCtx(ctx, "failed to read lending underlying tokens", zap.Error(err))
		return nil, domain.UnknownUSD()
	}

	total := domain.KnownUSD(0)
	var positions []domain.LendingPosition
	for i, market := range markets {
		underlying := domain.NormalizeAddress(underlyings[i].Hex())
		meta, ok := metas[underlying]
		if !ok {
			continue
		}
		// cToken balances carry 8 decimals; the stored exchange rate is
		// scaled by 10^(10 + underlying decimals)
		supplyUnits := stats.FormatUnits(supplied[i], 8) * stats.FormatUnits(rates[i], meta.decimals+10)
		borrowUnits := stats.FormatUnits(borrowed[i], meta.decimals)
		if supplyUnits == 0 && borrowUnits == 0 {
			continue
		}

		supplyUSD, borrowUSD := domain.UnknownUSD(), domain.UnknownUSD()
		if price, ok := prices.Price(underlying); ok {
			supplyUSD = domain.KnownUSD(supplyUnits * price.USD)
			borrowUSD = domain.KnownUSD(borrowUnits * price.USD)
		}
		positions = append(positions, domain.LendingPosition{
			MarketAddress: domain.NormalizeAddress(market.Hex()),
			Underlying:    underlying,
			SupplyUSD:     supplyUSD,
			BorrowUSD:     borrowUSD,
		})
		total = total.Add(supplyUSD).Add(domain.USDValue{Amount: -borrowUSD.Amount, Known: borrowUSD.Known})
	}
	return positions, total
}

// readLPStates reads the pool state and the holder's balance for a set of
// LP tokens in one aggregate call.
func (e *Engine) readLPStates(ctx context.Context, chainID domain.ChainID, lpAddresses []string, holder string) ([]lpState, error) {
	states := make([]lpState, len(lpAddresses))
	owner := common.HexToAddress(holder)
	batch := multicall.NewBatch(multicall.PairABI)
	for i, address := range lpAddresses {
		i := i
		states[i].address = address
		batch.Add(address, "getReserves", func(values []interface{}) error {
			if len(values) != 3 {
				return fmt.Errorf("unexpected getReserves shape")
			}
			states[i].q0 = values[0].(*big.Int)
			states[i].q1 = values[1].(*big.Int)
			return nil
		})
		batch.Add(address, "token0", multicall.Address(&states[i].token0))
		batch.Add(address, "token1", multicall.Address(&states[i].token1))
		batch.Add(address, "totalSupply", multicall.BigInt(&states[i].totalSupply))
		batch.Add(address, "decimals", multicall.Uint8(&states[i].decimals))
		batch.Add(address, "balanceOf", multicall.BigInt(&states[i].balance), owner)
	}
	if _, err := e.caller.Execute(ctx, chainID, batch, nil); err != nil {
		return nil, fmt.Errorf("failed to read LP positions: %w", err)
	}
	return states, nil
}

// readTokenMetas resolves symbol and decimals for a set of token addresses.
func (e *Engine) readTokenMetas(ctx context.Context, chainID domain.ChainID, addresses []string) (map[string]tokenMeta, error) {
	unique := make([]string, 0, len(addresses))
	seen := make(map[string]struct{})
	for _, address := range addresses {
		address = domain.NormalizeAddress(address)
		if _, ok := seen[address]; ok || address == "" {
			continue
		}
		seen[address] = struct{}{}
		unique = append(unique, address)
	}
	sort.Strings(unique)

	symbols := make([]string, len(unique))
	decimals := make([]uint8, len(unique))
	batch := multicall.NewBatch(multicall.ERC20ABI)
	for i, address := range unique {
		batch.Add(address, "symbol", multicall.String(&symbols[i]))
		batch.Add(address, "decimals", multicall.Uint8(&decimals[i]))
	}
	if _, err := e.caller.Execute(ctx, chainID, batch, nil); err != nil {
		return nil, fmt.Errorf("failed to read token metadata: %w", err)
	}

	metas := make(map[string]tokenMeta, len(unique))
	for i, address := range unique {
		metas[address] = tokenMeta{symbol: symbols[i], decimals: decimals[i]}
	}
	return metas, nil
}

func constituentAddresses(states []lpState) []string {
	var addresses []string
	for _, state := range states {
		addresses = append(addresses,
			domain.NormalizeAddress(state.token0.Hex()),
			domain.NormalizeAddress(state.token1.Hex()))
	}
	return addresses
}

// valueLPPosition decomposes one LP balance into its pro-rata share of the
// pool reserves and values each side. A constituent without a known price
// makes the position value unknown rather than zero.
func valueLPPosition(state lpState, metas map[string]tokenMeta, prices domain.PriceMap, chainID domain.ChainID, custody domain.Custody, counterparty domain.Counterparty) (domain.TreasuryAsset, bool) {
	supply := stats.FormatUnits(state.totalSupply, state.decimals)
	amount := stats.FormatUnits(state.balance, state.decimals)
	if supply == 0 || amount == 0 {
		return domain.TreasuryAsset{}, false
	}
	share := amount / supply

	address0 := domain.NormalizeAddress(state.token0.Hex())
	address1 := domain.NormalizeAddress(state.token1.Hex())
	meta0, ok0 := metas[address0]
	meta1, ok1 := metas[address1]
	if !ok0 || !ok1 {
		return domain.TreasuryAsset{}, false
	}

	amount0 := share * stats.FormatUnits(state.q0, meta0.decimals)
	amount1 := share * stats.FormatUnits(state.q1, meta1.decimals)

	value0, value1 := domain.UnknownUSD(), domain.UnknownUSD()
	if price, ok := prices.Price(address0); ok {
		value0 = domain.KnownUSD(amount0 * price.USD)
	}
	if price, ok := prices.Price(address1); ok {
		value1 = domain.KnownUSD(amount1 * price.USD)
	}

	return domain.TreasuryAsset{
		Name:         stats.LpPairName(meta0.symbol, meta1.symbol),
		Address:      state.address,
		ChainID:      chainID,
		IsLP:         true,
		Amount:       amount,
		Value:        value0.Add(value1),
		Custody:      custody,
		Counterparty: counterparty,
		Tokens: []domain.AssetToken{
			{Name: meta0.symbol, Address: address0, Amount: amount0, Value: value0},
			{Name: meta1.symbol, Address: address1, Amount: amount1, Value: value1},
		},
	}, true
}
