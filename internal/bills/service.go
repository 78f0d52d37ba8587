// Package bills resolves minted bill NFTs into their metadata documents.
// A bill is resolved once from its mint transaction and then immutable; while
// resolution is in flight a processing placeholder is served.
package bills

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"github.com/digiswap/stats-api/internal/adapter"
	"github.com/digiswap/stats-api/internal/chain"
	"github.com/digiswap/stats-api/internal/config"
	"github.com/digiswap/stats-api/internal/domain"
	"github.com/digiswap/stats-api/internal/logger"
	"github.com/digiswap/stats-api/internal/multicall"
	"github.com/digiswap/stats-api/internal/stats"
	"github.com/digiswap/stats-api/internal/store"
	"github.com/digiswap/stats-api/internal/store/schema"
)

const (
	resolveAttempts = 5
	retryBaseDelay  = 100 * time.Millisecond
)

// Service resolves and serves bill NFT metadata.
type Service struct {
	chains  map[string]config.ChainConfig
	clients chain.Clients
	caller  multicall.Caller
	clock   adapter.Clock
	json    adapter.JSON
	store   store.Store
	lists   config.ListsConfig
	pool    pond.Pool

	// terms never change after deployment, memoized per chain:contract
	terms    *xsync.Map[string, domain.BillTerms]
	inflight *xsync.Map[string, *resolution]
}

// resolution is the shared future of one in-flight mint resolution. Callers
// racing on the same mint transaction attach to it instead of resolving twice.
type resolution struct {
	done     chan struct{}
	metadata domain.BillMetadata
	err      error
}

func NewService(
	chains map[string]config.ChainConfig,
	clients chain.Clients,
	caller multicall.Caller,
	clock adapter.Clock,
	json adapter.JSON,
	st store.Store,
	lists config.ListsConfig,
	pool pond.Pool,
) *Service {
	return &Service{
		chains:   chains,
		clients:  clients,
		caller:   caller,
		clock:    clock,
		json:     json,
		store:    st,
		lists:    lists,
		pool:     pool,
		terms:    xsync.NewMap[string, domain.BillTerms](),
		inflight: xsync.NewMap[string, *resolution](),
	}
}

// Metadata returns the metadata document of one bill token. Unresolved bills
// are resolved from their mint transaction on the spot; if that fails the
// processing placeholder is returned instead of an error.
func (s *Service) Metadata(ctx context.Context, chainID domain.ChainID, nftContract, tokenID string) (domain.BillMetadata, error) {
	nftContract = domain.NormalizeAddress(nftContract)

	if metadata, ok := s.storedMetadata(ctx, chainID, nftContract, tokenID); ok {
		return metadata, nil
	}

	metadata, err := s.resolveToken(ctx, chainID, nftContract, tokenID)
	if err != nil {
		logger.WarnCtx(ctx, "bill resolution failed, serving placeholder",
			zap.Uint64("chainID", uint64(chainID)),
			zap.String("nftContract", nftContract),
			zap.String("tokenID", tokenID),
			zap.Error(err))
		return s.placeholder(tokenID), nil
	}
	return metadata, nil
}

func (s *Service) storedMetadata(ctx context.Context, chainID domain.ChainID, nftContract, tokenID string) (domain.BillMetadata, bool) {
	bill, err := s.store.GetBillByToken(ctx, uint64(chainID), nftContract, tokenID)
	if err != nil || bill == nil {
		return domain.BillMetadata{}, false
	}
	var metadata domain.BillMetadata
	if err := s.json.Unmarshal(bill.Payload, &metadata); err != nil {
		logger.WarnCtx(ctx, "failed to decode stored bill payload",
			zap.Uint64("billID", bill.ID), zap.Error(err))
		return domain.BillMetadata{}, false
	}
	return metadata, true
}

func (s *Service) placeholder(tokenID string) domain.BillMetadata {
	return domain.BillMetadata{
		Name:        fmt.Sprintf("Treasury Bill #%s", tokenID),
		Description: fmt.Sprintf("Treasury Bill #%s", tokenID),
		Image:       s.lists.HiddenBillImageURL,
		Processing:  true,
	}
}

// resolveToken finds the token's mint transaction and resolves the bill from
// it, retrying transient failures with a linearly growing delay.
func (s *Service) resolveToken(ctx context.Context, chainID domain.ChainID, nftContract, tokenID string) (domain.BillMetadata, error) {
	var lastErr error
	for attempt := 0; attempt < resolveAttempts; attempt++ {
		if attempt > 0 {
			s.clock.Sleep(time.Duration(attempt) * retryBaseDelay)
		}
		mintLog, err := s.mintLog(ctx, chainID, nftContract, tokenID)
		if err != nil {
			lastErr = err
			continue
		}
		metadata, err := s.resolveMint(ctx, chainID, *mintLog)
		if err != nil {
			lastErr = err
			continue
		}
		return metadata, nil
	}
	return domain.BillMetadata{}, fmt.Errorf("failed to resolve bill after %d attempts: %w", resolveAttempts, lastErr)
}

// mintLog locates the Transfer-from-zero event of the token, scanning from
// the first bill deployment block on the archive node.
func (s *Service) mintLog(ctx context.Context, chainID domain.ChainID, nftContract, tokenID string) (*types.Log, error) {
	cfg, err := config.Chain(s.chains, chainID)
	if err != nil {
		return nil, err
	}
	client, err := s.clients.Archive(ctx, chainID)
	if err != nil {
		return nil, err
	}

	id, ok := new(big.Int).SetString(tokenID, 10)
	if !ok {
		return nil, fmt.Errorf("invalid token id %q", tokenID)
	}

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(cfg.BillsStartBlock),
		Addresses: []common.Address{common.HexToAddress(nftContract)},
		Topics: [][]common.Hash{
			{multicall.BillNFTABI.Events["Transfer"].ID},
			{common.HexToHash(domain.EVM_ZERO_ADDRESS)},
			nil,
			{common.BigToHash(id)},
		},
	}
	logs, err := client.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to filter mint logs: %w", err)
	}
	if len(logs) == 0 {
		return nil, fmt.Errorf("no mint event for token %s on contract %s: %w", tokenID, nftContract, domain.ErrBillNotFound)
	}
	return &logs[0], nil
}

// resolveMint turns a mint Transfer log into a stored bill document. Creation
// is single-flight per mint transaction; a concurrent resolver wins and this
// call reports the bill as still processing.
func (s *Service) resolveMint(ctx context.Context, chainID domain.ChainID, mintLog types.Log) (domain.BillMetadata, error) {
	txHash := mintLog.TxHash.Hex()
	flightKey := fmt.Sprintf("%d:%s", uint64(chainID), txHash)
	res, loaded := s.inflight.LoadOrStore(flightKey, &resolution{done: make(chan struct{})})
	if loaded {
		// Attach to the resolution already in flight for this mint
		select {
		case <-res.done:
			return res.metadata, res.err
		case <-ctx.Done():
			return domain.BillMetadata{}, ctx.Err()
		}
	}
	defer func() {
		close(res.done)
		s.inflight.Delete(flightKey)
	}()

	res.metadata, res.err = s.resolveMintLocked(ctx, chainID, mintLog, txHash)
	return res.metadata, res.err
}

// resolveMintLocked does the actual resolution while the caller holds the
// in-flight claim for the mint transaction.
func (s *Service) resolveMintLocked(ctx context.Context, chainID domain.ChainID, mintLog types.Log, txHash string) (domain.BillMetadata, error) {
	if bill, err := s.store.GetBillByMintTx(ctx, uint64(chainID), txHash); err == nil && bill != nil {
		var metadata domain.BillMetadata
		if err := s.json.Unmarshal(bill.Payload, &metadata); err == nil {
			return metadata, nil
		}
	}

	data, err := s.billFromTransaction(ctx, chainID, mintLog)
	if err != nil {
		return domain.BillMetadata{}, err
	}

	metadata := domain.BillMetadata{
		Name:        fmt.Sprintf("Treasury Bill #%s", data.TokenID),
		Description: fmt.Sprintf("Treasury Bill #%s", data.TokenID),
		Image:       s.lists.BillImageURL,
		Attributes:  billAttributes(data),
		Data:        data,
	}

	payload, err := s.json.Marshal(metadata)
	if err != nil {
		return domain.BillMetadata{}, fmt.Errorf("failed to encode bill payload: %w", err)
	}
	bill := &schema.Bill{
		ChainID:         uint64(chainID),
		MintTxHash:      txHash,
		ContractAddress: data.ContractAddress,
		NFTContract:     data.NFTContract,
		TokenID:         data.TokenID,
		Payload:         payload,
	}
	if err := s.store.CreateBill(ctx, bill); err != nil {
		return domain.BillMetadata{}, err
	}
	return metadata, nil
}

// billFromTransaction decodes the BillCreated event out of the mint
// transaction's receipt and values the deposit at the mint block.
func (s *Service) billFromTransaction(ctx context.Context, chainID domain.ChainID, mintLog types.Log) (*domain.BillData, error) {
	cfg, err := config.Chain(s.chains, chainID)
	if err != nil {
		return nil, err
	}
	client, err := s.clients.Archive(ctx, chainID)
	if err != nil {
		return nil, err
	}

	receipt, err := client.TransactionReceipt(ctx, mintLog.TxHash)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch mint receipt: %w", err)
	}

	event := multicall.BillABI.Events["BillCreated"]
	var created *types.Log
	for _, receiptLog := range receipt.Logs {
		if len(receiptLog.Topics) > 0 && receiptLog.Topics[0] == event.ID {
			created = receiptLog
			break
		}
	}
	if created == nil {
		return nil, fmt.Errorf("no bill creation event in transaction %s", mintLog.TxHash.Hex())
	}

	// deposit is the only non-indexed argument; the rest live in topics
	unpacked, err := event.Inputs.NonIndexed().Unpack(created.Data)
	if err != nil || len(unpacked) != 1 {
		return nil, fmt.Errorf("failed to decode bill creation event: %w", err)
	}
	depositRaw := unpacked[0].(*big.Int)
	if len(created.Topics) != 4 {
		return nil, fmt.Errorf("unexpected bill creation topics in transaction %s", mintLog.TxHash.Hex())
	}
	payoutRaw := created.Topics[1].Big()
	expires := created.Topics[2].Big().Int64()
	billID := created.Topics[3].Big().String()

	billContract := domain.NormalizeAddress(created.Address.Hex())
	terms, err := s.billTerms(ctx, chainID, billContract)
	if err != nil {
		return nil, err
	}

	block := new(big.Int).SetUint64(mintLog.BlockNumber)
	valuation, err := s.valueAtBlock(ctx, chainID, cfg, terms, block)
	if err != nil {
		return nil, err
	}

	deposit := stats.FormatUnits(depositRaw, 18)
	owner := common.BytesToAddress(mintLog.Topics[2].Bytes())

	billType := "Jungle"
	if domain.SameAddress(terms.PayoutToken, cfg.Contracts.Digichain) {
		billType = "Digichain"
	}

	return &domain.BillData{
		ChainID:         chainID,
		ContractAddress: billContract,
		NFTContract:     domain.NormalizeAddress(mintLog.Address.Hex()),
		TokenID:         billID,
		MintTxHash:      mintLog.TxHash.Hex(),
		BlockNumber:     mintLog.BlockNumber,
		Owner:           domain.NormalizeAddress(owner.Hex()),
		Deposit:         deposit,
		DepositUSD:      valuation.principalPrice * deposit,
		Payout:          stats.FormatUnits(payoutRaw, valuation.payoutDecimals),
		PayoutToken:     terms.PayoutToken,
		PrincipalToken:  terms.PrincipalToken,
		PairName:        s.pairName(ctx, chainID, terms.PrincipalToken),
		BillType:        billType,
		VestingSeconds:  terms.VestingSeconds,
		ExpiresAt:       time.Unix(expires, 0).UTC(),
		CreatedAt:       s.clock.Now().UTC(),
	}, nil
}

// billTerms reads the static terms of one bill contract, memoized for the
// life of the process.
func (s *Service) billTerms(ctx context.Context, chainID domain.ChainID, billContract string) (domain.BillTerms, error) {
	key := fmt.Sprintf("%d:%s", uint64(chainID), billContract)
	if terms, ok := s.terms.Load(key); ok {
		return terms, nil
	}

	var (
		vesting   *big.Int
		principal common.Address
		payout    common.Address
	)
	batch := multicall.NewBatch(multicall.BillABI)
	batch.Add(billContract, "terms", func(values []interface{}) error {
		if len(values) != 5 {
			return fmt.Errorf("unexpected terms shape")
		}
		vesting = values[1].(*big.Int)
		return nil
	})
	batch.Add(billContract, "principalToken", multicall.Address(&principal))
	batch.Add(billContract, "payoutToken", multicall.Address(&payout))
	if _, err := s.caller.Execute(ctx, chainID, batch, nil); err != nil {
		return domain.BillTerms{}, fmt.Errorf("failed to read bill terms: %w", err)
	}

	terms := domain.BillTerms{
		ContractAddress: billContract,
		PrincipalToken:  domain.NormalizeAddress(principal.Hex()),
		PayoutToken:     domain.NormalizeAddress(payout.Hex()),
		VestingSeconds:  vesting.Uint64(),
	}
	s.terms.Store(key, terms)
	return terms, nil
}

type billValuation struct {
	principalPrice float64
	payoutDecimals uint8
}

// valueAtBlock prices the bill's principal LP as of the mint block so the
// stored dollar value reflects what the deposit was worth then.
func (s *Service) valueAtBlock(ctx context.Context, chainID domain.ChainID, cfg *config.ChainConfig, terms domain.BillTerms, block *big.Int) (*billValuation, error) {
	if cfg.Contracts.PriceGetter == "" {
		return nil, fmt.Errorf("no price getter configured for chain %d", chainID)
	}

	var (
		lpPriceRaw     *big.Int
		payoutDecimals uint8
	)
	batch := multicall.NewBatch(multicall.PriceGetterABI)
	batch.Add(cfg.Contracts.PriceGetter, "getLPPrice", multicall.BigInt(&lpPriceRaw),
		common.HexToAddress(terms.PrincipalToken), big.NewInt(18))
	batch.AddWithABI(multicall.ERC20ABI, terms.PayoutToken, "decimals", multicall.Uint8(&payoutDecimals))
	if _, err := s.caller.Execute(ctx, chainID, batch, block); err != nil {
		return nil, fmt.Errorf("failed to price bill at mint block: %w", err)
	}

	return &billValuation{
		principalPrice: stats.FormatUnits(lpPriceRaw, 18),
		payoutDecimals: payoutDecimals,
	}, nil
}

// pairName resolves the display name of the principal token: the LP pair
// name when the principal is a pool token, its plain symbol otherwise.
func (s *Service) pairName(ctx context.Context, chainID domain.ChainID, principal string) string {
	var token0, token1 common.Address
	pair := multicall.NewBatch(multicall.PairABI)
	pair.Add(principal, "token0", multicall.Address(&token0))
	pair.Add(principal, "token1", multicall.Address(&token1))
	if _, err := s.caller.Execute(ctx, chainID, pair, nil); err != nil {
		var symbol string
		plain := multicall.NewBatch(multicall.ERC20ABI)
		plain.Add(principal, "symbol", multicall.String(&symbol))
		if _, err := s.caller.Execute(ctx, chainID, plain, nil); err != nil {
			logger.WarnCtx(ctx, "failed to name bill principal token",
				zap.String("principal", principal), zap.Error(err))
			return ""
		}
		return symbol
	}

	var symbol0, symbol1 string
	symbols := multicall.NewBatch(multicall.ERC20ABI)
	symbols.Add(token0.Hex(), "symbol", multicall.String(&symbol0))
	symbols.Add(token1.Hex(), "symbol", multicall.String(&symbol1))
	if _, err := s.caller.Execute(ctx, chainID, symbols, nil); err != nil {
		return ""
	}
	return stats.LpPairName(symbol0, symbol1)
}

func billAttributes(data *domain.BillData) []domain.BillAttribute {
	return []domain.BillAttribute{
		{TraitType: "Type", Value: data.BillType},
		{TraitType: "Pair", Value: data.PairName},
		{TraitType: "Vesting Days", Value: data.VestingSeconds / uint64(domain.SECONDS_PER_DAY)},
		{TraitType: "Deposit", Value: data.Deposit},
		{TraitType: "Payout", Value: data.Payout},
	}
}
