package bills

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/digiswap/stats-api/internal/domain"
	"github.com/digiswap/stats-api/internal/logger"
	"github.com/digiswap/stats-api/internal/multicall"
)

// Listen subscribes to the mint events of every configured bill NFT contract
// and resolves new bills as they are minted, so metadata is usually ready
// before the first request for it. Returns once all subscriptions are set up;
// resolution happens on the worker pool until ctx is cancelled. A dropped
// subscription is re-established with exponential backoff.
func (s *Service) Listen(ctx context.Context) error {
	for _, chain := range s.chains {
		chainID := domain.ChainID(chain.ChainID)
		for _, nftContract := range chain.Contracts.BillNFTs {
			if err := s.listenContract(ctx, chainID, nftContract); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) listenContract(ctx context.Context, chainID domain.ChainID, nftContract string) error {
	logs := make(chan types.Log, 64)
	sub, err := s.subscribeMints(ctx, chainID, nftContract, logs)
	if err != nil {
		return err
	}

	logger.Info("listening for bill mint events",
		zap.Uint64("chainID", uint64(chainID)),
		zap.String("nftContract", nftContract))

	go func() {
		defer func() {
			if sub != nil {
				sub.Unsubscribe()
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-sub.Err():
				if err != nil {
					logger.Warn("bill mint subscription dropped",
						zap.Uint64("chainID", uint64(chainID)), zap.Error(err))
				}
				sub, err = s.resubscribe(ctx, chainID, nftContract, logs)
				if err != nil {
					return
				}
			case mintLog := <-logs:
				s.pool.Submit(func() {
					if _, err := s.resolveMint(context.Background(), chainID, mintLog); err != nil {
						logger.Warn("failed to resolve minted bill",
							zap.Uint64("chainID", uint64(chainID)),
							zap.String("txHash", mintLog.TxHash.Hex()),
							zap.Error(err))
					}
				})
			}
		}
	}()
	return nil
}

func (s *Service) subscribeMints(ctx context.Context, chainID domain.ChainID, nftContract string, logs chan types.Log) (ethereum.Subscription, error) {
	// Subscriptions need a push transport; the HTTP node pool cannot
	// deliver them.
	client, err := s.clients.Subscription(ctx, chainID)
	if err != nil {
		return nil, err
	}

	query := ethereum.FilterQuery{
		Addresses: []common.Address{common.HexToAddress(nftContract)},
		Topics: [][]common.Hash{
			{multicall.BillNFTABI.Events["Transfer"].ID},
			{common.HexToHash(domain.EVM_ZERO_ADDRESS)},
		},
	}
	return client.SubscribeFilterLogs(ctx, query, logs)
}

// resubscribe retries the mint subscription with exponential backoff until it
// succeeds or ctx is cancelled.
func (s *Service) resubscribe(ctx context.Context, chainID domain.ChainID, nftContract string, logs chan types.Log) (ethereum.Subscription, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = time.Minute
	b.MaxElapsedTime = 0 // retry until cancelled

	sub, err := backoff.RetryWithData(func() (ethereum.Subscription, error) {
		return s.subscribeMints(ctx, chainID, nftContract, logs)
	}, backoff.WithContext(b, ctx))
	if err != nil {
		logger.Warn("giving up on bill mint subscription",
			zap.Uint64("chainID", uint64(chainID)),
			zap.String("nftContract", nftContract),
			zap.Error(err))
		return nil, err
	}

	logger.Info("bill mint subscription re-established",
		zap.Uint64("chainID", uint64(chainID)),
		zap.String("nftContract", nftContract))
	return sub, nil
}
