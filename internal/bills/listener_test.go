package bills

import (
	"context"
	"sync"
	"testing"

	"github.com/alitto/pond/v2"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digiswap/stats-api/internal/adapter"
	"github.com/digiswap/stats-api/internal/domain"
)

type fakeSubscription struct {
	errc        chan error
	unsubscribe sync.Once
}

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{errc: make(chan error)}
}

func (s *fakeSubscription) Err() <-chan error { return s.errc }
func (s *fakeSubscription) Unsubscribe()      { s.unsubscribe.Do(func() { close(s.errc) }) }

// subscribingEthClient accepts log subscriptions, unlike the HTTP-pool
// fake it embeds.
type subscribingEthClient struct {
	fakeEthClient

	mu         sync.Mutex
	subQueries []ethereum.FilterQuery
}

func (c *subscribingEthClient) SubscribeFilterLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subQueries = append(c.subQueries, query)
	return newFakeSubscription(), nil
}

// transportClients hands out different clients per role so a test can
// tell which transport a subscription went through.
type transportClients struct {
	pool   *fakeEthClient
	socket *subscribingEthClient
}

func (f *transportClients) Standard(ctx context.Context, chainID domain.ChainID) (adapter.EthClient, error) {
	return f.pool, nil
}

func (f *transportClients) Archive(ctx context.Context, chainID domain.ChainID) (adapter.EthClient, error) {
	return f.pool, nil
}

func (f *transportClients) Subscription(ctx context.Context, chainID domain.ChainID) (adapter.EthClient, error) {
	return f.socket, nil
}

func (f *transportClients) Close() {}

func TestListenSubscribesOverSubscriptionTransport(t *testing.T) {
	clients := &transportClients{
		pool:   &fakeEthClient{},
		socket: &subscribingEthClient{},
	}
	service := newTestService(clients.pool, newFakeBillStore())
	service.clients = clients
	service.pool = pond.NewPool(1)
	defer service.pool.StopAndWait()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, service.Listen(ctx))

	clients.socket.mu.Lock()
	defer clients.socket.mu.Unlock()
	require.Len(t, clients.socket.subQueries, 1)

	query := clients.socket.subQueries[0]
	require.Len(t, query.Addresses, 1)
	assert.Equal(t, common.HexToAddress(testNFTContract), query.Addresses[0])
	require.Len(t, query.Topics, 2)
}
