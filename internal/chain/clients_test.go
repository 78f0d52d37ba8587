package chain

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digiswap/stats-api/internal/adapter"
	"github.com/digiswap/stats-api/internal/config"
	"github.com/digiswap/stats-api/internal/domain"
)

type stubClient struct {
	endpoint string
	closed   bool
}

func (s *stubClient) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return nil, nil
}

func (s *stubClient) FilterLogs(context.Context, ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}

func (s *stubClient) SubscribeFilterLogs(context.Context, ethereum.FilterQuery, chan<- types.Log) (ethereum.Subscription, error) {
	return nil, nil
}

func (s *stubClient) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return nil, nil
}

func (s *stubClient) BlockNumber(context.Context) (uint64, error) { return 0, nil }

func (s *stubClient) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	return nil, nil
}

func (s *stubClient) Close() { s.closed = true }

type recordingDialer struct {
	dialed []string
}

func (d *recordingDialer) Dial(_ context.Context, rawurl string) (adapter.EthClient, error) {
	d.dialed = append(d.dialed, rawurl)
	return &stubClient{endpoint: rawurl}, nil
}

func clientChains() map[string]config.ChainConfig {
	return map[string]config.ChainConfig{
		"bsc": {
			ChainID:      domain.ChainBSC,
			Nodes:        []string{"http://node-a", "http://node-b"},
			ArchiveNode:  "http://archive",
			WebSocketURL: "wss://node-ws",
		},
		"polygon": {
			ChainID: domain.ChainPolygon,
			Nodes:   []string{"http://polygon-node"},
		},
	}
}

func TestStandardMemoizesConnection(t *testing.T) {
	dialer := &recordingDialer{}
	c := NewClients(clientChains(), dialer, NewRoundRobinPicker())

	first, err := c.Standard(context.Background(), domain.ChainBSC)
	require.NoError(t, err)
	second, err := c.Standard(context.Background(), domain.ChainBSC)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Len(t, dialer.dialed, 1)
}

func TestArchivePrefersDedicatedNode(t *testing.T) {
	dialer := &recordingDialer{}
	c := NewClients(clientChains(), dialer, NewRoundRobinPicker())

	client, err := c.Archive(context.Background(), domain.ChainBSC)
	require.NoError(t, err)

	assert.Equal(t, "http://archive", client.(*stubClient).endpoint)
}

func TestArchiveFallsBackToNodePool(t *testing.T) {
	dialer := &recordingDialer{}
	c := NewClients(clientChains(), dialer, NewRoundRobinPicker())

	client, err := c.Archive(context.Background(), domain.ChainPolygon)
	require.NoError(t, err)

	assert.Equal(t, "http://polygon-node", client.(*stubClient).endpoint)
}

func TestSubscriptionDialsWebSocketEndpoint(t *testing.T) {
	dialer := &recordingDialer{}
	c := NewClients(clientChains(), dialer, NewRoundRobinPicker())

	first, err := c.Subscription(context.Background(), domain.ChainBSC)
	require.NoError(t, err)
	assert.Equal(t, "wss://node-ws", first.(*stubClient).endpoint)

	second, err := c.Subscription(context.Background(), domain.ChainBSC)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Len(t, dialer.dialed, 1)
}

func TestSubscriptionRequiresWebSocketEndpoint(t *testing.T) {
	dialer := &recordingDialer{}
	c := NewClients(clientChains(), dialer, NewRoundRobinPicker())

	_, err := c.Subscription(context.Background(), domain.ChainPolygon)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "websocket")
	assert.Empty(t, dialer.dialed)
}

func TestUnknownChainRejected(t *testing.T) {
	c := NewClients(clientChains(), &recordingDialer{}, NewRoundRobinPicker())

	_, err := c.Standard(context.Background(), domain.ChainTelos)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedChain)
}

func TestCloseClosesAndForgetsConnections(t *testing.T) {
	dialer := &recordingDialer{}
	c := NewClients(clientChains(), dialer, NewRoundRobinPicker())

	client, err := c.Standard(context.Background(), domain.ChainBSC)
	require.NoError(t, err)

	c.Close()
	assert.True(t, client.(*stubClient).closed)

	// A fresh connection is dialed after Close
	_, err = c.Standard(context.Background(), domain.ChainBSC)
	require.NoError(t, err)
	assert.Len(t, dialer.dialed, 2)
}

func TestRoundRobinPickerCyclesThroughPool(t *testing.T) {
	p := NewRoundRobinPicker()
	endpoints := []string{"a", "b", "c"}

	var picked []string
	for range 6 {
		e, err := p.Pick(endpoints)
		require.NoError(t, err)
		picked = append(picked, e)
	}

	assert.Equal(t, []string{"a", "b", "c", "a", "b", "c"}, picked)
}

func TestPickersRejectEmptyPool(t *testing.T) {
	_, err := NewRoundRobinPicker().Pick(nil)
	assert.ErrorIs(t, err, ErrNoEndpoints)

	_, err = NewRandomPicker().Pick(nil)
	assert.ErrorIs(t, err, ErrNoEndpoints)
}

func TestRandomPickerStaysInPool(t *testing.T) {
	p := NewRandomPicker()
	endpoints := []string{"a", "b"}

	for range 20 {
		e, err := p.Pick(endpoints)
		require.NoError(t, err)
		assert.Contains(t, endpoints, e)
	}
}
