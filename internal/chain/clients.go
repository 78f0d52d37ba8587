package chain

import (
	"context"
	"fmt"
	"sync"

	"github.com/digiswap/stats-api/internal/adapter"
	"github.com/digiswap/stats-api/internal/config"
	"github.com/digiswap/stats-api/internal/domain"
)

// Clients hands out ready-to-use chain connections. Connections are memoized
// per chain for the life of the process; there is no explicit teardown beyond
// Close.
type Clients interface {
	// Standard returns a client bound to a regular node of the chain
	Standard(ctx context.Context, chainID domain.ChainID) (adapter.EthClient, error)

	// Archive returns a client bound to the historical-state node of the
	// chain. Required whenever a calculation reads state as of a past block.
	Archive(ctx context.Context, chainID domain.ChainID) (adapter.EthClient, error)

	// Subscription returns a client dialed over the chain's websocket
	// endpoint. Log subscriptions require it; the HTTP transports behind
	// Standard and Archive cannot push notifications.
	Subscription(ctx context.Context, chainID domain.ChainID) (adapter.EthClient, error)

	// Close closes every dialed connection
	Close()
}

type clients struct {
	chains map[string]config.ChainConfig
	dialer adapter.EthClientDialer
	picker EndpointPicker

	mu           sync.Mutex
	standard     map[domain.ChainID]adapter.EthClient
	archive      map[domain.ChainID]adapter.EthClient
	subscription map[domain.ChainID]adapter.EthClient
}

// NewClients creates a connection registry over the configured chains
func NewClients(chains map[string]config.ChainConfig, dialer adapter.EthClientDialer, picker EndpointPicker) Clients {
	return &clients{
		chains:       chains,
		dialer:       dialer,
		picker:       picker,
		standard:     make(map[domain.ChainID]adapter.EthClient),
		archive:      make(map[domain.ChainID]adapter.EthClient),
		subscription: make(map[domain.ChainID]adapter.EthClient),
	}
}

func (c *clients) Standard(ctx context.Context, chainID domain.ChainID) (adapter.EthClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.standard[chainID]; ok {
		return client, nil
	}

	cfg, err := config.Chain(c.chains, chainID)
	if err != nil {
		return nil, err
	}

	endpoint, err := c.picker.Pick(cfg.Nodes)
	if err != nil {
		return nil, fmt.Errorf("failed to pick endpoint for chain %d: %w", uint64(chainID), err)
	}

	client, err := c.dialer.Dial(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", endpoint, err)
	}

	c.standard[chainID] = client
	return client, nil
}

func (c *clients) Archive(ctx context.Context, chainID domain.ChainID) (adapter.EthClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.archive[chainID]; ok {
		return client, nil
	}

	cfg, err := config.Chain(c.chains, chainID)
	if err != nil {
		return nil, err
	}

	// Fall back to the regular pool when no dedicated archive node exists
	endpoint := cfg.ArchiveNode
	if endpoint == "" {
		endpoint, err = c.picker.Pick(cfg.Nodes)
		if err != nil {
			return nil, fmt.Errorf("failed to pick endpoint for chain %d: %w", uint64(chainID), err)
		}
	}

	client, err := c.dialer.Dial(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", endpoint, err)
	}

	c.archive[chainID] = client
	return client, nil
}

func (c *clients) Subscription(ctx context.Context, chainID domain.ChainID) (adapter.EthClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.subscription[chainID]; ok {
		return client, nil
	}

	cfg, err := config.Chain(c.chains, chainID)
	if err != nil {
		return nil, err
	}
	if cfg.WebSocketURL == "" {
		return nil, fmt.Errorf("no websocket endpoint configured for chain %d", uint64(chainID))
	}

	client, err := c.dialer.Dial(ctx, cfg.WebSocketURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", cfg.WebSocketURL, err)
	}

	c.subscription[chainID] = client
	return client, nil
}

func (c *clients) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, client := range c.standard {
		client.Close()
	}
	for _, client := range c.archive {
		client.Close()
	}
	for _, client := range c.subscription {
		client.Close()
	}
	c.standard = make(map[domain.ChainID]adapter.EthClient)
	c.archive = make(map[domain.ChainID]adapter.EthClient)
	c.subscription = make(map[domain.ChainID]adapter.EthClient)
}
