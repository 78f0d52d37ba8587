package stats

import (
	"context"
	"fmt"
	"strconv"

	"github.com/digiswap/stats-api/internal/adapter"
	"github.com/digiswap/stats-api/internal/config"
	"github.com/digiswap/stats-api/internal/domain"
)

// ListToken is one entry of the hosted token list. Addresses are keyed by
// decimal chain id, matching the published list format.
type ListToken struct {
	Symbol   string            `json:"symbol"`
	Address  map[string]string `json:"address"`
	Decimals uint8             `json:"decimals"`
	LPToken  bool              `json:"lpToken"`
}

// AddressOn returns the token's address on the given chain, empty when the
// token is not deployed there.
func (t ListToken) AddressOn(chainID domain.ChainID) string {
	return t.Address[strconv.FormatUint(uint64(chainID), 10)]
}

// BillListToken is a token reference inside a bill list entry.
type BillListToken struct {
	Symbol  string            `json:"symbol"`
	Address map[string]string `json:"address"`
}

func (t BillListToken) AddressOn(chainID domain.ChainID) string {
	return t.Address[strconv.FormatUint(uint64(chainID), 10)]
}

// BillListEntry is one entry of the hosted bill list.
type BillListEntry struct {
	BillType        string            `json:"billType"`
	ContractAddress map[string]string `json:"contractAddress"`
	BillNFTAddress  map[string]string `json:"billNftAddress"`
	LPToken         BillListToken     `json:"lpToken"`
	EarnToken       BillListToken     `json:"earnToken"`
	Inactive        bool              `json:"inactive"`
}

func (b BillListEntry) AddressOn(chainID domain.ChainID) string {
	return b.ContractAddress[strconv.FormatUint(uint64(chainID), 10)]
}

// Lists fetches the hosted token and bill lists.
type Lists interface {
	Tokens(ctx context.Context) ([]ListToken, error)
	Bills(ctx context.Context) ([]BillListEntry, error)
}

type lists struct {
	httpClient adapter.HTTPClient
	cfg        config.ListsConfig
}

func NewLists(httpClient adapter.HTTPClient, cfg config.ListsConfig) Lists {
	return &lists{httpClient: httpClient, cfg: cfg}
}

func (l *lists) Tokens(ctx context.Context) ([]ListToken, error) {
	var tokens []ListToken
	if err := l.httpClient.Get(ctx, l.cfg.TokenListURL, &tokens); err != nil {
		return nil, fmt.Errorf("failed to fetch token list: %w", err)
	}
	return tokens, nil
}

func (l *lists) Bills(ctx context.Context) ([]BillListEntry, error) {
	var bills []BillListEntry
	if err := l.httpClient.Get(ctx, l.cfg.BillListURL, &bills); err != nil {
		return nil, fmt.Errorf("failed to fetch bill list: %w", err)
	}
	return bills, nil
}
