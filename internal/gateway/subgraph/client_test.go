package subgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digiswap/stats-api/internal/adapter"
	"github.com/digiswap/stats-api/internal/config"
	"github.com/digiswap/stats-api/internal/domain"
	"github.com/digiswap/stats-api/internal/gateway/graphql"
)

// graphqlStub answers GraphQL posts from a per-operation handler that sees
// the decoded variables and returns the raw data payload.
type graphqlStub struct {
	t        *testing.T
	handlers map[string]func(vars map[string]interface{}) (string, error)
	requests []string
}

func (s *graphqlStub) Get(context.Context, string, interface{}) error {
	return fmt.Errorf("not supported")
}

func (s *graphqlStub) PostWithHeaders(_ context.Context, _ string, _ string, body io.Reader, _ map[string]string) ([]byte, error) {
	raw, err := io.ReadAll(body)
	require.NoError(s.t, err)

	var req graphql.Request
	require.NoError(s.t, json.Unmarshal(raw, &req))
	s.requests = append(s.requests, req.OperationName)

	handler, ok := s.handlers[req.OperationName]
	require.True(s.t, ok, "unexpected operation %s", req.OperationName)

	vars, _ := req.Variables.(map[string]interface{})
	data, err := handler(vars)
	if err != nil {
		return []byte(fmt.Sprintf(`{"errors":[{"message":%q}]}`, err.Error())), nil
	}
	return []byte(`{"data":` + data + `}`), nil
}

func subgraphChains() map[string]config.ChainConfig {
	return map[string]config.ChainConfig{
		"bsc": {
			ChainID:     domain.ChainBSC,
			SubgraphURL: "http://subgraph.local/bsc",
		},
	}
}

func newTestGateway(stub *graphqlStub) Gateway {
	return NewGateway(stub, adapter.NewJSON(), subgraphChains())
}

func TestTotals(t *testing.T) {
	stub := &graphqlStub{t: t, handlers: map[string]func(map[string]interface{}) (string, error){
		"ExchangeTotals": func(map[string]interface{}) (string, error) {
			return `{"uniswapFactories":[{"totalVolumeUSD":"123456.78","totalLiquidityUSD":"99.5"}]}`, nil
		},
	}}

	totals, err := newTestGateway(stub).Totals(context.Background(), domain.ChainBSC)
	require.NoError(t, err)

	assert.InDelta(t, 123456.78, totals.VolumeUSD, 1e-9)
	assert.InDelta(t, 99.5, totals.LiquidityUSD, 1e-9)
}

func TestTotalsEmptyFactoriesReportNoIndexerData(t *testing.T) {
	stub := &graphqlStub{t: t, handlers: map[string]func(map[string]interface{}) (string, error){
		"ExchangeTotals": func(map[string]interface{}) (string, error) {
			return `{"uniswapFactories":[]}`, nil
		},
	}}

	_, err := newTestGateway(stub).Totals(context.Background(), domain.ChainBSC)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoIndexerData)
}

func TestUnconfiguredChainReportsNoIndexerData(t *testing.T) {
	g := newTestGateway(&graphqlStub{t: t})

	_, err := g.Totals(context.Background(), domain.ChainTelos)
	assert.ErrorIs(t, err, domain.ErrNoIndexerData)

	_, err = g.DayData(context.Background(), domain.ChainTelos, 1613174400)
	assert.ErrorIs(t, err, domain.ErrNoIndexerData)
}

func TestPairDayVolumesPaginatesAndSums(t *testing.T) {
	// Page one is full, forcing a second fetch; the pair on both pages must
	// have its volumes summed across them
	fullPage := make([]string, 0, pageSize)
	for i := range pageSize {
		pair := fmt.Sprintf("0x%040x", i%2) // two pairs alternating
		fullPage = append(fullPage, fmt.Sprintf(`{"pairAddress":%q,"dailyVolumeUSD":"1"}`, pair))
	}

	var skips []int
	stub := &graphqlStub{t: t}
	stub.handlers = map[string]func(map[string]interface{}) (string, error){
		"PairDayVolumes": func(vars map[string]interface{}) (string, error) {
			skip := int(vars["skip"].(float64))
			skips = append(skips, skip)
			if skip == 0 {
				return `{"pairDayDatas":[` + strings.Join(fullPage, ",") + `]}`, nil
			}
			return `{"pairDayDatas":[{"pairAddress":"0x0000000000000000000000000000000000000000","dailyVolumeUSD":"42"}]}`, nil
		},
	}

	volumes, err := newTestGateway(stub).PairDayVolumes(context.Background(), domain.ChainBSC, 0, 86400)
	require.NoError(t, err)

	assert.Equal(t, []int{0, pageSize}, skips)
	require.Len(t, volumes, 2)
	assert.Equal(t, "0x0000000000000000000000000000000000000000", volumes[0].Address)
	assert.InDelta(t, 500+42, volumes[0].Volume24h, 1e-9)
	assert.InDelta(t, 500, volumes[1].Volume24h, 1e-9)
}

func TestDayData(t *testing.T) {
	stub := &graphqlStub{t: t, handlers: map[string]func(map[string]interface{}) (string, error){
		"DayData": func(vars map[string]interface{}) (string, error) {
			assert.Equal(t, float64(1613174400), vars["date"])
			return `{"uniswapDayDatas":[{"dailyVolumeUSD":"1000.25","totalLiquidityUSD":"50000"}]}`, nil
		},
	}}

	totals, err := newTestGateway(stub).DayData(context.Background(), domain.ChainBSC, 1613174400)
	require.NoError(t, err)

	assert.InDelta(t, 1000.25, totals.VolumeUSD, 1e-9)
	assert.InDelta(t, 50000, totals.LiquidityUSD, 1e-9)
}

func TestDayDataMissingDayReportsNoIndexerData(t *testing.T) {
	stub := &graphqlStub{t: t, handlers: map[string]func(map[string]interface{}) (string, error){
		"DayData": func(map[string]interface{}) (string, error) {
			return `{"uniswapDayDatas":[]}`, nil
		},
	}}

	_, err := newTestGateway(stub).DayData(context.Background(), domain.ChainBSC, 1613174400)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoIndexerData)
}

func TestGraphQLErrorSurfaces(t *testing.T) {
	stub := &graphqlStub{t: t, handlers: map[string]func(map[string]interface{}) (string, error){
		"ExchangeTotals": func(map[string]interface{}) (string, error) {
			return "", fmt.Errorf("indexer is syncing")
		},
	}}

	_, err := newTestGateway(stub).Totals(context.Background(), domain.ChainBSC)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "indexer is syncing")
}
