package treasury

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digiswap/stats-api/internal/config"
	"github.com/digiswap/stats-api/internal/domain"
	"github.com/digiswap/stats-api/internal/gateway/subgraph"
	"github.com/digiswap/stats-api/internal/stats"
	"github.com/digiswap/stats-api/internal/store/schema"
)

type fakeStore struct {
	history map[int64]schema.TreasuryHistory
}

func newFakeStore() *fakeStore {
	return &fakeStore{history: make(map[int64]schema.TreasuryHistory)}
}

func (s *fakeStore) GetSnapshot(ctx context.Context, key string) (*schema.Snapshot, error) {
	return nil, nil
}

func (s *fakeStore) UpsertSnapshot(ctx context.Context, key string, payload []byte, createdAt time.Time) error {
	return nil
}

func (s *fakeStore) TouchSnapshot(ctx context.Context, key string, at time.Time) error {
	return nil
}

func (s *fakeStore) GetBillByMintTx(ctx context.Context, chainID uint64, txHash string) (*schema.Bill, error) {
	return nil, nil
}

func (s *fakeStore) GetBillByToken(ctx context.Context, chainID uint64, nftContract, tokenID string) (*schema.Bill, error) {
	return nil, nil
}

func (s *fakeStore) CreateBill(ctx context.Context, bill *schema.Bill) error {
	return nil
}

func (s *fakeStore) GetLastHistoryPoint(ctx context.Context) (*schema.TreasuryHistory, error) {
	var last *schema.TreasuryHistory
	for _, point := range s.history {
		point := point
		if last == nil || point.Timestamp > last.Timestamp {
			last = &point
		}
	}
	return last, nil
}

func (s *fakeStore) UpsertHistoryPoint(ctx context.Context, point *schema.TreasuryHistory) error {
	s.history[point.Timestamp] = *point
	return nil
}

func (s *fakeStore) GetHistory(ctx context.Context, from, to int64) ([]schema.TreasuryHistory, error) {
	var points []schema.TreasuryHistory
	for _, point := range s.history {
		if point.Timestamp >= from && point.Timestamp <= to {
			points = append(points, point)
		}
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp < points[j].Timestamp })
	return points, nil
}

type fakeSubgraph struct {
	days     map[int64]subgraph.Totals
	failFrom int64
}

func (g *fakeSubgraph) Totals(ctx context.Context, chainID domain.ChainID) (*subgraph.Totals, error) {
	return nil, domain.ErrNoIndexerData
}

func (g *fakeSubgraph) PairDayVolumes(ctx context.Context, chainID domain.ChainID, from, to int64) ([]domain.PairVolume, error) {
	return nil, domain.ErrNoIndexerData
}

func (g *fakeSubgraph) DayData(ctx context.Context, chainID domain.ChainID, date int64) (*subgraph.Totals, error) {
	if g.failFrom != 0 && date >= g.failFrom {
		return nil, fmt.Errorf("day %d unavailable", date)
	}
	totals, ok := g.days[date]
	if !ok {
		return nil, domain.ErrNoIndexerData
	}
	return &totals, nil
}

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time                                 { return c.now }
func (c *fixedClock) Since(t time.Time) time.Duration                { return c.now.Sub(t) }
func (c *fixedClock) Sleep(d time.Duration)                          {}
func (c *fixedClock) Parse(layout, value string) (time.Time, error)  { return time.Parse(layout, value) }
func (c *fixedClock) Unix(sec int64, nsec int64) time.Time           { return time.Unix(sec, nsec) }
func (c *fixedClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

type failingOracle struct{}

func (failingOracle) TokenPrices(ctx context.Context, chainID domain.ChainID) (domain.PriceMap, error) {
	return nil, fmt.Errorf("oracle offline")
}

type emptyLists struct{}

func (emptyLists) Tokens(ctx context.Context) ([]stats.ListToken, error) {
	return nil, nil
}

func (emptyLists) Bills(ctx context.Context) ([]stats.BillListEntry, error) {
	return nil, nil
}

func newBackfillEngine(st *fakeStore, gw *fakeSubgraph, now time.Time) *Engine {
	return &Engine{
		chains: map[string]config.ChainConfig{
			"bsc": {ChainID: domain.ChainBSC, Nodes: []string{"http://node"}},
		},
		primaryChain: domain.ChainBSC,
		clock:        &fixedClock{now: now},
		lists:        emptyLists{},
		prices:       failingOracle{},
		subgraph:     gw,
		store:        st,
	}
}

func TestBackfillWalksFromGenesis(t *testing.T) {
	genesis := int64(domain.TREASURY_HISTORY_GENESIS)
	now := time.Unix(genesis+3*domain.SECONDS_PER_DAY+3600, 0).UTC()

	gw := &fakeSubgraph{days: map[int64]subgraph.Totals{}}
	for day := genesis; day <= genesis+3*domain.SECONDS_PER_DAY; day += domain.SECONDS_PER_DAY {
		gw.days[day] = subgraph.Totals{LiquidityUSD: float64(day), VolumeUSD: 1}
	}

	st := newFakeStore()
	err := newBackfillEngine(st, gw, now).Backfill(context.Background())
	require.NoError(t, err)

	// three completed days plus the current day
	assert.Len(t, st.history, 4)
	first := st.history[genesis]
	assert.InDelta(t, float64(genesis), first.TVL, 1e-9)
	assert.False(t, first.TreasuryKnown)

	// current day exists even though the treasury valuation failed
	today := st.history[genesis+3*domain.SECONDS_PER_DAY]
	assert.False(t, today.TreasuryKnown)
}

func TestBackfillResumesFromLastPoint(t *testing.T) {
	genesis := int64(domain.TREASURY_HISTORY_GENESIS)
	now := time.Unix(genesis+4*domain.SECONDS_PER_DAY+60, 0).UTC()

	gw := &fakeSubgraph{days: map[int64]subgraph.Totals{}}
	for day := genesis; day <= genesis+4*domain.SECONDS_PER_DAY; day += domain.SECONDS_PER_DAY {
		gw.days[day] = subgraph.Totals{LiquidityUSD: 100, VolumeUSD: 10}
	}

	st := newFakeStore()
	st.history[genesis] = schema.TreasuryHistory{Timestamp: genesis, TVL: 1, Volume: 1}
	st.history[genesis+domain.SECONDS_PER_DAY] = schema.TreasuryHistory{
		Timestamp: genesis + domain.SECONDS_PER_DAY, TVL: 2, Volume: 2,
	}

	err := newBackfillEngine(st, gw, now).Backfill(context.Background())
	require.NoError(t, err)

	// earlier days kept verbatim, only days after the last point were fetched
	assert.InDelta(t, 1.0, st.history[genesis].TVL, 1e-9)
	assert.InDelta(t, 2.0, st.history[genesis+domain.SECONDS_PER_DAY].TVL, 1e-9)
	assert.InDelta(t, 100.0, st.history[genesis+2*domain.SECONDS_PER_DAY].TVL, 1e-9)
	assert.Len(t, st.history, 5)
}

func TestBackfillStopsAtFailedDayWithoutCorruption(t *testing.T) {
	genesis := int64(domain.TREASURY_HISTORY_GENESIS)
	now := time.Unix(genesis+4*domain.SECONDS_PER_DAY+60, 0).UTC()

	gw := &fakeSubgraph{days: map[int64]subgraph.Totals{}, failFrom: genesis + 2*domain.SECONDS_PER_DAY}
	for day := genesis; day <= genesis+4*domain.SECONDS_PER_DAY; day += domain.SECONDS_PER_DAY {
		gw.days[day] = subgraph.Totals{LiquidityUSD: 100, VolumeUSD: 10}
	}

	st := newFakeStore()
	err := newBackfillEngine(st, gw, now).Backfill(context.Background())
	require.NoError(t, err)

	// days before the failure are stored, nothing after
	_, ok := st.history[genesis]
	assert.True(t, ok)
	_, ok = st.history[genesis+domain.SECONDS_PER_DAY]
	assert.True(t, ok)
	_, ok = st.history[genesis+2*domain.SECONDS_PER_DAY]
	assert.False(t, ok)
	assert.Len(t, st.history, 2)

	// the next run resumes from the gap once the indexer recovers
	gw.failFrom = 0
	err = newBackfillEngine(st, gw, now).Backfill(context.Background())
	require.NoError(t, err)
	assert.Len(t, st.history, 5)
}

func TestRefreshTodayOverwritesCurrentDayPoint(t *testing.T) {
	genesis := int64(domain.TREASURY_HISTORY_GENESIS)
	today := genesis + 2*domain.SECONDS_PER_DAY
	now := time.Unix(today+6*3600, 0).UTC()

	gw := &fakeSubgraph{days: map[int64]subgraph.Totals{
		today: {LiquidityUSD: 500, VolumeUSD: 75},
	}}

	st := newFakeStore()
	// point written by an earlier run, before the day's volume moved
	st.history[today] = schema.TreasuryHistory{Timestamp: today, TVL: 100, Volume: 10}

	err := newBackfillEngine(st, gw, now).RefreshToday(context.Background())
	require.NoError(t, err)

	point := st.history[today]
	assert.InDelta(t, 500.0, point.TVL, 1e-9)
	assert.InDelta(t, 75.0, point.Volume, 1e-9)
	assert.Len(t, st.history, 1, "only the current day is touched")
}

func TestBackfillIsIdempotent(t *testing.T) {
	genesis := int64(domain.TREASURY_HISTORY_GENESIS)
	now := time.Unix(genesis+2*domain.SECONDS_PER_DAY+60, 0).UTC()

	gw := &fakeSubgraph{days: map[int64]subgraph.Totals{}}
	for day := genesis; day <= genesis+2*domain.SECONDS_PER_DAY; day += domain.SECONDS_PER_DAY {
		gw.days[day] = subgraph.Totals{LiquidityUSD: 100, VolumeUSD: 10}
	}

	st := newFakeStore()
	engine := newBackfillEngine(st, gw, now)
	require.NoError(t, engine.Backfill(context.Background()))
	snapshot := make(map[int64]schema.TreasuryHistory, len(st.history))
	for key, value := range st.history {
		snapshot[key] = value
	}

	require.NoError(t, engine.Backfill(context.Background()))
	assert.Equal(t, snapshot, st.history)
}
