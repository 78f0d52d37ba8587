package freshness

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digiswap/stats-api/internal/config"
	"github.com/digiswap/stats-api/internal/domain"
	"github.com/digiswap/stats-api/internal/store/schema"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Since(t time.Time) time.Duration { return c.Now().Sub(t) }
func (c *fakeClock) Sleep(d time.Duration)           {}
func (c *fakeClock) Parse(layout, value string) (time.Time, error) {
	return time.Parse(layout, value)
}
func (c *fakeClock) Unix(sec int64, nsec int64) time.Time { return time.Unix(sec, nsec) }
func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.Now()
	return ch
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeSnapshotStore struct {
	mu        sync.Mutex
	snapshots map[string]*schema.Snapshot
	gets      int
	touches   int
	upserts   int
}

func newFakeSnapshotStore() *fakeSnapshotStore {
	return &fakeSnapshotStore{snapshots: map[string]*schema.Snapshot{}}
}

func (s *fakeSnapshotStore) GetSnapshot(_ context.Context, key string) (*schema.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	snap, ok := s.snapshots[key]
	if !ok {
		return nil, nil
	}
	copied := *snap
	return &copied, nil
}

func (s *fakeSnapshotStore) UpsertSnapshot(_ context.Context, key string, payload []byte, createdAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	s.snapshots[key] = &schema.Snapshot{Key: key, Payload: payload, CreatedAt: createdAt}
	return nil
}

func (s *fakeSnapshotStore) TouchSnapshot(_ context.Context, key string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touches++
	if snap, ok := s.snapshots[key]; ok {
		snap.CreatedAt = at
	}
	return nil
}

func (s *fakeSnapshotStore) seed(t *testing.T, key string, value any, createdAt time.Time) {
	t.Helper()
	payload, err := json.Marshal(value)
	require.NoError(t, err)
	s.mu.Lock()
	s.snapshots[key] = &schema.Snapshot{Key: key, Payload: payload, CreatedAt: createdAt}
	s.mu.Unlock()
}

func (s *fakeSnapshotStore) counts() (gets, touches, upserts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets, s.touches, s.upserts
}

type testValue struct {
	N int `json:"n"`
}

func testConfig() config.FreshnessConfig {
	return config.FreshnessConfig{
		MemoryTTL:      2 * time.Minute,
		StoreTTL:       5 * time.Minute,
		ComputeTimeout: time.Minute,
	}
}

func newTestGroup(store SnapshotStore, clock *fakeClock) (*Group, pond.Pool) {
	pool := pond.NewPool(2)
	return NewGroup(store, clock, pool, testConfig()), pool
}

func TestPolicyColdReturnsZeroValueAndSchedulesCompute(t *testing.T) {
	clock := newFakeClock()
	store := newFakeSnapshotStore()
	group, pool := newTestGroup(store, clock)
	defer pool.StopAndWait()

	computed := make(chan struct{})
	policy := NewPolicy(group, "test", func(ctx context.Context) (testValue, error) {
		close(computed)
		return testValue{N: 42}, nil
	})

	value, ok := policy.Get(context.Background())
	assert.False(t, ok)
	assert.Equal(t, testValue{}, value)

	select {
	case <-computed:
	case <-time.After(5 * time.Second):
		t.Fatal("compute was not scheduled")
	}
	pool.StopAndWait()

	_, _, upserts := store.counts()
	assert.Equal(t, 1, upserts)

	value, ok = policy.Get(context.Background())
	assert.True(t, ok)
	assert.Equal(t, testValue{N: 42}, value)
}

func TestPolicyMemoryHitSkipsStore(t *testing.T) {
	clock := newFakeClock()
	store := newFakeSnapshotStore()
	group, pool := newTestGroup(store, clock)
	defer pool.StopAndWait()

	policy := NewPolicy(group, "test", func(ctx context.Context) (testValue, error) {
		t.Fatal("compute must not run")
		return testValue{}, nil
	})
	policy.setMemory(testValue{N: 7}, clock.Now())

	clock.advance(time.Minute)

	value, ok := policy.Get(context.Background())
	assert.True(t, ok)
	assert.Equal(t, testValue{N: 7}, value)

	gets, touches, _ := store.counts()
	assert.Zero(t, gets)
	assert.Zero(t, touches)
}

func TestPolicyFreshStoreHitPopulatesMemory(t *testing.T) {
	clock := newFakeClock()
	store := newFakeSnapshotStore()
	group, pool := newTestGroup(store, clock)
	defer pool.StopAndWait()

	store.seed(t, "test", testValue{N: 9}, clock.Now())
	clock.advance(4 * time.Minute)

	policy := NewPolicy(group, "test", func(ctx context.Context) (testValue, error) {
		t.Fatal("compute must not run")
		return testValue{}, nil
	})

	value, ok := policy.Get(context.Background())
	assert.True(t, ok)
	assert.Equal(t, testValue{N: 9}, value)

	// Memory carries the snapshot's createdAt, which is already past
	// MemoryTTL, so a second read consults the store again.
	gets, _, _ := store.counts()
	value, ok = policy.Get(context.Background())
	assert.True(t, ok)
	assert.Equal(t, testValue{N: 9}, value)
	gets2, _, _ := store.counts()
	assert.Equal(t, gets+1, gets2)
}

func TestPolicyStaleServesOldValueWhileRecomputing(t *testing.T) {
	clock := newFakeClock()
	store := newFakeSnapshotStore()
	group, pool := newTestGroup(store, clock)
	defer pool.StopAndWait()

	store.seed(t, "test", testValue{N: 1}, clock.Now())
	clock.advance(10 * time.Minute)

	release := make(chan struct{})
	policy := NewPolicy(group, "test", func(ctx context.Context) (testValue, error) {
		<-release
		return testValue{N: 2}, nil
	})

	value, ok := policy.Get(context.Background())
	assert.True(t, ok)
	assert.Equal(t, testValue{N: 1}, value, "stale value is served while recompute runs")

	_, touches, _ := store.counts()
	assert.Equal(t, 1, touches, "refresh claim bumps created_at")

	close(release)
	pool.StopAndWait()

	value, ok = policy.Get(context.Background())
	assert.True(t, ok)
	assert.Equal(t, testValue{N: 2}, value)
}

func TestPolicySingleFlight(t *testing.T) {
	clock := newFakeClock()
	store := newFakeSnapshotStore()
	group, pool := newTestGroup(store, clock)
	defer pool.StopAndWait()

	store.seed(t, "test", testValue{N: 1}, clock.Now())
	clock.advance(10 * time.Minute)

	var computeCalls int
	var mu sync.Mutex
	release := make(chan struct{})
	policy := NewPolicy(group, "test", func(ctx context.Context) (testValue, error) {
		mu.Lock()
		computeCalls++
		mu.Unlock()
		<-release
		return testValue{N: 2}, nil
	})

	for i := 0; i < 5; i++ {
		value, ok := policy.Get(context.Background())
		assert.True(t, ok)
		assert.Equal(t, testValue{N: 1}, value)
	}

	close(release)
	pool.StopAndWait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, computeCalls)
}

type emptySnapshotStore struct {
	*fakeSnapshotStore
}

func (s *emptySnapshotStore) GetSnapshot(ctx context.Context, key string) (*schema.Snapshot, error) {
	s.mu.Lock()
	s.gets++
	s.mu.Unlock()
	return nil, fmt.Errorf("%s: %w", key, domain.ErrSnapshotNotFound)
}

func TestPolicyMissingSnapshotIsColdStart(t *testing.T) {
	clock := newFakeClock()
	store := &emptySnapshotStore{fakeSnapshotStore: newFakeSnapshotStore()}
	group, pool := newTestGroup(store, clock)
	defer pool.StopAndWait()

	policy := NewPolicy(group, "test", func(ctx context.Context) (testValue, error) {
		return testValue{N: 3}, nil
	})

	value, ok := policy.Get(context.Background())
	assert.False(t, ok)
	assert.Equal(t, testValue{}, value)

	pool.StopAndWait()

	_, _, upserts := store.counts()
	assert.Equal(t, 1, upserts, "a missing snapshot still schedules the first compute")
}

func TestPolicyEncodeFailureSkipsPersistAndMemory(t *testing.T) {
	clock := newFakeClock()
	store := newFakeSnapshotStore()
	group, pool := newTestGroup(store, clock)
	defer pool.StopAndWait()

	// Channels are not JSON-encodable, so the recompute result cannot
	// be persisted.
	policy := NewPolicy(group, "test", func(ctx context.Context) (chan int, error) {
		return make(chan int), nil
	})

	_, ok := policy.Get(context.Background())
	assert.False(t, ok)

	pool.StopAndWait()

	_, _, upserts := store.counts()
	assert.Zero(t, upserts)

	_, ok = policy.Get(context.Background())
	assert.False(t, ok, "a value that failed to encode is not cached")
}

func TestPolicyComputeFailureKeepsOldSnapshot(t *testing.T) {
	clock := newFakeClock()
	store := newFakeSnapshotStore()
	group, pool := newTestGroup(store, clock)
	defer pool.StopAndWait()

	store.seed(t, "test", testValue{N: 1}, clock.Now())
	clock.advance(10 * time.Minute)

	policy := NewPolicy(group, "test", func(ctx context.Context) (testValue, error) {
		return testValue{}, assert.AnError
	})

	value, ok := policy.Get(context.Background())
	assert.True(t, ok)
	assert.Equal(t, testValue{N: 1}, value)

	pool.StopAndWait()

	_, _, upserts := store.counts()
	assert.Zero(t, upserts)

	value, ok = policy.Get(context.Background())
	assert.True(t, ok)
	assert.Equal(t, testValue{N: 1}, value, "failed recompute leaves the last good value")
}
