// Package freshness implements a three-tier read path for computed
// snapshots: an in-process cache, a persisted snapshot row, and a
// detached background recompute. Reads never block on recomputation
// and never fail on a cold cache.
package freshness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"github.com/digiswap/stats-api/internal/adapter"
	"github.com/digiswap/stats-api/internal/config"
	"github.com/digiswap/stats-api/internal/domain"
	"github.com/digiswap/stats-api/internal/logger"
	"github.com/digiswap/stats-api/internal/store/schema"
)

// SnapshotStore is the slice of the persistence layer a policy needs.
type SnapshotStore interface {
	GetSnapshot(ctx context.Context, key string) (*schema.Snapshot, error)
	UpsertSnapshot(ctx context.Context, key string, payload []byte, createdAt time.Time) error
	TouchSnapshot(ctx context.Context, key string, at time.Time) error
}

// ComputeFunc produces a fresh value for a snapshot key.
type ComputeFunc[T any] func(ctx context.Context) (T, error)

// Group shares the store, clock, worker pool and in-flight claim map
// across every policy so that at most one recompute per key runs at a
// time process-wide.
type Group struct {
	store    SnapshotStore
	clock    adapter.Clock
	pool     pond.Pool
	cfg      config.FreshnessConfig
	inflight *xsync.Map[string, struct{}]
}

func NewGroup(store SnapshotStore, clock adapter.Clock, pool pond.Pool, cfg config.FreshnessConfig) *Group {
	return &Group{
		store:    store,
		clock:    clock,
		pool:     pool,
		cfg:      cfg,
		inflight: xsync.NewMap[string, struct{}](),
	}
}

type memoryEntry[T any] struct {
	value     T
	createdAt time.Time
}

// Policy serves one snapshot key. Get returns the freshest value it
// can without waiting: memory within MemoryTTL, then the stored
// snapshot within StoreTTL, then whatever stale snapshot exists while
// a background recompute runs. A cold start returns the zero value.
type Policy[T any] struct {
	group   *Group
	key     string
	compute ComputeFunc[T]

	mu  sync.RWMutex
	mem *memoryEntry[T]
}

func NewPolicy[T any](group *Group, key string, compute ComputeFunc[T]) *Policy[T] {
	return &Policy[T]{
		group:   group,
		key:     key,
		compute: compute,
	}
}

// Get never blocks on recomputation and never returns an error for a
// missing snapshot. The returned bool reports whether the value came
// from a real snapshot rather than the zero-value cold default.
func (p *Policy[T]) Get(ctx context.Context) (T, bool) {
	g := p.group
	now := g.clock.Now()

	p.mu.RLock()
	mem := p.mem
	p.mu.RUnlock()
	if mem != nil && now.Sub(mem.createdAt) <= g.cfg.MemoryTTL {
		return mem.value, true
	}

	snap, err := g.store.GetSnapshot(ctx, p.key)
	if err != nil {
		// A snapshot that does not exist yet is an ordinary cold start
		if !errors.Is(err, domain.ErrSnapshotNotFound) {
			logger.WarnCtx(ctx, "failed to load snapshot", zap.String("key", p.key), zap.Error(err))
		}
		snap = nil
	}

	if snap != nil && now.Sub(snap.CreatedAt) <= g.cfg.StoreTTL {
		if value, ok := p.decode(ctx, snap.Payload); ok {
			p.setMemory(value, snap.CreatedAt)
			return value, true
		}
	}

	p.refresh(ctx, now)

	if snap != nil {
		if value, ok := p.decode(ctx, snap.Payload); ok {
			return value, true
		}
	}
	if mem != nil {
		return mem.value, true
	}

	var zero T
	return zero, false
}

// refresh claims the key and schedules a detached recompute. Touching
// the stored row's created_at marks the claim so concurrent processes
// see the snapshot as fresh and do not pile on.
func (p *Policy[T]) refresh(ctx context.Context, now time.Time) {
	g := p.group
	if _, loaded := g.inflight.LoadOrStore(p.key, struct{}{}); loaded {
		return
	}

	if err := g.store.TouchSnapshot(ctx, p.key, now); err != nil {
		logger.WarnCtx(ctx, "failed to claim snapshot refresh", zap.String("key", p.key), zap.Error(err))
	}

	g.pool.Submit(func() {
		defer g.inflight.Delete(p.key)
		p.recompute()
	})
}

func (p *Policy[T]) recompute() {
	g := p.group
	ctx, cancel := context.WithTimeout(context.Background(), g.cfg.ComputeTimeout)
	defer cancel()

	started := g.clock.Now()
	value, err := p.compute(ctx)
	if err != nil {
		// The previous snapshot keeps serving until a later
		// recompute succeeds.
		logger.ErrorCtx(ctx, fmt.Errorf("failed to recompute snapshot: %w", err),
			zap.String("key", p.key),
			zap.Duration("elapsed", g.clock.Since(started)))
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to encode snapshot: %w", err), zap.String("key", p.key))
		return
	}

	completed := g.clock.Now()
	if err := g.store.UpsertSnapshot(ctx, p.key, payload, completed); err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to persist snapshot: %w", err), zap.String("key", p.key))
	}
	p.setMemory(value, completed)

	logger.Debug("snapshot recomputed",
		zap.String("key", p.key),
		zap.Duration("elapsed", g.clock.Since(started)))
}

func (p *Policy[T]) decode(ctx context.Context, payload []byte) (T, bool) {
	var value T
	if err := json.Unmarshal(payload, &value); err != nil {
		logger.WarnCtx(ctx, "failed to decode snapshot", zap.String("key", p.key), zap.Error(err))
		return value, false
	}
	return value, true
}

func (p *Policy[T]) setMemory(value T, createdAt time.Time) {
	p.mu.Lock()
	p.mem = &memoryEntry[T]{value: value, createdAt: createdAt}
	p.mu.Unlock()
}
