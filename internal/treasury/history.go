package treasury

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/digiswap/stats-api/internal/domain"
	"github.com/digiswap/stats-api/internal/gateway/subgraph"
	"github.com/digiswap/stats-api/internal/logger"
	"github.com/digiswap/stats-api/internal/store/schema"
)

// Backfill walks the history series forward one day at a time, from the day
// after the last stored point (or the series genesis) up to the current day.
// Each completed day is persisted before the next is fetched, so a failed
// day stops the walk without corrupting earlier days and the next run
// resumes from the gap. Re-running a finished day overwrites it with the
// same data.
func (e *Engine) Backfill(ctx context.Context) error {
	now := e.clock.Now().UTC()
	today := now.Unix() - now.Unix()%domain.SECONDS_PER_DAY

	start := int64(domain.TREASURY_HISTORY_GENESIS)
	last, err := e.store.GetLastHistoryPoint(ctx)
	if err != nil {
		return fmt.Errorf("failed to load last history point: %w", err)
	}
	if last != nil {
		start = last.Timestamp + domain.SECONDS_PER_DAY
	}

	for day := start; day < today; day += domain.SECONDS_PER_DAY {
		totals, err := e.dayTotals(ctx, day)
		if err != nil {
			logger.WarnCtx(ctx, "history backfill stopped",
				zap.Int64("day", day), zap.Error(err))
			return nil
		}
		point := &schema.TreasuryHistory{
			Timestamp: day,
			TVL:       totals.LiquidityUSD,
			Volume:    totals.VolumeUSD,
		}
		if err := e.store.UpsertHistoryPoint(ctx, point); err != nil {
			return fmt.Errorf("failed to persist history point %d: %w", day, err)
		}
	}

	return e.recordToday(ctx, today)
}

// RefreshToday recomputes only the current day's history point. The daily
// backfill writes it once at the start of the day; this keeps it moving as
// the day's volume and the treasury valuation change.
func (e *Engine) RefreshToday(ctx context.Context) error {
	now := e.clock.Now().UTC()
	today := now.Unix() - now.Unix()%domain.SECONDS_PER_DAY
	return e.recordToday(ctx, today)
}

// recordToday writes the current day's point with the live treasury
// valuation attached. The point is overwritten on each subsequent run as
// the day's figures settle.
func (e *Engine) recordToday(ctx context.Context, today int64) error {
	point := &schema.TreasuryHistory{Timestamp: today}

	if totals, err := e.dayTotals(ctx, today); err != nil {
		logger.WarnCtx(ctx, "no exchange day data yet for current day",
			zap.Int64("day", today), zap.Error(err))
	} else {
		point.TVL = totals.LiquidityUSD
		point.Volume = totals.VolumeUSD
	}

	if treasury, err := e.computeTreasury(ctx); err != nil {
		logger.WarnCtx(ctx, "treasury valuation unavailable for current day",
			zap.Error(err))
	} else {
		point.TreasuryUSD = treasury.TotalValue.Amount
		point.TreasuryKnown = treasury.TotalValue.Known
	}

	if err := e.store.UpsertHistoryPoint(ctx, point); err != nil {
		return fmt.Errorf("failed to persist current day point: %w", err)
	}
	return nil
}

// dayTotals sums the exchange day data of every chain with a subgraph. A day
// is complete only when at least one chain reported it.
func (e *Engine) dayTotals(ctx context.Context, day int64) (*subgraph.Totals, error) {
	totals := &subgraph.Totals{}
	reported := false
	var lastErr error
	for _, chain := range e.chains {
		chainTotals, err := e.subgraph.DayData(ctx, domain.ChainID(chain.ChainID), day)
		if err != nil {
			lastErr = err
			continue
		}
		totals.LiquidityUSD += chainTotals.LiquidityUSD
		totals.VolumeUSD += chainTotals.VolumeUSD
		reported = true
	}
	if !reported {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, fmt.Errorf("day %d: %w", day, domain.ErrNoIndexerData)
	}
	return totals, nil
}
