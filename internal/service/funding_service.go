package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"funding-radar/internal/arbitrage"
	"funding-radar/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultRowsCacheTTL = 90 * time.Second
	rowsCacheKey        = "funding:rows"
)

type CycleCollector interface {
	Collect(ctx context.Context) domain.CycleResult
}

type SnapshotSink interface {
	InsertCycle(ctx context.Context, obs []domain.FundingObservation) error
}

type HistoryStore interface {
	Read(token string, ex domain.Exchange, since time.Time) ([]domain.TimeSeriesPoint, error)
}

type PartitionBackfiller interface {
	BackfillPartition(ctx context.Context, token string, ex domain.Exchange) (int, error)
}

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// FundingService orchestrates collection cycles, caching, history reads and
// opportunity detection.
type FundingService struct {
	tracer     trace.Tracer
	collector  CycleCollector
	snapshots  SnapshotSink
	store      HistoryStore
	backfiller PartitionBackfiller
	redis      RedisClient
	cacheTTL   time.Duration

	mu       sync.RWMutex
	memRows  []domain.FundingRow
	memStamp time.Time
}

func NewFundingService(
	tracer trace.Tracer,
	collector CycleCollector,
	snapshots SnapshotSink,
	store HistoryStore,
	backfiller PartitionBackfiller,
	redisClient RedisClient,
	cacheTTL time.Duration,
) *FundingService {
	if cacheTTL <= 0 {
		cacheTTL = defaultRowsCacheTTL
	}
	return &FundingService{
		tracer:     tracer,
		collector:  collector,
		snapshots:  snapshots,
		store:      store,
		backfiller: backfiller,
		redis:      redisClient,
		cacheTTL:   cacheTTL,
	}
}

// RunCycle executes one collection cycle: fan out to the venues, persist the
// audit snapshots, and refresh the caches. Snapshot persistence failing does
// not fail the cycle.
func (s *FundingService) RunCycle(ctx context.Context) (domain.CycleResult, error) {
	ctx, span := s.tracer.Start(ctx, "funding-service.run-cycle")
	defer span.End()

	res := s.collector.Collect(ctx)
	if len(res.Observations) == 0 {
		return res, fmt.Errorf("collection cycle produced no observations")
	}

	if s.snapshots != nil {
		if err := s.snapshots.InsertCycle(ctx, res.Observations); err != nil {
			log.Printf("snapshot insert failed: %v", err)
		}
	}

	rows := domain.BuildRows(res.Observations)
	s.cacheRows(ctx, rows)
	log.Printf("Collected %d observations across %d tokens", len(res.Observations), len(rows))
	return res, nil
}

// LatestRows returns the most recent cycle's flat per-token rows, serving
// from Redis, then the in-process cache, then a fresh cycle.
func (s *FundingService) LatestRows(ctx context.Context) ([]domain.FundingRow, error) {
	ctx, span := s.tracer.Start(ctx, "funding-service.latest-rows")
	defer span.End()

	if s.redis != nil {
		rows, err := s.getRowsCache(ctx)
		if err != nil {
			log.Printf("redis cache read error: %v", err)
		}
		if rows != nil {
			return rows, nil
		}
	}

	s.mu.RLock()
	if s.memRows != nil && time.Since(s.memStamp) < s.cacheTTL {
		rows := s.memRows
		s.mu.RUnlock()
		return rows, nil
	}
	s.mu.RUnlock()

	if _, err := s.RunCycle(ctx); err != nil {
		// A stale in-process copy beats an empty answer.
		s.mu.RLock()
		defer s.mu.RUnlock()
		if s.memRows != nil {
			return s.memRows, nil
		}
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.memRows, nil
}

// Opportunities detects funding spreads over the latest rows.
func (s *FundingService) Opportunities(ctx context.Context, exchanges []domain.Exchange, required domain.Exchange, tf domain.Timeframe) ([]arbitrage.Opportunity, error) {
	ctx, span := s.tracer.Start(ctx, "funding-service.opportunities")
	defer span.End()

	rows, err := s.LatestRows(ctx)
	if err != nil {
		return nil, err
	}
	return arbitrage.Detect(rows, exchanges, required, tf), nil
}

// History serves the stored series for one (token, exchange), topping the
// partition up first so the read reflects the venue's latest data. A backfill
// failure degrades to whatever is already on disk.
func (s *FundingService) History(ctx context.Context, token string, ex domain.Exchange, days int) ([]domain.TimeSeriesPoint, error) {
	ctx, span := s.tracer.Start(ctx, "funding-service.history")
	defer span.End()

	if !ex.SupportsHistory() {
		return nil, fmt.Errorf("%s does not expose usable funding history", ex)
	}
	if s.backfiller != nil {
		if _, err := s.backfiller.BackfillPartition(ctx, token, ex); err != nil {
			log.Printf("history backfill for %s-%s failed, serving stored data: %v", token, ex, err)
		}
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	return s.store.Read(token, ex, since)
}

func (s *FundingService) cacheRows(ctx context.Context, rows []domain.FundingRow) {
	s.mu.Lock()
	s.memRows = rows
	s.memStamp = time.Now()
	s.mu.Unlock()

	if s.redis == nil {
		return
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, rowsCacheKey, data, s.cacheTTL).Err(); err != nil {
		log.Printf("redis cache write error: %v", err)
	}
}

func (s *FundingService) getRowsCache(ctx context.Context) ([]domain.FundingRow, error) {
	data, err := s.redis.Get(ctx, rowsCacheKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rows []domain.FundingRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
