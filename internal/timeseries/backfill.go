package timeseries

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"funding-radar/internal/domain"
	"funding-radar/internal/provider"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// defaultBackfillDays is the window fetched for a partition with no stored
// history yet.
const defaultBackfillDays = 30

// Backfiller tops partitions up to the present using the venues that expose
// usable funding history. Fetch windows deliberately overlap stored data; the
// store's dedup-on-write makes the overlap harmless.
type Backfiller struct {
	store    *Store
	adapters map[domain.Exchange]provider.HistoryAdapter
	tracer   trace.Tracer
	now      func() time.Time
}

func NewBackfiller(store *Store, adapters []provider.HistoryAdapter, tracer trace.Tracer) *Backfiller {
	byExchange := make(map[domain.Exchange]provider.HistoryAdapter, len(adapters))
	for _, a := range adapters {
		byExchange[a.Exchange()] = a
	}
	return &Backfiller{
		store:    store,
		adapters: byExchange,
		tracer:   tracer,
		now:      time.Now,
	}
}

// windowDays is the number of trailing days to fetch given the partition's
// newest stored timestamp. The elapsed gap is rounded up to whole days, then
// padded by two so a fetch always reaches past the stored tail even with
// provider-side lag.
func (b *Backfiller) windowDays(last time.Time) int {
	if last.IsZero() {
		return defaultBackfillDays
	}
	elapsed := b.now().Sub(last)
	if elapsed <= 0 {
		return 2
	}
	return int(math.Ceil(elapsed.Hours()/24)) + 2
}

// BackfillPartition brings one (token, exchange) partition up to date and
// returns the number of genuinely new points written.
func (b *Backfiller) BackfillPartition(ctx context.Context, token string, ex domain.Exchange) (int, error) {
	adapter, ok := b.adapters[ex]
	if !ok {
		return 0, fmt.Errorf("no history source for %s", ex)
	}

	ctx, span := b.tracer.Start(ctx, "backfill.partition",
		trace.WithAttributes(
			attribute.String("token", token),
			attribute.String("exchange", string(ex)),
		))
	defer span.End()

	last, err := b.store.LastTimestamp(token, ex)
	if err != nil {
		return 0, fmt.Errorf("last timestamp for %s-%s: %w", token, ex, err)
	}
	days := b.windowDays(last)

	points, err := adapter.FetchHistory(ctx, token, days)
	if err != nil {
		return 0, fmt.Errorf("fetch %d days for %s-%s: %w", days, token, ex, err)
	}
	written, err := b.store.Append(token, ex, points)
	if err != nil {
		return 0, fmt.Errorf("store %s-%s: %w", token, ex, err)
	}
	span.SetAttributes(attribute.Int("backfill.written", written))
	return written, nil
}

// BackfillToken runs every history-capable venue for one token. Per-venue
// failures are logged and skipped; the returned count covers the venues that
// succeeded.
func (b *Backfiller) BackfillToken(ctx context.Context, token string) int {
	total := 0
	for _, ex := range domain.HistoryExchanges {
		if _, ok := b.adapters[ex]; !ok {
			continue
		}
		n, err := b.BackfillPartition(ctx, token, ex)
		if err != nil {
			log.Printf("backfill: %s on %s: %v", token, ex, err)
			continue
		}
		total += n
	}
	return total
}
