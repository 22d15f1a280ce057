package collector

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"funding-radar/internal/domain"
	"funding-radar/internal/provider"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultAdapterTimeout = 10 * time.Second
	defaultAttempts       = 2
	retryBackoff          = 500 * time.Millisecond
)

// Collector fans one collection cycle out across every registered adapter.
// Adapters run in parallel under their own deadline; a failing venue degrades
// to missing data for that cycle instead of failing the cycle.
type Collector struct {
	adapters []provider.Adapter
	timeout  time.Duration
	attempts int
	tracer   trace.Tracer
}

func New(adapters []provider.Adapter, timeout time.Duration, tracer trace.Tracer) *Collector {
	if timeout <= 0 {
		timeout = defaultAdapterTimeout
	}
	return &Collector{
		adapters: adapters,
		timeout:  timeout,
		attempts: defaultAttempts,
		tracer:   tracer,
	}
}

// Collect runs one full cycle and returns every observation the venues
// produced, stamped with a shared hour-truncated timestamp. The error list is
// carried in Stats; Collect itself only fails when ctx is done before any
// adapter finishes.
func (c *Collector) Collect(ctx context.Context) domain.CycleResult {
	ctx, span := c.tracer.Start(ctx, "collector.collect")
	defer span.End()

	// One timestamp for the whole cycle, even when fetches straddle an hour
	// boundary.
	ts := time.Now().UTC().Truncate(time.Hour)

	type outcome struct {
		exchange domain.Exchange
		obs      []domain.FundingObservation
		err      error
	}

	results := make(chan outcome, len(c.adapters))
	var wg sync.WaitGroup
	for _, a := range c.adapters {
		wg.Add(1)
		go func(a provider.Adapter) {
			defer wg.Done()
			obs, err := c.fetchWithRetry(ctx, a, ts)
			results <- outcome{exchange: a.Exchange(), obs: obs, err: err}
		}(a)
	}
	wg.Wait()
	close(results)

	res := domain.CycleResult{Timestamp: ts}
	for out := range results {
		stat := domain.AdapterStats{Exchange: out.exchange, Observations: len(out.obs)}
		if out.err != nil {
			stat.Error = out.err.Error()
			log.Printf("collector: %s failed: %v", out.exchange, out.err)
		}
		res.Observations = append(res.Observations, out.obs...)
		res.Stats = append(res.Stats, stat)
	}
	sort.Slice(res.Stats, func(i, j int) bool {
		return res.Stats[i].Exchange < res.Stats[j].Exchange
	})

	span.SetAttributes(
		attribute.Int("collector.observations", len(res.Observations)),
		attribute.Int("collector.adapters", len(c.adapters)),
	)
	return res
}

func (c *Collector) fetchWithRetry(ctx context.Context, a provider.Adapter, ts time.Time) ([]domain.FundingObservation, error) {
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		obs, err := a.FetchLatest(attemptCtx, ts)
		cancel()
		if err == nil {
			return obs, nil
		}
		lastErr = err
		if attempt < c.attempts {
			backoff := time.Duration(attempt) * retryBackoff
			log.Printf("collector: %s attempt %d failed, retrying in %s: %v", a.Exchange(), attempt, backoff, err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return nil, lastErr
}
