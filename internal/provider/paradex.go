package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"funding-radar/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const paradexBaseURL = "https://api.prod.paradex.trade/v1"

// ParadexAdapter reads Paradex, which exposes a continuously-accruing
// cumulative funding index instead of a discrete periodic rate. The hourly
// rate is recovered as the index delta over one hour divided by the mean mark
// price over that hour. The index delta is the authoritative conversion for
// this venue; the 8h-rate field on funding/data is not used.
type ParadexAdapter struct {
	client      *http.Client
	baseURL     string
	tracer      trace.Tracer
	limiter     *RateLimiter
	concurrency int
}

func NewParadexAdapter(tracer trace.Tracer, concurrency int) *ParadexAdapter {
	return &ParadexAdapter{
		client:      &http.Client{Timeout: 20 * time.Second},
		baseURL:     paradexBaseURL,
		tracer:      tracer,
		limiter:     NewRateLimiter(5, 200*time.Millisecond),
		concurrency: concurrency,
	}
}

func (a *ParadexAdapter) Exchange() domain.Exchange { return domain.ExchangeParadex }

func (a *ParadexAdapter) FetchLatest(ctx context.Context, ts time.Time) ([]domain.FundingObservation, error) {
	ctx, span := a.tracer.Start(ctx, "paradex.fetch-latest")
	defer span.End()

	markets, err := a.perpMarkets(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	hourAgo := now.Add(-time.Hour)

	var mu sync.Mutex
	var obs []domain.FundingObservation
	boundedEach(ctx, markets, a.concurrency, func(ctx context.Context, market string) {
		rate, err := a.hourlyRate(ctx, market, hourAgo, now)
		if err != nil {
			log.Printf("paradex: skipping %s: %v", market, err)
			return
		}
		o := domain.FundingObservation{
			Token:      canonicalPerpSymbol(market),
			Exchange:   domain.ExchangeParadex,
			Timestamp:  ts,
			HourlyRate: rate,
		}
		mu.Lock()
		obs = append(obs, o)
		mu.Unlock()
	})
	return obs, nil
}

// hourlyRate computes (index(to) − index(from)) / meanMarkPrice(from, to).
func (a *ParadexAdapter) hourlyRate(ctx context.Context, market string, from, to time.Time) (float64, error) {
	current, err := a.fundingIndexAt(ctx, market, to)
	if err != nil {
		return 0, err
	}
	past, err := a.fundingIndexAt(ctx, market, from)
	if err != nil {
		return 0, err
	}
	price, err := a.meanMarkPrice(ctx, market, from, to)
	if err != nil {
		return 0, err
	}
	if price <= 0 {
		return 0, fmt.Errorf("non-positive mean mark price %v", price)
	}
	return (current - past) / price, nil
}

func (a *ParadexAdapter) perpMarkets(ctx context.Context) ([]string, error) {
	var raw struct {
		Results []struct {
			Symbol    string `json:"symbol"`
			AssetKind string `json:"asset_kind"`
		} `json:"results"`
	}
	if err := getJSON(ctx, a.client, a.baseURL+"/markets", &raw); err != nil {
		return nil, fmt.Errorf("paradex markets: %w", err)
	}
	var markets []string
	for _, m := range raw.Results {
		if m.AssetKind == "PERP" {
			markets = append(markets, m.Symbol)
		}
	}
	return markets, nil
}

// fundingIndexAt samples the cumulative funding index at or before ts.
func (a *ParadexAdapter) fundingIndexAt(ctx context.Context, market string, ts time.Time) (float64, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	q := url.Values{}
	q.Set("market", market)
	q.Set("end_at", strconv.FormatInt(ts.UnixMilli(), 10))
	q.Set("page_size", "1")

	var raw struct {
		Results []struct {
			FundingIndex json.Number `json:"funding_index"`
		} `json:"results"`
	}
	if err := getJSON(ctx, a.client, a.baseURL+"/funding/data?"+q.Encode(), &raw); err != nil {
		return 0, fmt.Errorf("funding index: %w", err)
	}
	if len(raw.Results) == 0 {
		return 0, fmt.Errorf("no funding index at %s", ts.UTC().Format(time.RFC3339))
	}
	idx, err := raw.Results[0].FundingIndex.Float64()
	if err != nil {
		return 0, fmt.Errorf("bad funding index %q", raw.Results[0].FundingIndex)
	}
	return idx, nil
}

// meanMarkPrice averages (open+close)/2 over the hourly mark-price klines in
// [from, to].
func (a *ParadexAdapter) meanMarkPrice(ctx context.Context, market string, from, to time.Time) (float64, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	q := url.Values{}
	q.Set("symbol", market)
	q.Set("start_at", strconv.FormatInt(from.UnixMilli(), 10))
	q.Set("end_at", strconv.FormatInt(to.UnixMilli(), 10))
	q.Set("resolution", "60")
	q.Set("price_kind", "mark")

	var raw struct {
		Results [][]json.Number `json:"results"`
	}
	if err := getJSON(ctx, a.client, a.baseURL+"/markets/klines?"+q.Encode(), &raw); err != nil {
		return 0, fmt.Errorf("klines: %w", err)
	}

	sum, n := 0.0, 0
	for _, ohlc := range raw.Results {
		if len(ohlc) < 5 {
			continue
		}
		open, err1 := ohlc[1].Float64()
		clos, err2 := ohlc[4].Float64()
		if err1 != nil || err2 != nil {
			continue
		}
		sum += (open + clos) / 2
		n++
	}
	if n == 0 {
		return 0, fmt.Errorf("no klines in window")
	}
	return sum / float64(n), nil
}

// FetchHistory recovers one daily point per UTC midnight: the index delta
// across the day divided by (mean mark price · 24), i.e. the day's average
// hourly rate stamped at the day start.
func (a *ParadexAdapter) FetchHistory(ctx context.Context, token string, days int) ([]domain.TimeSeriesPoint, error) {
	ctx, span := a.tracer.Start(ctx, "paradex.fetch-history")
	defer span.End()

	market := token + "-USD-PERP"
	midnights := dailyMidnights(days)

	indexes := make([]*float64, len(midnights))
	for i, ts := range midnights {
		idx, err := a.fundingIndexAt(ctx, market, ts)
		if err != nil {
			log.Printf("paradex history: %s at %s: %v", market, ts.Format("2006-01-02"), err)
			continue
		}
		v := idx
		indexes[i] = &v
	}

	var points []domain.TimeSeriesPoint
	for i := 1; i < len(midnights); i++ {
		if indexes[i-1] == nil || indexes[i] == nil {
			continue
		}
		dayStart := midnights[i-1]
		price, err := a.meanMarkPrice(ctx, market, dayStart, dayStart.Add(24*time.Hour))
		if err != nil {
			log.Printf("paradex history: %s mark price on %s: %v", market, dayStart.Format("2006-01-02"), err)
			continue
		}
		delta := *indexes[i] - *indexes[i-1]
		points = append(points, domain.TimeSeriesPoint{
			Time: dayStart,
			Rate: delta / (price * 24),
		})
	}
	return points, nil
}

// dailyMidnights returns the last days+1 UTC midnights ascending, ending at
// today 00:00.
func dailyMidnights(days int) []time.Time {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	out := make([]time.Time, 0, days+1)
	for i := days; i >= 0; i-- {
		out = append(out, today.AddDate(0, 0, -i))
	}
	return out
}
