package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"funding-radar/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const backpackBaseURL = "https://api.backpack.exchange/api/v1"

// BackpackAdapter reads Backpack, which quotes an 8-hourly funding rate;
// observations are divided by 8 to the common hourly basis.
type BackpackAdapter struct {
	client      *http.Client
	baseURL     string
	tracer      trace.Tracer
	limiter     *RateLimiter
	concurrency int
}

func NewBackpackAdapter(tracer trace.Tracer, concurrency int) *BackpackAdapter {
	return &BackpackAdapter{
		client:      &http.Client{Timeout: 15 * time.Second},
		baseURL:     backpackBaseURL,
		tracer:      tracer,
		limiter:     NewRateLimiter(10, 100*time.Millisecond),
		concurrency: concurrency,
	}
}

func (a *BackpackAdapter) Exchange() domain.Exchange { return domain.ExchangeBackpack }

func (a *BackpackAdapter) FetchLatest(ctx context.Context, ts time.Time) ([]domain.FundingObservation, error) {
	ctx, span := a.tracer.Start(ctx, "backpack.fetch-latest")
	defer span.End()

	var markets []struct {
		Symbol     string `json:"symbol"`
		BaseSymbol string `json:"baseSymbol"`
		MarketType string `json:"marketType"`
	}
	if err := getJSON(ctx, a.client, a.baseURL+"/markets", &markets); err != nil {
		return nil, fmt.Errorf("backpack markets: %w", err)
	}

	type perp struct{ symbol, base string }
	var perps []perp
	for _, m := range markets {
		if m.MarketType == "PERP" {
			perps = append(perps, perp{symbol: m.Symbol, base: m.BaseSymbol})
		}
	}

	var mu sync.Mutex
	var obs []domain.FundingObservation
	boundedEach(ctx, perps, a.concurrency, func(ctx context.Context, p perp) {
		if err := a.limiter.Wait(ctx); err != nil {
			return
		}
		var rates []struct {
			FundingRate json.Number `json:"fundingRate"`
		}
		endpoint := a.baseURL + "/fundingRates?symbol=" + url.QueryEscape(p.symbol) + "&limit=1"
		if err := getJSON(ctx, a.client, endpoint, &rates); err != nil {
			log.Printf("backpack: skipping %s: %v", p.symbol, err)
			return
		}
		if len(rates) == 0 {
			return
		}
		native, err := rates[0].FundingRate.Float64()
		if err != nil {
			log.Printf("backpack: dropping %s: bad funding rate %q", p.symbol, rates[0].FundingRate)
			return
		}
		o := domain.FundingObservation{
			Token:      strings.ToUpper(p.base),
			Exchange:   domain.ExchangeBackpack,
			Timestamp:  ts,
			HourlyRate: native / 8,
		}
		mu.Lock()
		obs = append(obs, o)
		mu.Unlock()
	})
	return obs, nil
}
