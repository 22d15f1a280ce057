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

const hibachiBaseURL = "https://data-api.hibachi.xyz"

// HibachiAdapter reads Hibachi, whose estimated funding rate is 8-hourly.
type HibachiAdapter struct {
	client      *http.Client
	baseURL     string
	tracer      trace.Tracer
	limiter     *RateLimiter
	concurrency int
}

func NewHibachiAdapter(tracer trace.Tracer, concurrency int) *HibachiAdapter {
	return &HibachiAdapter{
		client:      &http.Client{Timeout: 15 * time.Second},
		baseURL:     hibachiBaseURL,
		tracer:      tracer,
		limiter:     NewRateLimiter(10, 100*time.Millisecond),
		concurrency: concurrency,
	}
}

func (a *HibachiAdapter) Exchange() domain.Exchange { return domain.ExchangeHibachi }

func (a *HibachiAdapter) FetchLatest(ctx context.Context, ts time.Time) ([]domain.FundingObservation, error) {
	ctx, span := a.tracer.Start(ctx, "hibachi.fetch-latest")
	defer span.End()

	var info struct {
		FutureContracts []struct {
			Symbol           string `json:"symbol"`
			UnderlyingSymbol string `json:"underlyingSymbol"`
			Status           string `json:"status"`
		} `json:"futureContracts"`
	}
	if err := getJSON(ctx, a.client, a.baseURL+"/market/exchange-info", &info); err != nil {
		return nil, fmt.Errorf("hibachi exchange info: %w", err)
	}

	type contract struct{ symbol, underlying string }
	var live []contract
	for _, c := range info.FutureContracts {
		if c.Status == "LIVE" {
			live = append(live, contract{symbol: c.Symbol, underlying: c.UnderlyingSymbol})
		}
	}

	var mu sync.Mutex
	var obs []domain.FundingObservation
	boundedEach(ctx, live, a.concurrency, func(ctx context.Context, c contract) {
		if err := a.limiter.Wait(ctx); err != nil {
			return
		}
		var prices struct {
			FundingRateEstimation *struct {
				EstimatedFundingRate json.Number `json:"estimatedFundingRate"`
			} `json:"fundingRateEstimation"`
		}
		endpoint := a.baseURL + "/market/data/prices?symbol=" + url.QueryEscape(c.symbol)
		if err := getJSON(ctx, a.client, endpoint, &prices); err != nil {
			log.Printf("hibachi: skipping %s: %v", c.symbol, err)
			return
		}
		if prices.FundingRateEstimation == nil {
			return
		}
		native, err := prices.FundingRateEstimation.EstimatedFundingRate.Float64()
		if err != nil {
			log.Printf("hibachi: dropping %s: bad funding rate %q", c.symbol, prices.FundingRateEstimation.EstimatedFundingRate)
			return
		}
		o := domain.FundingObservation{
			Token:      strings.ToUpper(c.underlying),
			Exchange:   domain.ExchangeHibachi,
			Timestamp:  ts,
			HourlyRate: native / 8,
		}
		mu.Lock()
		obs = append(obs, o)
		mu.Unlock()
	})
	return obs, nil
}
