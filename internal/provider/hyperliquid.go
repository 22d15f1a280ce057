package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"funding-radar/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const hyperliquidBaseURL = "https://api.hyperliquid.xyz"

// HyperliquidAdapter reads Hyperliquid's info endpoint. The venue quotes
// funding as an hourly fraction, so rates pass through unconverted.
type HyperliquidAdapter struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
}

func NewHyperliquidAdapter(tracer trace.Tracer) *HyperliquidAdapter {
	return &HyperliquidAdapter{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: hyperliquidBaseURL,
		tracer:  tracer,
	}
}

func (a *HyperliquidAdapter) Exchange() domain.Exchange { return domain.ExchangeHyperliquid }

func (a *HyperliquidAdapter) FetchLatest(ctx context.Context, ts time.Time) ([]domain.FundingObservation, error) {
	ctx, span := a.tracer.Start(ctx, "hyperliquid.fetch-latest")
	defer span.End()

	// Response is a two-element tuple: [meta, assetCtxs], joined by index.
	var tuple []json.RawMessage
	payload := map[string]string{"type": "metaAndAssetCtxs"}
	if err := postJSON(ctx, a.client, a.baseURL+"/info", payload, &tuple); err != nil {
		return nil, fmt.Errorf("hyperliquid meta: %w", err)
	}
	if len(tuple) < 2 {
		return nil, fmt.Errorf("hyperliquid meta: expected 2 elements, got %d", len(tuple))
	}

	var meta struct {
		Universe []struct {
			Name string `json:"name"`
		} `json:"universe"`
	}
	if err := json.Unmarshal(tuple[0], &meta); err != nil {
		return nil, fmt.Errorf("hyperliquid meta: %w", err)
	}
	var ctxs []struct {
		Funding json.Number `json:"funding"`
	}
	if err := json.Unmarshal(tuple[1], &ctxs); err != nil {
		return nil, fmt.Errorf("hyperliquid asset contexts: %w", err)
	}

	var obs []domain.FundingObservation
	for i, u := range meta.Universe {
		if i >= len(ctxs) {
			break
		}
		rate, err := ctxs[i].Funding.Float64()
		if err != nil {
			log.Printf("hyperliquid: dropping %s: bad funding %q", u.Name, ctxs[i].Funding)
			continue
		}
		obs = append(obs, domain.FundingObservation{
			Token:      canonicalPerpSymbol(u.Name),
			Exchange:   domain.ExchangeHyperliquid,
			Timestamp:  ts,
			HourlyRate: rate,
		})
	}
	return obs, nil
}

// FetchHistory pulls the hourly fundingHistory series for one coin.
func (a *HyperliquidAdapter) FetchHistory(ctx context.Context, token string, days int) ([]domain.TimeSeriesPoint, error) {
	ctx, span := a.tracer.Start(ctx, "hyperliquid.fetch-history")
	defer span.End()

	now := time.Now()
	payload := map[string]any{
		"type":      "fundingHistory",
		"coin":      token,
		"startTime": now.AddDate(0, 0, -days).UnixMilli(),
		"endTime":   now.UnixMilli(),
	}

	var raw []struct {
		Time        int64       `json:"time"`
		FundingRate json.Number `json:"fundingRate"`
	}
	if err := postJSON(ctx, a.client, a.baseURL+"/info", payload, &raw); err != nil {
		return nil, fmt.Errorf("hyperliquid funding history for %s: %w", token, err)
	}

	points := make([]domain.TimeSeriesPoint, 0, len(raw))
	for _, r := range raw {
		rate, err := r.FundingRate.Float64()
		if err != nil {
			continue
		}
		points = append(points, domain.TimeSeriesPoint{Time: time.UnixMilli(r.Time).UTC(), Rate: rate})
	}
	return points, nil
}
