package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"funding-radar/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const orderlyBaseURL = "https://api.orderly.org/v1"

// OrderlyAdapter reads Orderly's public funding rates, quoted 8-hourly.
type OrderlyAdapter struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
}

func NewOrderlyAdapter(tracer trace.Tracer) *OrderlyAdapter {
	return &OrderlyAdapter{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: orderlyBaseURL,
		tracer:  tracer,
	}
}

func (a *OrderlyAdapter) Exchange() domain.Exchange { return domain.ExchangeOrderly }

func (a *OrderlyAdapter) FetchLatest(ctx context.Context, ts time.Time) ([]domain.FundingObservation, error) {
	ctx, span := a.tracer.Start(ctx, "orderly.fetch-latest")
	defer span.End()

	var raw struct {
		Data struct {
			Rows []struct {
				Symbol         string      `json:"symbol"`
				EstFundingRate json.Number `json:"est_funding_rate"`
			} `json:"rows"`
		} `json:"data"`
	}
	if err := getJSON(ctx, a.client, a.baseURL+"/public/funding_rates", &raw); err != nil {
		return nil, fmt.Errorf("orderly funding rates: %w", err)
	}

	var obs []domain.FundingObservation
	for _, row := range raw.Data.Rows {
		if !strings.HasPrefix(row.Symbol, "PERP_") || !strings.HasSuffix(row.Symbol, "_USDC") {
			continue
		}
		native, err := row.EstFundingRate.Float64()
		if err != nil {
			log.Printf("orderly: dropping %s: bad funding rate %q", row.Symbol, row.EstFundingRate)
			continue
		}
		obs = append(obs, domain.FundingObservation{
			Token:      canonicalOrderlySymbol(row.Symbol),
			Exchange:   domain.ExchangeOrderly,
			Timestamp:  ts,
			HourlyRate: native / 8,
		})
	}
	return obs, nil
}
