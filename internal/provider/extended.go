package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"funding-radar/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const extendedBaseURL = "https://api.extended.exchange/api/v1"

const extendedHistoryPage = 10000

// ExtendedAdapter reads Extended, whose marketStats.fundingRate is already
// an hourly fraction.
type ExtendedAdapter struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
}

func NewExtendedAdapter(tracer trace.Tracer) *ExtendedAdapter {
	return &ExtendedAdapter{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: extendedBaseURL,
		tracer:  tracer,
	}
}

func (a *ExtendedAdapter) Exchange() domain.Exchange { return domain.ExchangeExtended }

func (a *ExtendedAdapter) FetchLatest(ctx context.Context, ts time.Time) ([]domain.FundingObservation, error) {
	ctx, span := a.tracer.Start(ctx, "extended.fetch-latest")
	defer span.End()

	var raw struct {
		Status string `json:"status"`
		Data   []struct {
			Name        string `json:"name"`
			Status      string `json:"status"`
			MarketStats struct {
				FundingRate json.Number `json:"fundingRate"`
			} `json:"marketStats"`
		} `json:"data"`
	}
	if err := getJSON(ctx, a.client, a.baseURL+"/info/markets", &raw); err != nil {
		return nil, fmt.Errorf("extended markets: %w", err)
	}
	if raw.Status != "OK" {
		return nil, fmt.Errorf("extended markets: status %q", raw.Status)
	}

	var obs []domain.FundingObservation
	for _, m := range raw.Data {
		if m.Status != "ACTIVE" || m.Name == "" {
			continue
		}
		rate, err := m.MarketStats.FundingRate.Float64()
		if err != nil {
			log.Printf("extended: dropping %s: bad funding rate %q", m.Name, m.MarketStats.FundingRate)
			continue
		}
		obs = append(obs, domain.FundingObservation{
			Token:      canonicalPerpSymbol(m.Name),
			Exchange:   domain.ExchangeExtended,
			Timestamp:  ts,
			HourlyRate: rate,
		})
	}
	return obs, nil
}

// FetchHistory pages through the market's funding endpoint with the cursor
// the provider hands back.
func (a *ExtendedAdapter) FetchHistory(ctx context.Context, token string, days int) ([]domain.TimeSeriesPoint, error) {
	ctx, span := a.tracer.Start(ctx, "extended.fetch-history")
	defer span.End()

	market := token + "-USD"
	now := time.Now()
	start := now.AddDate(0, 0, -days)

	var points []domain.TimeSeriesPoint
	cursor := ""
	for {
		q := url.Values{}
		q.Set("startTime", strconv.FormatInt(start.UnixMilli(), 10))
		q.Set("endTime", strconv.FormatInt(now.UnixMilli(), 10))
		q.Set("limit", strconv.Itoa(extendedHistoryPage))
		if cursor != "" {
			q.Set("cursor", cursor)
		}

		var raw struct {
			Status string `json:"status"`
			Data   []struct {
				T int64       `json:"T"`
				F json.Number `json:"f"`
			} `json:"data"`
			Pagination struct {
				Cursor json.Number `json:"cursor"`
			} `json:"pagination"`
		}
		endpoint := a.baseURL + "/info/" + url.PathEscape(market) + "/funding?" + q.Encode()
		if err := getJSON(ctx, a.client, endpoint, &raw); err != nil {
			return points, fmt.Errorf("extended funding history for %s: %w", market, err)
		}
		if raw.Status != "OK" || len(raw.Data) == 0 {
			break
		}

		for _, r := range raw.Data {
			rate, err := r.F.Float64()
			if err != nil {
				continue
			}
			points = append(points, domain.TimeSeriesPoint{Time: time.UnixMilli(r.T).UTC(), Rate: rate})
		}

		cursor = strings.TrimSpace(raw.Pagination.Cursor.String())
		if cursor == "" || cursor == "0" || len(raw.Data) < extendedHistoryPage {
			break
		}
	}
	return points, nil
}
