package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"funding-radar/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const vestBaseURL = "https://serverprod.vest.exchange/v2"

// vestHistoryChunk is the provider-side page cap on funding/history.
const vestHistoryChunk = 1000

// VestAdapter reads Vest, which quotes funding directly as an hourly rate.
type VestAdapter struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
}

func NewVestAdapter(tracer trace.Tracer) *VestAdapter {
	return &VestAdapter{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: vestBaseURL,
		tracer:  tracer,
	}
}

func (a *VestAdapter) Exchange() domain.Exchange { return domain.ExchangeVest }

func (a *VestAdapter) FetchLatest(ctx context.Context, ts time.Time) ([]domain.FundingObservation, error) {
	ctx, span := a.tracer.Start(ctx, "vest.fetch-latest")
	defer span.End()

	var raw struct {
		Tickers []struct {
			Symbol           string      `json:"symbol"`
			OneHrFundingRate json.Number `json:"oneHrFundingRate"`
		} `json:"tickers"`
	}
	if err := getJSON(ctx, a.client, a.baseURL+"/ticker/latest", &raw); err != nil {
		return nil, fmt.Errorf("vest tickers: %w", err)
	}

	obs := make([]domain.FundingObservation, 0, len(raw.Tickers))
	for _, t := range raw.Tickers {
		rate, err := t.OneHrFundingRate.Float64()
		if err != nil {
			log.Printf("vest: dropping %s: bad funding rate %q", t.Symbol, t.OneHrFundingRate)
			continue
		}
		obs = append(obs, domain.FundingObservation{
			Token:      canonicalPerpSymbol(t.Symbol),
			Exchange:   domain.ExchangeVest,
			Timestamp:  ts,
			HourlyRate: rate,
		})
	}
	return obs, nil
}

// FetchHistory pulls hourly funding points for the trailing window, chunked
// to respect the provider's page cap. Points come back already hourly.
func (a *VestAdapter) FetchHistory(ctx context.Context, token string, days int) ([]domain.TimeSeriesPoint, error) {
	ctx, span := a.tracer.Start(ctx, "vest.fetch-history")
	defer span.End()

	symbol := token + "-PERP"
	totalHours := days * 24
	cursor := time.Now().Add(-time.Duration(totalHours) * time.Hour)

	var points []domain.TimeSeriesPoint
	hoursLeft := totalHours
	for hoursLeft > 0 {
		chunk := hoursLeft
		if chunk > vestHistoryChunk {
			chunk = vestHistoryChunk
		}

		q := url.Values{}
		q.Set("symbol", symbol)
		q.Set("startTime", strconv.FormatInt(cursor.UnixMilli(), 10))
		q.Set("endTime", strconv.FormatInt(cursor.Add(time.Duration(chunk)*time.Hour).UnixMilli(), 10))
		q.Set("interval", "1h")
		q.Set("limit", strconv.Itoa(chunk))

		var raw []struct {
			Time             flexTime    `json:"time"`
			OneHrFundingRate json.Number `json:"oneHrFundingRate"`
		}
		if err := getJSON(ctx, a.client, a.baseURL+"/funding/history?"+q.Encode(), &raw); err != nil {
			return points, fmt.Errorf("vest funding history for %s: %w", symbol, err)
		}
		if len(raw) == 0 {
			break
		}

		for _, r := range raw {
			rate, err := r.OneHrFundingRate.Float64()
			if err != nil || r.Time.IsZero() {
				continue
			}
			points = append(points, domain.TimeSeriesPoint{Time: r.Time.Time(), Rate: rate})
		}

		// Advance past the last returned point to avoid refetching it.
		cursor = raw[len(raw)-1].Time.Time().Add(time.Millisecond)
		hoursLeft -= len(raw)
		if len(raw) < chunk {
			break
		}
	}
	return points, nil
}

// flexTime accepts either an ISO-8601 string or a unix-milliseconds number,
// both of which Vest has been observed to return.
type flexTime struct {
	t time.Time
}

func (f *flexTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil // unparsable timestamp: leave zero, caller drops the record
		}
		f.t = parsed.UTC()
		return nil
	}
	var ms int64
	if err := json.Unmarshal(data, &ms); err != nil {
		return nil
	}
	f.t = time.UnixMilli(ms).UTC()
	return nil
}

func (f flexTime) Time() time.Time { return f.t }
func (f flexTime) IsZero() bool    { return f.t.IsZero() }
