package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"funding-radar/internal/domain"
)

// Adapter converts one exchange's wire format into normalized observations.
// FetchLatest returns the current funding rate for every active perp market,
// already converted to an hourly fraction and stamped with the caller's cycle
// timestamp, so every venue in one cycle lands in the same snapshot hour. A
// single market's failure is logged and the market omitted; a total endpoint
// failure returns an empty slice and an error.
type Adapter interface {
	Exchange() domain.Exchange
	FetchLatest(ctx context.Context, ts time.Time) ([]domain.FundingObservation, error)
}

// HistoryAdapter fetches historical hourly (or daily, for index-based venues)
// funding points for one token over the trailing window.
type HistoryAdapter interface {
	Exchange() domain.Exchange
	FetchHistory(ctx context.Context, token string, days int) ([]domain.TimeSeriesPoint, error)
}

const defaultMarketConcurrency = 8

// getJSON performs a GET and decodes the JSON response into out.
func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	return doJSON(client, req, out)
}

// postJSON performs a POST with a JSON body and decodes the response into out.
func postJSON(ctx context.Context, client *http.Client, url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return doJSON(client, req, out)
}

func doJSON(client *http.Client, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Host, resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// boundedEach runs fn for every item with at most limit concurrent calls.
// Errors are the callback's concern: a failed item degrades to no output,
// never aborts the batch.
func boundedEach[T any](ctx context.Context, items []T, limit int, fn func(context.Context, T)) {
	if limit <= 0 {
		limit = defaultMarketConcurrency
	}
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	for _, item := range items {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(it T) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(ctx, it)
		}(item)
	}
	wg.Wait()
}
