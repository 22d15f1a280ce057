package provider

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"funding-radar/internal/domain"

	"go.opentelemetry.io/otel"
)

type roundTripFunc func(req *http.Request) *http.Response

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req), nil
}

func fakeClient(fn roundTripFunc) *http.Client {
	return &http.Client{Transport: fn}
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

var testTracer = otel.Tracer("provider-test")

var testCycle = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

func TestVestFetchLatest(t *testing.T) {
	client := fakeClient(func(req *http.Request) *http.Response {
		if req.URL.Path != "/ticker/latest" {
			t.Fatalf("unexpected path %s", req.URL.Path)
		}
		return jsonResponse(200, `{"tickers":[
			{"symbol":"BTC-PERP","oneHrFundingRate":"0.0000125"},
			{"symbol":"ETH-PERP","oneHrFundingRate":"-0.00002"},
			{"symbol":"BAD-PERP","oneHrFundingRate":"nope"}
		]}`)
	})
	a := &VestAdapter{client: client, baseURL: "http://vest", tracer: testTracer}

	obs, err := a.FetchLatest(context.Background(), testCycle)
	if err != nil {
		t.Fatalf("FetchLatest: %v", err)
	}
	if len(obs) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(obs))
	}
	if obs[0].Token != "BTC" || obs[0].HourlyRate != 0.0000125 {
		t.Errorf("unexpected first observation: %+v", obs[0])
	}
	if obs[0].Exchange != domain.ExchangeVest || !obs[0].Timestamp.Equal(testCycle) {
		t.Errorf("bad exchange/timestamp: %+v", obs[0])
	}
	if obs[1].Token != "ETH" || obs[1].HourlyRate != -0.00002 {
		t.Errorf("unexpected second observation: %+v", obs[1])
	}
}

func TestVestFetchHistory(t *testing.T) {
	calls := 0
	client := fakeClient(func(req *http.Request) *http.Response {
		calls++
		if req.URL.Path != "/funding/history" {
			t.Fatalf("unexpected path %s", req.URL.Path)
		}
		if got := req.URL.Query().Get("symbol"); got != "BTC-PERP" {
			t.Fatalf("unexpected symbol %q", got)
		}
		if calls > 1 {
			return jsonResponse(200, `[]`)
		}
		return jsonResponse(200, `[
			{"time":"2026-08-27T00:00:00Z","oneHrFundingRate":"0.00001"},
			{"time":1756257600000,"oneHrFundingRate":"0.00002"}
		]`)
	})
	a := &VestAdapter{client: client, baseURL: "http://vest", tracer: testTracer}

	points, err := a.FetchHistory(context.Background(), "BTC", 2)
	if err != nil {
		t.Fatalf("FetchHistory: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[0].Rate != 0.00001 || points[1].Rate != 0.00002 {
		t.Errorf("unexpected rates: %+v", points)
	}
	// Both the ISO and the unix-millis timestamp form must parse.
	if points[0].Time.IsZero() || points[1].Time.IsZero() {
		t.Errorf("unparsed timestamps: %+v", points)
	}
}

func TestExtendedFetchLatestFiltersInactive(t *testing.T) {
	client := fakeClient(func(req *http.Request) *http.Response {
		return jsonResponse(200, `{"status":"OK","data":[
			{"name":"BTC-USD","status":"ACTIVE","marketStats":{"fundingRate":"0.000013"}},
			{"name":"OLD-USD","status":"DELISTED","marketStats":{"fundingRate":"0.5"}}
		]}`)
	})
	a := &ExtendedAdapter{client: client, baseURL: "http://ext", tracer: testTracer}

	obs, err := a.FetchLatest(context.Background(), testCycle)
	if err != nil {
		t.Fatalf("FetchLatest: %v", err)
	}
	if len(obs) != 1 {
		t.Fatalf("expected 1 observation, got %d", len(obs))
	}
	if obs[0].Token != "BTC" || obs[0].HourlyRate != 0.000013 {
		t.Errorf("unexpected observation: %+v", obs[0])
	}
}

func TestExtendedFetchLatestBadStatus(t *testing.T) {
	client := fakeClient(func(req *http.Request) *http.Response {
		return jsonResponse(200, `{"status":"ERROR","data":[]}`)
	})
	a := &ExtendedAdapter{client: client, baseURL: "http://ext", tracer: testTracer}
	if _, err := a.FetchLatest(context.Background(), testCycle); err == nil {
		t.Fatal("expected error for non-OK status")
	}
}

func TestHyperliquidFetchLatestJoinsByIndex(t *testing.T) {
	client := fakeClient(func(req *http.Request) *http.Response {
		if req.Method != http.MethodPost || req.URL.Path != "/info" {
			t.Fatalf("unexpected request %s %s", req.Method, req.URL.Path)
		}
		return jsonResponse(200, `[
			{"universe":[{"name":"BTC"},{"name":"kPEPE"}]},
			[{"funding":"0.0000125"},{"funding":"-0.00003"}]
		]`)
	})
	a := &HyperliquidAdapter{client: client, baseURL: "http://hl", tracer: testTracer}

	obs, err := a.FetchLatest(context.Background(), testCycle)
	if err != nil {
		t.Fatalf("FetchLatest: %v", err)
	}
	if len(obs) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(obs))
	}
	if obs[0].Token != "BTC" || obs[0].HourlyRate != 0.0000125 {
		t.Errorf("unexpected first observation: %+v", obs[0])
	}
	if obs[1].Token != "KPEPE" || obs[1].HourlyRate != -0.00003 {
		t.Errorf("unexpected second observation: %+v", obs[1])
	}
}

func TestOrderlyFetchLatestConvertsEightHourly(t *testing.T) {
	client := fakeClient(func(req *http.Request) *http.Response {
		return jsonResponse(200, `{"data":{"rows":[
			{"symbol":"PERP_BTC_USDC","est_funding_rate":"0.0008"},
			{"symbol":"PERP_1000PEPE_USDC","est_funding_rate":"-0.0016"},
			{"symbol":"SPOT_ETH_USDC","est_funding_rate":"0.1"}
		]}}`)
	})
	a := &OrderlyAdapter{client: client, baseURL: "http://orderly", tracer: testTracer}

	obs, err := a.FetchLatest(context.Background(), testCycle)
	if err != nil {
		t.Fatalf("FetchLatest: %v", err)
	}
	if len(obs) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(obs))
	}
	if obs[0].Token != "BTC" || obs[0].HourlyRate != 0.0001 {
		t.Errorf("8h rate not divided down: %+v", obs[0])
	}
	if obs[1].Token != "PEPE" || obs[1].HourlyRate != -0.0002 {
		t.Errorf("unexpected second observation: %+v", obs[1])
	}
}

func TestBackpackFetchLatestConvertsEightHourly(t *testing.T) {
	client := fakeClient(func(req *http.Request) *http.Response {
		switch req.URL.Path {
		case "/markets":
			return jsonResponse(200, `[
				{"symbol":"BTC_USDC_PERP","baseSymbol":"BTC","marketType":"PERP"},
				{"symbol":"SOL_USDC","baseSymbol":"SOL","marketType":"SPOT"}
			]`)
		case "/fundingRates":
			if got := req.URL.Query().Get("symbol"); got != "BTC_USDC_PERP" {
				t.Fatalf("unexpected symbol %q", got)
			}
			return jsonResponse(200, `[{"fundingRate":"0.0008"}]`)
		default:
			t.Fatalf("unexpected path %s", req.URL.Path)
			return nil
		}
	})
	a := &BackpackAdapter{
		client:      client,
		baseURL:     "http://bp",
		tracer:      testTracer,
		limiter:     NewRateLimiter(100, time.Millisecond),
		concurrency: 2,
	}

	obs, err := a.FetchLatest(context.Background(), testCycle)
	if err != nil {
		t.Fatalf("FetchLatest: %v", err)
	}
	if len(obs) != 1 {
		t.Fatalf("expected 1 observation, got %d", len(obs))
	}
	if obs[0].Token != "BTC" || obs[0].HourlyRate != 0.0001 {
		t.Errorf("8h rate not divided down: %+v", obs[0])
	}
}

func TestHibachiFetchLatestConvertsEightHourly(t *testing.T) {
	client := fakeClient(func(req *http.Request) *http.Response {
		switch req.URL.Path {
		case "/market/exchange-info":
			return jsonResponse(200, `{"futureContracts":[
				{"symbol":"BTC/USDT-P","underlyingSymbol":"BTC","status":"LIVE"},
				{"symbol":"OLD/USDT-P","underlyingSymbol":"OLD","status":"DELISTED"}
			]}`)
		case "/market/data/prices":
			return jsonResponse(200, `{"fundingRateEstimation":{"estimatedFundingRate":"0.0024"}}`)
		default:
			t.Fatalf("unexpected path %s", req.URL.Path)
			return nil
		}
	})
	a := &HibachiAdapter{
		client:      client,
		baseURL:     "http://hibachi",
		tracer:      testTracer,
		limiter:     NewRateLimiter(100, time.Millisecond),
		concurrency: 2,
	}

	obs, err := a.FetchLatest(context.Background(), testCycle)
	if err != nil {
		t.Fatalf("FetchLatest: %v", err)
	}
	if len(obs) != 1 {
		t.Fatalf("expected 1 observation, got %d", len(obs))
	}
	if obs[0].Token != "BTC" || obs[0].HourlyRate != 0.0003 {
		t.Errorf("8h rate not divided down: %+v", obs[0])
	}
}

func TestParadexHourlyRateFromIndexDelta(t *testing.T) {
	to := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	from := to.Add(-time.Hour)

	client := fakeClient(func(req *http.Request) *http.Response {
		switch req.URL.Path {
		case "/funding/data":
			// The end_at cut decides which index sample comes back.
			if req.URL.Query().Get("end_at") == "" {
				t.Fatal("missing end_at")
			}
			endAt := req.URL.Query().Get("end_at")
			if endAt == strconv.FormatInt(from.UnixMilli(), 10) {
				return jsonResponse(200, `{"results":[{"funding_index":"1000.0"}]}`)
			}
			return jsonResponse(200, `{"results":[{"funding_index":"1006.0"}]}`)
		case "/markets/klines":
			return jsonResponse(200, `{"results":[
				[1756382400000,119000,120500,118500,121000],
				[1756386000000,121000,120000,118000,119000]
			]}`)
		default:
			t.Fatalf("unexpected path %s", req.URL.Path)
			return nil
		}
	})
	a := &ParadexAdapter{
		client:      client,
		baseURL:     "http://pdx",
		tracer:      testTracer,
		limiter:     NewRateLimiter(100, time.Millisecond),
		concurrency: 2,
	}

	rate, err := a.hourlyRate(context.Background(), "BTC-USD-PERP", from, to)
	if err != nil {
		t.Fatalf("hourlyRate: %v", err)
	}
	// Mean mark price: ((119000+121000)/2 + (121000+119000)/2) / 2 = 120000.
	// Index delta 6.0 over 120000 gives 0.00005/h.
	if diff := rate - 0.00005; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("expected rate 0.00005, got %v", rate)
	}
}

func TestParadexHourlyRateRejectsEmptyKlines(t *testing.T) {
	client := fakeClient(func(req *http.Request) *http.Response {
		switch req.URL.Path {
		case "/funding/data":
			return jsonResponse(200, `{"results":[{"funding_index":"1.0"}]}`)
		default:
			return jsonResponse(200, `{"results":[]}`)
		}
	})
	a := &ParadexAdapter{
		client:      client,
		baseURL:     "http://pdx",
		tracer:      testTracer,
		limiter:     NewRateLimiter(100, time.Millisecond),
		concurrency: 2,
	}
	now := time.Now()
	if _, err := a.hourlyRate(context.Background(), "BTC-USD-PERP", now.Add(-time.Hour), now); err == nil {
		t.Fatal("expected error when no klines are available")
	}
}
