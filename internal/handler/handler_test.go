package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"funding-radar/internal/arbitrage"
	"funding-radar/internal/domain"
	"funding-radar/internal/job"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
)

var testTracer = otel.Tracer("handler-test")

func fptr(v float64) *float64 { return &v }

type fundingStub struct {
	rows    []domain.FundingRow
	rowsErr error
	opps    []arbitrage.Opportunity
	history []domain.TimeSeriesPoint

	historyToken string
	historyEx    domain.Exchange
	historyDays  int
	cycleCalls   int
}

func (f *fundingStub) RunCycle(ctx context.Context) (domain.CycleResult, error) {
	f.cycleCalls++
	return domain.CycleResult{Timestamp: time.Now()}, nil
}

func (f *fundingStub) LatestRows(ctx context.Context) ([]domain.FundingRow, error) {
	return f.rows, f.rowsErr
}

func (f *fundingStub) Opportunities(ctx context.Context, exchanges []domain.Exchange, required domain.Exchange, tf domain.Timeframe) ([]arbitrage.Opportunity, error) {
	return f.opps, nil
}

func (f *fundingStub) History(ctx context.Context, token string, ex domain.Exchange, days int) ([]domain.TimeSeriesPoint, error) {
	f.historyToken, f.historyEx, f.historyDays = token, ex, days
	return f.history, nil
}

type snapshotStub struct {
	points []domain.SnapshotPoint
}

func (s *snapshotStub) GetRange(ctx context.Context, symbol string, exchange domain.Exchange, from, to time.Time) ([]domain.SnapshotPoint, error) {
	return s.points, nil
}

type backfillerStub struct {
	written int
	err     error
}

func (b *backfillerStub) BackfillPartition(ctx context.Context, token string, ex domain.Exchange) (int, error) {
	return b.written, b.err
}

type queueStub struct {
	queued int
}

func (q *queueStub) Enqueue(task job.BackfillTask) error { q.queued++; return nil }

func (q *queueStub) EnqueueAll(tokens []string) int {
	n := len(tokens) * len(domain.HistoryExchanges)
	q.queued += n
	return n
}

func newTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(r)
	return r
}

func TestGetFunding(t *testing.T) {
	stub := &fundingStub{rows: []domain.FundingRow{
		{Symbol: "BTC", Vest1h: fptr(0.0000125), Paradex1h: fptr(-0.0000375)},
	}}
	r := newTestRouter(New(testTracer, stub, nil, nil, nil, "", nil))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/funding", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var rows []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &rows); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if len(rows) != 1 || rows[0]["symbol"] != "BTC" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if rows[0]["orderly1h"] != nil {
		t.Errorf("absent venue must serialize as null, got %v", rows[0]["orderly1h"])
	}
	if rows[0]["vest1h"] == nil {
		t.Errorf("quoted venue missing: %+v", rows[0])
	}
}

func TestGetFundingError(t *testing.T) {
	stub := &fundingStub{rowsErr: errors.New("all venues down")}
	r := newTestRouter(New(testTracer, stub, nil, nil, nil, "", nil))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/funding", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestGetFundingHistory(t *testing.T) {
	ts := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	stub := &fundingStub{history: []domain.TimeSeriesPoint{{Time: ts, Rate: 0.00001}}}
	r := newTestRouter(New(testTracer, stub, nil, nil, nil, "", nil))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/funding-history?symbol=btc&source=extended&days=7", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if stub.historyToken != "BTC" || stub.historyEx != domain.ExchangeExtended || stub.historyDays != 7 {
		t.Fatalf("unexpected history args: %s %s %d", stub.historyToken, stub.historyEx, stub.historyDays)
	}
	var points []historyPoint
	if err := json.Unmarshal(w.Body.Bytes(), &points); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if len(points) != 1 || points[0].Date != "2026-08-27T00:00:00Z" || points[0].FundingRate != 0.00001 {
		t.Fatalf("unexpected points: %+v", points)
	}
}

func TestGetFundingHistoryValidation(t *testing.T) {
	r := newTestRouter(New(testTracer, &fundingStub{}, nil, nil, nil, "", nil))

	cases := []string{
		"/api/funding-history",                          // missing symbol
		"/api/funding-history?symbol=BTC",               // missing source
		"/api/funding-history?symbol=BTC&source=nope",   // unknown source
		"/api/funding-history?symbol=BTC&source=orderly", // no history support
	}
	for _, path := range cases {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", path, nil)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, w.Code)
		}
	}
}

func TestGetOpportunities(t *testing.T) {
	stub := &fundingStub{opps: []arbitrage.Opportunity{
		{Symbol: "BTC", LongExchange: domain.ExchangeParadex, ShortExchange: domain.ExchangeVest, APR: 43.8},
	}}
	r := newTestRouter(New(testTracer, stub, nil, nil, nil, "", nil))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/opportunities?exchanges=vest,paradex&required=vest&timeframe=1h", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var opps []arbitrage.Opportunity
	if err := json.Unmarshal(w.Body.Bytes(), &opps); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if len(opps) != 1 || opps[0].APR != 43.8 {
		t.Fatalf("unexpected opportunities: %+v", opps)
	}
}

func TestGetOpportunitiesRejectsUnknowns(t *testing.T) {
	r := newTestRouter(New(testTracer, &fundingStub{}, nil, nil, nil, "", nil))

	for _, path := range []string{
		"/api/opportunities?exchanges=vest,bogus",
		"/api/opportunities?required=bogus",
		"/api/opportunities?timeframe=2h",
	} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", path, nil)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, w.Code)
		}
	}
}

func TestGetSnapshots(t *testing.T) {
	snaps := &snapshotStub{points: []domain.SnapshotPoint{
		{Symbol: "BTC", Exchange: domain.ExchangeVest, FundingRate1h: 0.0000125},
	}}
	r := newTestRouter(New(testTracer, &fundingStub{}, snaps, nil, nil, "", nil))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/snapshots?symbol=BTC&exchange=vest", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestTriggerCollectRequiresBearer(t *testing.T) {
	stub := &fundingStub{}
	r := newTestRouter(New(testTracer, stub, nil, nil, nil, "s3cret", nil))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/collect", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/api/collect", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with wrong token, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/api/collect", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d: %s", w.Code, w.Body.String())
	}
	if stub.cycleCalls != 1 {
		t.Fatalf("expected one cycle, got %d", stub.cycleCalls)
	}
}

func TestTriggerBackfill(t *testing.T) {
	bf := &backfillerStub{written: 24}
	r := newTestRouter(New(testTracer, &fundingStub{}, nil, bf, nil, "", nil))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/backfill?token=btc&source=vest", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if body["written"] != float64(24) || body["token"] != "BTC" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestTriggerBackfillAll(t *testing.T) {
	q := &queueStub{}
	r := newTestRouter(New(testTracer, &fundingStub{}, nil, nil, q, "", []string{"BTC", "ETH"}))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/backfill/all", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	if q.queued != 2*len(domain.HistoryExchanges) {
		t.Fatalf("unexpected queued count: %d", q.queued)
	}
}

func TestHealth(t *testing.T) {
	r := newTestRouter(New(testTracer, &fundingStub{}, nil, nil, nil, "", nil))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
