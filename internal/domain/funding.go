package domain

import (
	"sort"
	"time"
)

// FundingObservation is one normalized funding-rate sample. HourlyRate is a
// signed fraction per hour regardless of the venue's native accrual period;
// adapters convert before an observation leaves the adapter boundary.
type FundingObservation struct {
	Token      string    `json:"token"`
	Exchange   Exchange  `json:"exchange"`
	Timestamp  time.Time `json:"timestamp"`
	HourlyRate float64   `json:"hourly_rate"`
}

// TimeSeriesPoint is one stored historical sample for a (token, exchange)
// series. Points are keyed by timestamp; the first write wins.
type TimeSeriesPoint struct {
	Time time.Time
	Rate float64
}

// SnapshotPoint is one audit row from the funding_snapshots table.
type SnapshotPoint struct {
	Timestamp     time.Time `json:"timestamp"`
	Symbol        string    `json:"symbol"`
	Exchange      Exchange  `json:"exchange"`
	FundingRate1h float64   `json:"funding_rate_1h"`
}

// FundingRow is the flat per-token aggregate served by /api/funding: one
// hourly rate per exchange, nil when the venue had no data this cycle.
type FundingRow struct {
	Symbol        string   `json:"symbol"`
	Vest1h        *float64 `json:"vest1h"`
	Paradex1h     *float64 `json:"paradex1h"`
	Ext1h         *float64 `json:"ext1h"`
	Hyperliquid1h *float64 `json:"hyperliquid1h"`
	Backpack1h    *float64 `json:"backpack1h"`
	Orderly1h     *float64 `json:"orderly1h"`
	Hibachi1h     *float64 `json:"hibachi1h"`
}

// Rate returns the hourly rate for the given exchange, nil when absent.
func (r *FundingRow) Rate(ex Exchange) *float64 {
	switch ex {
	case ExchangeVest:
		return r.Vest1h
	case ExchangeParadex:
		return r.Paradex1h
	case ExchangeExtended:
		return r.Ext1h
	case ExchangeHyperliquid:
		return r.Hyperliquid1h
	case ExchangeBackpack:
		return r.Backpack1h
	case ExchangeOrderly:
		return r.Orderly1h
	case ExchangeHibachi:
		return r.Hibachi1h
	}
	return nil
}

// SetRate stores the hourly rate for the given exchange.
func (r *FundingRow) SetRate(ex Exchange, rate float64) {
	v := rate
	switch ex {
	case ExchangeVest:
		r.Vest1h = &v
	case ExchangeParadex:
		r.Paradex1h = &v
	case ExchangeExtended:
		r.Ext1h = &v
	case ExchangeHyperliquid:
		r.Hyperliquid1h = &v
	case ExchangeBackpack:
		r.Backpack1h = &v
	case ExchangeOrderly:
		r.Orderly1h = &v
	case ExchangeHibachi:
		r.Hibachi1h = &v
	}
}

// BuildRows merges one cycle's observations into flat per-token rows, sorted
// by symbol. Later duplicates for the same (token, exchange) are ignored.
func BuildRows(obs []FundingObservation) []FundingRow {
	byToken := make(map[string]*FundingRow)
	for _, o := range obs {
		row, ok := byToken[o.Token]
		if !ok {
			row = &FundingRow{Symbol: o.Token}
			byToken[o.Token] = row
		}
		if row.Rate(o.Exchange) == nil {
			row.SetRate(o.Exchange, o.HourlyRate)
		}
	}

	rows := make([]FundingRow, 0, len(byToken))
	for _, row := range byToken {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Symbol < rows[j].Symbol })
	return rows
}

// AdapterStats records one adapter's outcome for a collection cycle.
type AdapterStats struct {
	Exchange     Exchange `json:"exchange"`
	Observations int      `json:"observations"`
	Error        string   `json:"error,omitempty"`
}

// CycleResult is the outcome of one collection cycle. Timestamp is truncated
// to the top of the hour; Observations holds whatever subset of exchanges
// succeeded.
type CycleResult struct {
	Timestamp    time.Time            `json:"timestamp"`
	Observations []FundingObservation `json:"-"`
	Stats        []AdapterStats       `json:"stats"`
}
