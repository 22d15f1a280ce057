package arbitrage

import (
	"sort"

	"funding-radar/internal/domain"
)

// ExchangeRate is one venue's quote for a token, already converted to the
// requested display basis.
type ExchangeRate struct {
	Exchange domain.Exchange `json:"exchange"`
	Rate     float64         `json:"rate"`
}

// Opportunity is one cross-exchange funding spread: collect funding by going
// long where the rate is lowest and short where it is highest. Rates holds
// every quoted venue, not just the two legs, so consumers can render the full
// per-exchange picture. All rates and Spread are percentages in the requested
// timeframe's basis; APR annualizes the spread.
type Opportunity struct {
	Symbol        string          `json:"symbol"`
	Rates         []ExchangeRate  `json:"rates"`
	LongExchange  domain.Exchange `json:"long_exchange"`
	ShortExchange domain.Exchange `json:"short_exchange"`
	LongRate      float64         `json:"long_rate"`
	ShortRate     float64         `json:"short_rate"`
	Spread        float64         `json:"spread"`
	APR           float64         `json:"apr"`
}

// Detect scans the per-token rows for spreads across the selected exchanges.
// A token needs at least two quoted rates to qualify. When required is
// non-empty, that exchange must be one of the selected ones, carry a rate for
// the token, and sit at one of the extremes; otherwise the token is skipped.
// Extremes tie-break to the exchange listed first in the caller's order, via
// strict comparisons. Results are sorted by APR descending.
func Detect(rows []domain.FundingRow, exchanges []domain.Exchange, required domain.Exchange, tf domain.Timeframe) []Opportunity {
	if len(exchanges) == 0 {
		exchanges = domain.AllExchanges
	}
	if required != "" && !contains(exchanges, required) {
		return nil
	}

	var out []Opportunity
	for i := range rows {
		row := &rows[i]

		var minEx, maxEx domain.Exchange
		var minRate, maxRate float64
		var rates []ExchangeRate
		for _, ex := range exchanges {
			p := row.Rate(ex)
			if p == nil {
				continue
			}
			rate := tf.DisplayRate(*p)
			if len(rates) == 0 {
				minEx, maxEx = ex, ex
				minRate, maxRate = rate, rate
			} else {
				if rate < minRate {
					minEx, minRate = ex, rate
				}
				if rate > maxRate {
					maxEx, maxRate = ex, rate
				}
			}
			rates = append(rates, ExchangeRate{Exchange: ex, Rate: rate})
		}
		if len(rates) < 2 {
			continue
		}
		if required != "" {
			if row.Rate(required) == nil {
				continue
			}
			if minEx != required && maxEx != required {
				continue
			}
		}

		spread := maxRate - minRate
		out = append(out, Opportunity{
			Symbol:        row.Symbol,
			Rates:         rates,
			LongExchange:  minEx,
			ShortExchange: maxEx,
			LongRate:      minRate,
			ShortRate:     maxRate,
			Spread:        spread,
			APR:           tf.AnnualizeSpread(spread),
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].APR > out[j].APR })
	return out
}

func contains(exchanges []domain.Exchange, ex domain.Exchange) bool {
	for _, e := range exchanges {
		if e == ex {
			return true
		}
	}
	return false
}
