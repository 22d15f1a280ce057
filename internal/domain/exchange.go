package domain

// Exchange identifies a supported derivatives venue.
type Exchange string

const (
	ExchangeVest        Exchange = "vest"
	ExchangeParadex     Exchange = "paradex"
	ExchangeExtended    Exchange = "ext"
	ExchangeHyperliquid Exchange = "hyperliquid"
	ExchangeBackpack    Exchange = "backpack"
	ExchangeOrderly     Exchange = "orderly"
	ExchangeHibachi     Exchange = "hibachi"
)

// AllExchanges lists every collected venue, in the order rows are rendered.
var AllExchanges = []Exchange{
	ExchangeVest,
	ExchangeParadex,
	ExchangeExtended,
	ExchangeHyperliquid,
	ExchangeBackpack,
	ExchangeOrderly,
	ExchangeHibachi,
}

// HistoryExchanges lists the venues that expose a usable funding-history
// endpoint; backfill jobs are only accepted for these.
var HistoryExchanges = []Exchange{
	ExchangeParadex,
	ExchangeHyperliquid,
	ExchangeVest,
	ExchangeExtended,
}

// ParseExchange maps a wire identifier to an Exchange. "extended" is accepted
// as an alias for "ext".
func ParseExchange(s string) (Exchange, bool) {
	switch s {
	case "extended":
		return ExchangeExtended, true
	}
	for _, ex := range AllExchanges {
		if s == string(ex) {
			return ex, true
		}
	}
	return "", false
}

// SupportsHistory reports whether backfill is available for the exchange.
func (e Exchange) SupportsHistory() bool {
	for _, ex := range HistoryExchanges {
		if e == ex {
			return true
		}
	}
	return false
}
