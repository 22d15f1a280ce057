package domain

// Timeframe selects the display basis for funding rates.
type Timeframe string

const (
	Timeframe1h Timeframe = "1h"
	Timeframe8h Timeframe = "8h"
	Timeframe1y Timeframe = "1y"
)

// ParseTimeframe validates a timeframe query value. Empty defaults to 1h.
func ParseTimeframe(s string) (Timeframe, bool) {
	switch Timeframe(s) {
	case "":
		return Timeframe1h, true
	case Timeframe1h, Timeframe8h, Timeframe1y:
		return Timeframe(s), true
	}
	return "", false
}

// DisplayRate converts an hourly funding fraction into a percentage in the
// timeframe's basis: 1h multiplies by 100, 8h by 8·100, 1y by 8760·100.
func (tf Timeframe) DisplayRate(hourly float64) float64 {
	switch tf {
	case Timeframe8h:
		return hourly * 8 * 100
	case Timeframe1y:
		return hourly * 8760 * 100
	default:
		return hourly * 100
	}
}

// AnnualizeSpread annualizes a spread that is already expressed as a percent
// in the timeframe's basis. The multipliers differ from DisplayRate's on
// purpose: a 1h percent spread recurs 24·365 times a year, an 8h one 3·365
// times, and a 1y spread is already annual.
func (tf Timeframe) AnnualizeSpread(spread float64) float64 {
	switch tf {
	case Timeframe8h:
		return spread * 3 * 365
	case Timeframe1y:
		return spread
	default:
		return spread * 24 * 365
	}
}
