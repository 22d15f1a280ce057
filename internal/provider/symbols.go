package provider

import "strings"

// Each venue decorates the base-asset symbol differently; the canonical token
// used as the join key across exchanges is the bare uppercase base symbol.

var perpSuffixReplacer = strings.NewReplacer("-PERP", "", "-USD", "")

// canonicalPerpSymbol strips -PERP and -USD decorations and uppercases.
// Covers Vest ("BTC-PERP"), Paradex ("BTC-USD-PERP") and Extended ("BTC-USD").
func canonicalPerpSymbol(s string) string {
	return strings.ToUpper(perpSuffixReplacer.Replace(s))
}

// canonicalOrderlySymbol strips the PERP_ prefix, the _USDC suffix and a
// numeric rebase prefix (1000000 before 1000, so KPEPE-style listings like
// "PERP_1000000PEPE_USDC" reduce to "PEPE").
func canonicalOrderlySymbol(s string) string {
	s = strings.TrimPrefix(s, "PERP_")
	s = strings.TrimSuffix(s, "_USDC")
	if rest, ok := strings.CutPrefix(s, "1000000"); ok {
		s = rest
	} else if rest, ok := strings.CutPrefix(s, "1000"); ok {
		s = rest
	}
	return strings.ToUpper(s)
}
