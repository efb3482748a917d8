package book

import "github.com/shopspring/decimal"

// Market orders carry no real limit price. Rather than branch on a
// nullable price throughout the matcher, the book keys them at an extreme
// sentinel so ordinary price comparisons stay total: a resting market buy
// always outranks every finite bid, a resting market sell always
// outranks (i.e. sorts ahead of) every finite ask. The order's real
// Price/IsMarket fields are untouched — only the book's internal
// comparison key uses the sentinel.
var (
	buySentinel  = decimal.NewFromInt(1_000_000_000_000) // conceptually +inf for bids
	sellSentinel = decimal.NewFromInt(-1_000_000_000_000) // conceptually -inf for asks
)

func sentinelFor(isBid bool) decimal.Decimal {
	if isBid {
		return buySentinel
	}
	return sellSentinel
}
