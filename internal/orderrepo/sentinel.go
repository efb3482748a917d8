package orderrepo

import (
	"github.com/shopspring/decimal"

	"exstack/internal/common"
)

// Market orders carry no real limit price; bookKey coerces them to an
// extreme sentinel (+inf for buys, -inf for sells) so the book views can
// sort with an ordinary total-order comparator. Callers still see the
// order's real Price/IsMarket fields untouched.
var (
	buySentinel  = decimal.NewFromInt(1_000_000_000_000)
	sellSentinel = decimal.NewFromInt(-1_000_000_000_000)
)

func bookKey(o common.Order, side common.Side) decimal.Decimal {
	if o.IsMarket {
		if side == common.Buy {
			return buySentinel
		}
		return sellSentinel
	}
	return o.Price
}
