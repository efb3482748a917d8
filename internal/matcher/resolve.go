// Package matcher runs price-time-priority matching over an order book,
// resolves execution prices for mixed market/limit situations and proposes
// trades. It never mutates the book or repositories itself — it is a pure
// function over the state the order book and market tape hand it; the
// exchange core is responsible for closing orders, splitting residual
// sells and crediting the ledger from the Result it returns.
package matcher

import (
	"github.com/shopspring/decimal"

	"exstack/internal/common"
)

// bestPrice resolves a book's best price against the reference price when
// that side of the book has no resting finite-price orders at all.
func bestPrice(best decimal.Decimal, ok bool, ref decimal.Decimal) decimal.Decimal {
	if ok {
		return best
	}
	return ref
}

// resolvePrice implements the execution-price table: the aggressor is
// whichever order has the later ts (a tie makes the sell the aggressor);
// the resting order is the other one.
//
// If the resting order rests at a sentinel (market) price, the execution
// price is bounded by the reference price and whatever best_bid/best_ask
// the book currently carries — unless the book carries neither, in which
// case both sides are effectively market and the reference price alone
// decides. If the resting order carries a real limit price, the aggressor
// simply takes the book's best price on the resting side.
func resolvePrice(buy, sell common.Order, ref decimal.Decimal, bestBid decimal.Decimal, hasBestBid bool, bestAsk decimal.Decimal, hasBestAsk bool) decimal.Decimal {
	aggressorSells := sell.Ts >= buy.Ts // later ts is the aggressor; ties favor the sell
	var restingIsMarket bool
	if aggressorSells {
		restingIsMarket = buy.IsMarket
	} else {
		restingIsMarket = sell.IsMarket
	}

	if !restingIsMarket {
		if aggressorSells {
			return bestPrice(bestBid, hasBestBid, ref)
		}
		return bestPrice(bestAsk, hasBestAsk, ref)
	}

	if !hasBestBid && !hasBestAsk {
		return ref
	}

	bid := bestPrice(bestBid, hasBestBid, ref)
	ask := bestPrice(bestAsk, hasBestAsk, ref)
	if aggressorSells {
		return decimalMax(ref, decimalMax(bid, ask))
	}
	return decimalMin(ref, decimalMin(bid, ask))
}

func decimalMax(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

func decimalMin(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
