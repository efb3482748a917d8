package matcher

import (
	"github.com/shopspring/decimal"

	"exstack/internal/book"
	"exstack/internal/common"
)

// Result is a proposed trade: the buy it closes, the sells it consumes (in
// matched order, original volumes untouched), and the resolved execution
// price. Excess is the portion of the last matched sell's volume the buy
// did not need; the caller is responsible for splitting it back into the
// book via SplitSell.
type Result struct {
	Buy            common.Order
	Sells          []common.Order
	Volume         int64
	Excess         int64
	ExecutionPrice decimal.Decimal
}

// MatchOnce scans symbol's book best-priced-first and proposes at most one
// trade: the first resting buy whose accumulated matched sell volume meets
// or exceeds its own volume. It does not mutate the book; callers close
// the matched orders, split any residual sell and credit the ledger
// before invoking MatchOnce again.
func MatchOnce(b *book.Book, symbol string, ref decimal.Decimal) (*Result, bool) {
	buys := b.BuyBook(symbol)
	sells := b.SellBook(symbol)
	if len(buys) == 0 || len(sells) == 0 {
		return nil, false
	}

	bestBid, hasBestBid := b.BestBid(symbol)
	bestAsk, hasBestAsk := b.BestAsk(symbol)

	for _, buy := range buys {
		var matched []common.Order
		var accumulated int64

		for _, sell := range sells {
			if !buy.IsMarket && !sell.IsMarket && buy.Price.LessThan(sell.Price) {
				// Sells are price-ordered: nothing cheaper remains for this buy.
				break
			}

			matched = append(matched, sell)
			accumulated += sell.Volume

			if accumulated >= buy.Volume {
				price := resolvePrice(buy, sell, ref, bestBid, hasBestBid, bestAsk, hasBestAsk)
				return &Result{
					Buy:            buy,
					Sells:          matched,
					Volume:         buy.Volume,
					Excess:         accumulated - buy.Volume,
					ExecutionPrice: price,
				}, true
			}
		}
	}

	return nil, false
}
