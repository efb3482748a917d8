package book

import (
	"sort"

	"github.com/shopspring/decimal"

	"exstack/internal/common"
)

// priceLevel is every open order resting at one price, kept in price-time
// priority: ascending ts, then lexicographic txid. The canonical Order
// lives in the order repository; the copy here is reconciled by Txid.
type priceLevel struct {
	price  decimal.Decimal
	orders []common.Order
}

func newPriceLevel(price decimal.Decimal) *priceLevel {
	return &priceLevel{price: price}
}

// insert places o into the level's FIFO, preserving (ts, txid) order.
func (l *priceLevel) insert(o common.Order) {
	i := sort.Search(len(l.orders), func(i int) bool {
		return less(o, l.orders[i])
	})
	l.orders = append(l.orders, common.Order{})
	copy(l.orders[i+1:], l.orders[i:])
	l.orders[i] = o
}

// remove deletes the order with the given txid, reporting whether it was
// found.
func (l *priceLevel) remove(txid string) bool {
	for i, o := range l.orders {
		if o.Txid == txid {
			l.orders = append(l.orders[:i], l.orders[i+1:]...)
			return true
		}
	}
	return false
}

func (l *priceLevel) empty() bool { return len(l.orders) == 0 }

// less implements the tie-break within a single price level: ascending
// ts, then lexicographic txid.
func less(a, b common.Order) bool {
	if a.Ts != b.Ts {
		return a.Ts < b.Ts
	}
	return a.Txid < b.Txid
}
