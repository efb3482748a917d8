package book

import (
	"github.com/emirpasic/gods/v2/trees/redblacktree"
	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"

	"exstack/internal/common"
)

func decimalCompare(a, b decimal.Decimal) int { return a.Cmp(b) }

// side is one half (bids or asks) of one symbol's order book: a btree of
// price levels for match iteration, plus a red-black-tree multiset of
// open-order counts per finite price for sub-linear best-price tracking.
// Market orders are filed in the level btree at the sentinel price but
// never enter the multiset, since best bid/ask are defined only over
// finite-price orders.
type side struct {
	isBid  bool
	levels *btree.BTreeG[*priceLevel]
	counts *redblacktree.Tree[decimal.Decimal, int]

	// locate maps an open order's txid to the book key (sentinel or real
	// price) it is filed under, so remove needs one btree lookup for the
	// level plus a local scan of that level's (typically small) FIFO.
	locate map[string]decimal.Decimal
}

func newSide(isBid bool) *side {
	var lessFn func(a, b *priceLevel) bool
	if isBid {
		// "Smallest" per this comparator is the highest real price, so
		// MinMut() always yields the best bid.
		lessFn = func(a, b *priceLevel) bool { return a.price.GreaterThan(b.price) }
	} else {
		lessFn = func(a, b *priceLevel) bool { return a.price.LessThan(b.price) }
	}
	return &side{
		isBid:  isBid,
		levels: btree.NewBTreeG(lessFn),
		counts: redblacktree.NewWith[decimal.Decimal, int](decimalCompare),
		locate: make(map[string]decimal.Decimal),
	}
}

func (s *side) add(o common.Order) {
	key := o.Price
	if o.IsMarket {
		key = sentinelFor(s.isBid)
	}

	level, ok := s.levels.GetMut(&priceLevel{price: key})
	if !ok {
		level = newPriceLevel(key)
		s.levels.Set(level)
	}
	level.insert(o)
	s.locate[o.Txid] = key

	if !o.IsMarket {
		if n, found := s.counts.Get(key); found {
			s.counts.Put(key, n+1)
		} else {
			s.counts.Put(key, 1)
		}
	}
}

func (s *side) remove(txid string) bool {
	key, ok := s.locate[txid]
	if !ok {
		return false
	}
	level, ok := s.levels.GetMut(&priceLevel{price: key})
	if !ok || !level.remove(txid) {
		return false
	}
	delete(s.locate, txid)

	if level.empty() {
		s.levels.Delete(&priceLevel{price: key})
	}

	if key.Equal(buySentinel) || key.Equal(sellSentinel) {
		return true
	}
	if n, found := s.counts.Get(key); found {
		if n <= 1 {
			s.counts.Remove(key)
		} else {
			s.counts.Put(key, n-1)
		}
	}
	return true
}

// best returns the highest finite bid / lowest finite ask currently open,
// or false if the side has no finite-priced orders.
func (s *side) best() (decimal.Decimal, bool) {
	if s.counts.Size() == 0 {
		return decimal.Zero, false
	}
	if s.isBid {
		node := s.counts.Right() // highest price
		return node.Key, true
	}
	node := s.counts.Left() // lowest price
	return node.Key, true
}

// orders returns every open order on this side in price-time priority,
// best-priced level first.
func (s *side) orders() []common.Order {
	out := make([]common.Order, 0, len(s.locate))
	s.levels.Scan(func(level *priceLevel) bool {
		out = append(out, level.orders...)
		return true
	})
	return out
}

// depth returns the number of distinct open orders on this side.
func (s *side) depth() int { return len(s.locate) }
