// Package book implements the per-instrument order book: price-time-priority
// bid/ask sequences with sub-linear best-bid/best-ask tracking, market-order
// sentinels, and the depth/top summary the orderbook_summary query reports.
package book

import (
	"sync"

	"github.com/shopspring/decimal"

	"exstack/internal/common"
)

// Summary is a depth/top-of-book snapshot for one symbol.
type Summary struct {
	DepthBuys   int
	DepthSells  int
	TopNumBuys  int
	TopNumSells int
	TopVolBuys  int64
	TopVolSells int64
	CurrentBuy  decimal.Decimal
	HasBuy      bool
	CurrentSell decimal.Decimal
	HasSell     bool
}

type instrument struct {
	bid *side
	ask *side
}

// Book holds one bid/ask pair per listed symbol. All mutating methods are
// safe to call concurrently across symbols; the exchange core still
// serializes calls for a single symbol, so no per-symbol locking happens
// below that boundary — the mutex here only protects the top-level map
// from concurrent listing of new symbols.
type Book struct {
	mu          sync.RWMutex
	instruments map[string]*instrument
}

func New() *Book {
	return &Book{instruments: make(map[string]*instrument)}
}

// List registers symbol with an empty book. A no-op if already listed.
func (b *Book) List(symbol string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.instruments[symbol]; ok {
		return
	}
	b.instruments[symbol] = &instrument{bid: newSide(true), ask: newSide(false)}
}

func (b *Book) get(symbol string) *instrument {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.instruments[symbol]
}

// Add inserts an open order into the side matching order.Side.
func (b *Book) Add(o common.Order) {
	inst := b.get(o.Symbol)
	if inst == nil {
		return
	}
	if o.Side == common.Buy {
		inst.bid.add(o)
	} else {
		inst.ask.add(o)
	}
}

// Remove deletes the order with the given txid from symbol's book.
func (b *Book) Remove(symbol, txid string) bool {
	inst := b.get(symbol)
	if inst == nil {
		return false
	}
	return inst.bid.remove(txid) || inst.ask.remove(txid)
}

// BuyBook returns every open buy in price-time priority, best bid first.
func (b *Book) BuyBook(symbol string) []common.Order {
	inst := b.get(symbol)
	if inst == nil {
		return nil
	}
	return inst.bid.orders()
}

// SellBook returns every open sell in price-time priority, best ask first.
func (b *Book) SellBook(symbol string) []common.Order {
	inst := b.get(symbol)
	if inst == nil {
		return nil
	}
	return inst.ask.orders()
}

// BestBid is the highest finite open limit buy, if any.
func (b *Book) BestBid(symbol string) (decimal.Decimal, bool) {
	inst := b.get(symbol)
	if inst == nil {
		return decimal.Zero, false
	}
	return inst.bid.best()
}

// BestAsk is the lowest finite open limit sell, if any.
func (b *Book) BestAsk(symbol string) (decimal.Decimal, bool) {
	inst := b.get(symbol)
	if inst == nil {
		return decimal.Zero, false
	}
	return inst.ask.best()
}

// Summarise reports depth and current-best top-of-book stats for symbol.
func (b *Book) Summarise(symbol string) Summary {
	var s Summary
	inst := b.get(symbol)
	if inst == nil {
		return s
	}

	buys := inst.bid.orders()
	sells := inst.ask.orders()
	s.DepthBuys = len(buys)
	s.DepthSells = len(sells)

	if best, ok := inst.bid.best(); ok {
		s.CurrentBuy, s.HasBuy = best, true
		for _, o := range buys {
			if !o.IsMarket && o.Price.Equal(best) {
				s.TopNumBuys++
				s.TopVolBuys += o.Volume
			}
		}
	}
	if best, ok := inst.ask.best(); ok {
		s.CurrentSell, s.HasSell = best, true
		for _, o := range sells {
			if !o.IsMarket && o.Price.Equal(best) {
				s.TopNumSells++
				s.TopVolSells += o.Volume
			}
		}
	}
	return s
}
