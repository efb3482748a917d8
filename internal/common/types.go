// Package common holds the domain model shared across the exchange: stocks,
// clients, orders, trades and the per-instrument market tape. Nothing in
// here talks to a repository or transport — those live one layer up.
package common

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Side is which side of the book an order rests on.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Sell {
		return "SELL"
	}
	return "BUY"
}

// Stock is immutable instrument metadata, keyed by symbol.
type Stock struct {
	Symbol string
	Name   string
}

func (s Stock) Key() string { return s.Symbol }

// Client holds a broker account's cash balance and symbol->volume holdings.
// Mutated only through ledger operations (internal/ledger) that preserve
// non-negativity; see internal/txn for the commit-time invariant check.
type Client struct {
	CSID     string
	Name     string
	Balance  decimal.Decimal
	Holdings map[string]int64
}

func (c Client) Key() string { return c.CSID }

// Clone returns a deep copy, so staged unit-of-work reads never alias the
// canonical map underneath the client's holdings.
func (c Client) Clone() Client {
	holdings := make(map[string]int64, len(c.Holdings))
	for k, v := range c.Holdings {
		holdings[k] = v
	}
	c.Holdings = holdings
	return c
}

func (c Client) Holding(symbol string) int64 {
	return c.Holdings[symbol]
}

// Order is the canonical order record. A Txid is globally unique; split
// children append "/N" (see matcher.SplitSell). Price is meaningless when
// IsMarket is true — the book layer supplies a sentinel for comparisons.
type Order struct {
	Txid      string
	CSID      string
	Ts        int64
	Side      Side
	Symbol    string
	Price     decimal.Decimal
	IsMarket  bool
	Volume    int64
	Closed    bool
}

func (o Order) Key() string { return o.Txid }

func (o Order) String() string {
	price := "MARKET"
	if !o.IsMarket {
		price = o.Price.String()
	}
	return fmt.Sprintf("Order{txid=%s side=%s symbol=%s price=%s volume=%d ts=%d closed=%t}",
		o.Txid, o.Side, o.Symbol, price, o.Volume, o.Ts, o.Closed)
}

// Trade is the settled outcome of matching one buy against one or more
// sells at a single execution price.
type Trade struct {
	Tid        string
	Ts         int64
	Symbol     string
	BuyTxid    string
	SellTxids  []string
	AvgPrice   decimal.Decimal
	TotalPrice decimal.Decimal
	Volume     int64
	Excess     int64
	Closed     bool
}

func (t Trade) Key() string { return t.Tid }

func (t Trade) Clone() Trade {
	sells := make([]string, len(t.SellTxids))
	copy(sells, t.SellTxids)
	t.SellTxids = sells
	return t
}

// MarketStall is the per-symbol tape: last/min/max traded price, running
// trade/volume counters and history. Owned by the exchange core (C6), not
// by a repository — it is updated only from inside that symbol's
// serialized match/settle loop, so it needs no locking of its own.
type MarketStall struct {
	Symbol       string
	LastPrice    decimal.Decimal
	HasLastPrice bool
	MinPrice     decimal.Decimal
	MaxPrice     decimal.Decimal
	NTrades      int64
	VTrades      int64
	History      []Trade
}

// NewMarketStall seeds the tape with the given reference price as is; the
// 1.0 default for an unsupplied price is applied by market.Registry.List.
func NewMarketStall(symbol string, seed decimal.Decimal) *MarketStall {
	return &MarketStall{
		Symbol:    symbol,
		LastPrice: seed,
	}
}

// RecordTrade folds a committed trade into the tape.
func (m *MarketStall) RecordTrade(t Trade) {
	m.LastPrice = t.AvgPrice
	m.HasLastPrice = true

	if m.NTrades == 0 {
		m.MinPrice = t.AvgPrice
		m.MaxPrice = t.AvgPrice
	} else {
		if t.AvgPrice.LessThan(m.MinPrice) {
			m.MinPrice = t.AvgPrice
		}
		if t.AvgPrice.GreaterThan(m.MaxPrice) {
			m.MaxPrice = t.AvgPrice
		}
	}

	m.NTrades++
	m.VTrades += t.Volume
	m.History = append(m.History, t.Clone())
}

// ReferencePrice is the stall's last traded price, used by the matcher's
// execution-price resolution when a side is purely market orders.
func (m *MarketStall) ReferencePrice() decimal.Decimal {
	return m.LastPrice
}
