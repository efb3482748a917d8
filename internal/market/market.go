// Package market holds instrument metadata (the stock registry) and each
// instrument's market tape (last/min/max price, trade counts, history).
package market

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"exstack/internal/common"
	"exstack/internal/txn"
)

// defaultReferencePrice seeds a newly listed instrument's tape when no
// explicit reference price is supplied at listing time.
var defaultReferencePrice = decimal.NewFromInt(1)

// Registry is the stock metadata store (C7, thin half).
type Registry struct {
	store *txn.Store[common.Stock]

	mu     sync.RWMutex
	stalls map[string]*common.MarketStall
}

func NewRegistry() *Registry {
	return &Registry{
		store:  txn.NewStore[common.Stock](),
		stalls: make(map[string]*common.MarketStall),
	}
}

// List registers a new instrument with a seeded tape. A no-op if the
// symbol is already listed.
func (r *Registry) List(stock common.Stock, seed decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stalls[stock.Symbol]; ok {
		return
	}
	if seed.IsZero() {
		seed = defaultReferencePrice
	}

	tx := r.store.Begin()
	tx.Put(stock.Key(), stock)
	uow := txn.NewUnitOfWork()
	txn.Join(uow, tx)
	_ = uow.Commit()

	r.stalls[stock.Symbol] = common.NewMarketStall(stock.Symbol, seed)
}

// Get returns stock metadata, read-committed.
func (r *Registry) Get(symbol string) (common.Stock, bool) {
	return r.store.Peek(symbol)
}

// Symbols returns every listed symbol, sorted.
func (r *Registry) Symbols() []string {
	stocks := r.store.List()
	out := make([]string, len(stocks))
	for i, s := range stocks {
		out[i] = s.Symbol
	}
	sort.Strings(out)
	return out
}

// ReferencePrice is the instrument's current reference price for
// execution-price resolution, or false if the symbol isn't listed.
func (r *Registry) ReferencePrice(symbol string) (decimal.Decimal, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stall, ok := r.stalls[symbol]
	if !ok {
		return decimal.Zero, false
	}
	return stall.ReferencePrice(), true
}

// RecordTrade folds a committed trade into symbol's tape. Called only
// from inside that symbol's serialized match/settle loop, so no
// additional locking around the stall mutation itself is needed beyond
// the map lookup.
func (r *Registry) RecordTrade(t common.Trade) {
	r.mu.RLock()
	stall, ok := r.stalls[t.Symbol]
	r.mu.RUnlock()
	if !ok {
		return
	}
	stall.RecordTrade(t)
}

// Stall returns a copy of symbol's current tape, or false if unlisted.
func (r *Registry) Stall(symbol string) (common.MarketStall, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stall, ok := r.stalls[symbol]
	if !ok {
		return common.MarketStall{}, false
	}
	return *stall, true
}
