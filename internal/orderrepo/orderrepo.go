// Package orderrepo is the canonical store of every order the exchange has
// ever accepted, open or closed, keyed by transaction id. It wraps a
// generic txn.Store[common.Order] and provides the sorted book views the
// matcher and reporting queries need.
package orderrepo

import (
	"sort"

	"exstack/internal/common"
	"exstack/internal/txn"
)

// Repo is the order repository (C3).
type Repo struct {
	store *txn.Store[common.Order]
}

func New() *Repo {
	return &Repo{store: txn.NewStore[common.Order]()}
}

// Store exposes the underlying versioned store so callers can Begin a Tx
// and Join it into a multi-repository UnitOfWork.
func (r *Repo) Store() *txn.Store[common.Order] { return r.store }

// Add inserts a brand-new order outside any caller-supplied UoW — used by
// the intake pipeline's first write, before any other repository is
// touched.
func (r *Repo) Add(o common.Order) {
	tx := r.store.Begin()
	tx.Put(o.Key(), o)
	uow := txn.NewUnitOfWork()
	txn.Join(uow, tx)
	// A fresh key can never conflict; this only fails if the invariant
	// (none is installed on this store) rejects it.
	_ = uow.Commit()
}

// Get returns the current value of txid, read-committed.
func (r *Repo) Get(txid string) (common.Order, bool) {
	return r.store.Peek(txid)
}

// Close marks an order closed inside uow, joining an existing scope so it
// commits atomically alongside whatever else the caller is staging (sell
// splits, ledger adjustments).
func (r *Repo) Close(uow *txn.UnitOfWork, txid string) (*txn.Tx[common.Order], error) {
	tx := txn.Join(uow, r.store.Begin())
	o, err := tx.Get(txid)
	if err != nil {
		return nil, err
	}
	o.Closed = true
	tx.Put(txid, o)
	return tx, nil
}

// Insert stages a new order (e.g. a split-sell remainder) inside uow.
func (r *Repo) Insert(uow *txn.UnitOfWork, o common.Order) *txn.Tx[common.Order] {
	tx := txn.Join(uow, r.store.Begin())
	tx.Put(o.Key(), o)
	return tx
}

// BuyBookFor returns every open buy for symbol in price-time priority,
// best bid first: highest price, then ascending ts, then lexicographic
// txid. Market orders sort ahead of every finite-priced buy.
func (r *Repo) BuyBookFor(symbol string) []common.Order {
	return bookFor(r.store, symbol, common.Buy)
}

// SellBookFor returns every open sell for symbol in price-time priority,
// best ask first: lowest price, then ascending ts, then lexicographic
// txid. Market orders sort ahead of every finite-priced sell.
func (r *Repo) SellBookFor(symbol string) []common.Order {
	return bookFor(r.store, symbol, common.Sell)
}

func bookFor(store *txn.Store[common.Order], symbol string, side common.Side) []common.Order {
	var out []common.Order
	for _, o := range store.List() {
		if o.Closed || o.Symbol != symbol || o.Side != side {
			continue
		}
		out = append(out, o)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		ak, bk := bookKey(a, side), bookKey(b, side)
		if !ak.Equal(bk) {
			if side == common.Buy {
				return ak.GreaterThan(bk)
			}
			return ak.LessThan(bk)
		}
		if a.Ts != b.Ts {
			return a.Ts < b.Ts
		}
		return a.Txid < b.Txid
	})
	return out
}
