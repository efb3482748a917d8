// Package ledger is the per-client cash balance and symbol->volume holding
// store: pre-trade screening, fund/share reservation ahead of matching,
// and post-trade ownership transfer. Every mutation runs inside a
// txn.UnitOfWork so a trade's settlement commits atomically alongside the
// order repository's close-and-split.
package ledger

import (
	"github.com/shopspring/decimal"

	"exstack/internal/common"
	"exstack/internal/txn"
)

// Ledger is the client ledger (C4).
type Ledger struct {
	store *txn.Store[common.Client]
}

func New() *Ledger {
	store := txn.NewStore[common.Client]()
	store.SetInvariant(checkNonNegative)
	return &Ledger{store: store}
}

// checkNonNegative is the commit-time guard against the transient negative
// balance/holding a screening race could otherwise let through: screening
// happens before apply_pre, so two concurrent orders against the same
// account can both pass screening before either reserves funds. The
// version check makes the later apply_pre restage against the current
// balance, but restaging alone would still debit it below zero; this
// invariant refuses any commit that would leave balance or a holding
// negative, so that commit fails with ErrInsufficientBalance or
// ErrInsufficientHolding and nothing is applied.
func checkNonNegative(c common.Client) error {
	if c.Balance.IsNegative() {
		return ErrInsufficientBalance
	}
	for _, v := range c.Holdings {
		if v < 0 {
			return ErrInsufficientHolding
		}
	}
	return nil
}

// Store exposes the underlying versioned store for callers that need to
// Join a Tx into a larger UnitOfWork.
func (l *Ledger) Store() *txn.Store[common.Client] { return l.store }

// Register adds a brand-new client outside any caller-supplied UoW.
func (l *Ledger) Register(c common.Client) {
	if c.Holdings == nil {
		c.Holdings = make(map[string]int64)
	}
	tx := l.store.Begin()
	tx.Put(c.Key(), c)
	uow := txn.NewUnitOfWork()
	txn.Join(uow, tx)
	_ = uow.Commit()
}

// Get returns a read-committed snapshot of csid's account.
func (l *Ledger) Get(csid string) (common.Client, bool) {
	return l.store.Peek(csid)
}

// EffectivePrice is the order's own limit price, or the instrument's
// reference price when the order is a market order. Exported so the
// exchange core can compute the same value it used to reserve funds at
// intake when it reconciles that reservation against the trade's
// resolved execution price at settlement.
func EffectivePrice(o common.Order, ref decimal.Decimal) decimal.Decimal {
	if o.IsMarket {
		return ref
	}
	return o.Price
}

// Screen checks a single incoming order against the client's current
// account, read-committed (no reservation). BUY is screened against cash;
// SELL against the symbol holding.
func (l *Ledger) Screen(o common.Order, ref decimal.Decimal) error {
	c, ok := l.store.Peek(o.CSID)
	if !ok {
		return ErrUnknownClient
	}

	if o.Side == common.Buy {
		cost := EffectivePrice(o, ref).Mul(decimal.NewFromInt(o.Volume))
		if cost.GreaterThan(c.Balance) {
			return ErrInsufficientBalance
		}
		return nil
	}

	if c.Holding(o.Symbol) < o.Volume {
		return ErrInsufficientHolding
	}
	return nil
}

// txForClient returns the Tx already joined to uow for csid, opening and
// joining a new one on first use — so repeated adjustments against the
// same client within one call observe each other instead of racing to
// stomp one another's staged write.
func txForClient(uow *txn.UnitOfWork, joined map[string]*txn.Tx[common.Client], store *txn.Store[common.Client], csid string) *txn.Tx[common.Client] {
	if tx, ok := joined[csid]; ok {
		return tx
	}
	tx := txn.Join(uow, store.Begin())
	joined[csid] = tx
	return tx
}

func (l *Ledger) adjustBalance(tx *txn.Tx[common.Client], csid string, delta decimal.Decimal) error {
	c, err := tx.Get(csid)
	if err != nil {
		return err
	}
	c = c.Clone()
	c.Balance = c.Balance.Add(delta)
	tx.Put(csid, c)
	return nil
}

func (l *Ledger) adjustHolding(tx *txn.Tx[common.Client], csid, symbol string, delta int64) error {
	c, err := tx.Get(csid)
	if err != nil {
		return err
	}
	c = c.Clone()
	c.Holdings[symbol] += delta
	tx.Put(csid, c)
	return nil
}

// AdjustBalance stages a standalone balance delta for csid inside uow.
func (l *Ledger) AdjustBalance(uow *txn.UnitOfWork, joined map[string]*txn.Tx[common.Client], csid string, delta decimal.Decimal) error {
	tx := txForClient(uow, joined, l.store, csid)
	return l.adjustBalance(tx, csid, delta)
}

// AdjustHolding stages a standalone holding delta for csid/symbol inside uow.
func (l *Ledger) AdjustHolding(uow *txn.UnitOfWork, joined map[string]*txn.Tx[common.Client], csid, symbol string, delta int64) error {
	tx := txForClient(uow, joined, l.store, csid)
	return l.adjustHolding(tx, csid, symbol, delta)
}

// ApplyPre reserves funds for buys (debiting balance by effective_price *
// volume) and shares for sells (debiting the symbol holding by the full
// order volume) inside uow, before the order is exposed to matching. This
// is what keeps an in-flight order from being double-spent by a
// concurrent message from the same client.
func (l *Ledger) ApplyPre(uow *txn.UnitOfWork, buys, sells []common.Order, ref decimal.Decimal) error {
	joined := make(map[string]*txn.Tx[common.Client])
	for _, o := range buys {
		cost := EffectivePrice(o, ref).Mul(decimal.NewFromInt(o.Volume))
		if err := l.AdjustBalance(uow, joined, o.CSID, cost.Neg()); err != nil {
			return err
		}
	}
	for _, o := range sells {
		if err := l.AdjustHolding(uow, joined, o.CSID, o.Symbol, -o.Volume); err != nil {
			return err
		}
	}
	return nil
}

// ApplyPost transfers ownership for a settled trade inside uow: the buyer
// is credited the trade's volume in holdings (not the original order's
// price) and refunded buyRefund against the funds apply_pre reserved
// at intake (the difference between that reservation and the trade's
// resolved execution_price x volume — see the exchange core's
// reservation bookkeeping). Every matched seller, including the
// split-truncated tail sell, is credited executionPrice x its matched
// volume: sellers are paid at the single resolved execution price, not
// their own resting price, so that per-trade cash conservation holds
// even when a limit sell's own price differs from the price the
// aggressor actually cleared at.
func (l *Ledger) ApplyPost(uow *txn.UnitOfWork, buy common.Order, matchedVolume int64, buyRefund decimal.Decimal, sells []common.Order, executionPrice decimal.Decimal) error {
	joined := make(map[string]*txn.Tx[common.Client])
	if err := l.AdjustHolding(uow, joined, buy.CSID, buy.Symbol, matchedVolume); err != nil {
		return err
	}
	if !buyRefund.IsZero() {
		if err := l.AdjustBalance(uow, joined, buy.CSID, buyRefund); err != nil {
			return err
		}
	}
	for _, s := range sells {
		proceeds := executionPrice.Mul(decimal.NewFromInt(s.Volume))
		if err := l.AdjustBalance(uow, joined, s.CSID, proceeds); err != nil {
			return err
		}
	}
	return nil
}
