package exchange

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"exstack/internal/common"
	"exstack/internal/ledger"
	"exstack/internal/matcher"
	"exstack/internal/txn"
)

// maxCommitRetries bounds how many times a UoW commit is retried after an
// optimistic-concurrency conflict before the message is failed back to
// the caller as OTHER_VALIDATION, per spec's CONFLICT retry policy.
const maxCommitRetries = 3

// handleNewOrder is the order intake pipeline (§4.6 step 4): validate
// broker/account, coerce price, build the order, verify the symbol,
// screen it read-committed, then hand off to the symbol's dedicated
// worker for admission and the match/settle loop.
func (e *Exchange) handleNewOrder(req Request) Response {
	respType := string(MsgNewOrder)

	if req.BrokerID == "" || !e.brokers.exists(req.BrokerID) {
		return errorResponse(respType, newError(KindMalformedBroker, "unknown broker"))
	}
	if !e.brokers.knowsAccount(req.BrokerID, req.AccountID) {
		return errorResponse(respType, newError(KindUnknownUser, "unknown account for broker"))
	}
	if _, ok := e.clients.Get(req.AccountID); !ok {
		return errorResponse(respType, newError(KindUnknownUser, "unknown account"))
	}

	side, err := parseSide(req.Side)
	if err != nil {
		return errorResponse(respType, newError(KindOtherValidation, err.Error()))
	}
	if req.Volume <= 0 {
		return errorResponse(respType, newError(KindOtherValidation, "volume must be positive"))
	}
	price, isMarket, err := parsePrice(req.Price)
	if err != nil {
		return errorResponse(respType, newError(KindOtherValidation, err.Error()))
	}
	if _, ok := e.market.Get(req.Symbol); !ok {
		return errorResponse(respType, newError(KindUnknownSymbol, "unknown symbol"))
	}

	ref, _ := e.market.ReferencePrice(req.Symbol)

	order := common.Order{
		Txid:     req.Txid,
		CSID:     req.AccountID,
		Ts:       e.nextTs(),
		Side:     side,
		Symbol:   req.Symbol,
		Price:    price,
		IsMarket: isMarket,
		Volume:   req.Volume,
	}

	if err := e.clients.Screen(order, ref); err != nil {
		return errorResponse(respType, newError(screenErrKind(err), err.Error()))
	}

	var resp Response
	e.dispatch.Run(order.Symbol, func() {
		resp = e.intake(order, ref)
	})
	return resp
}

// intake runs on order.Symbol's dedicated worker: the order is already
// screened, so admission here only fails on the (rare, concurrent-client)
// reservation conflict. It persists the order, ingests it into the book,
// reserves funds/shares ahead of matching, then runs the match/settle
// loop to completion before returning — per §5, the whole pipeline for
// one message is this symbol's critical section.
func (e *Exchange) intake(order common.Order, ref decimal.Decimal) Response {
	respType := string(MsgNewOrder)

	e.orders.Add(order)
	e.book.Add(order)

	var buys, sells []common.Order
	if order.Side == common.Buy {
		buys = []common.Order{order}
	} else {
		sells = []common.Order{order}
	}

	if err := e.commitWithRetry(func() (*txn.UnitOfWork, error) {
		uow := txn.NewUnitOfWork()
		if err := e.clients.ApplyPre(uow, buys, sells, ref); err != nil {
			return nil, err
		}
		return uow, nil
	}); err != nil {
		e.book.Remove(order.Symbol, order.Txid)
		log.Error().Err(err).Str("txid", order.Txid).Msg("apply_pre failed, order rejected after screening")
		return errorResponse(respType, newError(KindOtherValidation, "reservation failed"))
	}

	if order.Side == common.Buy {
		e.reserve(order.Txid, ledger.EffectivePrice(order, ref).Mul(decimal.NewFromInt(order.Volume)))
	}

	e.runMatchLoop(order.Symbol)

	placed, _ := e.orders.Get(order.Txid)
	return Response{ResponseType: respType, ResponseCode: 0, Msg: "ok", Order: newOrderView(placed)}
}

// runMatchLoop repeats MatchOnce/settle until the matcher yields no more
// trades for symbol (§4.6's match/settle loop), terminating because each
// iteration closes at least one buy out of a finite book.
func (e *Exchange) runMatchLoop(symbol string) {
	for {
		ref, _ := e.market.ReferencePrice(symbol)
		result, ok := matcher.MatchOnce(e.book, symbol, ref)
		if !ok {
			return
		}
		trade, err := e.settle(symbol, result)
		if err != nil {
			// Fatal to this message, not the process (§7 propagation
			// policy): stop matching rather than risk looping forever
			// against a book the last commit couldn't bring in sync.
			log.Error().Err(err).Str("symbol", symbol).Msg("trade settlement failed, halting match loop for this message")
			return
		}
		e.market.RecordTrade(trade)
	}
}

// settle closes the matched buy and sells, splits the residual sell if
// any, credits the ledger and returns the finalized trade — all inside
// one UnitOfWork, so a failure rolls back the close-and-split together
// with the ledger adjustments (§4.6: "All steps for a single trade MUST
// commit as one unit").
func (e *Exchange) settle(symbol string, r *matcher.Result) (common.Trade, error) {
	trade := matcher.BuildTrade(newTradeID(), e.nextTs(), r)
	reserved := e.peekReserved(r.Buy.Txid)
	refund := reserved.Sub(trade.TotalPrice)

	finalSells := make([]common.Order, len(r.Sells))
	copy(finalSells, r.Sells)
	var remainder *common.Order

	err := e.commitWithRetry(func() (*txn.UnitOfWork, error) {
		uow := txn.NewUnitOfWork()
		remainder = nil

		if _, err := e.orders.Close(uow, r.Buy.Txid); err != nil {
			return nil, err
		}
		for i, s := range r.Sells {
			if i == len(r.Sells)-1 && r.Excess > 0 {
				truncated, rem, err := matcher.SplitSell(s, r.Excess)
				if err != nil {
					return nil, err
				}
				finalSells[i] = truncated
				remainder = &rem
			}
			if _, err := e.orders.Close(uow, s.Txid); err != nil {
				return nil, err
			}
		}
		if remainder != nil {
			e.orders.Insert(uow, *remainder)
		}
		if err := e.clients.ApplyPost(uow, r.Buy, r.Volume, refund, finalSells, trade.AvgPrice); err != nil {
			return nil, err
		}
		return uow, nil
	})
	if err != nil {
		return common.Trade{}, err
	}

	e.clearReserved(r.Buy.Txid)
	e.book.Remove(symbol, r.Buy.Txid)
	for _, s := range r.Sells {
		e.book.Remove(symbol, s.Txid)
	}
	if remainder != nil {
		e.book.Add(*remainder)
	}
	trade.Closed = true
	return trade, nil
}

// commitWithRetry runs build to stage a fresh UnitOfWork and commit it,
// retrying on ErrConflict up to maxCommitRetries since a conflict means
// another commit raced ahead between this attempt's reads and its
// commit — a retry simply restages against the now-current version.
func (e *Exchange) commitWithRetry(build func() (*txn.UnitOfWork, error)) error {
	var lastErr error
	for attempt := 0; attempt < maxCommitRetries; attempt++ {
		uow, err := build()
		if err != nil {
			return err
		}
		if err := uow.Commit(); err != nil {
			if errors.Is(err, txn.ErrConflict) {
				lastErr = err
				continue
			}
			return err
		}
		return nil
	}
	return lastErr
}

func parseSide(s string) (common.Side, error) {
	switch strings.ToUpper(s) {
	case "BUY":
		return common.Buy, nil
	case "SELL":
		return common.Sell, nil
	default:
		return 0, fmt.Errorf("invalid side %q", s)
	}
}

// parsePrice coerces the wire price field: nil or empty means MARKET.
func parsePrice(raw *string) (decimal.Decimal, bool, error) {
	if raw == nil || *raw == "" {
		return decimal.Zero, true, nil
	}
	p, err := decimal.NewFromString(*raw)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("invalid price %q", *raw)
	}
	if !p.IsPositive() {
		return decimal.Zero, false, fmt.Errorf("price must be a positive decimal")
	}
	return p, false, nil
}

func screenErrKind(err error) Kind {
	switch {
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return KindInsufficientBalance
	case errors.Is(err, ledger.ErrInsufficientHolding):
		return KindInsufficientHolding
	default:
		return KindOtherValidation
	}
}
