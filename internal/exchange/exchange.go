// Package exchange is the core message dispatcher: the idempotency and
// staleness gates, the order intake pipeline and the match/settle loop
// that binds the order book and matcher to the order repository, client
// ledger and instrument tape.
package exchange

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	tomb "gopkg.in/tomb.v2"

	"exstack/internal/book"
	"exstack/internal/common"
	"exstack/internal/ledger"
	"exstack/internal/market"
	"exstack/internal/matcher"
	"exstack/internal/orderrepo"
	"exstack/internal/txn"
)

const staleAfter = 60 * time.Second

// clock is swappable so tests can control "now" without sleeping.
var clock = func() time.Time { return time.Now() }

// Exchange is the message-handling core (C6): every field it owns is a
// thin wrapper around one of the other components; Exchange's own job is
// gating, dispatch and the settlement loop that binds them together.
type Exchange struct {
	book    *book.Book
	orders  *orderrepo.Repo
	clients *ledger.Ledger
	market  *market.Registry
	brokers *brokerRegistry

	dispatch *symbolDispatcher

	mu   sync.Mutex
	seen map[string]struct{}

	// tsSeq assigns the monotonic, exchange-local ts that price-time
	// priority orders by — independent of sender_ts (§5: "not sender_ts").
	tsSeq int64

	// resMu/reserved track, per open buy txid, the cash apply_pre debited
	// from the buyer at intake (effective_price x volume). Settlement
	// reconciles this reservation against the trade's resolved
	// execution_price x volume and refunds the difference, so conservation
	// (buyer's net debit == trade.total_price == sum of seller credits)
	// holds even when the execution price differs from the buyer's own
	// limit price (see internal/ledger.ApplyPost).
	resMu    sync.Mutex
	reserved map[string]decimal.Decimal
}

// New wires a fresh in-memory Exchange. t supervises the per-symbol
// worker goroutines the dispatcher spins up lazily, one per symbol on the
// first order for that symbol.
func New(t *tomb.Tomb) *Exchange {
	return &Exchange{
		book:     book.New(),
		orders:   orderrepo.New(),
		clients:  ledger.New(),
		market:   market.NewRegistry(),
		brokers:  newBrokerRegistry(),
		dispatch: newSymbolDispatcher(t),
		seen:     make(map[string]struct{}),
		reserved: make(map[string]decimal.Decimal),
	}
}

// nextTs hands out the next exchange-local monotonic timestamp.
func (e *Exchange) nextTs() int64 {
	return atomic.AddInt64(&e.tsSeq, 1)
}

func (e *Exchange) reserve(txid string, amount decimal.Decimal) {
	e.resMu.Lock()
	defer e.resMu.Unlock()
	e.reserved[txid] = amount
}

func (e *Exchange) peekReserved(txid string) decimal.Decimal {
	e.resMu.Lock()
	defer e.resMu.Unlock()
	return e.reserved[txid]
}

func (e *Exchange) clearReserved(txid string) {
	e.resMu.Lock()
	defer e.resMu.Unlock()
	delete(e.reserved, txid)
}

// RegisterBroker lets brokerID vouch for accountIDs; new_order messages
// naming an unregistered broker or account are rejected before any order
// is built.
func (e *Exchange) RegisterBroker(brokerID string, accountIDs ...string) {
	e.brokers.Register(brokerID, accountIDs...)
}

// RegisterClient creates a ledger account for csid. Brokers call this
// alongside RegisterBroker when onboarding a new account.
func (e *Exchange) RegisterClient(c common.Client) {
	e.clients.Register(c)
}

// ClientAccount returns a read-committed snapshot of csid's ledger account,
// for callers (tests, admin tooling) that need to observe balance/holdings
// directly rather than through trade history or order responses.
func (e *Exchange) ClientAccount(csid string) (common.Client, bool) {
	return e.clients.Get(csid)
}

// ListStock lists symbol for trading, seeding its market tape.
func (e *Exchange) ListStock(stock common.Stock, seed decimal.Decimal) {
	e.market.List(stock, seed)
	e.book.List(stock.Symbol)
}

// markSeen records txid before any side effect runs, so a retry storm on
// the same txid can never produce a double trade. It reports whether
// txid was already seen.
func (e *Exchange) markSeen(txid string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.seen[txid]; ok {
		return true
	}
	e.seen[txid] = struct{}{}
	return false
}

// Recv dispatches one request and returns its response. It never panics
// on a malformed request: every rejection path returns a Response with an
// appropriate response_code instead of an error, matching the wire
// contract.
func (e *Exchange) Recv(req Request) Response {
	if req.Txid != "" && e.markSeen(req.Txid) {
		log.Warn().Str("txid", req.Txid).Msg("duplicate transaction")
		return errorResponse(string(req.MessageType), newError(KindDuplicate, "duplicate transaction"))
	}

	if req.SenderTs != nil {
		age := clock().Unix() - *req.SenderTs
		if age > int64(staleAfter.Seconds()) {
			log.Warn().Str("txid", req.Txid).Int64("age_s", age).Msg("stale transaction")
			return errorResponse(string(req.MessageType), newError(KindStale, "stale transaction"))
		}
	}

	switch req.MessageType {
	case MsgNewOrder:
		return e.handleNewOrder(req)
	case MsgListStocks:
		return e.handleListStocks()
	case MsgInstrumentSummary:
		return e.handleInstrumentSummary(req)
	case MsgInstrumentTradeHistory:
		return e.handleInstrumentTradeHistory(req)
	case MsgInstrumentOrderbookSummary:
		return e.handleInstrumentOrderbookSummary(req)
	case MsgInstrumentOrderbook:
		return e.handleInstrumentOrderbook(req)
	default:
		return errorResponse(string(req.MessageType), newError(KindUnknownMessage, "unknown message type"))
	}
}

func errorResponse(responseType string, err *Error) Response {
	return Response{ResponseType: responseType, ResponseCode: err.Kind.code(), Msg: err.Msg}
}

func okResponse(responseType string) Response {
	return Response{ResponseType: responseType, ResponseCode: 0, Msg: "ok"}
}

func newTradeID() string { return uuid.NewString() }
