package ledger_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exstack/internal/common"
	"exstack/internal/ledger"
	"exstack/internal/txn"
)

func newClient(csid string, balance string, holdings map[string]int64) common.Client {
	return common.Client{CSID: csid, Balance: decimal.RequireFromString(balance), Holdings: holdings}
}

func TestScreenRejectsInsufficientBalanceAndHolding(t *testing.T) {
	l := ledger.New()
	l.Register(newClient("1", "100.00", map[string]int64{"STI.": 5}))

	buy := common.Order{CSID: "1", Symbol: "STI.", Side: common.Buy, Price: decimal.RequireFromString("50.00"), Volume: 10}
	assert.ErrorIs(t, l.Screen(buy, decimal.Zero), ledger.ErrInsufficientBalance)

	sell := common.Order{CSID: "1", Symbol: "STI.", Side: common.Sell, Volume: 10}
	assert.ErrorIs(t, l.Screen(sell, decimal.Zero), ledger.ErrInsufficientHolding)
}

func TestScreenMarketBuyUsesReferencePrice(t *testing.T) {
	l := ledger.New()
	l.Register(newClient("1", "1000.00", map[string]int64{}))

	buy := common.Order{CSID: "1", Symbol: "STI.", Side: common.Buy, IsMarket: true, Volume: 5}
	assert.NoError(t, l.Screen(buy, decimal.RequireFromString("100.00")))
	assert.ErrorIs(t, l.Screen(buy, decimal.RequireFromString("1000.00")), ledger.ErrInsufficientBalance)
}

func TestApplyPreReservesFundsAndShares(t *testing.T) {
	l := ledger.New()
	l.Register(newClient("buyer", "1000.00", map[string]int64{}))
	l.Register(newClient("seller", "0.00", map[string]int64{"STI.": 100}))

	buy := common.Order{CSID: "buyer", Symbol: "STI.", Side: common.Buy, Price: decimal.RequireFromString("10.00"), Volume: 50}
	sell := common.Order{CSID: "seller", Symbol: "STI.", Side: common.Sell, Price: decimal.RequireFromString("10.00"), Volume: 50}

	uow := txn.NewUnitOfWork()
	require.NoError(t, l.ApplyPre(uow, []common.Order{buy}, []common.Order{sell}, decimal.Zero))
	require.NoError(t, uow.Commit())

	buyer, _ := l.Get("buyer")
	assert.True(t, buyer.Balance.Equal(decimal.RequireFromString("500.00")))
	seller, _ := l.Get("seller")
	assert.Equal(t, int64(50), seller.Holding("STI."))
}

func TestApplyPostCreditsBuyerHoldingsAndSellerCash(t *testing.T) {
	l := ledger.New()
	l.Register(newClient("buyer", "0.00", map[string]int64{}))
	l.Register(newClient("seller", "0.00", map[string]int64{}))

	buy := common.Order{CSID: "buyer", Symbol: "STI.", Volume: 100}
	sell := common.Order{CSID: "seller", Symbol: "STI.", Price: decimal.RequireFromString("2.00"), Volume: 100}

	uow := txn.NewUnitOfWork()
	require.NoError(t, l.ApplyPost(uow, buy, 100, decimal.Zero, []common.Order{sell}, decimal.RequireFromString("2.00")))
	require.NoError(t, uow.Commit())

	buyer, _ := l.Get("buyer")
	assert.Equal(t, int64(100), buyer.Holding("STI."))
	seller, _ := l.Get("seller")
	assert.True(t, seller.Balance.Equal(decimal.RequireFromString("200.00")))
}

func TestApplyPostCreditsBuyerRefundAndSellersAtExecutionPrice(t *testing.T) {
	l := ledger.New()
	// Buyer's balance already reflects apply_pre's 1000 (1.00 x 1000)
	// reservation out of an original 1000.00 balance.
	l.Register(newClient("buyer", "0.00", map[string]int64{}))
	l.Register(newClient("seller1", "0.00", map[string]int64{}))
	l.Register(newClient("seller2", "0.00", map[string]int64{}))

	buy := common.Order{CSID: "buyer", Symbol: "STI.", Price: decimal.RequireFromString("1.00"), Volume: 1000}
	sell1 := common.Order{CSID: "seller1", Symbol: "STI.", Price: decimal.RequireFromString("0.50"), Volume: 500}
	sell2 := common.Order{CSID: "seller2", Symbol: "STI.", Price: decimal.RequireFromString("1.00"), Volume: 500}

	// The trade actually clears at 0.50, so apply_post must refund the
	// 500 over-reservation back to the buyer.
	refund := decimal.RequireFromString("500.00")
	execPrice := decimal.RequireFromString("0.50")

	uow := txn.NewUnitOfWork()
	require.NoError(t, l.ApplyPost(uow, buy, 1000, refund, []common.Order{sell1, sell2}, execPrice))
	require.NoError(t, uow.Commit())

	buyer, _ := l.Get("buyer")
	assert.Equal(t, int64(1000), buyer.Holding("STI."))
	assert.True(t, buyer.Balance.Equal(decimal.RequireFromString("500.00")), "0 post-reservation + 500 refund")

	s1, _ := l.Get("seller1")
	assert.True(t, s1.Balance.Equal(decimal.RequireFromString("250.00")), "credited at execution price, not own resting price")
	s2, _ := l.Get("seller2")
	assert.True(t, s2.Balance.Equal(decimal.RequireFromString("250.00")))
}

func TestInvariantRejectsOverdraftEvenWithoutPriorScreen(t *testing.T) {
	l := ledger.New()
	l.Register(newClient("1", "10.00", map[string]int64{}))

	uow := txn.NewUnitOfWork()
	joined := make(map[string]*txn.Tx[common.Client])
	require.NoError(t, l.AdjustBalance(uow, joined, "1", decimal.RequireFromString("-100.00")))
	assert.ErrorIs(t, uow.Commit(), ledger.ErrInsufficientBalance)

	c, _ := l.Get("1")
	assert.True(t, c.Balance.Equal(decimal.RequireFromString("10.00")), "rejected commit must leave balance untouched")
}

func TestAdjustHoldingAndBalanceOnSameClientWithinOneUnitOfWorkDontStompEachOther(t *testing.T) {
	l := ledger.New()
	l.Register(newClient("1", "100.00", map[string]int64{"STI.": 10}))

	uow := txn.NewUnitOfWork()
	joined := make(map[string]*txn.Tx[common.Client])
	require.NoError(t, l.AdjustBalance(uow, joined, "1", decimal.RequireFromString("-50.00")))
	require.NoError(t, l.AdjustHolding(uow, joined, "1", "STI.", 5))
	require.NoError(t, uow.Commit())

	c, _ := l.Get("1")
	assert.True(t, c.Balance.Equal(decimal.RequireFromString("50.00")))
	assert.Equal(t, int64(15), c.Holding("STI."))
}
