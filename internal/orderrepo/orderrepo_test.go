package orderrepo_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exstack/internal/common"
	"exstack/internal/orderrepo"
	"exstack/internal/txn"
)

func mkOrder(txid string, side common.Side, price string, market bool, volume int64, ts int64) common.Order {
	o := common.Order{Txid: txid, Symbol: "STI.", Side: side, Volume: volume, Ts: ts, IsMarket: market}
	if !market {
		o.Price = decimal.RequireFromString(price)
	}
	return o
}

func TestBuyBookForOrdersByPriceThenTimeThenTxid(t *testing.T) {
	r := orderrepo.New()
	r.Add(mkOrder("2", common.Buy, "99.00", false, 10, 2))
	r.Add(mkOrder("1", common.Buy, "100.00", false, 10, 1))
	r.Add(mkOrder("3", common.Buy, "99.00", false, 10, 1))

	buys := r.BuyBookFor("STI.")
	require.Len(t, buys, 3)
	assert.Equal(t, []string{"1", "3", "2"}, ids(buys))
}

func TestMarketOrdersSortAheadOfLimitOnSameSide(t *testing.T) {
	r := orderrepo.New()
	r.Add(mkOrder("1", common.Sell, "100.00", false, 10, 1))
	r.Add(mkOrder("2", common.Sell, "", true, 10, 2))

	sells := r.SellBookFor("STI.")
	require.Len(t, sells, 2)
	assert.Equal(t, "2", sells[0].Txid)
	assert.True(t, sells[0].IsMarket, "repository preserves the original market flag")
}

func TestClosedOrdersExcludedFromBookViews(t *testing.T) {
	r := orderrepo.New()
	r.Add(mkOrder("1", common.Buy, "100.00", false, 10, 1))

	uow := txn.NewUnitOfWork()
	_, err := r.Close(uow, "1")
	require.NoError(t, err)
	require.NoError(t, uow.Commit())

	assert.Empty(t, r.BuyBookFor("STI."))
	closed, ok := r.Get("1")
	require.True(t, ok)
	assert.True(t, closed.Closed)
}

func TestInsertSplitRemainderJoinsExistingUnitOfWork(t *testing.T) {
	r := orderrepo.New()
	r.Add(mkOrder("4", common.Sell, "1.00", false, 300, 1))

	uow := txn.NewUnitOfWork()
	_, err := r.Close(uow, "4")
	require.NoError(t, err)
	r.Insert(uow, mkOrder("4/1", common.Sell, "1.00", false, 50, 1))
	require.NoError(t, uow.Commit())

	sells := r.SellBookFor("STI.")
	require.Len(t, sells, 1)
	assert.Equal(t, "4/1", sells[0].Txid)
}

func ids(orders []common.Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.Txid
	}
	return out
}
