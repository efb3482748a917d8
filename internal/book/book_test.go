package book_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exstack/internal/book"
	"exstack/internal/common"
)

func limitOrder(txid string, side common.Side, price string, volume int64, ts int64) common.Order {
	return common.Order{
		Txid:   txid,
		Symbol: "STI.",
		Side:   side,
		Price:  decimal.RequireFromString(price),
		Volume: volume,
		Ts:     ts,
	}
}

func marketOrder(txid string, side common.Side, volume int64, ts int64) common.Order {
	return common.Order{
		Txid:     txid,
		Symbol:   "STI.",
		Side:     side,
		IsMarket: true,
		Volume:   volume,
		Ts:       ts,
	}
}

func TestBestBidAskTrackFiniteOrdersOnly(t *testing.T) {
	b := book.New()
	b.List("STI.")

	b.Add(limitOrder("1", common.Buy, "99.00", 100, 1))
	b.Add(limitOrder("2", common.Buy, "98.00", 50, 2))
	b.Add(marketOrder("3", common.Buy, 10, 3))

	bid, ok := b.BestBid("STI.")
	require.True(t, ok)
	assert.True(t, bid.Equal(decimal.RequireFromString("99.00")))

	_, ok = b.BestAsk("STI.")
	assert.False(t, ok)
}

func TestRemoveRecomputesBest(t *testing.T) {
	b := book.New()
	b.List("STI.")

	b.Add(limitOrder("1", common.Sell, "100.00", 100, 1))
	b.Add(limitOrder("2", common.Sell, "101.00", 50, 2))

	ask, ok := b.BestAsk("STI.")
	require.True(t, ok)
	assert.True(t, ask.Equal(decimal.RequireFromString("100.00")))

	assert.True(t, b.Remove("STI.", "1"))

	ask, ok = b.BestAsk("STI.")
	require.True(t, ok)
	assert.True(t, ask.Equal(decimal.RequireFromString("101.00")))
}

func TestClosedOrdersNotVisibleAfterRemove(t *testing.T) {
	b := book.New()
	b.List("STI.")

	b.Add(limitOrder("1", common.Buy, "99.00", 100, 1))
	b.Add(limitOrder("2", common.Buy, "99.00", 50, 2))

	assert.True(t, b.Remove("STI.", "1"))

	buys := b.BuyBook("STI.")
	require.Len(t, buys, 1)
	assert.Equal(t, "2", buys[0].Txid)
}

func TestPriceTimePriorityOrdering(t *testing.T) {
	b := book.New()
	b.List("STI.")

	b.Add(limitOrder("2", common.Buy, "99.00", 10, 2))
	b.Add(limitOrder("1", common.Buy, "100.00", 10, 1))
	b.Add(limitOrder("3", common.Buy, "99.00", 10, 1))

	buys := b.BuyBook("STI.")
	require.Len(t, buys, 3)
	// Higher price first; within 99.00 level, lower ts first.
	assert.Equal(t, []string{"1", "3", "2"}, []string{buys[0].Txid, buys[1].Txid, buys[2].Txid})
}

func TestMarketOrderSentinelSortsFirstOnItsSide(t *testing.T) {
	b := book.New()
	b.List("STI.")

	b.Add(limitOrder("1", common.Sell, "100.00", 10, 1))
	b.Add(marketOrder("2", common.Sell, 10, 2))

	sells := b.SellBook("STI.")
	require.Len(t, sells, 2)
	assert.Equal(t, "2", sells[0].Txid, "resting market sell always outranks a finite ask")
}

func TestSummariseTopCountsOnlyCurrentBestLevel(t *testing.T) {
	b := book.New()
	b.List("STI.")

	b.Add(limitOrder("1", common.Buy, "99.00", 100, 1))
	b.Add(limitOrder("2", common.Buy, "99.00", 50, 2))
	b.Add(limitOrder("3", common.Buy, "98.00", 999, 3))

	s := b.Summarise("STI.")
	assert.Equal(t, 3, s.DepthBuys)
	assert.Equal(t, 2, s.TopNumBuys)
	assert.Equal(t, int64(150), s.TopVolBuys)
}
