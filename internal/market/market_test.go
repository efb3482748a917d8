package market_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exstack/internal/common"
	"exstack/internal/market"
)

func TestListSeedsDefaultReferencePrice(t *testing.T) {
	r := market.NewRegistry()
	r.List(common.Stock{Symbol: "STI.", Name: "Stinova"}, decimal.Zero)

	ref, ok := r.ReferencePrice("STI.")
	require.True(t, ok)
	assert.True(t, ref.Equal(decimal.NewFromInt(1)))
}

func TestRecordTradeUpdatesTapeAndHistory(t *testing.T) {
	r := market.NewRegistry()
	r.List(common.Stock{Symbol: "STI.", Name: "Stinova"}, decimal.RequireFromString("50.00"))

	r.RecordTrade(common.Trade{Tid: "t1", Symbol: "STI.", AvgPrice: decimal.RequireFromString("60.00"), Volume: 10})
	r.RecordTrade(common.Trade{Tid: "t2", Symbol: "STI.", AvgPrice: decimal.RequireFromString("40.00"), Volume: 5})

	stall, ok := r.Stall("STI.")
	require.True(t, ok)
	assert.True(t, stall.LastPrice.Equal(decimal.RequireFromString("40.00")))
	assert.True(t, stall.MinPrice.Equal(decimal.RequireFromString("40.00")))
	assert.True(t, stall.MaxPrice.Equal(decimal.RequireFromString("60.00")))
	assert.Equal(t, int64(2), stall.NTrades)
	assert.Equal(t, int64(15), stall.VTrades)
	assert.Len(t, stall.History, 2)
}

func TestSymbolsSortedAndListIsIdempotent(t *testing.T) {
	r := market.NewRegistry()
	r.List(common.Stock{Symbol: "STI."}, decimal.Zero)
	r.List(common.Stock{Symbol: "ELAN"}, decimal.Zero)
	r.List(common.Stock{Symbol: "STI."}, decimal.RequireFromString("99.00"))

	assert.Equal(t, []string{"ELAN", "STI."}, r.Symbols())

	ref, _ := r.ReferencePrice("STI.")
	assert.True(t, ref.Equal(decimal.NewFromInt(1)), "relisting an existing symbol must not reseed its tape")
}
