package matcher

import (
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"exstack/internal/common"
)

// ErrSplitInvalid is raised by SplitSell when asked to split a non-sell
// order or an excess volume that isn't strictly between zero and the
// order's own volume.
var ErrSplitInvalid = errors.New("matcher: invalid sell split")

// BuildTrade folds a Result into a common.Trade. Every Result carries a
// resolved execution price, so avg_price is that price and total_price is
// execution_price*volume; the per-sell price sum is not computed.
func BuildTrade(tid string, ts int64, r *Result) common.Trade {
	sellTxids := make([]string, len(r.Sells))
	for i, s := range r.Sells {
		sellTxids[i] = s.Txid
	}

	totalPrice := r.ExecutionPrice.Mul(decimal.NewFromInt(r.Volume))

	return common.Trade{
		Tid:        tid,
		Ts:         ts,
		Symbol:     r.Buy.Symbol,
		BuyTxid:    r.Buy.Txid,
		SellTxids:  sellTxids,
		AvgPrice:   r.ExecutionPrice,
		TotalPrice: totalPrice,
		Volume:     r.Volume,
		Excess:     r.Excess,
	}
}

// SplitSell truncates a matched sell to its consumed volume and returns a
// new resting sell for the untouched excess, same price, same client, same
// ts, filed under the parent's txid with "/N" appended — N is 1 for a
// first split, or one past an existing "/K" suffix.
func SplitSell(sell common.Order, excess int64) (truncated, remainder common.Order, err error) {
	if sell.Side != common.Sell {
		return common.Order{}, common.Order{}, ErrSplitInvalid
	}
	if excess <= 0 || excess >= sell.Volume {
		return common.Order{}, common.Order{}, ErrSplitInvalid
	}

	truncated = sell
	truncated.Volume -= excess

	remainder = sell
	remainder.Volume = excess
	remainder.Closed = false
	remainder.Txid = nextSplitTxid(sell.Txid)

	return truncated, remainder, nil
}

func nextSplitTxid(txid string) string {
	parent, suffix, found := strings.Cut(txid, "/")
	if !found {
		return parent + "/1"
	}
	n, err := strconv.Atoi(suffix)
	if err != nil {
		n = 0
	}
	return parent + "/" + strconv.Itoa(n+1)
}
