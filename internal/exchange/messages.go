package exchange

import "exstack/internal/common"

// MessageType is the request envelope's message_type discriminator.
type MessageType string

const (
	MsgNewOrder                   MessageType = "new_order"
	MsgListStocks                 MessageType = "list_stocks"
	MsgInstrumentSummary          MessageType = "instrument_summary"
	MsgInstrumentTradeHistory     MessageType = "instrument_trade_history"
	MsgInstrumentOrderbookSummary MessageType = "instrument_orderbook_summary"
	MsgInstrumentOrderbook        MessageType = "instrument_orderbook"
)

// Request is the line-oriented request envelope decoded off the wire. Not
// every field applies to every MessageType; see the per-type comments.
type Request struct {
	MessageType MessageType `json:"message_type"`
	Txid        string      `json:"txid,omitempty"`
	SenderTs    *int64      `json:"sender_ts,omitempty"`

	// new_order fields.
	BrokerID  string  `json:"broker_id,omitempty"`
	AccountID string  `json:"account_id,omitempty"`
	Side      string  `json:"side,omitempty"`
	Symbol    string  `json:"symbol,omitempty"`
	Price     *string `json:"price,omitempty"`
	Volume    int64   `json:"volume,omitempty"`

	// instrument_orderbook field: caller-specified truncation depth.
	Depth int `json:"depth,omitempty"`
}

// Response is the envelope returned on the same connection.
type Response struct {
	ResponseType string `json:"response_type"`
	ResponseCode int    `json:"response_code"`
	Msg          string `json:"msg"`
	Symbol       string `json:"symbol,omitempty"`

	Order            *OrderView            `json:"order,omitempty"`
	Symbols          []string              `json:"symbols,omitempty"`
	Summary          *Summary              `json:"summary,omitempty"`
	History          []TradeView           `json:"trade_history,omitempty"`
	Book             *BookView             `json:"book,omitempty"`
	OrderbookSummary *OrderbookSummaryView `json:"orderbook_summary,omitempty"`
}

// OrderView is the wire projection of a common.Order.
type OrderView struct {
	Txid     string `json:"txid"`
	CSID     string `json:"csid"`
	Side     string `json:"side"`
	Symbol   string `json:"symbol"`
	Price    string `json:"price,omitempty"`
	IsMarket bool   `json:"is_market"`
	Volume   int64  `json:"volume"`
	Closed   bool   `json:"closed"`
}

func newOrderView(o common.Order) *OrderView {
	v := &OrderView{
		Txid:     o.Txid,
		CSID:     o.CSID,
		Side:     o.Side.String(),
		Symbol:   o.Symbol,
		IsMarket: o.IsMarket,
		Volume:   o.Volume,
		Closed:   o.Closed,
	}
	if !o.IsMarket {
		v.Price = o.Price.String()
	}
	return v
}

// Summary is the instrument_summary response payload.
type Summary struct {
	Symbol          string `json:"symbol"`
	Name            string `json:"name"`
	OpeningPrice    string `json:"opening_price,omitempty"`
	ClosingPrice    string `json:"closing_price,omitempty"`
	LastPrice       string `json:"last_price,omitempty"`
	MinPrice        string `json:"min_price,omitempty"`
	MaxPrice        string `json:"max_price,omitempty"`
	NumTrades       int64  `json:"num_trades"`
	VolTrades       int64  `json:"vol_trades"`
	LastTradePrice  string `json:"last_trade_price,omitempty"`
	LastTradeVolume int64  `json:"last_trade_volume,omitempty"`
	LastTradeTs     int64  `json:"last_trade_ts,omitempty"`
}

// TradeView is the wire projection of a common.Trade.
type TradeView struct {
	Tid        string   `json:"tid"`
	Ts         int64    `json:"ts"`
	BuyTxid    string   `json:"buy_txid"`
	SellTxids  []string `json:"sell_txids"`
	AvgPrice   string   `json:"avg_price"`
	TotalPrice string   `json:"total_price"`
	Volume     int64    `json:"volume"`
	Excess     int64    `json:"excess"`
}

func newTradeView(t common.Trade) TradeView {
	return TradeView{
		Tid:        t.Tid,
		Ts:         t.Ts,
		BuyTxid:    t.BuyTxid,
		SellTxids:  t.SellTxids,
		AvgPrice:   t.AvgPrice.String(),
		TotalPrice: t.TotalPrice.String(),
		Volume:     t.Volume,
		Excess:     t.Excess,
	}
}

// BookView is the instrument_orderbook response payload, truncated to the
// caller's requested depth.
type BookView struct {
	BuyBook  []OrderView `json:"buy_book"`
	SellBook []OrderView `json:"sell_book"`
}

// OrderbookSummaryView is the instrument_orderbook_summary response payload.
type OrderbookSummaryView struct {
	DepthBuys   int    `json:"depth_buys"`
	DepthSells  int    `json:"depth_sells"`
	TopNumBuys  int    `json:"top_num_buys"`
	TopNumSells int    `json:"top_num_sells"`
	TopVolBuys  int64  `json:"top_vol_buys"`
	TopVolSells int64  `json:"top_vol_sells"`
	CurrentBuy  string `json:"current_buy,omitempty"`
	CurrentSell string `json:"current_sell,omitempty"`
}
