package exchange

// handleListStocks answers list_stocks with every listed symbol, sorted.
func (e *Exchange) handleListStocks() Response {
	resp := okResponse(string(MsgListStocks))
	resp.Symbols = e.market.Symbols()
	return resp
}

// handleInstrumentSummary answers instrument_summary with the stock's
// metadata plus its market tape (opening/closing/min/max price, trade
// counts, last trade).
func (e *Exchange) handleInstrumentSummary(req Request) Response {
	respType := string(MsgInstrumentSummary)
	stock, ok := e.market.Get(req.Symbol)
	if !ok {
		return errorResponse(respType, newError(KindUnknownSymbol, "unknown symbol"))
	}
	stall, _ := e.market.Stall(req.Symbol)

	resp := okResponse(respType)
	resp.Symbol = req.Symbol
	s := &Summary{
		Symbol:    stock.Symbol,
		Name:      stock.Name,
		NumTrades: stall.NTrades,
		VolTrades: stall.VTrades,
	}
	if stall.HasLastPrice {
		s.LastPrice = stall.LastPrice.String()
	}
	if stall.NTrades > 0 {
		s.MinPrice = stall.MinPrice.String()
		s.MaxPrice = stall.MaxPrice.String()
		s.OpeningPrice = stall.History[0].AvgPrice.String()
		s.ClosingPrice = stall.History[len(stall.History)-1].AvgPrice.String()
		last := stall.History[len(stall.History)-1]
		s.LastTradePrice = last.AvgPrice.String()
		s.LastTradeVolume = last.Volume
		s.LastTradeTs = last.Ts
	}
	resp.Summary = s
	return resp
}

// handleInstrumentTradeHistory answers instrument_trade_history with the
// full committed-trade tape for the symbol.
func (e *Exchange) handleInstrumentTradeHistory(req Request) Response {
	respType := string(MsgInstrumentTradeHistory)
	if _, ok := e.market.Get(req.Symbol); !ok {
		return errorResponse(respType, newError(KindUnknownSymbol, "unknown symbol"))
	}
	stall, _ := e.market.Stall(req.Symbol)

	resp := okResponse(respType)
	resp.Symbol = req.Symbol
	history := make([]TradeView, len(stall.History))
	for i, t := range stall.History {
		history[i] = newTradeView(t)
	}
	resp.History = history
	return resp
}

// handleInstrumentOrderbookSummary answers instrument_orderbook_summary
// with the book's depth/top-of-book stats (§4.1 Summary).
func (e *Exchange) handleInstrumentOrderbookSummary(req Request) Response {
	respType := string(MsgInstrumentOrderbookSummary)
	if _, ok := e.market.Get(req.Symbol); !ok {
		return errorResponse(respType, newError(KindUnknownSymbol, "unknown symbol"))
	}
	s := e.book.Summarise(req.Symbol)

	resp := okResponse(respType)
	resp.Symbol = req.Symbol
	v := &OrderbookSummaryView{
		DepthBuys:   s.DepthBuys,
		DepthSells:  s.DepthSells,
		TopNumBuys:  s.TopNumBuys,
		TopNumSells: s.TopNumSells,
		TopVolBuys:  s.TopVolBuys,
		TopVolSells: s.TopVolSells,
	}
	if s.HasBuy {
		v.CurrentBuy = s.CurrentBuy.String()
	}
	if s.HasSell {
		v.CurrentSell = s.CurrentSell.String()
	}
	resp.OrderbookSummary = v
	return resp
}

// handleInstrumentOrderbook answers instrument_orderbook with the live
// buy/sell book in price-time priority, truncated to req.Depth per side
// when the caller supplies a positive depth.
func (e *Exchange) handleInstrumentOrderbook(req Request) Response {
	respType := string(MsgInstrumentOrderbook)
	if _, ok := e.market.Get(req.Symbol); !ok {
		return errorResponse(respType, newError(KindUnknownSymbol, "unknown symbol"))
	}
	buys := e.book.BuyBook(req.Symbol)
	sells := e.book.SellBook(req.Symbol)
	if req.Depth > 0 {
		if len(buys) > req.Depth {
			buys = buys[:req.Depth]
		}
		if len(sells) > req.Depth {
			sells = sells[:req.Depth]
		}
	}

	resp := okResponse(respType)
	resp.Symbol = req.Symbol
	bv := &BookView{
		BuyBook:  make([]OrderView, len(buys)),
		SellBook: make([]OrderView, len(sells)),
	}
	for i, o := range buys {
		bv.BuyBook[i] = *newOrderView(o)
	}
	for i, o := range sells {
		bv.SellBook[i] = *newOrderView(o)
	}
	resp.Book = bv
	return resp
}
