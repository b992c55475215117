package models

// TradeAggregate is the raw aggregate scanned from closed logical trades.
// Ratio fields are derived in the stats service, not in SQL, so the math is
// testable without a database.
type TradeAggregate struct {
	Strategy    string  `json:"strategy,omitempty"`
	Symbol      string  `json:"symbol,omitempty"`
	Timeframe   string  `json:"timeframe,omitempty"`
	Trades      int64   `json:"trades"`
	NetPnL      float64 `json:"net_pnl"`
	GrossProfit float64 `json:"gross_profit"`
	GrossLoss   float64 `json:"gross_loss"`
	Wins        int64   `json:"wins"`
	Decided     int64   `json:"decided"`
}

// TradeStats is a TradeAggregate with derived performance ratios. Ratio
// fields are nil when undefined (no decided trades, no losing trades).
type TradeStats struct {
	Strategy     string   `json:"strategy,omitempty"`
	Symbol       string   `json:"symbol,omitempty"`
	Timeframe    string   `json:"timeframe,omitempty"`
	Trades       int64    `json:"trades"`
	NetPnL       float64  `json:"net_pnl"`
	GrossProfit  float64  `json:"gross_profit"`
	GrossLoss    float64  `json:"gross_loss"`
	ProfitFactor *float64 `json:"profit_factor"`
	WinRatePct   *float64 `json:"win_rate_pct"`
	AvgPnL       *float64 `json:"avg_pnl"`
}

// WindowStats summarizes ledger activity over a reporting window. The
// closed-trade figures come in two flavors: signal-derived logical trades
// and the direct-fill summaries the bot reports itself.
type WindowStats struct {
	Fills        int64   `json:"fills"`
	ClosedTrades int64   `json:"closed_trades"`
	NetPnL       float64 `json:"net_pnl"`
	BotClosed    int64   `json:"bot_closed"`
	BotNetPnL    float64 `json:"bot_net_pnl"`
}
