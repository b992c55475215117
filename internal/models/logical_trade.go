package models

import (
	"time"
)

// TradeDirection is the direction of a logical trade.
type TradeDirection string

const (
	TradeDirectionLong  TradeDirection = "LONG"
	TradeDirectionShort TradeDirection = "SHORT"
)

// LogicalTrade is a derived open/close pair built from directional alert
// signals, keyed by (strategy, symbol, timeframe). A trade is open while
// ExitTime is null. At most one open trade exists per key.
type LogicalTrade struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Strategy      string         `gorm:"size:64;not null;index:idx_trades_key" json:"strategy"`
	Symbol        string         `gorm:"size:64;not null;index:idx_trades_key" json:"symbol"`
	Timeframe     string         `gorm:"size:20;not null;index:idx_trades_key" json:"timeframe"`
	Direction     TradeDirection `gorm:"size:10;not null" json:"direction"`
	EntryTime     time.Time      `gorm:"index;not null" json:"entry_time"`
	EntryPrice    *float64       `gorm:"type:decimal(20,8)" json:"entry_price"`
	EntrySignalID *string        `gorm:"size:64" json:"entry_signal_id"`
	ExitTime      *time.Time     `gorm:"index" json:"exit_time"`
	ExitPrice     *float64       `gorm:"type:decimal(20,8)" json:"exit_price"`
	PnL           *float64       `gorm:"type:decimal(20,8)" json:"pnl"`
	Win           *bool          `json:"win"`
	ExitSignalID  *string        `gorm:"size:64" json:"exit_signal_id"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// TableName specifies the table name for LogicalTrade model
func (LogicalTrade) TableName() string {
	return "tv_trades"
}

// IsOpen reports whether the trade has not been closed yet.
func (t *LogicalTrade) IsOpen() bool {
	return t.ExitTime == nil
}

// ComputePnL returns the signed PnL for the trade direction, or nil when
// either price is missing.
func (t *LogicalTrade) ComputePnL(exitPrice *float64) *float64 {
	if t.EntryPrice == nil || exitPrice == nil {
		return nil
	}
	var pnl float64
	if t.Direction == TradeDirectionLong {
		pnl = *exitPrice - *t.EntryPrice
	} else {
		pnl = *t.EntryPrice - *exitPrice
	}
	return &pnl
}
