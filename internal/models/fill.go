package models

import (
	"time"

	"gorm.io/datatypes"
)

// FillEvent classifies a position quantity change.
type FillEvent string

const (
	FillEventOpen  FillEvent = "OPEN"
	FillEventAdd   FillEvent = "ADD"
	FillEventTrim  FillEvent = "TRIM"
	FillEventClose FillEvent = "CLOSE"
)

// Fill is an append-only ledger row for a derived or directly-reported
// position quantity change. The (position_id, event_type, ts) tuple is the
// dedup key: repeated pulls of an unchanged snapshot must not produce a
// second row.
type Fill struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	TS          time.Time      `gorm:"uniqueIndex:idx_fills_dedup;index;not null" json:"ts"`
	PositionID  string         `gorm:"uniqueIndex:idx_fills_dedup;size:64;not null" json:"position_id"`
	Symbol      string         `gorm:"size:64;not null;index" json:"symbol"`
	Side        *string        `gorm:"size:10" json:"side"`
	EventType   FillEvent      `gorm:"uniqueIndex:idx_fills_dedup;size:10;not null" json:"event_type"`
	Qty         float64        `gorm:"type:decimal(20,8);not null" json:"qty"`
	Price       *float64       `gorm:"type:decimal(20,8)" json:"price"`
	RealizedPnL *float64       `gorm:"type:decimal(20,8)" json:"realized_pnl"`
	Meta        datatypes.JSON `gorm:"type:jsonb" json:"meta,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// TableName specifies the table name for Fill model
func (Fill) TableName() string {
	return "bot_fills"
}

// ClosedTrade is a derived summary row written when a CLOSE fill arrives on
// the direct-fill path.
type ClosedTrade struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ClosedAt   time.Time `gorm:"index;not null" json:"closed_at"`
	Symbol     string    `gorm:"size:64;not null;index" json:"symbol"`
	Side       *string   `gorm:"size:10" json:"side"`
	Qty        float64   `gorm:"type:decimal(20,8);not null" json:"qty"`
	EntryPrice *float64  `gorm:"type:decimal(20,8)" json:"entry_price"`
	ExitPrice  *float64  `gorm:"type:decimal(20,8)" json:"exit_price"`
	PnL        *float64  `gorm:"type:decimal(20,8)" json:"pnl"`
	Fees       float64   `gorm:"type:decimal(20,8);default:0" json:"fees"`
	Strategy   *string   `gorm:"size:64" json:"strategy"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for ClosedTrade model
func (ClosedTrade) TableName() string {
	return "bot_trades_closed"
}
