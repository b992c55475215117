package models

import (
	"time"

	"gorm.io/datatypes"
)

// Snapshot is a point-in-time capture of the bot account state.
// Immutable once written; the differ always compares the two most recent rows.
type Snapshot struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	TS             time.Time      `gorm:"index:idx_snapshots_ts,sort:desc;not null" json:"ts"`
	Cash           *float64       `gorm:"type:decimal(20,8)" json:"cash"`
	Equity         *float64       `gorm:"type:decimal(20,8)" json:"equity"`
	OpenPnL        *float64       `gorm:"type:decimal(20,8)" json:"open_pnl"`
	RealizedPnL    *float64       `gorm:"type:decimal(20,8)" json:"realized_pnl"`
	PositionsCount int            `gorm:"not null;default:0" json:"positions_count"`
	Raw            datatypes.JSON `gorm:"type:jsonb" json:"raw,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// TableName specifies the table name for Snapshot model
func (Snapshot) TableName() string {
	return "bot_snapshots"
}
