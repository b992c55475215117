package models

import (
	"time"

	"gorm.io/datatypes"
)

// SignalAction is the directional action carried by an alert.
type SignalAction string

const (
	SignalActionLong  SignalAction = "LONG"
	SignalActionShort SignalAction = "SHORT"
	SignalActionClose SignalAction = "CLOSE"
)

// SignalTypeExec marks payloads that drive the logical trade state machine.
const SignalTypeExec = "EXEC"

// Signal is a raw inbound alert. Every payload is persisted verbatim in Raw
// regardless of validity; the normalized columns are best-effort.
type Signal struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	ReceivedAt time.Time      `gorm:"index;not null" json:"received_at"`
	SignalType *string        `gorm:"size:20" json:"signal_type"`
	Strategy   *string        `gorm:"size:64" json:"strategy"`
	Symbol     *string        `gorm:"size:64;index" json:"symbol"`
	Action     *string        `gorm:"size:20" json:"action"`
	Timeframe  *string        `gorm:"size:20" json:"timeframe"`
	SignalID   *string        `gorm:"size:64" json:"signal_id"`
	BarTime    *time.Time     `json:"bar_time"`
	Price      *float64       `gorm:"type:decimal(20,8)" json:"price"`
	Raw        datatypes.JSON `gorm:"type:jsonb" json:"raw,omitempty"`
}

// TableName specifies the table name for Signal model
func (Signal) TableName() string {
	return "tv_signals"
}
