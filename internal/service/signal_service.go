package service

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tradewatch/internal/models"
	"github.com/tradewatch/internal/repository"
	"gorm.io/datatypes"
)

// SignalStore persists raw signal rows.
type SignalStore interface {
	Create(signal *models.Signal) error
}

// LogicalTradeStore drives the open/close trade state machine.
type LogicalTradeStore interface {
	OpenIfAbsent(trade *models.LogicalTrade) (bool, error)
	CloseLatestOpen(strategy, symbol, timeframe string, update func(*models.LogicalTrade) error) error
}

// AlertPayload is a normalized inbound alert. Strings are trimmed with empty
// treated as absent; action and type are upper-cased; numeric strings are
// accepted for the price.
type AlertPayload struct {
	Type      string
	Secret    string
	Strategy  string
	Symbol    string
	Timeframe string
	Action    string
	SignalID  string
	BarTime   *time.Time
	Price     *float64
}

// ParseAlert normalizes a decoded alert body.
func ParseAlert(body map[string]any) *AlertPayload {
	return &AlertPayload{
		Type:      strings.ToUpper(cleanStr(body["type"])),
		Secret:    cleanStr(body["secret"]),
		Strategy:  cleanStr(body["strategy"]),
		Symbol:    cleanStr(body["symbol"]),
		Timeframe: cleanStr(body["timeframe"]),
		Action:    strings.ToUpper(cleanStr(body["action"])),
		SignalID:  cleanStr(body["signal_id"]),
		BarTime:   cleanTime(body["bar_time"]),
		Price:     cleanNum(body["price"]),
	}
}

// IsExecutable reports whether the alert should drive the trade state
// machine: execution type with non-empty symbol, timeframe, and a known
// directional action.
func (a *AlertPayload) IsExecutable() bool {
	if a.Type != models.SignalTypeExec {
		return false
	}
	if a.Symbol == "" || a.Timeframe == "" {
		return false
	}
	switch models.SignalAction(a.Action) {
	case models.SignalActionLong, models.SignalActionShort, models.SignalActionClose:
		return true
	}
	return false
}

// SignalService ingests alert payloads and maintains logical trades.
type SignalService struct {
	signals SignalStore
	trades  LogicalTradeStore
}

// NewSignalService creates a new SignalService
func NewSignalService(signals SignalStore, trades LogicalTradeStore) *SignalService {
	return &SignalService{
		signals: signals,
		trades:  trades,
	}
}

// IngestResult reports what one ingested payload did.
type IngestResult struct {
	Executed    bool `json:"executed"`
	TradeOpened bool `json:"trade_opened"`
	TradeClosed bool `json:"trade_closed"`
}

// Ingest stores the raw payload first, unconditionally, then attempts the
// trade-state transition for executable alerts. A CLOSE with no open trade
// for its key is an accepted no-op.
func (s *SignalService) Ingest(alert *AlertPayload, raw []byte, receivedAt time.Time) (*IngestResult, error) {
	if err := s.signals.Create(buildSignal(alert, raw, receivedAt)); err != nil {
		return nil, err
	}

	result := &IngestResult{}
	if !alert.IsExecutable() {
		return result, nil
	}
	result.Executed = true

	signalID := alert.SignalID
	if signalID == "" {
		signalID = uuid.New().String()
	}

	eventTime := receivedAt
	if alert.BarTime != nil {
		eventTime = *alert.BarTime
	}

	switch models.SignalAction(alert.Action) {
	case models.SignalActionLong, models.SignalActionShort:
		direction := models.TradeDirectionLong
		if models.SignalAction(alert.Action) == models.SignalActionShort {
			direction = models.TradeDirectionShort
		}
		opened, err := s.trades.OpenIfAbsent(&models.LogicalTrade{
			Strategy:      alert.Strategy,
			Symbol:        alert.Symbol,
			Timeframe:     alert.Timeframe,
			Direction:     direction,
			EntryTime:     eventTime,
			EntryPrice:    alert.Price,
			EntrySignalID: &signalID,
		})
		if err != nil {
			return nil, err
		}
		result.TradeOpened = opened

	case models.SignalActionClose:
		err := s.trades.CloseLatestOpen(alert.Strategy, alert.Symbol, alert.Timeframe, func(t *models.LogicalTrade) error {
			t.ExitTime = &eventTime
			t.ExitPrice = alert.Price
			t.ExitSignalID = &signalID
			t.PnL = t.ComputePnL(alert.Price)
			if t.PnL != nil {
				win := *t.PnL > 0
				t.Win = &win
			}
			return nil
		})
		if err != nil {
			if errors.Is(err, repository.ErrNoOpenTrade) {
				return result, nil
			}
			return nil, err
		}
		result.TradeClosed = true
	}

	return result, nil
}

func buildSignal(alert *AlertPayload, raw []byte, receivedAt time.Time) *models.Signal {
	if !json.Valid(raw) {
		raw = []byte("{}")
	}
	return &models.Signal{
		ReceivedAt: receivedAt,
		SignalType: strPtr(alert.Type),
		Strategy:   strPtr(alert.Strategy),
		Symbol:     strPtr(alert.Symbol),
		Action:     strPtr(alert.Action),
		Timeframe:  strPtr(alert.Timeframe),
		SignalID:   strPtr(alert.SignalID),
		BarTime:    alert.BarTime,
		Price:      alert.Price,
		Raw:        datatypes.JSON(raw),
	}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func cleanStr(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

func cleanNum(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return &f
		}
	}
	return nil
}

func cleanTime(v any) *time.Time {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			ts = ts.UTC()
			return &ts
		}
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			ts = ts.UTC()
			return &ts
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
			ts := unixTime(f)
			return &ts
		}
	case float64:
		if t > 0 {
			ts := unixTime(t)
			return &ts
		}
	}
	return nil
}

// unixTime accepts both second and millisecond epochs; alert sources are not
// consistent about which they send.
func unixTime(v float64) time.Time {
	if v > 1e12 {
		return time.UnixMilli(int64(v)).UTC()
	}
	return time.Unix(int64(v), 0).UTC()
}
