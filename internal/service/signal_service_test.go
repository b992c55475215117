package service_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tradewatch/internal/models"
	"github.com/tradewatch/internal/repository"
	"github.com/tradewatch/internal/service"
)

type fakeSignalStore struct {
	signals []*models.Signal
	err     error
}

func (f *fakeSignalStore) Create(signal *models.Signal) error {
	if f.err != nil {
		return f.err
	}
	f.signals = append(f.signals, signal)
	return nil
}

// fakeTradeStore mimics the one-open-trade-per-key behavior of the real
// repository.
type fakeTradeStore struct {
	trades []*models.LogicalTrade
}

func (f *fakeTradeStore) openFor(strategy, symbol, timeframe string) *models.LogicalTrade {
	var latest *models.LogicalTrade
	for _, t := range f.trades {
		if t.Strategy != strategy || t.Symbol != symbol || t.Timeframe != timeframe || !t.IsOpen() {
			continue
		}
		if latest == nil || t.EntryTime.After(latest.EntryTime) {
			latest = t
		}
	}
	return latest
}

func (f *fakeTradeStore) OpenIfAbsent(trade *models.LogicalTrade) (bool, error) {
	if f.openFor(trade.Strategy, trade.Symbol, trade.Timeframe) != nil {
		return false, nil
	}
	f.trades = append(f.trades, trade)
	return true, nil
}

func (f *fakeTradeStore) CloseLatestOpen(strategy, symbol, timeframe string, update func(*models.LogicalTrade) error) error {
	trade := f.openFor(strategy, symbol, timeframe)
	if trade == nil {
		return repository.ErrNoOpenTrade
	}
	return update(trade)
}

func execAlert(action string, price float64) *service.AlertPayload {
	return service.ParseAlert(map[string]any{
		"type":      "EXEC",
		"strategy":  "breakout",
		"symbol":    "AAPL",
		"timeframe": "15",
		"action":    action,
		"price":     price,
	})
}

func TestIngestLongOpensTrade(t *testing.T) {
	signals := &fakeSignalStore{}
	trades := &fakeTradeStore{}
	svc := service.NewSignalService(signals, trades)

	result, err := svc.Ingest(execAlert("LONG", 100), []byte(`{}`), time.Now().UTC())
	require.NoError(t, err)

	assert.True(t, result.Executed)
	assert.True(t, result.TradeOpened)
	require.Len(t, trades.trades, 1)
	assert.Equal(t, models.TradeDirectionLong, trades.trades[0].Direction)
	require.NotNil(t, trades.trades[0].EntryPrice)
	assert.Equal(t, 100.0, *trades.trades[0].EntryPrice)
	require.NotNil(t, trades.trades[0].EntrySignalID)
	assert.NotEmpty(t, *trades.trades[0].EntrySignalID)
}

func TestIngestSecondLongIsNoOp(t *testing.T) {
	signals := &fakeSignalStore{}
	trades := &fakeTradeStore{}
	svc := service.NewSignalService(signals, trades)

	now := time.Now().UTC()
	_, err := svc.Ingest(execAlert("LONG", 100), []byte(`{}`), now)
	require.NoError(t, err)

	result, err := svc.Ingest(execAlert("LONG", 101), []byte(`{}`), now.Add(time.Minute))
	require.NoError(t, err)

	assert.True(t, result.Executed)
	assert.False(t, result.TradeOpened)
	assert.Len(t, trades.trades, 1, "exactly one open trade per key")
	// Both raw signals are still stored.
	assert.Len(t, signals.signals, 2)
}

func TestIngestCloseLongComputesPnL(t *testing.T) {
	signals := &fakeSignalStore{}
	trades := &fakeTradeStore{}
	svc := service.NewSignalService(signals, trades)

	now := time.Now().UTC()
	_, err := svc.Ingest(execAlert("LONG", 100), []byte(`{}`), now)
	require.NoError(t, err)

	result, err := svc.Ingest(execAlert("CLOSE", 110), []byte(`{}`), now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, result.TradeClosed)

	trade := trades.trades[0]
	require.NotNil(t, trade.ExitTime)
	require.NotNil(t, trade.PnL)
	assert.Equal(t, 10.0, *trade.PnL)
	require.NotNil(t, trade.Win)
	assert.True(t, *trade.Win)
}

func TestIngestCloseShortComputesPnL(t *testing.T) {
	signals := &fakeSignalStore{}
	trades := &fakeTradeStore{}
	svc := service.NewSignalService(signals, trades)

	now := time.Now().UTC()
	_, err := svc.Ingest(execAlert("SHORT", 100), []byte(`{}`), now)
	require.NoError(t, err)

	_, err = svc.Ingest(execAlert("CLOSE", 110), []byte(`{}`), now.Add(time.Hour))
	require.NoError(t, err)

	trade := trades.trades[0]
	require.NotNil(t, trade.PnL)
	assert.Equal(t, -10.0, *trade.PnL)
	require.NotNil(t, trade.Win)
	assert.False(t, *trade.Win)
}

func TestIngestCloseWithoutOpenTradeIsAccepted(t *testing.T) {
	signals := &fakeSignalStore{}
	trades := &fakeTradeStore{}
	svc := service.NewSignalService(signals, trades)

	result, err := svc.Ingest(execAlert("CLOSE", 110), []byte(`{}`), time.Now().UTC())
	require.NoError(t, err)

	assert.True(t, result.Executed)
	assert.False(t, result.TradeClosed)
	assert.Len(t, signals.signals, 1, "raw signal stored even for the no-op")
}

func TestIngestCloseWithoutPricesLeavesPnLNil(t *testing.T) {
	signals := &fakeSignalStore{}
	trades := &fakeTradeStore{}
	svc := service.NewSignalService(signals, trades)

	now := time.Now().UTC()
	open := service.ParseAlert(map[string]any{
		"type": "EXEC", "strategy": "breakout", "symbol": "AAPL",
		"timeframe": "15", "action": "LONG",
	})
	_, err := svc.Ingest(open, []byte(`{}`), now)
	require.NoError(t, err)

	closeAlert := service.ParseAlert(map[string]any{
		"type": "EXEC", "strategy": "breakout", "symbol": "AAPL",
		"timeframe": "15", "action": "CLOSE",
	})
	_, err = svc.Ingest(closeAlert, []byte(`{}`), now.Add(time.Minute))
	require.NoError(t, err)

	trade := trades.trades[0]
	require.NotNil(t, trade.ExitTime)
	assert.Nil(t, trade.PnL)
	assert.Nil(t, trade.Win)
}

func TestIngestNonExecutableOnlyStoresRaw(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
	}{
		{"wrong type", map[string]any{"type": "INFO", "symbol": "AAPL", "timeframe": "15", "action": "LONG"}},
		{"missing symbol", map[string]any{"type": "EXEC", "timeframe": "15", "action": "LONG"}},
		{"missing timeframe", map[string]any{"type": "EXEC", "symbol": "AAPL", "action": "LONG"}},
		{"unknown action", map[string]any{"type": "EXEC", "symbol": "AAPL", "timeframe": "15", "action": "HOLD"}},
		{"empty payload", map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signals := &fakeSignalStore{}
			trades := &fakeTradeStore{}
			svc := service.NewSignalService(signals, trades)

			raw, _ := json.Marshal(tt.body)
			result, err := svc.Ingest(service.ParseAlert(tt.body), raw, time.Now().UTC())
			require.NoError(t, err)

			assert.False(t, result.Executed)
			assert.Len(t, signals.signals, 1)
			assert.Empty(t, trades.trades)
		})
	}
}

func TestParseAlertNormalization(t *testing.T) {
	alert := service.ParseAlert(map[string]any{
		"type":      " exec ",
		"action":    "long",
		"symbol":    "  AAPL  ",
		"timeframe": "15",
		"strategy":  "   ",
		"price":     "101.5",
		"bar_time":  "2026-08-30T14:00:00Z",
	})

	assert.Equal(t, "EXEC", alert.Type)
	assert.Equal(t, "LONG", alert.Action)
	assert.Equal(t, "AAPL", alert.Symbol)
	assert.Equal(t, "", alert.Strategy, "whitespace-only is absent")
	require.NotNil(t, alert.Price)
	assert.Equal(t, 101.5, *alert.Price)
	require.NotNil(t, alert.BarTime)
	assert.Equal(t, time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC), alert.BarTime.UTC())
	assert.True(t, alert.IsExecutable())
}

func TestParseAlertUnixBarTime(t *testing.T) {
	alert := service.ParseAlert(map[string]any{"bar_time": float64(1756562400)})
	require.NotNil(t, alert.BarTime)
	assert.Equal(t, int64(1756562400), alert.BarTime.Unix())

	alert = service.ParseAlert(map[string]any{"bar_time": float64(1756562400000)})
	require.NotNil(t, alert.BarTime)
	assert.Equal(t, int64(1756562400), alert.BarTime.Unix())
}

func TestParseAlertGarbageFieldsResolveAbsent(t *testing.T) {
	alert := service.ParseAlert(map[string]any{
		"price":    "not-a-number",
		"bar_time": "yesterday",
		"symbol":   42,
	})
	assert.Nil(t, alert.Price)
	assert.Nil(t, alert.BarTime)
	assert.Equal(t, "", alert.Symbol)
	assert.False(t, alert.IsExecutable())
}

func TestIngestBarTimeUsedAsEntryTime(t *testing.T) {
	signals := &fakeSignalStore{}
	trades := &fakeTradeStore{}
	svc := service.NewSignalService(signals, trades)

	barTime := "2026-08-30T14:00:00Z"
	alert := service.ParseAlert(map[string]any{
		"type": "EXEC", "symbol": "AAPL", "timeframe": "15",
		"action": "LONG", "bar_time": barTime,
	})

	_, err := svc.Ingest(alert, []byte(`{}`), time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, trades.trades, 1)
	assert.Equal(t, time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC), trades.trades[0].EntryTime.UTC())
}
