package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tradewatch/internal/models"
	"github.com/tradewatch/internal/service"
	"github.com/tradewatch/internal/upstream"
)

func TestDiffPositionsOpen(t *testing.T) {
	prev := map[string]upstream.Position{
		"AAPL": {"qty": float64(0)},
	}
	curr := map[string]upstream.Position{
		"AAPL": {"qty": float64(10), "entry_price": float64(150), "side": "LONG"},
	}

	events := service.DiffPositions(prev, curr)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, models.FillEventOpen, ev.EventType)
	assert.Equal(t, "AAPL", ev.PositionID)
	assert.Equal(t, 10.0, ev.Qty)
	require.NotNil(t, ev.Price)
	assert.Equal(t, 150.0, *ev.Price)
	require.NotNil(t, ev.Side)
	assert.Equal(t, "LONG", *ev.Side)
}

func TestDiffPositionsOpenFallsBackToMarkPrice(t *testing.T) {
	curr := map[string]upstream.Position{
		"AAPL": {"qty": float64(5), "mark": float64(151.5)},
	}

	events := service.DiffPositions(nil, curr)
	require.Len(t, events, 1)
	assert.Equal(t, models.FillEventOpen, events[0].EventType)
	require.NotNil(t, events[0].Price)
	assert.Equal(t, 151.5, *events[0].Price)
}

func TestDiffPositionsClose(t *testing.T) {
	prev := map[string]upstream.Position{
		"AAPL": {"qty": float64(10), "entry_price": float64(150), "mark": float64(155)},
	}
	curr := map[string]upstream.Position{
		"AAPL": {"qty": float64(0), "mark": float64(155)},
	}

	events := service.DiffPositions(prev, curr)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, models.FillEventClose, ev.EventType)
	assert.Equal(t, 10.0, ev.Qty)
	// CLOSE prefers the mark price over the entry price
	require.NotNil(t, ev.Price)
	assert.Equal(t, 155.0, *ev.Price)
}

func TestDiffPositionsCloseWhenKeyDisappears(t *testing.T) {
	prev := map[string]upstream.Position{
		"TSLA": {"qty": float64(3), "entry_price": float64(240)},
	}

	events := service.DiffPositions(prev, map[string]upstream.Position{})
	require.Len(t, events, 1)
	assert.Equal(t, models.FillEventClose, events[0].EventType)
	assert.Equal(t, 3.0, events[0].Qty)
}

func TestDiffPositionsAddAndTrim(t *testing.T) {
	tests := []struct {
		name      string
		prevQty   float64
		currQty   float64
		wantType  models.FillEvent
		wantDelta float64
	}{
		{"add", 5, 8, models.FillEventAdd, 3},
		{"trim", 8, 5, models.FillEventTrim, 3},
		{"add fractional", 1.5, 2.25, models.FillEventAdd, 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := map[string]upstream.Position{
				"SPY": {"qty": tt.prevQty, "mark": float64(450)},
			}
			curr := map[string]upstream.Position{
				"SPY": {"qty": tt.currQty, "mark": float64(450)},
			}

			events := service.DiffPositions(prev, curr)
			require.Len(t, events, 1)
			assert.Equal(t, tt.wantType, events[0].EventType)
			assert.InDelta(t, tt.wantDelta, events[0].Qty, 1e-9)
		})
	}
}

func TestDiffPositionsNoEventWhenUnchanged(t *testing.T) {
	prev := map[string]upstream.Position{
		"AAPL": {"qty": float64(10)},
	}
	curr := map[string]upstream.Position{
		"AAPL": {"qty": float64(10)},
	}

	assert.Empty(t, service.DiffPositions(prev, curr))
}

func TestDiffPositionsStaleZeroEntriesIgnored(t *testing.T) {
	// A key present with qty 0 on both or one side only produces no noise.
	prev := map[string]upstream.Position{
		"AAPL": {"qty": float64(0)},
	}
	curr := map[string]upstream.Position{
		"MSFT": {"qty": float64(0)},
	}

	assert.Empty(t, service.DiffPositions(prev, curr))
}

func TestDiffPositionsMalformedQtyCoercesToZero(t *testing.T) {
	prev := map[string]upstream.Position{
		"AAPL": {"qty": "abc"},
	}
	curr := map[string]upstream.Position{
		"AAPL": {"qty": float64(5), "entry_price": float64(100)},
	}

	events := service.DiffPositions(prev, curr)
	require.Len(t, events, 1)
	assert.Equal(t, models.FillEventOpen, events[0].EventType)
	assert.Equal(t, 5.0, events[0].Qty)
}

func TestDiffPositionsNumericStringQty(t *testing.T) {
	curr := map[string]upstream.Position{
		"AAPL": {"qty": "7", "entry_price": "101.25"},
	}

	events := service.DiffPositions(nil, curr)
	require.Len(t, events, 1)
	assert.Equal(t, 7.0, events[0].Qty)
	require.NotNil(t, events[0].Price)
	assert.Equal(t, 101.25, *events[0].Price)
}

func TestDiffPositionsPrefersOptionSymbol(t *testing.T) {
	curr := map[string]upstream.Position{
		"AAPL": {"qty": float64(1), "option_symbol": "AAPL260116C00200000", "mark": float64(5.2)},
	}

	events := service.DiffPositions(nil, curr)
	require.Len(t, events, 1)
	assert.Equal(t, "AAPL260116C00200000", events[0].PositionID)
	assert.Equal(t, "AAPL260116C00200000", events[0].Symbol)
}

func TestDiffPositionsOptionSymbolFromPreviousOnClose(t *testing.T) {
	prev := map[string]upstream.Position{
		"AAPL": {"qty": float64(1), "option_symbol": "AAPL260116C00200000", "mark": float64(4.8)},
	}

	events := service.DiffPositions(prev, map[string]upstream.Position{})
	require.Len(t, events, 1)
	assert.Equal(t, "AAPL260116C00200000", events[0].PositionID)
}

func TestDiffPositionsDeterministicOrder(t *testing.T) {
	curr := map[string]upstream.Position{
		"MSFT": {"qty": float64(2)},
		"AAPL": {"qty": float64(1)},
		"TSLA": {"qty": float64(3)},
	}

	events := service.DiffPositions(nil, curr)
	require.Len(t, events, 3)
	assert.Equal(t, "AAPL", events[0].PositionID)
	assert.Equal(t, "MSFT", events[1].PositionID)
	assert.Equal(t, "TSLA", events[2].PositionID)
}

func TestDiffPositionsMissingPricesYieldNil(t *testing.T) {
	curr := map[string]upstream.Position{
		"AAPL": {"qty": float64(5)},
	}

	events := service.DiffPositions(nil, curr)
	require.Len(t, events, 1)
	assert.Nil(t, events[0].Price)
	assert.Nil(t, events[0].Side)
}
