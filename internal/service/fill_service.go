package service

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/tradewatch/internal/models"
	"gorm.io/datatypes"
)

var (
	ErrMissingFillFields = errors.New("missing required fields")
)

// ClosedTradeStore persists closed trade summaries.
type ClosedTradeStore interface {
	Create(trade *models.ClosedTrade) error
}

// FillService handles directly-reported fills (the bot pushing its own
// execution events instead of being polled).
type FillService struct {
	fills        FillStore
	closedTrades ClosedTradeStore
}

// NewFillService creates a new FillService
func NewFillService(fills FillStore, closedTrades ClosedTradeStore) *FillService {
	return &FillService{
		fills:        fills,
		closedTrades: closedTrades,
	}
}

// DirectFillRequest is a directly-reported position change.
type DirectFillRequest struct {
	PositionID  string         `json:"position_id"`
	Symbol      string         `json:"symbol"`
	Side        *string        `json:"side"`
	EventType   string         `json:"event_type"`
	Qty         float64        `json:"qty"`
	Price       *float64       `json:"price"`
	RealizedPnL *float64       `json:"realized_pnl"`
	Meta        map[string]any `json:"meta"`
}

// Append validates and appends a direct fill. On a CLOSE event it also
// writes a closed trade summary row. The entry price is unknown on this
// path, so the summary carries only the exit side.
func (s *FillService) Append(req *DirectFillRequest, receivedAt time.Time) error {
	if req.PositionID == "" || req.Symbol == "" || req.EventType == "" {
		return ErrMissingFillFields
	}

	meta := map[string]any{
		"source": "fill",
	}
	for k, v := range req.Meta {
		meta[k] = v
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return err
	}

	fill := &models.Fill{
		TS:          receivedAt,
		PositionID:  req.PositionID,
		Symbol:      req.Symbol,
		Side:        req.Side,
		EventType:   models.FillEvent(req.EventType),
		Qty:         req.Qty,
		Price:       req.Price,
		RealizedPnL: req.RealizedPnL,
		Meta:        datatypes.JSON(metaJSON),
	}
	if _, err := s.fills.CreateIfAbsent(fill); err != nil {
		return err
	}

	if fill.EventType != models.FillEventClose {
		return nil
	}

	return s.closedTrades.Create(&models.ClosedTrade{
		ClosedAt:  receivedAt,
		Symbol:    req.Symbol,
		Side:      req.Side,
		Qty:       req.Qty,
		ExitPrice: req.Price,
		PnL:       req.RealizedPnL,
		Fees:      0,
	})
}
