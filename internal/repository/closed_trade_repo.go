package repository

import (
	"time"

	"github.com/tradewatch/internal/models"
	"gorm.io/gorm"
)

// ClosedTradeRepository handles closed trade summary data access
type ClosedTradeRepository struct {
	db *gorm.DB
}

// NewClosedTradeRepository creates a new ClosedTradeRepository
func NewClosedTradeRepository(db *gorm.DB) *ClosedTradeRepository {
	return &ClosedTradeRepository{db: db}
}

// Create creates a new closed trade record
func (r *ClosedTradeRepository) Create(trade *models.ClosedTrade) error {
	return r.db.Create(trade).Error
}

// GetRecent retrieves the most recent closed trades
func (r *ClosedTradeRepository) GetRecent(limit int) ([]models.ClosedTrade, error) {
	var trades []models.ClosedTrade
	result := r.db.Order("closed_at DESC").Limit(limit).Find(&trades)
	return trades, result.Error
}

// GetBySymbol retrieves closed trades by symbol, newest first
func (r *ClosedTradeRepository) GetBySymbol(symbol string) ([]models.ClosedTrade, error) {
	var trades []models.ClosedTrade
	result := r.db.Where("symbol = ?", symbol).Order("closed_at DESC").Find(&trades)
	return trades, result.Error
}

// SumPnLSince sums realized PnL over closed trades at or after the given time
func (r *ClosedTradeRepository) SumPnLSince(since time.Time) (float64, error) {
	var total struct {
		Sum float64
	}
	err := r.db.Model(&models.ClosedTrade{}).
		Select("COALESCE(SUM(pnl), 0) as sum").
		Where("closed_at >= ?", since).
		Scan(&total).Error
	return total.Sum, err
}

// CountSince counts closed trades at or after the given time
func (r *ClosedTradeRepository) CountSince(since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.ClosedTrade{}).Where("closed_at >= ?", since).Count(&count).Error
	return count, err
}
