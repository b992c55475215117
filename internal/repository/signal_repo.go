package repository

import (
	"github.com/tradewatch/internal/models"
	"gorm.io/gorm"
)

// SignalRepository handles raw signal data access
type SignalRepository struct {
	db *gorm.DB
}

// NewSignalRepository creates a new SignalRepository
func NewSignalRepository(db *gorm.DB) *SignalRepository {
	return &SignalRepository{db: db}
}

// Create persists a raw signal row
func (r *SignalRepository) Create(signal *models.Signal) error {
	return r.db.Create(signal).Error
}

// GetRecent retrieves the most recent signals
func (r *SignalRepository) GetRecent(limit int) ([]models.Signal, error) {
	var signals []models.Signal
	result := r.db.Order("received_at DESC").Limit(limit).Find(&signals)
	return signals, result.Error
}

// GetBySymbol retrieves signals by symbol, newest first
func (r *SignalRepository) GetBySymbol(symbol string, limit int) ([]models.Signal, error) {
	var signals []models.Signal
	result := r.db.Where("symbol = ?", symbol).Order("received_at DESC").Limit(limit).Find(&signals)
	return signals, result.Error
}
