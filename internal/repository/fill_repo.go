package repository

import (
	"time"

	"github.com/tradewatch/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FillRepository handles fill ledger data access
type FillRepository struct {
	db *gorm.DB
}

// NewFillRepository creates a new FillRepository
func NewFillRepository(db *gorm.DB) *FillRepository {
	return &FillRepository{db: db}
}

// CreateIfAbsent appends a fill unless one already exists for its
// (position_id, event_type, ts) dedup key. The uniqueness constraint plus
// ON CONFLICT DO NOTHING makes the check-then-insert a single conditional
// write, so concurrent pulls cannot double-insert. Returns whether a row
// was actually inserted.
func (r *FillRepository) CreateIfAbsent(fill *models.Fill) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "position_id"},
			{Name: "event_type"},
			{Name: "ts"},
		},
		DoNothing: true,
	}).Create(fill)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// GetRecent retrieves the most recent fills
func (r *FillRepository) GetRecent(limit int) ([]models.Fill, error) {
	var fills []models.Fill
	result := r.db.Order("ts DESC").Limit(limit).Find(&fills)
	return fills, result.Error
}

// GetByPositionID retrieves fills for a position, newest first
func (r *FillRepository) GetByPositionID(positionID string) ([]models.Fill, error) {
	var fills []models.Fill
	result := r.db.Where("position_id = ?", positionID).Order("ts DESC").Find(&fills)
	return fills, result.Error
}

// CountSince counts fills at or after the given time
func (r *FillRepository) CountSince(since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Fill{}).Where("ts >= ?", since).Count(&count).Error
	return count, err
}

// Count counts all fills
func (r *FillRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Fill{}).Count(&count).Error
	return count, err
}
