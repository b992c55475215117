package repository

import (
	"errors"

	"github.com/tradewatch/internal/models"
	"gorm.io/gorm"
)

var (
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// SnapshotRepository handles snapshot data access
type SnapshotRepository struct {
	db *gorm.DB
}

// NewSnapshotRepository creates a new SnapshotRepository
func NewSnapshotRepository(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Create creates a new snapshot
func (r *SnapshotRepository) Create(snapshot *models.Snapshot) error {
	return r.db.Create(snapshot).Error
}

// GetLatest retrieves the most recent snapshot
func (r *SnapshotRepository) GetLatest() (*models.Snapshot, error) {
	var snapshot models.Snapshot
	result := r.db.Order("ts DESC").First(&snapshot)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrSnapshotNotFound
		}
		return nil, result.Error
	}
	return &snapshot, nil
}

// GetLatestTwo retrieves the two most recent snapshots, newest first.
// The second row, when present, is the previous state the differ runs against.
func (r *SnapshotRepository) GetLatestTwo() ([]models.Snapshot, error) {
	var snapshots []models.Snapshot
	result := r.db.Order("ts DESC").Limit(2).Find(&snapshots)
	return snapshots, result.Error
}

// GetRecent retrieves the most recent snapshots
func (r *SnapshotRepository) GetRecent(limit int) ([]models.Snapshot, error) {
	var snapshots []models.Snapshot
	result := r.db.Order("ts DESC").Limit(limit).Find(&snapshots)
	return snapshots, result.Error
}
