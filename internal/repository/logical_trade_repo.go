package repository

import (
	"errors"
	"time"

	"github.com/tradewatch/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNoOpenTrade = errors.New("no open trade for key")
)

// LogicalTradeRepository handles logical trade data access
type LogicalTradeRepository struct {
	db *gorm.DB
}

// NewLogicalTradeRepository creates a new LogicalTradeRepository
func NewLogicalTradeRepository(db *gorm.DB) *LogicalTradeRepository {
	return &LogicalTradeRepository{db: db}
}

// OpenIfAbsent inserts a new open trade unless one already exists for the
// (strategy, symbol, timeframe) key. The lookup takes a row lock inside a
// transaction so two concurrent signals for the same key cannot both insert.
// Returns whether a trade was actually created.
func (r *LogicalTradeRepository) OpenIfAbsent(trade *models.LogicalTrade) (bool, error) {
	created := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing models.LogicalTrade
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("strategy = ? AND symbol = ? AND timeframe = ? AND exit_time IS NULL",
				trade.Strategy, trade.Symbol, trade.Timeframe).
			Order("entry_time DESC").
			First(&existing).Error
		if err == nil {
			// Key already has an open trade; no implicit re-entry.
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(trade).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

// CloseLatestOpen finds the most recent open trade for the key, applies the
// update function, and saves it, all under a row lock. Returns ErrNoOpenTrade
// when the key has no open trade.
func (r *LogicalTradeRepository) CloseLatestOpen(strategy, symbol, timeframe string, update func(*models.LogicalTrade) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var trade models.LogicalTrade
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("strategy = ? AND symbol = ? AND timeframe = ? AND exit_time IS NULL",
				strategy, symbol, timeframe).
			Order("entry_time DESC").
			First(&trade).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoOpenTrade
			}
			return err
		}

		if err := update(&trade); err != nil {
			return err
		}

		return tx.Save(&trade).Error
	})
}

// GetRecentClosed retrieves the most recently closed trades
func (r *LogicalTradeRepository) GetRecentClosed(limit int) ([]models.LogicalTrade, error) {
	var trades []models.LogicalTrade
	result := r.db.Where("exit_time IS NOT NULL").Order("exit_time DESC").Limit(limit).Find(&trades)
	return trades, result.Error
}

// GetOpen retrieves all currently open trades
func (r *LogicalTradeRepository) GetOpen() ([]models.LogicalTrade, error) {
	var trades []models.LogicalTrade
	result := r.db.Where("exit_time IS NULL").Order("entry_time DESC").Find(&trades)
	return trades, result.Error
}

const closedTradeAggregate = `
COUNT(*) AS trades,
COALESCE(SUM(pnl), 0) AS net_pnl,
COALESCE(SUM(CASE WHEN pnl > 0 THEN pnl ELSE 0 END), 0) AS gross_profit,
COALESCE(SUM(CASE WHEN pnl < 0 THEN -pnl ELSE 0 END), 0) AS gross_loss,
COALESCE(SUM(CASE WHEN win THEN 1 ELSE 0 END), 0) AS wins,
COUNT(win) AS decided`

// AggregateClosed scans overall aggregates over closed trades. A nil since
// covers all time.
func (r *LogicalTradeRepository) AggregateClosed(since *time.Time) (*models.TradeAggregate, error) {
	var agg models.TradeAggregate
	query := r.db.Model(&models.LogicalTrade{}).
		Select(closedTradeAggregate).
		Where("exit_time IS NOT NULL")
	if since != nil {
		query = query.Where("exit_time >= ?", *since)
	}
	err := query.Scan(&agg).Error
	return &agg, err
}

// AggregateClosedByKey scans aggregates over closed trades grouped by
// (strategy, symbol, timeframe)
func (r *LogicalTradeRepository) AggregateClosedByKey(limit int) ([]models.TradeAggregate, error) {
	var aggs []models.TradeAggregate
	err := r.db.Model(&models.LogicalTrade{}).
		Select("strategy, symbol, timeframe, " + closedTradeAggregate).
		Where("exit_time IS NOT NULL").
		Group("strategy, symbol, timeframe").
		Order("strategy, symbol, timeframe").
		Limit(limit).
		Scan(&aggs).Error
	return aggs, err
}
