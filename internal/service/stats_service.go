package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tradewatch/internal/models"
	"github.com/tradewatch/internal/repository"
)

const (
	dashboardCacheKey = "dashboard:summary"
	dashboardCacheTTL = 30 * time.Second

	recentLimit = 10
	byKeyLimit  = 50
)

// StatsService aggregates ledger and trade data into the dashboard summary.
// The computed summary is cached in redis briefly since every dashboard load
// otherwise fans out into a dozen queries.
type StatsService struct {
	tradeRepo       *repository.LogicalTradeRepository
	fillRepo        *repository.FillRepository
	closedTradeRepo *repository.ClosedTradeRepository
	signalRepo      *repository.SignalRepository
	snapshotRepo    *repository.SnapshotRepository
	rdb             *redis.Client
}

// NewStatsService creates a new StatsService
func NewStatsService(
	tradeRepo *repository.LogicalTradeRepository,
	fillRepo *repository.FillRepository,
	closedTradeRepo *repository.ClosedTradeRepository,
	signalRepo *repository.SignalRepository,
	snapshotRepo *repository.SnapshotRepository,
	rdb *redis.Client,
) *StatsService {
	return &StatsService{
		tradeRepo:       tradeRepo,
		fillRepo:        fillRepo,
		closedTradeRepo: closedTradeRepo,
		signalRepo:      signalRepo,
		snapshotRepo:    snapshotRepo,
		rdb:             rdb,
	}
}

// DashboardSummary is the dashboard page payload. Empty stores render as
// empty slices and nil stats, never as an error.
type DashboardSummary struct {
	Overall         *models.TradeStats            `json:"overall"`
	ByKey           []models.TradeStats           `json:"by_key"`
	OpenTrades      []models.LogicalTrade         `json:"open_trades"`
	RecentTrades    []models.LogicalTrade         `json:"recent_trades"`
	RecentSignals   []models.Signal               `json:"recent_signals"`
	RecentFills     []models.Fill                 `json:"recent_fills"`
	RecentClosed    []models.ClosedTrade          `json:"recent_closed"`
	LatestSnapshot  *models.Snapshot              `json:"latest_snapshot"`
	RecentSnapshots []models.Snapshot             `json:"recent_snapshots"`
	Windows         map[string]models.WindowStats `json:"windows"`
	GeneratedAt     time.Time                     `json:"generated_at"`
}

// Dashboard returns the dashboard summary, from cache when fresh.
func (s *StatsService) Dashboard(ctx context.Context) (*DashboardSummary, error) {
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, dashboardCacheKey).Bytes(); err == nil {
			var summary DashboardSummary
			if err := json.Unmarshal(cached, &summary); err == nil {
				return &summary, nil
			}
		}
	}

	summary, err := s.buildDashboard()
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		if encoded, err := json.Marshal(summary); err == nil {
			if err := s.rdb.Set(ctx, dashboardCacheKey, encoded, dashboardCacheTTL).Err(); err != nil {
				log.Printf("stats: cache write failed: %v", err)
			}
		}
	}

	return summary, nil
}

// Invalidate drops the cached summary after an ingest write.
func (s *StatsService) Invalidate(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, dashboardCacheKey).Err(); err != nil && !errors.Is(err, redis.Nil) {
		log.Printf("stats: cache invalidate failed: %v", err)
	}
}

func (s *StatsService) buildDashboard() (*DashboardSummary, error) {
	summary := &DashboardSummary{
		Windows:     map[string]models.WindowStats{},
		GeneratedAt: time.Now().UTC(),
	}

	overallAgg, err := s.tradeRepo.AggregateClosed(nil)
	if err != nil {
		return nil, err
	}
	if overallAgg.Trades > 0 {
		summary.Overall = DeriveStats(overallAgg)
	}

	byKeyAggs, err := s.tradeRepo.AggregateClosedByKey(byKeyLimit)
	if err != nil {
		return nil, err
	}
	summary.ByKey = make([]models.TradeStats, 0, len(byKeyAggs))
	for i := range byKeyAggs {
		summary.ByKey = append(summary.ByKey, *DeriveStats(&byKeyAggs[i]))
	}

	if summary.OpenTrades, err = s.tradeRepo.GetOpen(); err != nil {
		return nil, err
	}
	if summary.RecentTrades, err = s.tradeRepo.GetRecentClosed(recentLimit); err != nil {
		return nil, err
	}
	if summary.RecentSignals, err = s.signalRepo.GetRecent(recentLimit); err != nil {
		return nil, err
	}
	if summary.RecentFills, err = s.fillRepo.GetRecent(recentLimit); err != nil {
		return nil, err
	}
	if summary.RecentClosed, err = s.closedTradeRepo.GetRecent(recentLimit); err != nil {
		return nil, err
	}

	latest, err := s.snapshotRepo.GetLatest()
	if err != nil && !errors.Is(err, repository.ErrSnapshotNotFound) {
		return nil, err
	}
	summary.LatestSnapshot = latest

	if summary.RecentSnapshots, err = s.snapshotRepo.GetRecent(recentLimit); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for name, since := range map[string]*time.Time{
		"1d":  timePtr(now.Add(-24 * time.Hour)),
		"7d":  timePtr(now.Add(-7 * 24 * time.Hour)),
		"all": nil,
	} {
		window, err := s.windowStats(since)
		if err != nil {
			return nil, err
		}
		summary.Windows[name] = *window
	}

	return summary, nil
}

func (s *StatsService) windowStats(since *time.Time) (*models.WindowStats, error) {
	var fills int64
	var err error
	if since == nil {
		fills, err = s.fillRepo.Count()
	} else {
		fills, err = s.fillRepo.CountSince(*since)
	}
	if err != nil {
		return nil, err
	}

	agg, err := s.tradeRepo.AggregateClosed(since)
	if err != nil {
		return nil, err
	}

	// Zero time covers all history for the bot-reported side.
	botSince := time.Time{}
	if since != nil {
		botSince = *since
	}
	botClosed, err := s.closedTradeRepo.CountSince(botSince)
	if err != nil {
		return nil, err
	}
	botPnL, err := s.closedTradeRepo.SumPnLSince(botSince)
	if err != nil {
		return nil, err
	}

	return &models.WindowStats{
		Fills:        fills,
		ClosedTrades: agg.Trades,
		NetPnL:       agg.NetPnL,
		BotClosed:    botClosed,
		BotNetPnL:    botPnL,
	}, nil
}

// SymbolHistory is the per-symbol drill-down: raw signals, ledger fills,
// and bot-reported closed trades for one symbol.
type SymbolHistory struct {
	Symbol       string               `json:"symbol"`
	Signals      []models.Signal      `json:"signals"`
	Fills        []models.Fill        `json:"fills"`
	ClosedTrades []models.ClosedTrade `json:"closed_trades"`
}

// History returns the ingest history for one symbol. Fills are keyed by
// position id, which is the symbol (or option contract) on both ingest
// paths.
func (s *StatsService) History(symbol string, limit int) (*SymbolHistory, error) {
	history := &SymbolHistory{Symbol: symbol}

	var err error
	if history.Signals, err = s.signalRepo.GetBySymbol(symbol, limit); err != nil {
		return nil, err
	}
	if history.Fills, err = s.fillRepo.GetByPositionID(symbol); err != nil {
		return nil, err
	}
	if history.ClosedTrades, err = s.closedTradeRepo.GetBySymbol(symbol); err != nil {
		return nil, err
	}
	return history, nil
}

// DeriveStats computes the performance ratios from a raw aggregate.
// ProfitFactor is undefined with no losses, WinRatePct with no decided
// trades, AvgPnL with no trades; those come back nil.
func DeriveStats(agg *models.TradeAggregate) *models.TradeStats {
	stats := &models.TradeStats{
		Strategy:    agg.Strategy,
		Symbol:      agg.Symbol,
		Timeframe:   agg.Timeframe,
		Trades:      agg.Trades,
		NetPnL:      agg.NetPnL,
		GrossProfit: agg.GrossProfit,
		GrossLoss:   agg.GrossLoss,
	}
	if agg.GrossLoss > 0 {
		pf := agg.GrossProfit / agg.GrossLoss
		stats.ProfitFactor = &pf
	}
	if agg.Decided > 0 {
		wr := float64(agg.Wins) / float64(agg.Decided) * 100
		stats.WinRatePct = &wr
	}
	if agg.Trades > 0 {
		avg := agg.NetPnL / float64(agg.Trades)
		stats.AvgPnL = &avg
	}
	return stats
}

func timePtr(t time.Time) *time.Time {
	return &t
}
