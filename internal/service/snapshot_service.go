package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tradewatch/internal/models"
	"github.com/tradewatch/internal/upstream"
	"gorm.io/datatypes"
)

// SnapshotFetcher pulls the current account snapshot from the bot.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context) (*upstream.Payload, error)
}

// SnapshotStore persists snapshots.
type SnapshotStore interface {
	Create(snapshot *models.Snapshot) error
	GetLatestTwo() ([]models.Snapshot, error)
}

// FillStore appends fills with dedup on (position_id, event_type, ts).
type FillStore interface {
	CreateIfAbsent(fill *models.Fill) (bool, error)
}

// SnapshotService runs the pull path: fetch a snapshot, persist it, diff it
// against the previous one, and append the derived fills.
type SnapshotService struct {
	fetcher   SnapshotFetcher
	snapshots SnapshotStore
	fills     FillStore
}

// NewSnapshotService creates a new SnapshotService
func NewSnapshotService(fetcher SnapshotFetcher, snapshots SnapshotStore, fills FillStore) *SnapshotService {
	return &SnapshotService{
		fetcher:   fetcher,
		snapshots: snapshots,
		fills:     fills,
	}
}

// PullResult summarizes one successful pull.
type PullResult struct {
	TS             time.Time `json:"ts"`
	Cash           *float64  `json:"cash"`
	Equity         *float64  `json:"equity"`
	OpenPnL        *float64  `json:"open_pnl"`
	RealizedPnL    *float64  `json:"realized_pnl"`
	PositionsCount int       `json:"positions_count"`
	Events         int       `json:"events"`
	FillsWritten   int       `json:"fills_written"`
}

// Pull fetches the current snapshot, persists it, and derives fills from the
// diff against the previous snapshot. A fill write failure aborts the
// remaining loop fail-fast; fills already written in this request stay (no
// transaction spans the loop).
func (s *SnapshotService) Pull(ctx context.Context) (*PullResult, error) {
	payload, err := s.fetcher.FetchSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	ts := time.Now().UTC()
	if payload.TS != nil {
		ts = payload.TS.UTC()
	}

	snapshot := &models.Snapshot{
		TS:             ts,
		Cash:           payload.Cash,
		Equity:         payload.Equity,
		OpenPnL:        payload.OpenPnL,
		RealizedPnL:    payload.RealizedPnL,
		PositionsCount: len(payload.Positions),
		Raw:            datatypes.JSON(payload.Raw),
	}
	if err := s.snapshots.Create(snapshot); err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}

	prevPositions, err := s.previousPositions()
	if err != nil {
		return nil, fmt.Errorf("read previous snapshot: %w", err)
	}
	events := DiffPositions(prevPositions, payload.Positions)

	written := 0
	for _, ev := range events {
		inserted, err := s.appendFill(ev, ts)
		if err != nil {
			return nil, fmt.Errorf("append %s fill for %s: %w", ev.EventType, ev.PositionID, err)
		}
		if inserted {
			written++
		}
	}

	return &PullResult{
		TS:             ts,
		Cash:           payload.Cash,
		Equity:         payload.Equity,
		OpenPnL:        payload.OpenPnL,
		RealizedPnL:    payload.RealizedPnL,
		PositionsCount: len(payload.Positions),
		Events:         len(events),
		FillsWritten:   written,
	}, nil
}

// previousPositions loads the positions map of the snapshot before the one
// just written. Missing or undecodable history diffs against an empty map;
// a failed store read is an error, since diffing against a fabricated empty
// map would re-open every live position at a fresh timestamp the dedup key
// cannot catch.
func (s *SnapshotService) previousPositions() (map[string]upstream.Position, error) {
	rows, err := s.snapshots.GetLatestTwo()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return map[string]upstream.Position{}, nil
	}
	prev, err := upstream.ParsePayload(rows[1].Raw)
	if err != nil {
		return map[string]upstream.Position{}, nil
	}
	return prev.Positions, nil
}

func (s *SnapshotService) appendFill(ev PositionEvent, ts time.Time) (bool, error) {
	meta := map[string]any{
		"source": "pull",
	}
	for k, v := range ev.Meta {
		meta[k] = v
	}
	meta["dedupe_key"] = eventKey(string(ev.EventType), ev.PositionID, ev.Qty, ev.Price, ts.Format(time.RFC3339Nano))

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return false, err
	}

	fill := &models.Fill{
		TS:         ts,
		PositionID: ev.PositionID,
		Symbol:     ev.Symbol,
		Side:       ev.Side,
		EventType:  ev.EventType,
		Qty:        ev.Qty,
		Price:      ev.Price,
		Meta:       datatypes.JSON(metaJSON),
	}

	return s.fills.CreateIfAbsent(fill)
}

// eventKey builds the audit dedupe string stored in fill metadata. The
// enforced dedup is the structured (position_id, event_type, ts) key; this
// string only exists so a human can eyeball duplicates.
func eventKey(parts ...any) string {
	strs := make([]string, 0, len(parts))
	for _, p := range parts {
		switch v := p.(type) {
		case nil:
			strs = append(strs, "")
		case string:
			strs = append(strs, v)
		case float64:
			strs = append(strs, strconv.FormatFloat(v, 'f', -1, 64))
		case *float64:
			if v == nil {
				strs = append(strs, "")
			} else {
				strs = append(strs, strconv.FormatFloat(*v, 'f', -1, 64))
			}
		default:
			strs = append(strs, fmt.Sprint(v))
		}
	}
	return strings.Join(strs, "|")
}
