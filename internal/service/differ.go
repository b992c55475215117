package service

import (
	"sort"

	"github.com/tradewatch/internal/models"
	"github.com/tradewatch/internal/upstream"
)

// PositionEvent is one classified position change between two snapshots.
type PositionEvent struct {
	PositionID string
	Symbol     string
	Side       *string
	EventType  models.FillEvent
	Qty        float64
	Price      *float64
	Meta       map[string]any
}

// DiffPositions compares the previous and current position maps and
// classifies each symbol's change:
//
//	prev=0, curr>0          -> OPEN,  qty=curr, price=entry ?? mark
//	prev>0, curr=0          -> CLOSE, qty=prev, price=mark ?? entry
//	both>0, curr!=prev      -> ADD/TRIM, qty=|delta|, price=mark ?? entry
//	equal or both zero      -> no event
//
// Keys present in only one map are treated as qty 0 on the other side, so a
// stale entry with qty 0 produces no noise. Events come out in sorted key
// order so repeated runs are deterministic.
func DiffPositions(prev, curr map[string]upstream.Position) []PositionEvent {
	keys := make(map[string]struct{}, len(prev)+len(curr))
	for k := range prev {
		keys[k] = struct{}{}
	}
	for k := range curr {
		keys[k] = struct{}{}
	}

	ordered := make([]string, 0, len(keys))
	for k := range keys {
		ordered = append(ordered, k)
	}
	sort.Strings(ordered)

	var events []PositionEvent
	for _, k := range ordered {
		p, hasPrev := prev[k]
		c, hasCurr := curr[k]

		var prevQty, currQty float64
		if hasPrev {
			prevQty = p.Qty()
		}
		if hasCurr {
			currQty = c.Qty()
		}

		if prevQty == 0 && currQty == 0 {
			continue
		}

		symbol := resolveSymbol(k, p, c, hasPrev, hasCurr)
		side := resolveSide(p, c, hasPrev, hasCurr)
		entryPrice := resolvePrice(p, c, hasPrev, hasCurr, upstream.Position.EntryPrice)
		markPrice := resolvePrice(p, c, hasPrev, hasCurr, upstream.Position.Mark)

		switch {
		case prevQty == 0 && currQty > 0:
			meta := map[string]any{}
			if hasCurr {
				if et := c.EntryTime(); et != nil {
					meta["entry_time"] = *et
				}
				if h := c.CloseHint(); h != nil {
					meta["tv_close_hint"] = *h
				}
			}
			events = append(events, PositionEvent{
				PositionID: symbol,
				Symbol:     symbol,
				Side:       side,
				EventType:  models.FillEventOpen,
				Qty:        currQty,
				Price:      coalesce(entryPrice, markPrice),
				Meta:       meta,
			})

		case prevQty > 0 && currQty == 0:
			meta := map[string]any{}
			if hasPrev {
				if h := p.CloseHint(); h != nil {
					meta["tv_close_hint"] = *h
				}
				if et := p.EntryTime(); et != nil {
					meta["prev_entry_time"] = *et
				}
			}
			events = append(events, PositionEvent{
				PositionID: symbol,
				Symbol:     symbol,
				Side:       side,
				EventType:  models.FillEventClose,
				Qty:        prevQty,
				Price:      coalesce(markPrice, entryPrice),
				Meta:       meta,
			})

		case prevQty > 0 && currQty > 0 && currQty != prevQty:
			eventType := models.FillEventAdd
			if currQty < prevQty {
				eventType = models.FillEventTrim
			}
			delta := currQty - prevQty
			if delta < 0 {
				delta = -delta
			}
			events = append(events, PositionEvent{
				PositionID: symbol,
				Symbol:     symbol,
				Side:       side,
				EventType:  eventType,
				Qty:        delta,
				Price:      coalesce(markPrice, entryPrice),
				Meta: map[string]any{
					"prev_qty": prevQty,
					"curr_qty": currQty,
				},
			})
		}
	}

	return events
}

// resolveSymbol prefers option contract identifiers over the raw map key so
// option legs on the same underlying stay distinct.
func resolveSymbol(key string, prev, curr upstream.Position, hasPrev, hasCurr bool) string {
	if hasCurr {
		if s := curr.OptionSymbol(); s != "" {
			return s
		}
	}
	if hasPrev {
		if s := prev.OptionSymbol(); s != "" {
			return s
		}
	}
	return key
}

func resolveSide(prev, curr upstream.Position, hasPrev, hasCurr bool) *string {
	if hasCurr {
		if s := curr.Side(); s != nil {
			return s
		}
	}
	if hasPrev {
		if s := prev.Side(); s != nil {
			return s
		}
	}
	return nil
}

func resolvePrice(prev, curr upstream.Position, hasPrev, hasCurr bool, get func(upstream.Position) *float64) *float64 {
	if hasCurr {
		if v := get(curr); v != nil {
			return v
		}
	}
	if hasPrev {
		if v := get(prev); v != nil {
			return v
		}
	}
	return nil
}

func coalesce(a, b *float64) *float64 {
	if a != nil {
		return a
	}
	return b
}
