package upstream

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Position is a loosely typed position entry from the bot snapshot. The bot
// JSON is not stable enough for a fixed struct, so fields are coerced on
// access: quantities default to 0, prices to nil, never an error.
type Position map[string]any

// Qty returns the position quantity, 0 when missing or non-numeric.
func (p Position) Qty() float64 {
	if n := asNum(p["qty"]); n != nil {
		return *n
	}
	return 0
}

// EntryPrice returns the entry price or nil.
func (p Position) EntryPrice() *float64 {
	return asNum(p["entry_price"])
}

// Mark returns the mark price or nil.
func (p Position) Mark() *float64 {
	return asNum(p["mark"])
}

// Side returns the position side or nil.
func (p Position) Side() *string {
	return asStr(p["side"])
}

// OptionSymbol returns the option contract identifier, empty when absent.
// Preferred over the raw map key so option legs stay unique.
func (p Position) OptionSymbol() string {
	if s := asStr(p["option_symbol"]); s != nil {
		return *s
	}
	return ""
}

// EntryTime returns the raw entry time string or nil.
func (p Position) EntryTime() *string {
	return asStr(p["entry_time"])
}

// CloseHint returns the close hint string or nil.
func (p Position) CloseHint() *string {
	return asStr(p["tv_close_hint"])
}

// Payload is the snapshot document served by the bot dashboard endpoint.
type Payload struct {
	OK          bool
	TS          *time.Time
	Cash        *float64
	Equity      *float64
	OpenPnL     *float64
	RealizedPnL *float64
	Positions   map[string]Position
	Raw         json.RawMessage
}

// ParsePayload decodes a bot snapshot document. Scalar fields are coerced
// leniently; a payload that is not a JSON object at all is an error.
func ParsePayload(body []byte) (*Payload, error) {
	var doc struct {
		OK   bool `json:"ok"`
		TS   any  `json:"ts"`
		Data struct {
			Cash        any                 `json:"cash"`
			Equity      any                 `json:"equity"`
			OpenPnL     any                 `json:"open_pnl"`
			RealizedPnL any                 `json:"realized_pnl"`
			Positions   map[string]Position `json:"positions"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}

	positions := doc.Data.Positions
	if positions == nil {
		positions = map[string]Position{}
	}

	return &Payload{
		OK:          doc.OK,
		TS:          asTime(doc.TS),
		Cash:        asNum(doc.Data.Cash),
		Equity:      asNum(doc.Data.Equity),
		OpenPnL:     asNum(doc.Data.OpenPnL),
		RealizedPnL: asNum(doc.Data.RealizedPnL),
		Positions:   positions,
		Raw:         json.RawMessage(body),
	}, nil
}

// asNum coerces numbers and numeric-looking strings, nil otherwise.
func asNum(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return &f
		}
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return &f
		}
	}
	return nil
}

// asStr returns a trimmed non-empty string, nil otherwise.
func asStr(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// asTime accepts RFC3339 strings and unix-second numbers.
func asTime(v any) *time.Time {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return &ts
		}
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			return &ts
		}
	case float64:
		if t > 0 {
			ts := time.Unix(int64(t), 0).UTC()
			return &ts
		}
	}
	return nil
}
