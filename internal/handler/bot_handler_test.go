package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tradewatch/internal/handler"
	"github.com/tradewatch/internal/models"
	"github.com/tradewatch/internal/service"
	"github.com/tradewatch/internal/upstream"
)

type stubFetcher struct {
	payload *upstream.Payload
	err     error
}

func (s *stubFetcher) FetchSnapshot(ctx context.Context) (*upstream.Payload, error) {
	return s.payload, s.err
}

type stubSnapshotStore struct {
	rows []models.Snapshot
}

func (s *stubSnapshotStore) Create(snapshot *models.Snapshot) error {
	s.rows = append(s.rows, *snapshot)
	return nil
}

func (s *stubSnapshotStore) GetLatestTwo() ([]models.Snapshot, error) {
	if len(s.rows) < 2 {
		return append([]models.Snapshot{}, s.rows...), nil
	}
	n := len(s.rows)
	return []models.Snapshot{s.rows[n-1], s.rows[n-2]}, nil
}

type stubFillStore struct {
	fills []*models.Fill
}

func (s *stubFillStore) CreateIfAbsent(fill *models.Fill) (bool, error) {
	s.fills = append(s.fills, fill)
	return true, nil
}

type stubClosedStore struct {
	trades []*models.ClosedTrade
}

func (s *stubClosedStore) Create(trade *models.ClosedTrade) error {
	s.trades = append(s.trades, trade)
	return nil
}

func newBotRouter(fetcher *stubFetcher, fills *stubFillStore, closed *stubClosedStore, token string) *gin.Engine {
	r := gin.New()
	snapshotService := service.NewSnapshotService(fetcher, &stubSnapshotStore{}, fills)
	fillService := service.NewFillService(fills, closed)
	h := handler.NewBotHandler(snapshotService, fillService, noopStats(), token)
	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestPullUnauthorized(t *testing.T) {
	r := newBotRouter(&stubFetcher{}, &stubFillStore{}, &stubClosedStore{}, "bot-token")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/bot/pull", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPullEmptyConfiguredTokenNeverMatches(t *testing.T) {
	r := newBotRouter(&stubFetcher{}, &stubFillStore{}, &stubClosedStore{}, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/bot/pull?token=", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPullSuccess(t *testing.T) {
	payload, err := upstream.ParsePayload([]byte(`{
		"ok": true, "ts": "2026-08-30T14:00:00Z",
		"data": {"cash": 1000, "positions": {"AAPL": {"qty": 5, "entry_price": 150}}}
	}`))
	require.NoError(t, err)

	fills := &stubFillStore{}
	r := newBotRouter(&stubFetcher{payload: payload}, fills, &stubClosedStore{}, "bot-token")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/bot/pull?token=bot-token", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["ok"])
	assert.Equal(t, true, resp["derived_fills"])
	// First snapshot diffs against empty history, so the position opens.
	assert.Len(t, fills.fills, 1)
}

func TestPullBotUnreachableIsBadGateway(t *testing.T) {
	fetcher := &stubFetcher{err: &upstream.FetchError{Status: http.StatusBadGateway}}
	r := newBotRouter(fetcher, &stubFillStore{}, &stubClosedStore{}, "bot-token")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/bot/pull?token=bot-token", nil))

	assert.Equal(t, http.StatusBadGateway, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["ok"])
	assert.NotEmpty(t, resp["error"])
}

func TestDirectFillMissingBearer(t *testing.T) {
	r := newBotRouter(&stubFetcher{}, &stubFillStore{}, &stubClosedStore{}, "bot-token")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bot/fill",
		bytes.NewBufferString(`{"position_id":"AAPL","symbol":"AAPL","event_type":"OPEN","qty":1}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDirectFillMissingFields(t *testing.T) {
	r := newBotRouter(&stubFetcher{}, &stubFillStore{}, &stubClosedStore{}, "bot-token")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bot/fill",
		bytes.NewBufferString(`{"symbol":"AAPL","qty":1}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer bot-token")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDirectFillCloseWritesClosedTrade(t *testing.T) {
	fills := &stubFillStore{}
	closed := &stubClosedStore{}
	r := newBotRouter(&stubFetcher{}, fills, closed, "bot-token")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bot/fill",
		bytes.NewBufferString(`{"position_id":"AAPL","symbol":"AAPL","event_type":"CLOSE","qty":5,"price":155,"realized_pnl":25}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer bot-token")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, fills.fills, 1)
	assert.Equal(t, models.FillEventClose, fills.fills[0].EventType)
	require.Len(t, closed.trades, 1)
	require.NotNil(t, closed.trades[0].PnL)
	assert.Equal(t, 25.0, *closed.trades[0].PnL)
}
