package handler

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tradewatch/internal/middleware"
	"github.com/tradewatch/internal/service"
	"github.com/tradewatch/pkg/response"
)

const maxWebhookBody = 1 << 20

// WebhookHandler handles inbound alert webhooks.
type WebhookHandler struct {
	signalService *service.SignalService
	statsService  *service.StatsService
	webhookToken  string
	webhookSecret string
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(
	signalService *service.SignalService,
	statsService *service.StatsService,
	webhookToken, webhookSecret string,
) *WebhookHandler {
	return &WebhookHandler{
		signalService: signalService,
		statsService:  statsService,
		webhookToken:  webhookToken,
		webhookSecret: webhookSecret,
	}
}

// Alert ingests one alert payload. The raw payload is always stored; the
// trade state machine runs only for executable alerts.
// POST /api/v1/webhooks/alerts?token=...
func (h *WebhookHandler) Alert(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		response.BadRequest(c, "unreadable body")
		return
	}

	// An unparsable body still gets stored: ingest with an empty alert so
	// the raw payload lands in the signal store.
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		body = map[string]any{}
	}

	alert := service.ParseAlert(body)

	// Optional second factor carried in the body, on top of the URL token.
	if h.webhookSecret != "" &&
		subtle.ConstantTimeCompare([]byte(alert.Secret), []byte(h.webhookSecret)) != 1 {
		response.Unauthorized(c, "bad secret")
		return
	}

	result, err := h.signalService.Ingest(alert, raw, time.Now().UTC())
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	if result.Executed {
		h.statsService.Invalidate(c.Request.Context())
	}

	response.OK(c, gin.H{
		"executed":     result.Executed,
		"trade_opened": result.TradeOpened,
		"trade_closed": result.TradeClosed,
	})
}

// RegisterRoutes registers webhook routes
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	webhooks := rg.Group("/webhooks")
	{
		webhooks.POST("/alerts",
			middleware.QueryTokenAuth("token", h.webhookToken),
			middleware.IngestLoggerMiddleware(),
			h.Alert)
	}
}
