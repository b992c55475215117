package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tradewatch/internal/middleware"
	"github.com/tradewatch/internal/service"
	"github.com/tradewatch/internal/upstream"
	"github.com/tradewatch/pkg/response"
)

// BotHandler handles the bot telemetry surfaces: the scheduled snapshot
// pull and direct fill ingestion.
type BotHandler struct {
	snapshotService *service.SnapshotService
	fillService     *service.FillService
	statsService    *service.StatsService
	botAPIToken     string
}

// NewBotHandler creates a new BotHandler
func NewBotHandler(
	snapshotService *service.SnapshotService,
	fillService *service.FillService,
	statsService *service.StatsService,
	botAPIToken string,
) *BotHandler {
	return &BotHandler{
		snapshotService: snapshotService,
		fillService:     fillService,
		statsService:    statsService,
		botAPIToken:     botAPIToken,
	}
}

// Pull fetches the current bot snapshot, stores it, and derives fills.
// GET /api/v1/bot/pull?token=...
func (h *BotHandler) Pull(c *gin.Context) {
	result, err := h.snapshotService.Pull(c.Request.Context())
	if err != nil {
		var fetchErr *upstream.FetchError
		if errors.As(err, &fetchErr) {
			response.BadGateway(c, fetchErr.Error())
			return
		}
		response.InternalError(c, err.Error())
		return
	}

	h.statsService.Invalidate(c.Request.Context())

	response.OK(c, gin.H{
		"inserted":      result,
		"derived_fills": true,
	})
}

// DirectFill appends a directly-reported fill.
// POST /api/v1/bot/fill
func (h *BotHandler) DirectFill(c *gin.Context) {
	var req service.DirectFillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.fillService.Append(&req, time.Now().UTC()); err != nil {
		if errors.Is(err, service.ErrMissingFillFields) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, err.Error())
		return
	}

	h.statsService.Invalidate(c.Request.Context())

	response.OK(c, nil)
}

// RegisterRoutes registers bot telemetry routes
func (h *BotHandler) RegisterRoutes(rg *gin.RouterGroup) {
	bot := rg.Group("/bot")
	{
		bot.GET("/pull", middleware.QueryTokenAuth("token", h.botAPIToken), h.Pull)
		bot.POST("/fill",
			middleware.BearerTokenAuth(h.botAPIToken),
			middleware.IngestLoggerMiddleware(),
			h.DirectFill)
	}
}
