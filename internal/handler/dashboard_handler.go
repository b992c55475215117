package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/tradewatch/internal/service"
	"github.com/tradewatch/pkg/response"
)

// DashboardHandler serves the dashboard summary.
type DashboardHandler struct {
	statsService *service.StatsService
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(statsService *service.StatsService) *DashboardHandler {
	return &DashboardHandler{statsService: statsService}
}

// Dashboard returns the aggregated dashboard summary.
// GET /api/v1/dashboard
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	summary, err := h.statsService.Dashboard(c.Request.Context())
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	response.OK(c, gin.H{"dashboard": summary})
}

// History returns the per-symbol ingest history.
// GET /api/v1/dashboard/history?symbol=...
func (h *DashboardHandler) History(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		response.BadRequest(c, "symbol is required")
		return
	}

	history, err := h.statsService.History(symbol, historyLimit)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	response.OK(c, gin.H{"history": history})
}

const historyLimit = 100

// RegisterRoutes registers dashboard routes
func (h *DashboardHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	rg.GET("/dashboard", authMiddleware, h.Dashboard)
	rg.GET("/dashboard/history", authMiddleware, h.History)
}
