package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tradewatch/internal/config"
	"github.com/tradewatch/internal/handler"
	"github.com/tradewatch/internal/middleware"
	"github.com/tradewatch/internal/service"
)

func newDashboardRouter() *gin.Engine {
	authService := service.NewAuthService("hunter2", config.JWTConfig{
		Secret:      "test-jwt-secret",
		ExpireHours: 1,
	})

	r := gin.New()
	rg := r.Group("/api/v1")
	handler.NewAuthHandler(authService).RegisterRoutes(rg)
	handler.NewDashboardHandler(noopStats()).RegisterRoutes(rg, middleware.JWTAuth(authService))
	return r
}

func dashboardToken(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := login(r, "hunter2")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.AccessToken
}

func TestDashboardRoutesRequireToken(t *testing.T) {
	r := newDashboardRouter()

	for _, path := range []string{"/api/v1/dashboard", "/api/v1/dashboard/history?symbol=AAPL"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestHistoryRequiresSymbol(t *testing.T) {
	r := newDashboardRouter()
	token := dashboardToken(t, r)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/history", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["ok"])
}
