package api

import (
	"context"
	"net/http"
	"time"

	internalws "guild-loot/internal/websocket"
	"guild-loot/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type HealthHandler struct {
	ping  func(ctx context.Context) error
	board internalws.Board
}

func NewHealthHandler(ping func(ctx context.Context) error, board internalws.Board) *HealthHandler {
	return &HealthHandler{ping: ping, board: board}
}

// Root answers uptime probes.
func (h *HealthHandler) Root(c *gin.Context) {
	c.String(http.StatusOK, "Bot is running!")
}

func (h *HealthHandler) Health(c *gin.Context) {
	body := gin.H{"status": "ok", "database": "ok"}
	if h.board != nil {
		body["board_clients"] = h.board.ClientCount()
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.ping(ctx); err != nil {
		logger.L.Error("Health check failed", zap.Error(err))
		body["status"] = "degraded"
		body["database"] = "unreachable"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}
