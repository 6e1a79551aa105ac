package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"wish-service/internal/realtime"

	"github.com/gin-gonic/gin"
)

type WSHandler struct {
	core   *realtime.Core
	logger *slog.Logger
}

func NewWSHandler(core *realtime.Core, logger *slog.Logger) *WSHandler {
	return &WSHandler{core: core, logger: logger}
}

// HandleWebSocket godoc
// @Summary WebSocket endpoint
// @Description Upgrade to a websocket connection for realtime events. Authenticate with ?token=<jwt>.
// @Tags websocket
// @Param token query string true "JWT token"
// @Success 101 "Switching Protocols"
// @Failure 401 {object} map[string]interface{} "Unauthorized"
// @Router /ws [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	uid := realtime.UserID(strconv.FormatUint(uint64(userID.(uint)), 10))

	realtime.ServeWS(h.core, c.Writer, c.Request, uid, h.logger)
}
