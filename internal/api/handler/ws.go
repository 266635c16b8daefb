package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/sachirademein17/mindcareapp-sub000/internal/chathub"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The browser client runs on a different origin in dev; tighten in
	// production deployments.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket authenticates the caller and upgrades the connection. The
// connection stays outside any room until its join event arrives; the
// identity it joins under is always the token's, never the payload's.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	tokenStr := bearerToken(c)
	if tokenStr == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no token provided"})
		return
	}
	principal, err := h.parseToken(tokenStr)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Uint("user", principal.UserID).Msg("websocket upgrade failed")
		return
	}

	client := chathub.NewWebSocketClient(principal.UserID, conn, h.Hub)
	client.Run()
}
