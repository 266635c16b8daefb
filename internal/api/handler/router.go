package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/sachirademein17/mindcareapp-sub000/internal/api/mw"
	"github.com/sachirademein17/mindcareapp-sub000/internal/metrics"
)

// NewRouter wires middleware and routes. The chat surface mirrors the
// frontend's expectations: REST under /api/chat, the live socket on /ws.
func NewRouter(h *Handler) *gin.Engine {
	if h.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(mw.RequestLog())
	r.Use(mw.CORS(h.Cfg.Env))
	r.Use(metrics.GinMiddleware())
	r.Use(mw.RateLimit(rate.Every(time.Second/20), 40))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := r.Group("/auth")
	auth.POST("/signup", h.Signup)
	auth.POST("/login", h.Login)

	chat := r.Group("/api/chat")
	chat.Use(h.AuthRequired())
	chat.POST("/send/:userID", h.SendMessage)
	chat.GET("/messages/:userID", h.GetMessages)
	chat.GET("/list", h.GetChatList)
	chat.PUT("/read/:userID", h.MarkAsRead)

	r.GET("/ws", h.ServeWebSocket)

	return r
}
