package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	WsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_ws_connections",
		Help: "Current number of active websocket connections",
	})
	MessagesPersisted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_persisted_total",
		Help: "Messages durably written to the store",
	})
	MessagesDelivered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_delivered_total",
		Help: "Messages pushed to at least one live connection",
	})
	MessagesFallback = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_fallback_total",
		Help: "Messages pushed live after the durable write failed",
	})
	ClientsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_clients_dropped_total",
		Help: "Live connections dropped for not keeping up with pushes",
	})
	HttpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	HttpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

func init() {
	prometheus.MustRegister(
		WsConnections, MessagesPersisted, MessagesDelivered,
		MessagesFallback, ClientsDropped,
		HttpRequestsTotal, HttpRequestDuration,
	)
}

// GinMiddleware records request counts and latency per route.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		labels := prometheus.Labels{"method": c.Request.Method, "path": path, "status": status}
		HttpRequestsTotal.With(labels).Inc()
		HttpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}
