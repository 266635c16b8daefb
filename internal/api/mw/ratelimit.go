package mw

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type keyLimiter struct {
	lim *rate.Limiter
	ts  time.Time
}

type limiterPool struct {
	mu  sync.Mutex
	m   map[string]*keyLimiter
	r   rate.Limit
	b   int
	ttl time.Duration
}

func newLimiterPool(r rate.Limit, burst int, ttl time.Duration) *limiterPool {
	return &limiterPool{m: make(map[string]*keyLimiter), r: r, b: burst, ttl: ttl}
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	kl, ok := p.m[key]
	if ok {
		kl.ts = time.Now()
		return kl.lim
	}
	lim := rate.NewLimiter(p.r, p.b)
	p.m[key] = &keyLimiter{lim: lim, ts: time.Now()}
	return lim
}

func (p *limiterPool) gc() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		p.mu.Lock()
		for k, v := range p.m {
			if now.Sub(v.ts) > p.ttl {
				delete(p.m, k)
			}
		}
		p.mu.Unlock()
	}
}

// RateLimit returns a token-bucket limiter keyed by IP and route.
func RateLimit(r rate.Limit, burst int) gin.HandlerFunc {
	pool := newLimiterPool(r, burst, 2*time.Minute)
	go pool.gc()
	return func(c *gin.Context) {
		ip := clientIP(c.Request.RemoteAddr)
		key := ip + "|" + c.FullPath()
		if key == ip+"|" {
			key = ip + "|" + c.Request.URL.Path
		}
		if !pool.get(key).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

func clientIP(remote string) string {
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		return remote
	}
	return host
}
