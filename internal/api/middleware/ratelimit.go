package middleware

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/Gomathi-Raji/campus-book-swap-main/internal/config"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiterMiddleware keeps one token bucket per client IP.
type RateLimiterMiddleware struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
}

// NewRateLimiterMiddleware creates a limiter from the configured bucket size and refill rate.
func NewRateLimiterMiddleware(cfg *config.Config) *RateLimiterMiddleware {
	return &RateLimiterMiddleware{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Limit(cfg.RateLimitRefillRate),
		burst:   cfg.RateLimitBucketSize,
		idleTTL: 30 * time.Minute,
	}
}

func (rm *RateLimiterMiddleware) getClientLimiter(key string, now time.Time) *rate.Limiter {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	cl, exists := rm.clients[key]
	if !exists {
		cl = &clientLimiter{limiter: rate.NewLimiter(rm.limit, rm.burst)}
		rm.clients[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// Cleanup drops clients idle for longer than the idle TTL and returns how many were removed.
func (rm *RateLimiterMiddleware) Cleanup(now time.Time) int {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	removed := 0
	for key, cl := range rm.clients {
		if now.Sub(cl.lastSeen) > rm.idleTTL {
			delete(rm.clients, key)
			removed++
		}
	}
	return removed
}

// RunCleanup calls Cleanup every interval until stop is closed.
func (rm *RateLimiterMiddleware) RunCleanup(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			if n := rm.Cleanup(now); n > 0 {
				log.Printf("Rate limiter cleanup removed %d idle clients.", n)
			}
		}
	}
}

// Limit creates the Gin middleware handler.
func (rm *RateLimiterMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientKey := c.ClientIP()
		if !rm.getClientLimiter(clientKey, time.Now()).Allow() {
			log.Printf("Rate limit exceeded for client %s on %s %s", clientKey, c.Request.Method, c.FullPath())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}
