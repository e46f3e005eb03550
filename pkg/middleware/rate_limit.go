package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yeisme/advstorage/pkg/configs"
)

const (
	limiterIdleTTL      = 10 * time.Minute
	limiterSweepEvery   = time.Minute
	limiterUnknownKey   = "unknown"
	limiterHeaderPrefix = "header:"
)

type keyedLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet 按键分配令牌桶，闲置超过 limiterIdleTTL 的键在下一次清扫时移除.
type limiterSet struct {
	mu        sync.Mutex
	rps       rate.Limit
	burst     int
	items     map[string]*keyedLimiter
	lastSweep time.Time
}

func newLimiterSet(rps float64, burst int) *limiterSet {
	return &limiterSet{
		rps:       rate.Limit(rps),
		burst:     burst,
		items:     make(map[string]*keyedLimiter),
		lastSweep: time.Now(),
	}
}

func (s *limiterSet) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) >= limiterSweepEvery {
		for k, item := range s.items {
			if now.Sub(item.lastSeen) > limiterIdleTTL {
				delete(s.items, k)
			}
		}

		s.lastSweep = now
	}

	item, ok := s.items[key]
	if !ok {
		item = &keyedLimiter{limiter: rate.NewLimiter(s.rps, s.burst)}
		s.items[key] = item
	}

	item.lastSeen = now

	return item.limiter
}

// RateLimitMiddleware 令牌桶限流.Key 为 global、ip 或 header:<Name>，请求头缺失时按 IP.
func RateLimitMiddleware(cfg configs.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	mode := strings.ToLower(strings.TrimSpace(cfg.Key))
	header := ""

	if strings.HasPrefix(mode, limiterHeaderPrefix) {
		header = strings.TrimPrefix(mode, limiterHeaderPrefix)
	}

	keyOf := func(c *gin.Context) string {
		if mode == "global" || mode == "" {
			return "global"
		}

		if header != "" {
			if v := c.GetHeader(header); v != "" {
				return limiterHeaderPrefix + v
			}
		}

		if ip := c.ClientIP(); ip != "" {
			return ip
		}

		return limiterUnknownKey
	}

	set := newLimiterSet(cfg.RPS, cfg.Burst)
	retryAfter := strconv.Itoa(int(cfg.GetRetryAfter().Seconds()))

	return func(c *gin.Context) {
		if isSkippedPath(c.Request.URL.Path, cfg.ExemptPaths) {
			c.Next()
			return
		}

		if !set.get(keyOf(c), time.Now()).Allow() {
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})

			return
		}

		c.Next()
	}
}
