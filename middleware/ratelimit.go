package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// WriteRateLimit 写接口限流中间件，GET/HEAD/OPTIONS 不计数
// 每个身份（已登录按用户，否则按 IP）在 window 内最多 maxRequests 次写请求，超过返回 429
// 过期记录在请求路径上按 window 周期顺带清理，不单独起协程
func WriteRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	type entry struct {
		timestamps []time.Time
	}
	var (
		mu        sync.Mutex
		store     = make(map[string]*entry)
		lastSweep = time.Now()
	)

	prune := func(e *entry, cutoff time.Time) {
		kept := e.timestamps[:0]
		for _, t := range e.timestamps {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		e.timestamps = kept
	}

	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		if maxRequests <= 0 {
			c.Next()
			return
		}

		key := "ip:" + c.ClientIP()
		if id := GetCurrentUserID(c); id != 0 {
			key = "user:" + strconv.FormatUint(uint64(id), 10)
		}
		now := time.Now()
		cutoff := now.Add(-window)

		mu.Lock()
		if now.Sub(lastSweep) >= window {
			for k, e := range store {
				prune(e, cutoff)
				if len(e.timestamps) == 0 {
					delete(store, k)
				}
			}
			lastSweep = now
		}

		e, ok := store[key]
		if !ok {
			e = &entry{}
			store[key] = e
		}
		prune(e, cutoff)
		if len(e.timestamps) >= maxRequests {
			retry := e.timestamps[0].Add(window).Sub(now)
			mu.Unlock()
			c.Header("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "操作过于频繁，请稍后再试",
			})
			return
		}
		e.timestamps = append(e.timestamps, now)
		mu.Unlock()
		c.Next()
	}
}
