package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestWriteRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// 短窗口 200ms，最多 2 次
	router := gin.New()
	router.Use(WriteRateLimit(2, 200*time.Millisecond))
	handler := func(c *gin.Context) { c.String(200, "ok") }
	router.POST("/menu/items", handler)
	router.GET("/menu/items", handler)

	doReq := func(method, ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/menu/items", nil)
		req.RemoteAddr = ip + ":12345"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	// 同一 IP 连续 3 次，第 3 次应返回 429
	w1 := doReq("POST", "192.168.1.1")
	w2 := doReq("POST", "192.168.1.1")
	w3 := doReq("POST", "192.168.1.1")

	assert.Equal(t, 200, w1.Code)
	assert.Equal(t, 200, w2.Code)
	assert.Equal(t, http.StatusTooManyRequests, w3.Code)
	assert.Contains(t, w3.Body.String(), "频繁")
	assert.NotEmpty(t, w3.Header().Get("Retry-After"))

	// 读请求不计数
	assert.Equal(t, 200, doReq("GET", "192.168.1.1").Code)

	// 不同 IP 互不影响
	assert.Equal(t, 200, doReq("POST", "192.168.1.2").Code)
	assert.Equal(t, 200, doReq("POST", "192.168.1.2").Code)

	// 窗口过后恢复
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, 200, doReq("POST", "192.168.1.1").Code)
}

func TestWriteRateLimitKeysByUser(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if c.GetHeader("X-User") == "a" {
			c.Set(ContextUserID, uint(1))
		} else {
			c.Set(ContextUserID, uint(2))
		}
	})
	router.Use(WriteRateLimit(1, time.Minute))
	router.DELETE("/x", func(c *gin.Context) { c.String(200, "ok") })

	doReq := func(user string) int {
		req := httptest.NewRequest("DELETE", "/x", nil)
		req.Header.Set("X-User", user)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, 200, doReq("a"))
	assert.Equal(t, http.StatusTooManyRequests, doReq("a"))
	assert.Equal(t, 200, doReq("b"))
}
