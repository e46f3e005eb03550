package middleware_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/advstorage/pkg/configs"
	"github.com/yeisme/advstorage/pkg/middleware"
)

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)

	e := gin.New()
	e.Use(mw...)
	e.GET("/viewer", func(c *gin.Context) { c.String(http.StatusOK, middleware.GetRole(c).String()) })
	e.POST("/operator", middleware.RequireMinRole(middleware.RoleOperator), func(c *gin.Context) { c.Status(http.StatusOK) })
	e.POST("/admin", middleware.RequireMinRole(middleware.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	return e
}

func serve(e *gin.Engine, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)

	return w
}

// TestRoleDefaults 测试缺省角色与 X-Role 请求头.
func TestRoleDefaults(t *testing.T) {
	e := newEngine(middleware.RoleMiddleware(middleware.RoleViewer))

	assert.Equal(t, "viewer", serve(e, http.MethodGet, "/viewer", nil).Body.String())
	assert.Equal(t, http.StatusForbidden, serve(e, http.MethodPost, "/operator", nil).Code)

	op := map[string]string{"X-Role": "Operator"}
	assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/operator", op).Code)
	assert.Equal(t, http.StatusForbidden, serve(e, http.MethodPost, "/admin", op).Code)

	// 未知角色降级为缺省值
	assert.Equal(t, "viewer", serve(e, http.MethodGet, "/viewer", map[string]string{"X-Role": "root"}).Body.String())

	admin := newEngine(middleware.RoleMiddleware(middleware.RoleAdmin))
	assert.Equal(t, http.StatusOK, serve(admin, http.MethodPost, "/admin", nil).Code)

	w := serve(e, http.MethodPost, "/admin", op)
	assert.Contains(t, w.Body.String(), `"required":"admin"`)
}

// TestParseRole 测试角色名解析.
func TestParseRole(t *testing.T) {
	r, ok := middleware.ParseRole(" ADMIN ")
	assert.True(t, ok)
	assert.Equal(t, middleware.RoleAdmin, r)
	assert.True(t, r.Allows(middleware.RoleOperator))

	_, ok = middleware.ParseRole("root")
	assert.False(t, ok)
	assert.Equal(t, "viewer", middleware.Role(42).String())
}

// TestAuthSkipPaths 测试认证与跳过路径.
func TestAuthSkipPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)

	e := gin.New()
	e.Use(middleware.AuthMiddleware(configs.AuthConfig{Enabled: true, SkipPaths: []string{"/health"}}))
	e.GET("/health/db", func(c *gin.Context) { c.Status(http.StatusOK) })
	e.GET("/jobs", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/health/db", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/jobs", nil).Code)
	assert.Equal(t, http.StatusOK,
		serve(e, http.MethodGet, "/jobs", map[string]string{"X-Forwarded-Email": "ops@example.com"}).Code)
}

// TestRateLimitPerIP 测试按 IP 限流.
func TestRateLimitPerIP(t *testing.T) {
	e := newEngine(middleware.RateLimitMiddleware(configs.RateLimitConfig{
		Enabled: true,
		RPS:     0.001,
		Burst:   2,
		Key:     "ip",
	}))

	first := map[string]string{"X-Forwarded-For": "10.0.0.1"}
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/viewer", first).Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/viewer", first).Code)

	w := serve(e, http.MethodGet, "/viewer", first)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// 其他来源不受影响
	other := map[string]string{"X-Forwarded-For": "10.0.0.2"}
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/viewer", other).Code)
}

// TestRateLimitDisabled 测试未启用时不限流.
func TestRateLimitDisabled(t *testing.T) {
	e := newEngine(middleware.RateLimitMiddleware(configs.RateLimitConfig{Enabled: false, RPS: 0.001, Burst: 1}))

	for range 5 {
		assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/viewer", nil).Code)
	}
}

// TestAuthCaller 测试调用方身份的提取与 ?user= 调试入口.
func TestAuthCaller(t *testing.T) {
	gin.SetMode(gin.TestMode)

	e := gin.New()
	e.Use(middleware.AuthMiddleware(configs.AuthConfig{Enabled: true, DevAllowQuery: true}))
	e.GET("/whoami", func(c *gin.Context) { c.String(http.StatusOK, middleware.GetCaller(c)) })

	w := serve(e, http.MethodGet, "/whoami", map[string]string{
		"X-Auth-Request-Email": "alice@example.com",
		"X-Forwarded-Email":    "bob@example.com",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice@example.com", w.Body.String())

	w = serve(e, http.MethodGet, "/whoami?user=carol", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "carol", w.Body.String())

	strict := gin.New()
	strict.Use(middleware.AuthMiddleware(configs.AuthConfig{Enabled: true}))
	strict.GET("/whoami", func(c *gin.Context) { c.String(http.StatusOK, middleware.GetCaller(c)) })
	assert.Equal(t, http.StatusUnauthorized, serve(strict, http.MethodGet, "/whoami?user=carol", nil).Code)
}

// TestRateLimitExemptPaths 测试豁免路径不消耗令牌.
func TestRateLimitExemptPaths(t *testing.T) {
	e := newEngine(middleware.RateLimitMiddleware(configs.RateLimitConfig{
		Enabled:     true,
		RPS:         0.001,
		Burst:       1,
		Key:         "global",
		ExemptPaths: []string{"/viewer"},
	}))

	// 唯一的令牌被 /admin 消耗，返回 403 来自角色校验
	assert.Equal(t, http.StatusForbidden, serve(e, http.MethodPost, "/admin", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(e, http.MethodPost, "/admin", nil).Code)

	for range 3 {
		assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/viewer", nil).Code)
	}
}

// TestBodyLimit 测试请求体超限时读取报告 MaxBytesError.
func TestBodyLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	e := gin.New()
	e.Use(middleware.BodyLimitMiddleware(8))
	e.POST("/upload", func(c *gin.Context) {
		data, err := io.ReadAll(c.Request.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.Status(http.StatusRequestEntityTooLarge)
				return
			}

			c.Status(http.StatusBadRequest)

			return
		}

		c.String(http.StatusOK, "%d", len(data))
	})

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(body))
		w := httptest.NewRecorder()
		e.ServeHTTP(w, req)

		return w
	}

	w := send("12345678")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "8", w.Body.String())

	assert.Equal(t, http.StatusRequestEntityTooLarge, send("123456789").Code)
}
