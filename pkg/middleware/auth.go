package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/advstorage/pkg/configs"
)

const callerKey = "caller"

// AuthMiddleware 要求请求带有反向代理注入的身份，并把调用方记录到 gin.Context，
// 采纳、放弃与迁移的日志用它标识操作人.
//
// 跳过路径（如 /metrics、/health）不做校验；dev_allow_query 打开时可以用 ?user= 代替请求头.
func AuthMiddleware(conf configs.AuthConfig) gin.HandlerFunc {
	headers := conf.GetIdentityHeaders()

	return func(c *gin.Context) {
		caller := callerFromHeaders(c, headers)

		if !conf.Enabled || isSkippedPath(c.Request.URL.Path, conf.SkipPaths) {
			if caller != "" {
				c.Set(callerKey, caller)
			}

			c.Next()

			return
		}

		if caller == "" && conf.DevAllowQuery {
			caller = strings.TrimSpace(c.Query("user"))
		}

		if caller == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(callerKey, caller)
		c.Next()
	}
}

// GetCaller 返回认证得到的调用方，未知时为空串.
func GetCaller(c *gin.Context) string {
	return c.GetString(callerKey)
}

func callerFromHeaders(c *gin.Context, headers []string) string {
	for _, h := range headers {
		if v := strings.TrimSpace(c.GetHeader(h)); v != "" {
			return v
		}
	}

	return ""
}

// isSkippedPath 判断路径是否以任一前缀开头，空前缀忽略.
func isSkippedPath(path string, prefixes []string) bool {
	if path == "" {
		return false
	}

	for _, p := range prefixes {
		if p = strings.TrimSpace(p); p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}
