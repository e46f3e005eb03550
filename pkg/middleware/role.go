package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Role 请求方角色，数值越大权限越高.
type Role int

const (
	RoleViewer   Role = iota + 1 // 查询附件、任务与状态
	RoleOperator                 // 写入、删除、采纳与放弃文件
	RoleAdmin                    // 迁移存储、管理调度任务
)

// RoleHeader 携带角色的请求头，通常由前置网关注入.
const RoleHeader = "X-Role"

const roleCtxKey = "role"

type roleKey struct{}

var roleNames = map[Role]string{
	RoleViewer:   "viewer",
	RoleOperator: "operator",
	RoleAdmin:    "admin",
}

func (r Role) String() string {
	if s, ok := roleNames[r]; ok {
		return s
	}

	return roleNames[RoleViewer]
}

// Allows 报告 r 是否不低于 least.
func (r Role) Allows(least Role) bool { return r >= least }

// ParseRole 解析角色名，大小写不敏感；未知值返回 false.
func ParseRole(s string) (Role, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for r, name := range roleNames {
		if name == s {
			return r, true
		}
	}

	return 0, false
}

// RoleMiddleware 从 X-Role 解析角色并写入 gin.Context 与 request context.
// 缺少或无法识别时使用 fallback：未启用认证时通常为 admin，启用后为 viewer.
func RoleMiddleware(fallback Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, ok := ParseRole(c.GetHeader(RoleHeader))
		if !ok {
			r = fallback
		}

		c.Set(roleCtxKey, r)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), roleKey{}, r))
		c.Next()
	}
}

// RoleFromContext 取 request context 中的角色，供 service 层使用.
func RoleFromContext(ctx context.Context) (Role, bool) {
	r, ok := ctx.Value(roleKey{}).(Role)
	return r, ok
}

// GetRole 返回当前请求的角色，未经过 RoleMiddleware 时为 viewer.
func GetRole(c *gin.Context) Role {
	if v, ok := c.Get(roleCtxKey); ok {
		if r, ok := v.(Role); ok {
			return r
		}
	}

	if r, ok := RoleFromContext(c.Request.Context()); ok {
		return r
	}

	return RoleViewer
}

// RequireMinRole 角色低于 least 时返回 403.
func RequireMinRole(least Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if r := GetRole(c); !r.Allows(least) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":    "forbidden: insufficient role",
				"role":     r.String(),
				"required": least.String(),
			})

			return
		}

		c.Next()
	}
}
