package configs

import "github.com/spf13/viper"

// DefaultIdentityHeaders oauth2-proxy 常用的身份请求头.
var DefaultIdentityHeaders = []string{"X-Auth-Request-Email", "X-Forwarded-Email", "X-Auth-Request-User"}

// AuthConfig 反向代理认证.服务本身不校验凭据，只信任代理注入的身份请求头，
// 调用方会记录到采纳、放弃与迁移操作的日志中.
type AuthConfig struct {
	Enabled         bool     `mapstructure:"enabled"`
	SkipPaths       []string `mapstructure:"skip_paths"`       // 不要求身份的路径前缀
	IdentityHeaders []string `mapstructure:"identity_headers"` // 按顺序取第一个非空值
	DevAllowQuery   bool     `mapstructure:"dev_allow_query"`  // 允许 ?user= 代替请求头，仅用于本地调试
}

// GetIdentityHeaders 未配置时返回 DefaultIdentityHeaders.
func (c *AuthConfig) GetIdentityHeaders() []string {
	if len(c.IdentityHeaders) == 0 {
		return DefaultIdentityHeaders
	}

	return c.IdentityHeaders
}

func (c *AuthConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.dev_allow_query", false)
	v.SetDefault("auth.identity_headers", DefaultIdentityHeaders)
	v.SetDefault("auth.skip_paths", []string{"/metrics", "/health", "/debug/pprof"})
}
