// Package db 打开目录数据库.各方言的驱动在带构建标签的文件中注册，
// 构建时可以用 no_mysql、no_postgres、no_sqlite 去掉不需要的驱动.
package db

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	gormPrometheus "gorm.io/plugin/prometheus"

	"github.com/yeisme/advstorage/pkg/configs"
	nlog "github.com/yeisme/advstorage/pkg/log"
)

const (
	// sqliteBusyTimeoutMs 索引器、删除器与请求并发写入时等待锁的时间.
	sqliteBusyTimeoutMs = "5000"

	slowQueryThreshold   = 500 * time.Millisecond
	metricsRefreshPeriod = 15 // 秒
)

// DialectorFactory 由 DSN 创建 gorm 方言.
type DialectorFactory func(dsn string) gorm.Dialector

var dialectorFactories = map[configs.DBType]DialectorFactory{}

// RegisterDialectorFactory 注册方言，dialect 使用 DBConfig.Dialect 的归一值.
func RegisterDialectorFactory(dialect configs.DBType, factory DialectorFactory) {
	dialectorFactories[dialect] = factory
}

// GetRegisteredDBTypes 返回编译进二进制的方言，按名称排序.
func GetRegisteredDBTypes() []configs.DBType {
	types := make([]configs.DBType, 0, len(dialectorFactories))
	for t := range dialectorFactories {
		types = append(types, t)
	}

	slices.Sort(types)

	return types
}

// Client 目录数据库连接.
type Client struct {
	*gorm.DB
}

// New 按配置打开目录数据库；metricsEnabled 时注册 gorm prometheus 插件.
func New(ctx context.Context, cfg *configs.DBConfig, metricsEnabled bool) (*Client, error) {
	dialect := cfg.Dialect()

	factory, ok := dialectorFactories[dialect]
	if !ok {
		return nil, fmt.Errorf("unsupported database type %q (compiled: %v)", cfg.Type, GetRegisteredDBTypes())
	}

	dsn := cfg.GetDSN()
	if dsn == "" {
		return nil, fmt.Errorf("empty DSN for database type %q", cfg.Type)
	}

	dbLog := nlog.Component("db")

	gdb, err := gorm.Open(factory(dsn), &gorm.Config{
		Logger: logger.New(&dbLog, logger.Config{
			SlowThreshold:             slowQueryThreshold,
			LogLevel:                  gormLogLevel(cfg.LogLevel),
			IgnoreRecordNotFoundError: true,
		}),
		PrepareStmt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}

	// sqlite 只允许一个写连接
	maxOpen := cfg.MaxOpenConns
	if dialect == configs.SQLite {
		maxOpen = 1
	}

	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}

	client := &Client{DB: gdb}

	if metricsEnabled {
		if err := client.Use(gormPrometheus.New(gormPrometheus.Config{
			DBName:          metricsDBName(cfg),
			RefreshInterval: metricsRefreshPeriod,
		})); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("register gorm metrics: %w", err)
		}
	}

	dbLog.Info().
		Str("dialect", string(dialect)).
		Str("target", cfg.Redacted()).
		Int("max_open_conns", maxOpen).
		Bool("metrics", metricsEnabled).
		Msg("catalog database connected")

	return client, nil
}

// metricsDBName 作为 gorm_dbstats 指标的 db 标签.
func metricsDBName(cfg *configs.DBConfig) string {
	if cfg.Database != "" {
		return strings.TrimSuffix(cfg.Database, ".db")
	}

	return string(cfg.Dialect())
}

// Ping 检查数据库连接.
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.PingContext(ctx)
}

// Close 关闭连接池.
func (c *Client) Close() error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// withDSNParams 向 DSN 追加查询参数，已经出现的参数名不重复追加.
// _pragma 可以出现多次，按完整的 name(value) 去重.
func withDSNParams(dsn string, params ...string) string {
	for _, p := range params {
		name, _, _ := strings.Cut(p, "=")
		if strings.Contains(dsn, p) || (name != "_pragma" && strings.Contains(dsn, name+"=")) {
			continue
		}

		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}

		dsn += sep + p
	}

	return dsn
}
