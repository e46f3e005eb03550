package configs

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DBType 目录数据库类型.
type DBType string

const (
	PostgreSQL DBType = "postgresql"
	Postgres   DBType = "postgre"
	Pg         DBType = "pg"

	MySQL   DBType = "mysql"
	MariaDB DBType = "mariadb"

	SQLite DBType = "sqlite"
)

// dbDialects 别名到方言的映射.
var dbDialects = map[DBType]DBType{
	PostgreSQL: PostgreSQL,
	Postgres:   PostgreSQL,
	Pg:         PostgreSQL,
	MySQL:      MySQL,
	MariaDB:    MySQL,
	SQLite:     SQLite,
}

const (
	DefaultDatabaseType    = SQLite
	DefaultDatabaseHost    = "localhost"
	DefaultDatabasePort    = 5432
	DefaultDatabaseUser    = "postgres"
	DefaultDatabaseName    = "advstorage"
	DefaultDatabaseSSLMode = "disable"
	DefaultMaxOpenConns    = 0 // 不限制，sqlite 固定为 1
	DefaultMaxIdleConns    = 5
	DefaultConnMaxLifetime = 30 * time.Minute
	DefaultDBLogLevel      = "warn"
)

// DBConfig 目录数据库配置.DSN 非空时直接使用，忽略 host 等分项.
type DBConfig struct {
	Type            DBType        `mapstructure:"type"              rule:"oneof=postgresql postgre pg mysql mariadb sqlite"`
	DSN             string        `mapstructure:"dsn"`
	Host            string        `mapstructure:"host"              rule:"omitempty,hostname|ip"`
	Port            int           `mapstructure:"port"              rule:"min=1,max=65535"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"          rule:"required_without=DSN"`
	SSLMode         string        `mapstructure:"sslmode"           rule:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"    rule:"min=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    rule:"min=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" rule:"min=0"`
	LogLevel        string        `mapstructure:"log_level"         rule:"omitempty,oneof=silent error warn info"`
}

// Dialect 把别名归一为 PostgreSQL、MySQL 或 SQLite，未知类型返回空串.
func (c *DBConfig) Dialect() DBType {
	return dbDialects[DBType(strings.ToLower(string(c.Type)))]
}

// GetDSN 返回连接串.PostgreSQL 用 key=value 写法，MySQL 用 go-sql-driver 写法，
// SQLite 用 file: URI，Database 不带 .db 后缀时自动补上.
func (c *DBConfig) GetDSN() string {
	if c.DSN != "" {
		return c.DSN
	}

	switch c.Dialect() {
	case PostgreSQL:
		parts := []string{
			"host=" + c.Host,
			fmt.Sprintf("port=%d", c.Port),
			"dbname=" + c.Database,
			"sslmode=" + c.SSLMode,
		}
		if c.User != "" {
			parts = append(parts, "user="+c.User)
		}

		if c.Password != "" {
			parts = append(parts, "password="+c.Password)
		}

		return strings.Join(parts, " ")
	case MySQL:
		auth := c.User
		if c.Password != "" {
			auth += ":" + c.Password
		}

		return fmt.Sprintf("%s@tcp(%s:%d)/%s", auth, c.Host, c.Port, c.Database)
	case SQLite:
		name := c.Database
		if filepath.Ext(name) == "" {
			name += ".db"
		}

		return "file:" + name
	default:
		return ""
	}
}

// Redacted 返回可以写入日志的连接目标，不含密码.
func (c *DBConfig) Redacted() string {
	switch {
	case c.DSN != "":
		if u, err := url.Parse(c.DSN); err == nil && u.User != nil {
			return u.Redacted()
		}

		return string(c.Dialect())
	case c.Dialect() == SQLite:
		return c.GetDSN()
	default:
		return fmt.Sprintf("%s:%d/%s", c.Host, c.Port, c.Database)
	}
}

func (c *DBConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("db.type", DefaultDatabaseType)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.host", DefaultDatabaseHost)
	v.SetDefault("db.port", DefaultDatabasePort)
	v.SetDefault("db.user", DefaultDatabaseUser)
	v.SetDefault("db.password", "")
	v.SetDefault("db.database", DefaultDatabaseName)
	v.SetDefault("db.sslmode", DefaultDatabaseSSLMode)
	v.SetDefault("db.max_open_conns", DefaultMaxOpenConns)
	v.SetDefault("db.max_idle_conns", DefaultMaxIdleConns)
	v.SetDefault("db.conn_max_lifetime", DefaultConnMaxLifetime)
	v.SetDefault("db.log_level", DefaultDBLogLevel)
}
