//go:build !no_postgres

package db

import (
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yeisme/advstorage/pkg/configs"
)

const pgApplicationName = "advstorage"

// openPostgres 打开 PostgreSQL，连接上标注 application_name 便于在 pg_stat_activity 中区分.
func openPostgres(dsn string) gorm.Dialector {
	return postgres.New(postgres.Config{DSN: withApplicationName(dsn)})
}

// withApplicationName 同时支持 URL 与 key=value 两种 DSN 写法.
func withApplicationName(dsn string) string {
	if strings.Contains(dsn, "://") {
		return withDSNParams(dsn, "application_name="+pgApplicationName)
	}

	if strings.Contains(dsn, "application_name=") {
		return dsn
	}

	return strings.TrimSpace(dsn + " application_name=" + pgApplicationName)
}

func init() {
	RegisterDialectorFactory(configs.PostgreSQL, openPostgres)
}
