//go:build !no_sqlite && !cgo

package db

import (
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/yeisme/advstorage/pkg/configs"
)

// openSQLite 使用纯 Go 的 modernc 驱动，参数形式为 _pragma=name(value).
func openSQLite(dsn string) gorm.Dialector {
	return sqlite.Open(withDSNParams(dsn,
		"_pragma=busy_timeout("+sqliteBusyTimeoutMs+")",
		"_pragma=journal_mode(WAL)",
		"_pragma=foreign_keys(1)",
	))
}

func init() {
	RegisterDialectorFactory(configs.SQLite, openSQLite)
}
