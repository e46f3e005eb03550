//go:build !no_sqlite && cgo

package db

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yeisme/advstorage/pkg/configs"
)

// openSQLite 使用 mattn/go-sqlite3，参数形式为 _name=value.
func openSQLite(dsn string) gorm.Dialector {
	return sqlite.Open(withDSNParams(dsn,
		"_busy_timeout="+sqliteBusyTimeoutMs,
		"_journal_mode=WAL",
		"_foreign_keys=on",
	))
}

func init() {
	RegisterDialectorFactory(configs.SQLite, openSQLite)
}
