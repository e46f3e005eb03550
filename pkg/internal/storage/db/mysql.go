//go:build !no_mysql

package db

import (
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/yeisme/advstorage/pkg/configs"
)

// openMySQL 打开 MySQL/MariaDB.附件时间列需要 parseTime，uuid 与 uri 列需要 utf8mb4.
func openMySQL(dsn string) gorm.Dialector {
	return mysql.New(mysql.Config{
		DSN:               withDSNParams(dsn, "parseTime=true", "charset=utf8mb4", "loc=UTC"),
		DefaultStringSize: 255,
	})
}

func init() {
	RegisterDialectorFactory(configs.MySQL, openMySQL)
}
