package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVEntry 数据库后端的键值表.
type KVEntry struct {
	Key       string `gorm:"column:kv_key;primaryKey;size:512"`
	Value     []byte
	ExpiresAt int64 `gorm:"index"` // unix 纳秒，0 表示不过期
	UpdatedAt time.Time
}

// TableName 指定表名.
func (KVEntry) TableName() string { return "advst_kv" }

// DBKV 基于 gorm 的 KV 实现，复用目录数据库，单机部署时无需额外的 redis/nats.
type DBKV struct {
	db *gorm.DB
}

// NewDBKV 创建数据库 KV 实例，config 必须是 *gorm.DB.
func NewDBKV(ctx context.Context, config any) (KVStore, error) {
	db, ok := config.(*gorm.DB)
	if !ok || db == nil {
		return nil, fmt.Errorf("invalid DB config: a *gorm.DB is required")
	}

	if err := db.WithContext(ctx).AutoMigrate(&KVEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate kv table: %w", err)
	}

	return &DBKV{db: db}, nil
}

// Get 获取键的值.
func (d *DBKV) Get(ctx context.Context, key string) ([]byte, error) {
	var e KVEntry

	err := d.live(ctx).Where("kv_key = ?", key).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(key)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	return e.Value, nil
}

// Set 设置键的值，存在则覆盖.
func (d *DBKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	e := KVEntry{Key: key, Value: value, UpdatedAt: time.Now()}

	if ttl > 0 {
		e.ExpiresAt = time.Now().Add(ttl).UnixNano()
	}

	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kv_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
	}).Create(&e).Error
	if err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}

	return nil
}

// Delete 删除键.
func (d *DBKV) Delete(ctx context.Context, key string) error {
	if err := d.db.WithContext(ctx).Where("kv_key = ?", key).Delete(&KVEntry{}).Error; err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}

	return nil
}

// Exists 检查键是否存在.
func (d *DBKV) Exists(ctx context.Context, key string) (bool, error) {
	var n int64
	if err := d.live(ctx).Where("kv_key = ?", key).Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to check key existence: %w", err)
	}

	return n > 0, nil
}

// Keys 返回匹配模式的键.尾部为 '*' 的前缀模式下推到 SQL.
func (d *DBKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	q := d.live(ctx)

	if prefix, ok := strings.CutSuffix(pattern, "*"); ok && !strings.ContainsAny(prefix, "*?[\\%_") {
		q = q.Where("kv_key LIKE ?", prefix+"%")
	}

	var all []string
	if err := q.Order("kv_key").Pluck("kv_key", &all).Error; err != nil {
		return nil, fmt.Errorf("failed to get keys: %w", err)
	}

	keys := make([]string, 0, len(all))

	for _, k := range all {
		if matchPattern(pattern, k) {
			keys = append(keys, k)
		}
	}

	return keys, nil
}

// Close 连接由目录数据库持有，这里不关闭.
func (d *DBKV) Close() error {
	return nil
}

func (d *DBKV) live(ctx context.Context) *gorm.DB {
	return d.db.WithContext(ctx).Model(&KVEntry{}).
		Where("expires_at = 0 OR expires_at > ?", time.Now().UnixNano())
}

func init() {
	RegisterKVFactory(KVTypeDB, NewDBKV)
}
